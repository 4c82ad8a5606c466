package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string

	DBPath            string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	SessionHours       int
	TrustProxy         bool
	CORSAllowedOrigins []string

	PasswordMinLength int
	PasswordMaxLength int

	SeedDemoData           bool
	BootstrapAdminUsername string
	BootstrapAdminPassword string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int
	RequestTimeoutSec        int

	DirectoryDriver      string
	DirectoryDSN         string
	DirectoryTable       string
	DirectoryUserColumn  string
	DirectoryPassColumn  string
	DirectoryRoleColumn  string
	DirectoryActiveColumn string

	NotifySender string
	NotifyFrom   string
	SMTPHost     string
	SMTPPort     int
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", ":8080"),
		DBPath:                   env("APP_DB_PATH", "./data/hrms.db"),
		DBMaxOpenConns:           envInt("APP_DB_MAX_OPEN_CONNS", 4),
		DBMaxIdleConns:           envInt("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime:        time.Duration(envInt("APP_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		SessionHours:             envInt("SESSION_HOURS", 24),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		PasswordMinLength:        envInt("PASSWORD_MIN_LENGTH", 8),
		PasswordMaxLength:        envInt("PASSWORD_MAX_LENGTH", 128),
		SeedDemoData:             envBool("SEED_DEMO_DATA", true),
		BootstrapAdminUsername:   env("BOOTSTRAP_ADMIN_USERNAME", ""),
		BootstrapAdminPassword:   env("BOOTSTRAP_ADMIN_PASSWORD", ""),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		RequestTimeoutSec:        envInt("HTTP_REQUEST_TIMEOUT_SEC", 15),
		DirectoryDriver:          strings.ToLower(env("DIRECTORY_DB_DRIVER", "")),
		DirectoryDSN:             env("DIRECTORY_DB_DSN", ""),
		DirectoryTable:           env("DIRECTORY_TABLE", "accounts"),
		DirectoryUserColumn:      env("DIRECTORY_USER_COL", "username"),
		DirectoryPassColumn:      env("DIRECTORY_PASS_COL", "password_hash"),
		DirectoryRoleColumn:      env("DIRECTORY_ROLE_COL", "role"),
		DirectoryActiveColumn:    env("DIRECTORY_ACTIVE_COL", "active"),
		NotifySender:             strings.ToLower(env("NOTIFY_SENDER", "log")),
		NotifyFrom:               env("NOTIFY_FROM", "hr-console@example.com"),
		SMTPHost:                 env("SMTP_HOST", "127.0.0.1"),
		SMTPPort:                 envInt("SMTP_PORT", 587),
	}

	if cfg.SessionHours <= 0 {
		return Config{}, fmt.Errorf("SESSION_HOURS must be positive")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	if cfg.PasswordMinLength < 6 {
		return Config{}, fmt.Errorf("password min length must be >= 6")
	}
	if cfg.PasswordMaxLength < cfg.PasswordMinLength {
		return Config{}, fmt.Errorf("password max length must be >= min length")
	}
	if cfg.RequestTimeoutSec <= 0 {
		return Config{}, fmt.Errorf("HTTP_REQUEST_TIMEOUT_SEC must be positive")
	}
	switch cfg.DirectoryDriver {
	case "", "pgx", "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("DIRECTORY_DB_DRIVER must be one of: pgx, postgres, mysql")
	}
	if cfg.DirectoryDriver != "" && strings.TrimSpace(cfg.DirectoryDSN) == "" {
		return Config{}, fmt.Errorf("DIRECTORY_DB_DSN is required when DIRECTORY_DB_DRIVER is set")
	}
	switch cfg.NotifySender {
	case "log", "smtp":
	default:
		return Config{}, fmt.Errorf("NOTIFY_SENDER must be one of: log, smtp")
	}
	if cfg.SMTPPort <= 0 {
		return Config{}, fmt.Errorf("invalid SMTP port")
	}
	return cfg, nil
}

func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionHours) * time.Hour
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
