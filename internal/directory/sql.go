package directory

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hrms/internal/config"
	"hrms/internal/models"
)

var identRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLProvisioner writes accounts into a configurable table of an external
// Postgres or MySQL directory. Column and table names come from config and
// are validated as bare identifiers before ever reaching a query string.
type SQLProvisioner struct {
	db        *sql.DB
	driver    string
	table     string
	userCol   string
	passCol   string
	roleCol   string
	activeCol string
}

func New(cfg config.Config) (Provisioner, error) {
	if strings.TrimSpace(cfg.DirectoryDriver) == "" || strings.TrimSpace(cfg.DirectoryDSN) == "" {
		return NoopProvisioner{}, nil
	}
	for _, ident := range []string{cfg.DirectoryTable, cfg.DirectoryUserColumn, cfg.DirectoryPassColumn, cfg.DirectoryRoleColumn, cfg.DirectoryActiveColumn} {
		if ident != "" && !identRx.MatchString(ident) {
			return nil, fmt.Errorf("invalid SQL identifier %q", ident)
		}
	}
	db, err := sql.Open(cfg.DirectoryDriver, cfg.DirectoryDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &SQLProvisioner{
		db:        db,
		driver:    cfg.DirectoryDriver,
		table:     cfg.DirectoryTable,
		userCol:   cfg.DirectoryUserColumn,
		passCol:   cfg.DirectoryPassColumn,
		roleCol:   cfg.DirectoryRoleColumn,
		activeCol: cfg.DirectoryActiveColumn,
	}, nil
}

func (p *SQLProvisioner) UpsertAccount(ctx context.Context, username, passwordHash string, role models.Role) error {
	setCols := []string{fmt.Sprintf("%s=%s", p.passCol, p.ph(1))}
	args := []any{passwordHash}
	idx := 2
	if p.roleCol != "" {
		setCols = append(setCols, fmt.Sprintf("%s=%s", p.roleCol, p.ph(idx)))
		args = append(args, string(role))
		idx++
	}
	if p.activeCol != "" {
		setCols = append(setCols, fmt.Sprintf("%s=%s", p.activeCol, p.ph(idx)))
		args = append(args, 1)
		idx++
	}
	args = append(args, username)
	updateQ := fmt.Sprintf("UPDATE %s SET %s WHERE %s=%s", p.table, strings.Join(setCols, ","), p.userCol, p.ph(idx))
	res, err := p.db.ExecContext(ctx, updateQ, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	cols := []string{p.userCol, p.passCol}
	vals := []any{username, passwordHash}
	if p.roleCol != "" {
		cols = append(cols, p.roleCol)
		vals = append(vals, string(role))
	}
	if p.activeCol != "" {
		cols = append(cols, p.activeCol)
		vals = append(vals, 1)
	}
	phs := make([]string, len(vals))
	for i := range vals {
		phs[i] = p.ph(i + 1)
	}
	insertQ := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", p.table, strings.Join(cols, ","), strings.Join(phs, ","))
	if _, err := p.db.ExecContext(ctx, insertQ, vals...); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") || strings.Contains(strings.ToLower(err.Error()), "unique") {
			_, err = p.db.ExecContext(ctx, updateQ, args...)
		}
		return err
	}
	return nil
}

func (p *SQLProvisioner) SetActive(ctx context.Context, username string, active bool) error {
	if p.activeCol == "" {
		return nil
	}
	flag := 0
	if active {
		flag = 1
	}
	q := fmt.Sprintf("UPDATE %s SET %s=%s WHERE %s=%s", p.table, p.activeCol, p.ph(1), p.userCol, p.ph(2))
	_, err := p.db.ExecContext(ctx, q, flag, username)
	return err
}

func (p *SQLProvisioner) ph(i int) string {
	if strings.Contains(strings.ToLower(p.driver), "pgx") || strings.Contains(strings.ToLower(p.driver), "postgres") {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}
