package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"hrms/internal/auth"
	"hrms/internal/config"
	"hrms/internal/db"
	"hrms/internal/models"
	"hrms/internal/service"
	"hrms/internal/store"
	"hrms/internal/util"
)

func testConfig() config.Config {
	return config.Config{
		ListenAddr:        ":8080",
		SessionHours:      24,
		PasswordMinLength: 8,
		PasswordMaxLength: 128,
		RequestTimeoutSec: 15,
		NotifySender:      "log",
	}
}

func newTestRouter(t *testing.T) (http.Handler, *store.Store, *sql.DB) {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	st := store.New(sqdb)
	for _, u := range []struct {
		username string
		role     models.Role
		inactive bool
	}{
		{"admin", models.RoleAdmin, false},
		{"manager", models.RoleManager, false},
		{"employee", models.RoleEmployee, false},
		{"ghost", models.RoleEmployee, true},
	} {
		hash, err := auth.HashPassword(u.username + "-secret")
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		created, err := st.CreateUser(context.Background(), u.username, hash, u.role, "Test "+u.username, u.username+"@example.com")
		if err != nil {
			t.Fatalf("create user %s: %v", u.username, err)
		}
		if u.inactive {
			if _, err := st.UpdateUserStatus(context.Background(), created.ID, models.UserInactive); err != nil {
				t.Fatalf("deactivate %s: %v", u.username, err)
			}
		}
	}

	cfg := testConfig()
	svc := service.New(cfg, st, nil, nil)
	return NewRouter(cfg, svc), st, sqdb
}

func doLogin(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// loginToken authenticates and returns the bearer token for follow-up calls.
func loginToken(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	rec := doLogin(t, router, username, username+"-secret")
	if rec.Code != 200 {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("login response missing token")
	}
	return out.Token
}

func authedRequest(t *testing.T, router http.Handler, token, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) util.APIError {
	t.Helper()
	var apiErr util.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return apiErr
}

func TestLoginSuccessReturnsTokenAndUser(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doLogin(t, router, "admin", "admin-secret")
	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token     string      `json:"token"`
		ExpiresIn int         `json:"expires_in"`
		User      models.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token == "" {
		t.Error("expected a bearer token")
	}
	if out.ExpiresIn != 24*3600 {
		t.Errorf("expires_in = %d, want %d", out.ExpiresIn, 24*3600)
	}
	if out.User.Username != "admin" || out.User.Role != models.RoleAdmin {
		t.Errorf("unexpected user in response: %+v", out.User)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password_hash")) {
		t.Error("password hash leaked into login response")
	}
}

func TestLoginWrongPasswordReturnsInvalidCredentials(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doLogin(t, router, "admin", "totally-wrong")
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != "invalid_credentials" {
		t.Errorf("code = %q, want invalid_credentials", apiErr.Code)
	}
}

func TestLoginUnknownUserReturnsInvalidCredentials(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doLogin(t, router, "nobody", "whatever12")
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != "invalid_credentials" {
		t.Errorf("code = %q, want invalid_credentials", apiErr.Code)
	}
}

func TestLoginInactiveAccountReturnsForbidden(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doLogin(t, router, "ghost", "ghost-secret")
	if rec.Code != 403 {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Code != "account_inactive" {
		t.Errorf("code = %q, want account_inactive", apiErr.Code)
	}
}

func TestLoginUsernameIsCaseInsensitive(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doLogin(t, router, "ADMIN", "admin-secret")
	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestMeRequiresAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := authedRequest(t, router, "", "GET", "/api/v1/auth/me", nil)
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeReturnsCurrentUser(t *testing.T) {
	router, _, _ := newTestRouter(t)
	token := loginToken(t, router, "manager")

	rec := authedRequest(t, router, token, "GET", "/api/v1/auth/me", nil)
	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var u models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Username != "manager" || u.Role != models.RoleManager {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	router, _, _ := newTestRouter(t)
	token := loginToken(t, router, "employee")

	rec := authedRequest(t, router, token, "POST", "/api/v1/auth/logout", nil)
	if rec.Code != 200 {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = authedRequest(t, router, token, "GET", "/api/v1/auth/me", nil)
	if rec.Code != 401 {
		t.Fatalf("post-logout status = %d, want 401", rec.Code)
	}

	// Logging out again with the same token is a no-op, not an error.
	rec = authedRequest(t, router, token, "POST", "/api/v1/auth/logout", nil)
	if rec.Code != 200 {
		t.Fatalf("second logout status = %d", rec.Code)
	}
}

func TestDeactivatedUserSessionStopsValidating(t *testing.T) {
	router, st, _ := newTestRouter(t)
	token := loginToken(t, router, "employee")

	u, err := st.GetUserByUsername(context.Background(), "employee")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if _, err := st.UpdateUserStatus(context.Background(), u.ID, models.UserInactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rec := authedRequest(t, router, token, "GET", "/api/v1/auth/me", nil)
	if rec.Code != 401 {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
