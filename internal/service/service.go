package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrms/internal/auth"
	"hrms/internal/config"
	"hrms/internal/directory"
	"hrms/internal/models"
	"hrms/internal/notify"
	"hrms/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrSelfDeactivate     = errors.New("cannot deactivate own account")
)

// ValidationError carries field-scoped messages so the API layer can return
// them keyed by the offending input.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type Service struct {
	cfg    config.Config
	st     *store.Store
	dir    directory.Provisioner
	sender notify.Sender
}

func New(cfg config.Config, st *store.Store, dir directory.Provisioner, sender notify.Sender) *Service {
	if dir == nil {
		dir = directory.NoopProvisioner{}
	}
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &Service{cfg: cfg, st: st, dir: dir, sender: sender}
}

func (s *Service) Store() *store.Store { return s.st }

func hashUA(ua string) string {
	sum := sha256.Sum256([]byte(ua))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (rawToken string, user models.User, err error) {
	u, err := s.st.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", models.User{}, ErrInvalidCredentials
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", models.User{}, ErrInvalidCredentials
	}
	if u.Status != models.UserActive {
		return "", models.User{}, ErrAccountInactive
	}

	raw, tokenHash, err := auth.NewSessionToken()
	if err != nil {
		return "", models.User{}, err
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:            uuid.NewString(),
		UserID:        u.ID,
		TokenHash:     tokenHash,
		IPHint:        ip,
		UserAgentHash: hashUA(userAgent),
		ExpiresAt:     now.Add(s.cfg.SessionDuration()),
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.st.CreateSession(ctx, sess); err != nil {
		return "", models.User{}, err
	}
	return raw, u, nil
}

func (s *Service) ValidateSession(ctx context.Context, rawToken string) (models.User, models.Session, error) {
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if sess.RevokedAt != nil || now.After(sess.ExpiresAt) {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	u, err := s.st.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, models.Session{}, ErrInvalidCredentials
	}
	if u.Status != models.UserActive {
		return models.User{}, models.Session{}, ErrAccountInactive
	}
	_ = s.st.TouchSession(ctx, sess.ID)
	return u, sess, nil
}

// Logout revokes the session behind the token. Unknown tokens are a no-op so
// repeated logouts stay idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	sess, err := s.st.GetSessionByTokenHash(ctx, auth.HashToken(rawToken))
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return s.st.RevokeSession(ctx, sess.ID)
}

func (s *Service) ListEmployees(ctx context.Context, q models.EmployeeQuery) (models.PaginatedEmployees, error) {
	return s.st.ListEmployees(ctx, q)
}

func (s *Service) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	return s.st.GetEmployee(ctx, id)
}

func (s *Service) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	return s.st.DashboardStats(ctx)
}

const dateLayout = "2006-01-02"

func validEmail(v string) bool {
	a, err := netmail.ParseAddress(v)
	return err == nil && a.Address == v
}

func validMobile(v string) bool {
	if v == "" {
		return true
	}
	if len(v) != 10 {
		return false
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validDate(v string) bool {
	_, err := time.Parse(dateLayout, v)
	return err == nil
}

func validateEmployee(e models.Employee) error {
	var ve ValidationError
	if strings.TrimSpace(e.FirstName) == "" {
		ve.add("firstName", "first name is required")
	}
	if strings.TrimSpace(e.LastName) == "" {
		ve.add("lastName", "last name is required")
	}
	if strings.TrimSpace(e.Email) == "" {
		ve.add("email", "email is required")
	} else if !validEmail(e.Email) {
		ve.add("email", "invalid email address")
	}
	if !validMobile(e.Mobile) {
		ve.add("mobile", "mobile must be exactly 10 digits")
	}
	if !e.Department.Valid() {
		ve.add("department", "unknown department")
	}
	if !e.Role.Valid() {
		ve.add("role", "unknown role")
	}
	if strings.TrimSpace(e.JoinDate) == "" {
		ve.add("joinDate", "join date is required")
	} else if !validDate(e.JoinDate) {
		ve.add("joinDate", "join date must be YYYY-MM-DD")
	}
	if e.Salary < 0 {
		ve.add("salary", "salary must not be negative")
	}
	if strings.TrimSpace(e.Address) == "" {
		ve.add("address", "address is required")
	}
	if !e.Status.Valid() {
		ve.add("status", "unknown status")
	}
	return ve.orNil()
}

func duplicateEmailErr() error {
	ve := &ValidationError{}
	ve.add("email", "an employee with this email already exists")
	return ve
}

func (s *Service) CreateEmployee(ctx context.Context, actor models.User, e models.Employee) (models.Employee, error) {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = strings.TrimSpace(e.Email)
	e.Mobile = strings.TrimSpace(e.Mobile)
	e.JoinDate = strings.TrimSpace(e.JoinDate)
	e.Address = strings.TrimSpace(e.Address)
	if e.Status == "" {
		e.Status = models.EmployeeActive
	}
	if err := validateEmployee(e); err != nil {
		return models.Employee{}, err
	}
	created, err := s.st.CreateEmployee(ctx, e)
	if err == store.ErrConflict {
		return models.Employee{}, duplicateEmailErr()
	}
	if err != nil {
		return models.Employee{}, err
	}
	s.audit(ctx, actor.ID, "employee.create", fmt.Sprintf("employee:%d", created.ID), map[string]any{"email": created.Email})
	return created, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, actor models.User, id int64, patch models.EmployeePatch) (models.Employee, error) {
	var ve ValidationError
	if patch.FirstName != nil {
		*patch.FirstName = strings.TrimSpace(*patch.FirstName)
		if *patch.FirstName == "" {
			ve.add("firstName", "first name is required")
		}
	}
	if patch.LastName != nil {
		*patch.LastName = strings.TrimSpace(*patch.LastName)
		if *patch.LastName == "" {
			ve.add("lastName", "last name is required")
		}
	}
	if patch.Email != nil {
		*patch.Email = strings.TrimSpace(*patch.Email)
		if *patch.Email == "" {
			ve.add("email", "email is required")
		} else if !validEmail(*patch.Email) {
			ve.add("email", "invalid email address")
		}
	}
	if patch.Mobile != nil {
		*patch.Mobile = strings.TrimSpace(*patch.Mobile)
		if !validMobile(*patch.Mobile) {
			ve.add("mobile", "mobile must be exactly 10 digits")
		}
	}
	if patch.Department != nil && !patch.Department.Valid() {
		ve.add("department", "unknown department")
	}
	if patch.Role != nil && !patch.Role.Valid() {
		ve.add("role", "unknown role")
	}
	if patch.JoinDate != nil {
		*patch.JoinDate = strings.TrimSpace(*patch.JoinDate)
		if !validDate(*patch.JoinDate) {
			ve.add("joinDate", "join date must be YYYY-MM-DD")
		}
	}
	if patch.Salary != nil && *patch.Salary < 0 {
		ve.add("salary", "salary must not be negative")
	}
	if patch.Address != nil {
		*patch.Address = strings.TrimSpace(*patch.Address)
		if *patch.Address == "" {
			ve.add("address", "address is required")
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		ve.add("status", "unknown status")
	}
	if err := ve.orNil(); err != nil {
		return models.Employee{}, err
	}
	updated, err := s.st.UpdateEmployee(ctx, id, patch)
	if err == store.ErrConflict {
		return models.Employee{}, duplicateEmailErr()
	}
	if err != nil {
		return models.Employee{}, err
	}
	s.audit(ctx, actor.ID, "employee.update", fmt.Sprintf("employee:%d", id), nil)
	return updated, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, actor models.User, id int64) error {
	if err := s.st.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actor.ID, "employee.delete", fmt.Sprintf("employee:%d", id), nil)
	return nil
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.cfg.PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", s.cfg.PasswordMinLength)
	}
	if len(password) > s.cfg.PasswordMaxLength {
		return fmt.Errorf("password must be at most %d characters", s.cfg.PasswordMaxLength)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.st.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, actor models.User, username, password string, role models.Role, fullName, email string) (models.User, error) {
	username = strings.TrimSpace(username)
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	var ve ValidationError
	if username == "" {
		ve.add("username", "username is required")
	}
	if !role.Valid() {
		ve.add("role", "unknown role")
	}
	if fullName == "" {
		ve.add("fullName", "full name is required")
	}
	if email == "" {
		ve.add("email", "email is required")
	} else if !validEmail(email) {
		ve.add("email", "invalid email address")
	}
	if err := s.ValidatePassword(password); err != nil {
		ve.add("password", err.Error())
	}
	if err := ve.orNil(); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.st.CreateUser(ctx, username, hash, role, fullName, email)
	if err == store.ErrConflict {
		dup := &ValidationError{}
		dup.add("username", "a user with this username already exists")
		return models.User{}, dup
	}
	if err != nil {
		return models.User{}, err
	}
	if err := s.dir.UpsertAccount(ctx, u.Username, hash, u.Role); err != nil {
		return models.User{}, fmt.Errorf("provision directory account: %w", err)
	}
	_ = s.sender.SendAccountCreated(ctx, u.Email, u.Username)
	s.audit(ctx, actor.ID, "user.create", fmt.Sprintf("user:%d", u.ID), map[string]any{"username": u.Username, "role": u.Role})
	return u, nil
}

// SetUserStatus toggles a console account. Deactivation revokes every live
// session for the account so the change takes effect immediately.
func (s *Service) SetUserStatus(ctx context.Context, actor models.User, id int64, status models.UserStatus) (models.User, error) {
	if !status.Valid() {
		ve := &ValidationError{}
		ve.add("status", "unknown status")
		return models.User{}, ve
	}
	if id == actor.ID && status == models.UserInactive {
		return models.User{}, ErrSelfDeactivate
	}
	u, err := s.st.UpdateUserStatus(ctx, id, status)
	if err != nil {
		return models.User{}, err
	}
	if status == models.UserInactive {
		if err := s.st.RevokeUserSessions(ctx, id); err != nil {
			return models.User{}, err
		}
	}
	if err := s.dir.SetActive(ctx, u.Username, status == models.UserActive); err != nil {
		return models.User{}, fmt.Errorf("sync directory account: %w", err)
	}
	s.audit(ctx, actor.ID, "user.set_status", fmt.Sprintf("user:%d", id), map[string]any{"status": status})
	return u, nil
}

func (s *Service) ResetUserPassword(ctx context.Context, actor models.User, id int64, password string) error {
	if err := s.ValidatePassword(password); err != nil {
		ve := &ValidationError{}
		ve.add("password", err.Error())
		return ve
	}
	u, err := s.st.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.st.UpdateUserPasswordHash(ctx, id, hash); err != nil {
		return err
	}
	if err := s.st.RevokeUserSessions(ctx, id); err != nil {
		return err
	}
	if err := s.dir.UpsertAccount(ctx, u.Username, hash, u.Role); err != nil {
		return fmt.Errorf("provision directory account: %w", err)
	}
	_ = s.sender.SendPasswordChanged(ctx, u.Email, u.Username)
	s.audit(ctx, actor.ID, "user.reset_password", fmt.Sprintf("user:%d", id), nil)
	return nil
}

func (s *Service) ListAudit(ctx context.Context, limit, offset int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.st.ListAudit(ctx, limit, offset)
}

func (s *Service) audit(ctx context.Context, actorID int64, action, target string, meta map[string]any) {
	payload := ""
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err == nil {
			payload = string(b)
		}
	}
	if err := s.st.InsertAudit(ctx, actorID, action, target, payload); err != nil {
		// Audit is best effort; the primary mutation already committed.
		log.Printf("audit write failed action=%s target=%s err=%v", action, target, err)
	}
}
