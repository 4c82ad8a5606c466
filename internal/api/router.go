package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"hrms/internal/config"
	"hrms/internal/middleware"
	"hrms/internal/models"
	"hrms/internal/query"
	"hrms/internal/rate"
	"hrms/internal/service"
	"hrms/internal/store"
	"hrms/internal/util"
	"hrms/internal/version"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	limiter *rate.Limiter
}

const maxProfilePictureBytes = 2 << 20

func NewRouter(cfg config.Config, svc *service.Service) http.Handler {
	h := &Handlers{cfg: cfg, svc: svc, limiter: rate.NewLimiter()}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Timeout(time.Duration(cfg.RequestTimeoutSec) * time.Second))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]any{"status": "ok", "version": version.Current()})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready := map[string]any{
			"checked_at": time.Now().UTC().Format(time.RFC3339),
			"components": map[string]any{},
		}
		comps := ready["components"].(map[string]any)
		if err := h.svc.Store().Ping(r.Context()); err != nil {
			comps["sqlite"] = map[string]any{"ok": false, "error": err.Error()}
			ready["status"] = "degraded"
			util.WriteJSON(w, 503, ready)
			return
		}
		comps["sqlite"] = map[string]any{"ok": true}
		ready["status"] = "ready"
		util.WriteJSON(w, 200, ready)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(h.limiter, "login", 20, time.Minute, h.cfg.TrustProxy)).Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authn(h.svc))
			r.Get("/auth/me", h.Me)

			r.Get("/employees", h.ListEmployees)
			r.Post("/employees", h.CreateEmployee)
			r.Get("/employees/{id}", h.GetEmployee)
			r.Put("/employees/{id}", h.UpdateEmployee)
			r.Delete("/employees/{id}", h.DeleteEmployee)

			r.Get("/dashboard/stats", h.DashboardStats)

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRoles(models.RoleAdmin))
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Patch("/{id}/status", h.SetUserStatus)
				r.Post("/{id}/reset-password", h.ResetUserPassword)
				r.Get("/audit", h.AuditLog)
			})
		})
	})

	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	ip := middleware.ClientIP(r, h.cfg.TrustProxy)
	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password, ip, r.UserAgent())
	if err != nil {
		status, code := 401, "invalid_credentials"
		if err == service.ErrAccountInactive {
			status, code = 403, "account_inactive"
		}
		util.WriteError(w, status, code, err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]any{
		"token":      token,
		"expires_in": int(h.cfg.SessionDuration().Seconds()),
		"user":       user,
	})
}

// Logout always succeeds; an absent or unknown token leaves nothing to revoke.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
			return
		}
	}
	util.WriteJSON(w, 200, map[string]string{"status": "logged_out"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r.Context())
	util.WriteJSON(w, 200, u)
}

// employeePage is a listing response. Seq echoes the caller-chosen request
// sequence number so a client can discard answers to superseded queries.
type employeePage struct {
	models.PaginatedEmployees
	Seq string `json:"seq,omitempty"`
}

func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q := query.Parse(r.URL.Query())
	page, err := h.svc.ListEmployees(r.Context(), q)
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, employeePage{PaginatedEmployees: page, Seq: r.URL.Query().Get("seq")})
}

func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.GetEmployee(r.Context(), id)
	if err == store.ErrNotFound {
		util.WriteError(w, 404, "not_found", "employee not found", middleware.RequestID(r.Context()))
		return
	}
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, e)
}

func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	var in models.Employee
	if !h.decodeEmployee(w, r, &in) {
		return
	}
	created, err := h.svc.CreateEmployee(r.Context(), actor, in)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.writeMutation(w, r, 201, created)
}

func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var patch models.EmployeePatch
	if !h.decodeEmployeePatch(w, r, &patch) {
		return
	}
	updated, err := h.svc.UpdateEmployee(r.Context(), actor, id, patch)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.writeMutation(w, r, 200, updated)
}

func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEmployee(r.Context(), actor, id); err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	if !hasListQuery(r) {
		w.WriteHeader(204)
		return
	}
	page, err := h.svc.ListEmployees(r.Context(), query.Parse(r.URL.Query()))
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]any{
		"list": employeePage{PaginatedEmployees: page, Seq: r.URL.Query().Get("seq")},
	})
}

func (h *Handlers) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DashboardStats(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, stats)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]any{"data": users})
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	var req struct {
		Username string      `json:"username"`
		Password string      `json:"password"`
		Role     models.Role `json:"role"`
		FullName string      `json:"fullName"`
		Email    string      `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.CreateUser(r.Context(), actor, req.Username, req.Password, req.Role, req.FullName, req.Email)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	util.WriteJSON(w, 201, u)
}

func (h *Handlers) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	u, err := h.svc.SetUserStatus(r.Context(), actor, id, req.Status)
	if err == service.ErrSelfDeactivate {
		util.WriteError(w, 400, "bad_request", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	util.WriteJSON(w, 200, u)
}

func (h *Handlers) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.User(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return
	}
	if err := h.svc.ResetUserPassword(r.Context(), actor, id, req.NewPassword); err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	w.WriteHeader(204)
}

func (h *Handlers) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.svc.ListAudit(r.Context(), limit, offset)
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, 200, map[string]any{"data": entries})
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		util.WriteError(w, 400, "bad_request", "invalid id", middleware.RequestID(r.Context()))
		return 0, false
	}
	return id, true
}

// hasListQuery reports whether the request URL carries listing state. When it
// does, mutation responses include the refreshed page so the client skips a
// follow-up fetch.
func hasListQuery(r *http.Request) bool {
	v := r.URL.Query()
	for _, k := range []string{"page", "search", "department", "status", "sortBy", "sortOrder", "joinDateFrom", "joinDateTo"} {
		if v.Get(k) != "" {
			return true
		}
	}
	return false
}

func (h *Handlers) writeMutation(w http.ResponseWriter, r *http.Request, status int, e models.Employee) {
	if !hasListQuery(r) {
		util.WriteJSON(w, status, e)
		return
	}
	page, err := h.svc.ListEmployees(r.Context(), query.Parse(r.URL.Query()))
	if err != nil {
		util.WriteError(w, 500, "internal_error", err.Error(), middleware.RequestID(r.Context()))
		return
	}
	util.WriteJSON(w, status, map[string]any{
		"employee": e,
		"list":     employeePage{PaginatedEmployees: page, Seq: r.URL.Query().Get("seq")},
	})
}

func (h *Handlers) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	rid := middleware.RequestID(r.Context())
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		util.WriteFieldErrors(w, 400, "validation_failed", "validation failed", rid, ve.Fields)
	case err == store.ErrNotFound:
		util.WriteError(w, 404, "not_found", "record not found", rid)
	default:
		util.WriteError(w, 500, "internal_error", err.Error(), rid)
	}
}

// decodeEmployee accepts either a JSON body or multipart/form-data with an
// optional profilePicture file, stored inline as a data URI.
func (h *Handlers) decodeEmployee(w http.ResponseWriter, r *http.Request, out *models.Employee) bool {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxProfilePictureBytes); err != nil {
			util.WriteError(w, 400, "bad_request", "invalid multipart form", middleware.RequestID(r.Context()))
			return false
		}
		out.FirstName = r.FormValue("firstName")
		out.LastName = r.FormValue("lastName")
		out.Email = r.FormValue("email")
		out.Mobile = r.FormValue("mobile")
		out.Department = models.Department(r.FormValue("department"))
		out.Role = models.EmployeeRole(r.FormValue("role"))
		out.JoinDate = r.FormValue("joinDate")
		out.Address = r.FormValue("address")
		out.Status = models.EmployeeStatus(r.FormValue("status"))
		if v := r.FormValue("salary"); v != "" {
			out.Salary, _ = strconv.ParseFloat(v, 64)
		}
		pic, ok := h.readProfilePicture(w, r)
		if !ok {
			return false
		}
		if pic != "" {
			out.ProfilePicture = &pic
		}
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return false
	}
	return true
}

func (h *Handlers) decodeEmployeePatch(w http.ResponseWriter, r *http.Request, out *models.EmployeePatch) bool {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxProfilePictureBytes); err != nil {
			util.WriteError(w, 400, "bad_request", "invalid multipart form", middleware.RequestID(r.Context()))
			return false
		}
		set := func(name string) *string {
			if _, ok := r.MultipartForm.Value[name]; !ok {
				return nil
			}
			v := r.FormValue(name)
			return &v
		}
		out.FirstName = set("firstName")
		out.LastName = set("lastName")
		out.Email = set("email")
		out.Mobile = set("mobile")
		out.JoinDate = set("joinDate")
		out.Address = set("address")
		if v := set("department"); v != nil {
			d := models.Department(*v)
			out.Department = &d
		}
		if v := set("role"); v != nil {
			er := models.EmployeeRole(*v)
			out.Role = &er
		}
		if v := set("status"); v != nil {
			st := models.EmployeeStatus(*v)
			out.Status = &st
		}
		if v := set("salary"); v != nil {
			f, err := strconv.ParseFloat(*v, 64)
			if err != nil {
				util.WriteError(w, 400, "bad_request", "invalid salary", middleware.RequestID(r.Context()))
				return false
			}
			out.Salary = &f
		}
		pic, ok := h.readProfilePicture(w, r)
		if !ok {
			return false
		}
		if pic != "" {
			out.ProfilePicture = &pic
		} else if v := set("profilePicture"); v != nil {
			// An explicit empty field clears the stored picture.
			out.ProfilePicture = v
		}
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		util.WriteError(w, 400, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return false
	}
	return true
}

func (h *Handlers) readProfilePicture(w http.ResponseWriter, r *http.Request) (string, bool) {
	files := r.MultipartForm.File["profilePicture"]
	if len(files) == 0 {
		return "", true
	}
	fh := files[0]
	if fh.Size > maxProfilePictureBytes {
		util.WriteError(w, 400, "bad_request", "profile picture exceeds size limit", middleware.RequestID(r.Context()))
		return "", false
	}
	f, err := fh.Open()
	if err != nil {
		util.WriteError(w, 400, "bad_request", "cannot read profile picture", middleware.RequestID(r.Context()))
		return "", false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxProfilePictureBytes+1))
	if err != nil || len(data) > maxProfilePictureBytes {
		util.WriteError(w, 400, "bad_request", "profile picture exceeds size limit", middleware.RequestID(r.Context()))
		return "", false
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), true
}
