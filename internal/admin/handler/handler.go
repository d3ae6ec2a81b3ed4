package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/admin"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/auth"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context) ([]admin.View, error)
	Create(ctx context.Context, req *admin.CreateRequest) (*admin.Created, error)
	Remove(ctx context.Context, id string) error
	Authenticate(ctx context.Context, code string) (*admin.User, error)
	ResetSystem(ctx context.Context) (string, error)
}

type TokenIssuer interface {
	IssueAdmin(adminID, name string, role auth.Role) (auth.Token, error)
}

type AuditLog interface {
	List(ctx context.Context) ([]audit.Entry, error)
}

type Handler struct {
	service Service
	tokens  TokenIssuer
	audit   AuditLog
	logger  *slog.Logger
}

func New(service Service, tokens TokenIssuer, auditLog AuditLog, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, audit: auditLog, logger: logger}
}

// RegisterPublic mounts the login endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/admin/login", h.HandleLogin)
}

// RegisterSuperAdmin mounts account management and maintenance routes.
func (h *Handler) RegisterSuperAdmin(r chi.Router) {
	r.Get("/admin/users", h.HandleList)
	r.Post("/admin/users", h.HandleCreate)
	r.Delete("/admin/users/{id}", h.HandleRemove)
	r.Get("/admin/logs", h.HandleLogs)
	r.Post("/admin/reset", h.HandleReset)
}

type LoginRequest struct {
	AccessCode string `json:"accessCode"`
}

func (r *LoginRequest) Normalize() {
	r.AccessCode = strings.TrimSpace(r.AccessCode)
}

func (r *LoginRequest) Validate() error {
	if r.AccessCode == "" {
		return dErrors.New(dErrors.CodeValidation, "accessCode is required")
	}
	return nil
}

type LoginResponse struct {
	auth.Token
	Admin admin.View `json:"admin"`
}

// ResetRequest must carry an explicit confirmation.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

func (r *ResetRequest) Validate() error {
	if !r.Confirm {
		return dErrors.New(dErrors.CodeValidation, "reset must be confirmed")
	}
	return nil
}

type ResetResponse struct {
	SuperAdminCode string `json:"superAdminCode,omitempty"`
}

// HandleLogin handles POST /admin/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	user, err := h.service.Authenticate(ctx, req.AccessCode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.tokens.IssueAdmin(user.ID, user.Name, user.Role)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue admin token",
			"request_id", requestID,
			"admin_id", user.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "admin logged in",
		"request_id", requestID,
		"admin_id", user.ID,
		"role", string(user.Role),
	)
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, Admin: user.View()})
}

// HandleList handles GET /admin/users.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

// HandleCreate handles POST /admin/users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[admin.CreateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	created, err := h.service.Create(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleRemove handles DELETE /admin/users/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogs handles GET /admin/logs.
func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleReset handles POST /admin/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if _, ok := httputil.DecodeAndPrepare[ResetRequest](w, r, h.logger, ctx, requestID); !ok {
		return
	}
	code, err := h.service.ResetSystem(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "system reset failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResetResponse{SuperAdminCode: code})
}
