package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/sysconfig"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context) (sysconfig.Config, error)
	Save(ctx context.Context, cfg sysconfig.Config) (sysconfig.Config, error)
	Public(ctx context.Context) sysconfig.Config
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/config/public", h.HandlePublic)
}

func (h *Handler) RegisterSuperAdmin(r chi.Router) {
	r.Get("/admin/config", h.HandleGet)
	r.Put("/admin/config", h.HandleSave)
}

// HandlePublic handles GET /config/public.
func (h *Handler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Public(r.Context()))
}

// HandleGet handles GET /admin/config.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// HandleSave handles PUT /admin/config.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[sysconfig.Config](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cfg, err := h.service.Save(ctx, *req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}
