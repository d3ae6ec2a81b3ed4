// Package handler exposes the applicant lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/internal/applicant/screening"
	"rnp-recruitment/internal/auth"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

// Service is the applicant lifecycle used by the HTTP layer.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.Applicant, error)
	CheckStatus(ctx context.Context, nationalID, applicationID string) (*models.Applicant, error)
	Get(ctx context.Context, id string) (*models.Applicant, error)
	List(ctx context.Context, filter models.ListFilter) ([]models.Applicant, error)
	Advance(ctx context.Context, id string, target models.Status) (*models.Applicant, error)
	AddComment(ctx context.Context, id, text string) (*models.Applicant, error)
	Export(ctx context.Context) ([]models.Applicant, error)
	Stats(ctx context.Context) (models.Stats, error)
}

type TokenIssuer interface {
	IssueApplicantSession(applicantID, name string) (auth.Token, error)
}

type Handler struct {
	service  Service
	tokens   TokenIssuer
	analyzer screening.PhotoAnalyzer
	logger   *slog.Logger
}

func New(service Service, tokens TokenIssuer, analyzer screening.PhotoAnalyzer, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		tokens:   tokens,
		analyzer: analyzer,
		logger:   logger,
	}
}

// RegisterPublic mounts the routes open to anyone.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/applications", h.HandleCreate)
	r.Post("/applications/photo-analysis", h.HandlePhotoAnalysis)
	r.Post("/status/check", h.HandleStatusCheck)
}

// RegisterRecruiter mounts the review routes for recruiters and super admins.
func (h *Handler) RegisterRecruiter(r chi.Router) {
	r.Get("/admin/applicants", h.HandleList)
	r.Get("/admin/applicants/{id}", h.HandleGet)
	r.Post("/admin/applicants/{id}/status", h.HandleAdvance)
	r.Post("/admin/applicants/{id}/comments", h.HandleComment)
	r.Get("/admin/stats", h.HandleStats)
}

// RegisterSuperAdmin mounts the bulk export.
func (h *Handler) RegisterSuperAdmin(r chi.Router) {
	r.Get("/admin/export", h.HandleExport)
}

// HandleCreate handles POST /applications.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "application rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{
		ID:             a.ID,
		ApplicationID:  a.ApplicationID,
		Status:         a.Status,
		BlockchainHash: a.BlockchainHash,
	})
}

// HandlePhotoAnalysis handles POST /applications/photo-analysis.
func (h *Handler) HandlePhotoAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PhotoRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	metrics, err := h.analyzer.Analyze(ctx, req.Photo)
	if err != nil {
		h.logger.WarnContext(ctx, "photo analysis failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, metrics)
}

// HandleStatusCheck handles POST /status/check.
func (h *Handler) HandleStatusCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StatusCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.CheckStatus(ctx, req.NationalID, req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	token, err := h.tokens.IssueApplicantSession(a.ID, a.FullName())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue applicant session",
			"request_id", requestID,
			"applicant_id", a.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusCheckResponse{Applicant: toStatus(a), Session: token})
}

// HandleList handles GET /admin/applicants?status=&province=&q=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ListFilter{
		Status:   models.Status(q.Get("status")),
		Province: q.Get("province"),
		Query:    q.Get("q"),
	}
	if filter.Status != "" {
		if _, err := models.ParseStatus(string(filter.Status)); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /admin/applicants/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleAdvance handles POST /admin/applicants/{id}/status.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Advance(ctx, id, req.Status)
	if err != nil {
		h.logger.WarnContext(ctx, "status change refused",
			"request_id", requestID,
			"applicant_id", id,
			"target", string(req.Status),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

// HandleComment handles POST /admin/applicants/{id}/comments.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CommentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	a, err := h.service.AddComment(ctx, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

// HandleExport handles GET /admin/export. The body is the complete JSON
// array of applicant records.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.service.Export(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="rnp_applicants_export.json"`)
	httputil.WriteJSON(w, http.StatusOK, list)
}
