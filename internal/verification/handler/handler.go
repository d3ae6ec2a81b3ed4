package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

// Service runs background checks for an applicant.
type Service interface {
	Run(ctx context.Context, applicantID string, kind models.CheckKind) (models.CheckResult, error)
	RunAll(ctx context.Context, applicantID string) ([]models.CheckResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification endpoints. Callers apply authorization.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/applicants/{id}/verifications", h.HandleRunAll)
	r.Post("/admin/applicants/{id}/verifications/{kind}", h.HandleRun)
}

// RunAllResponse lists completed checks; Errors names the ones that failed.
type RunAllResponse struct {
	Results []models.CheckResult `json:"results"`
	Errors  []string             `json:"errors,omitempty"`
}

// HandleRun handles POST /admin/applicants/{id}/verifications/{kind}.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	kind, err := models.ParseCheckKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Run(ctx, id, kind)
	if err != nil {
		h.logger.WarnContext(ctx, "verification failed",
			"request_id", requestID,
			"applicant_id", id,
			"kind", string(kind),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRunAll handles POST /admin/applicants/{id}/verifications. Partial
// success answers 200 with the failures listed; total failure is an error.
func (h *Handler) HandleRunAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id := chi.URLParam(r, "id")

	results, err := h.service.RunAll(ctx, id)
	if err != nil && len(results) == 0 {
		h.logger.WarnContext(ctx, "verification failed",
			"request_id", requestID,
			"applicant_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := RunAllResponse{Results: results}
	if err != nil {
		resp.Errors = unjoin(err)
		h.logger.WarnContext(ctx, "some verification checks failed",
			"request_id", requestID,
			"applicant_id", id,
			"error", err,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func unjoin(err error) []string {
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return append(out, err.Error())
}
