package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/internal/interview"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

type Service interface {
	Slots(ctx context.Context) ([]interview.Slot, error)
	ListSlots(ctx context.Context) ([]interview.Day, error)
	Book(ctx context.Context, applicantID, slotID string) (*models.Applicant, error)
	ReplaceSlots(ctx context.Context, slots []interview.Slot) ([]interview.Slot, error)
	AddSlot(ctx context.Context, slot interview.Slot) (interview.Slot, error)
	DeleteSlot(ctx context.Context, slotID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterApplicant mounts slot browsing and booking for applicant sessions.
func (h *Handler) RegisterApplicant(r chi.Router) {
	r.Get("/interview/slots", h.HandleListSlots)
	r.Post("/interview/book", h.HandleBook)
}

// RegisterAdmin mounts calendar management.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/interview/slots", h.HandleCalendar)
	r.Put("/admin/interview/slots", h.HandleReplaceSlots)
	r.Post("/admin/interview/slots", h.HandleAddSlot)
	r.Delete("/admin/interview/slots/{id}", h.HandleDeleteSlot)
}

type BookRequest struct {
	SlotID string `json:"slotId"`
}

func (r *BookRequest) Normalize() {
	r.SlotID = strings.TrimSpace(r.SlotID)
}

func (r *BookRequest) Validate() error {
	if r.SlotID == "" {
		return dErrors.New(dErrors.CodeValidation, "slotId is required")
	}
	return nil
}

// BookResponse confirms the appointment.
type BookResponse struct {
	ApplicationID string        `json:"applicationId"`
	Status        models.Status `json:"status"`
	InterviewDate string        `json:"interviewDate"`
}

type ReplaceSlotsRequest struct {
	Slots []interview.Slot `json:"slots"`
}

func (r *ReplaceSlotsRequest) Validate() error {
	return nil
}

type AddSlotRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Capacity int    `json:"capacity"`
}

func (r *AddSlotRequest) Validate() error {
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.Time) == "" {
		return dErrors.New(dErrors.CodeValidation, "date and time are required")
	}
	return nil
}

// HandleListSlots handles GET /interview/slots.
func (h *Handler) HandleListSlots(w http.ResponseWriter, r *http.Request) {
	days, err := h.service.ListSlots(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if days == nil {
		days = []interview.Day{}
	}
	httputil.WriteJSON(w, http.StatusOK, days)
}

// HandleBook handles POST /interview/book.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	applicantID := requestcontext.Subject(ctx)

	req, ok := httputil.DecodeAndPrepare[BookRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Book(ctx, applicantID, req.SlotID)
	if err != nil {
		h.logger.WarnContext(ctx, "interview booking failed",
			"request_id", requestID,
			"applicant_id", applicantID,
			"slot_id", req.SlotID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BookResponse{
		ApplicationID: a.ApplicationID,
		Status:        a.Status,
		InterviewDate: *a.InterviewDate,
	})
}

// HandleCalendar handles GET /admin/interview/slots.
func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.Slots(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, slots)
}

// HandleReplaceSlots handles PUT /admin/interview/slots.
func (h *Handler) HandleReplaceSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ReplaceSlotsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	slots, err := h.service.ReplaceSlots(ctx, req.Slots)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, slots)
}

// HandleAddSlot handles POST /admin/interview/slots.
func (h *Handler) HandleAddSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddSlotRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	slot, err := h.service.AddSlot(ctx, interview.Slot{Date: req.Date, Time: req.Time, Capacity: req.Capacity})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, slot)
}

// HandleDeleteSlot handles DELETE /admin/interview/slots/{id}.
func (h *Handler) HandleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSlot(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
