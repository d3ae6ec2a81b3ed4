package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/exam"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

// Service is the exam functionality used by the HTTP layer.
type Service interface {
	StartSession(ctx context.Context, applicantID string) (exam.Session, []exam.PublicQuestion, error)
	ReportViolation(ctx context.Context, applicantID string) (exam.Session, error)
	Submit(ctx context.Context, applicantID string, answers exam.Answers) (exam.Result, error)
	Questions(ctx context.Context) ([]exam.Question, error)
	ReplaceQuestions(ctx context.Context, qs []exam.Question) ([]exam.Question, error)
	AddQuestion(ctx context.Context, q exam.Question) (exam.Question, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterApplicant mounts the exam routes for applicant sessions.
func (h *Handler) RegisterApplicant(r chi.Router) {
	r.Get("/exam", h.HandleStart)
	r.Post("/exam/submit", h.HandleSubmit)
	r.Post("/exam/violations", h.HandleViolation)
}

// RegisterAdmin mounts question bank management.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/exam/questions", h.HandleListQuestions)
	r.Put("/admin/exam/questions", h.HandleReplaceQuestions)
	r.Post("/admin/exam/questions", h.HandleAddQuestion)
}

type SessionResponse struct {
	Session          exam.Session          `json:"session"`
	RemainingSeconds int64                 `json:"remainingSeconds"`
	Questions        []exam.PublicQuestion `json:"questions,omitempty"`
}

type SubmitRequest struct {
	Answers exam.Answers `json:"answers"`
}

func (r *SubmitRequest) Validate() error {
	for id, opt := range r.Answers {
		if opt < 0 || opt >= exam.OptionsPerQuestion {
			return dErrors.New(dErrors.CodeValidation, "answer out of range for question "+strconv.FormatInt(id, 10))
		}
	}
	return nil
}

type ReplaceQuestionsRequest struct {
	Questions []exam.Question `json:"questions"`
}

func (r *ReplaceQuestionsRequest) Validate() error {
	if len(r.Questions) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one question is required")
	}
	return nil
}

type AddQuestionRequest struct {
	exam.Question
}

func (r *AddQuestionRequest) Validate() error {
	return r.Question.Validate()
}

// HandleStart handles GET /exam.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicantID := requestcontext.Subject(ctx)

	sess, qs, err := h.service.StartSession(ctx, applicantID)
	if err != nil {
		h.fail(ctx, w, "exam session refused", applicantID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SessionResponse{
		Session:          sess,
		RemainingSeconds: int64(sess.Remaining(requestcontext.Now(ctx)) / time.Second),
		Questions:        qs,
	})
}

// HandleViolation handles POST /exam/violations.
func (h *Handler) HandleViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicantID := requestcontext.Subject(ctx)

	sess, err := h.service.ReportViolation(ctx, applicantID)
	if err != nil {
		h.fail(ctx, w, "violation report failed", applicantID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SessionResponse{
		Session:          sess,
		RemainingSeconds: int64(sess.Remaining(requestcontext.Now(ctx)) / time.Second),
	})
}

// HandleSubmit handles POST /exam/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	applicantID := requestcontext.Subject(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Submit(ctx, applicantID, req.Answers)
	if err != nil {
		h.fail(ctx, w, "exam submission failed", applicantID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleListQuestions handles GET /admin/exam/questions.
func (h *Handler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.service.Questions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, qs)
}

// HandleReplaceQuestions handles PUT /admin/exam/questions.
func (h *Handler) HandleReplaceQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ReplaceQuestionsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	qs, err := h.service.ReplaceQuestions(ctx, req.Questions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, qs)
}

// HandleAddQuestion handles POST /admin/exam/questions.
func (h *Handler) HandleAddQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddQuestionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	q, err := h.service.AddQuestion(ctx, req.Question)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, q)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, applicantID string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"applicant_id", applicantID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
