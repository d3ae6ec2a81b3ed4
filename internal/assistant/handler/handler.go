package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rnp-recruitment/internal/assistant"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/httputil"
	"rnp-recruitment/pkg/requestcontext"
)

const maxHistory = 20

type Assistant interface {
	Reply(ctx context.Context, history []assistant.Turn, message string) string
}

type ChatRequest struct {
	Message string           `json:"message"`
	History []assistant.Turn `json:"history"`
}

func (r *ChatRequest) Normalize() {
	r.Message = strings.TrimSpace(r.Message)
	if len(r.History) > maxHistory {
		r.History = r.History[len(r.History)-maxHistory:]
	}
}

func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	return nil
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type Handler struct {
	assistant Assistant
	logger    *slog.Logger
}

func New(a Assistant, logger *slog.Logger) *Handler {
	return &Handler{assistant: a, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/assistant/chat", h.HandleChat)
}

// HandleChat handles POST /assistant/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ChatRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChatResponse{Reply: h.assistant.Reply(ctx, req.History, req.Message)})
}
