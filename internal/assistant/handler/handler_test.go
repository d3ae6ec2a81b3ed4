package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnp-recruitment/internal/assistant"
)

type echoAssistant struct {
	history []assistant.Turn
}

func (e *echoAssistant) Reply(_ context.Context, history []assistant.Turn, message string) string {
	e.history = history
	return "You asked: " + message
}

func TestHandleChat(t *testing.T) {
	a := &echoAssistant{}
	r := chi.NewRouter()
	New(a, slog.New(slog.DiscardHandler)).Register(r)

	body := `{"message":"  What are the core values? ","history":[{"role":"user","parts":[{"text":"Hi"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/assistant/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"You asked: What are the core values?"}`, rec.Body.String())
	require.Len(t, a.history, 1)
	assert.Equal(t, "Hi", a.history[0].Parts[0].Text)
}

func TestHandleChatRequiresMessage(t *testing.T) {
	r := chi.NewRouter()
	New(&echoAssistant{}, slog.New(slog.DiscardHandler)).Register(r)

	req := httptest.NewRequest(http.MethodPost, "/assistant/chat", strings.NewReader(`{"message":"  "}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
