package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis: connection refused")
}

func limitedHandler(m *Middleware, class Class) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return m.Limit(class)(ok)
}

func request(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimitRejectsOverBudget(t *testing.T) {
	mt := metrics.New(prometheus.NewRegistry())
	m := New(NewMemoryStore(), slog.New(slog.DiscardHandler), WithMetrics(mt))
	h := limitedHandler(m, Class{Name: "auth", Limit: 2, Window: time.Minute})

	assert.Equal(t, http.StatusNoContent, request(h, "197.243.0.55").Code)
	rec := request(h, "197.243.0.55")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = request(h, "197.243.0.55")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.RateLimited.WithLabelValues("auth")))

	assert.Equal(t, http.StatusNoContent, request(h, "41.186.0.1").Code)
}

func TestLimitFailsOpen(t *testing.T) {
	m := New(failingStore{}, slog.New(slog.DiscardHandler))
	h := limitedHandler(m, Class{Name: "auth", Limit: 1, Window: time.Minute})
	assert.Equal(t, http.StatusNoContent, request(h, "197.243.0.55").Code)
	assert.Equal(t, http.StatusNoContent, request(h, "197.243.0.55").Code)
}

func TestLimitDisabled(t *testing.T) {
	m := New(NewMemoryStore(), slog.New(slog.DiscardHandler), WithDisabled(true))
	h := limitedHandler(m, Class{Name: "auth", Limit: 1, Window: time.Minute})
	for range 3 {
		assert.Equal(t, http.StatusNoContent, request(h, "197.243.0.55").Code)
	}
}
