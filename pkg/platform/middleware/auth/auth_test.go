package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rnp-recruitment/pkg/requestcontext"
)

type stubValidator map[string]*Claims

func (s stubValidator) ValidateToken(token string) (*Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func TestRequireRole(t *testing.T) {
	validator := stubValidator{
		"recruiter": {Subject: "admin-1", Name: "Inspector Uwase", Role: "RECRUITER"},
		"applicant": {Subject: "applicant-1", Name: "Jean Mugisha", Role: "APPLICANT"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got requestcontext.Principal
	h := RequireRole(validator, nil, logger, "RECRUITER", "SUPER_ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestcontext.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic recruiter", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer applicant", http.StatusForbidden},
		{"allowed", "Bearer recruiter", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/applicants", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "Inspector Uwase", got.Name)
	assert.Equal(t, "admin-1", got.Subject)
}

type removedAccounts map[string]bool

func (r removedAccounts) IsPrincipalRevoked(_ context.Context, subject, _ string) (bool, error) {
	if subject == "broken" {
		return false, errors.New("store unavailable")
	}
	return r[subject], nil
}

func TestRequireRoleRejectsRevokedPrincipals(t *testing.T) {
	validator := stubValidator{
		"active":  {Subject: "admin-1", Name: "Inspector Uwase", Role: "RECRUITER"},
		"removed": {Subject: "admin-2", Name: "Inspector Kalisa", Role: "RECRUITER"},
		"broken":  {Subject: "broken", Name: "Unknown", Role: "RECRUITER"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireRole(validator, removedAccounts{"admin-2": true}, logger, "RECRUITER")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		token string
		want  int
	}{
		{"active", http.StatusNoContent},
		{"removed", http.StatusUnauthorized},
		{"broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/applicants", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
