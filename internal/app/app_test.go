package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"rnp-recruitment/internal/platform/config"
)

const superCode = "RNP-ADMIN-9999"

type AppSuite struct {
	suite.Suite
	app *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func testConfig() config.Config {
	return config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Auth: config.AuthConfig{
			JWTSigningKey:   "test-signing-key",
			AdminTokenTTL:   time.Hour,
			SessionTokenTTL: time.Hour,
			SuperAdminName:  "Commissioner",
			SuperAdminEmail: "superadmin@police.gov.rw",
			SuperAdminCode:  superCode,
		},
		Verification: config.VerificationConfig{
			Timeout:    time.Second,
			MaxRetries: 1,
		},
		Exam: config.ExamConfig{Duration: 30 * time.Minute, MaxViolations: 3},
	}
}

func (s *AppSuite) SetupTest() {
	app, err := New(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.app = app
}

func (s *AppSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *AppSuite) call(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.app.Router.ServeHTTP(rec, req)
	return rec
}

// accessToken reads access_token from the body, or from the object under
// field when field is set.
func (s *AppSuite) accessToken(rec *httptest.ResponseRecorder, field string) string {
	raw := json.RawMessage(rec.Body.Bytes())
	if field != "" {
		var body map[string]json.RawMessage
		s.Require().NoError(json.Unmarshal(raw, &body))
		raw = body[field]
	}
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(raw, &tok))
	s.Require().NotEmpty(tok.AccessToken)
	return tok.AccessToken
}

func (s *AppSuite) adminToken() string {
	rec := s.call(http.MethodPost, "/admin/login", "", map[string]string{"accessCode": superCode})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return s.accessToken(rec, "")
}

func (s *AppSuite) applicantToken() string {
	rec := s.call(http.MethodPost, "/status/check", "", map[string]string{
		"nationalId":    "1199870000000002",
		"applicationId": "RNP-2024-0002",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return s.accessToken(rec, "session")
}

func (s *AppSuite) TestHealthAndMetrics() {
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/healthz", "", nil).Code)

	rec := s.call(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "go_goroutines")
}

func (s *AppSuite) TestRoleGates() {
	s.Equal(http.StatusUnauthorized, s.call(http.MethodGet, "/admin/applicants", "", nil).Code)

	applicant := s.applicantToken()
	s.Equal(http.StatusForbidden, s.call(http.MethodGet, "/admin/applicants", applicant, nil).Code)

	admin := s.adminToken()
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/admin/applicants", admin, nil).Code)
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/admin/logs", admin, nil).Code)
	s.Equal(http.StatusForbidden, s.call(http.MethodGet, "/exam", admin, nil).Code)
}

func (s *AppSuite) TestRemovedRecruiterTokenIsRejected() {
	admin := s.adminToken()
	rec := s.call(http.MethodPost, "/admin/users", admin, map[string]string{
		"name":  "Recruiter One",
		"email": "recruiter.one@police.gov.rw",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessCode string `json:"accessCode"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))

	rec = s.call(http.MethodPost, "/admin/login", "", map[string]string{"accessCode": created.AccessCode})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	recruiter := s.accessToken(rec, "")
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/admin/applicants", recruiter, nil).Code)

	s.Require().Equal(http.StatusNoContent, s.call(http.MethodDelete, "/admin/users/"+created.User.ID, admin, nil).Code)
	s.Equal(http.StatusUnauthorized, s.call(http.MethodGet, "/admin/applicants", recruiter, nil).Code)
	s.Equal(http.StatusOK, s.call(http.MethodGet, "/admin/applicants", admin, nil).Code)
}

func (s *AppSuite) TestApplicantJourney() {
	admin := s.adminToken()
	applicant := s.applicantToken()

	rec := s.call(http.MethodPost, "/admin/applicants/2/verifications", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.call(http.MethodPost, "/admin/applicants/2/status", admin, map[string]string{"status": "Invited for Exam"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.call(http.MethodGet, "/exam", applicant, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.call(http.MethodPost, "/exam/submit", applicant, map[string]any{
		"answers": map[string]int{"1": 0, "2": 2, "3": 3, "4": 1},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.call(http.MethodPost, "/admin/applicants/2/status", admin, map[string]string{"status": "Invited for Interview"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.call(http.MethodPost, "/interview/book", applicant, map[string]string{"slotId": "3"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.call(http.MethodPost, "/interview/book", applicant, map[string]string{"slotId": "1"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.call(http.MethodGet, "/admin/applicants/2", admin, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var got struct {
		Status        string  `json:"status"`
		ExamScore     *int    `json:"examScore"`
		InterviewDate *string `json:"interviewDate"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal("Interview Scheduled", got.Status)
	s.Require().NotNil(got.ExamScore)
	s.Equal(75, *got.ExamScore)
	s.Require().NotNil(got.InterviewDate)
	s.Equal("Tuesday, June 13 - 09:00 AM", *got.InterviewDate)
}

func TestRequestTimeoutCoversRetries(t *testing.T) {
	cfg := testConfig()
	cfg.Verification = config.VerificationConfig{Timeout: 20 * time.Second, MaxRetries: 2, RetryDelay: time.Second}
	assert.Equal(t, 68*time.Second, requestTimeout(cfg))

	cfg.Verification = config.VerificationConfig{Timeout: time.Second}
	assert.Equal(t, 30*time.Second, requestTimeout(cfg))
}

func TestNewWithDiscordNotifier(t *testing.T) {
	cfg := testConfig()
	cfg.Discord = config.DiscordConfig{BotToken: "token", ChannelID: "123"}
	app, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err, "discord sessions are created lazily")
	require.NoError(t, app.Close())
}

func (s *AppSuite) TestLoginIsRateLimited() {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, AuthPerMinute: 2, PublicPerMinute: 100}
	limited, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	defer limited.Close()
	original := s.app
	s.app = limited
	defer func() { s.app = original }()

	for range 2 {
		s.Equal(http.StatusUnauthorized, s.call(http.MethodPost, "/admin/login", "", map[string]string{"accessCode": "RNP-WRONG-0000"}).Code)
	}
	rec := s.call(http.MethodPost, "/admin/login", "", map[string]string{"accessCode": superCode})
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))

	s.Equal(http.StatusOK, s.call(http.MethodGet, "/healthz", "", nil).Code)
}
