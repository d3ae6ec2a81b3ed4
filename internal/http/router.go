// Package httpapi assembles the public HTTP surface from the domain handlers.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "rnp-recruitment/internal/admin/handler"
	applicanthandler "rnp-recruitment/internal/applicant/handler"
	assistanthandler "rnp-recruitment/internal/assistant/handler"
	"rnp-recruitment/internal/auth"
	examhandler "rnp-recruitment/internal/exam/handler"
	interviewhandler "rnp-recruitment/internal/interview/handler"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/ratelimit"
	platformmw "rnp-recruitment/internal/platform/middleware"
	sysconfighandler "rnp-recruitment/internal/sysconfig/handler"
	verificationhandler "rnp-recruitment/internal/verification/handler"
	"rnp-recruitment/pkg/platform/httputil"
	authmw "rnp-recruitment/pkg/platform/middleware/auth"
	"rnp-recruitment/pkg/platform/middleware/metadata"
	"rnp-recruitment/pkg/platform/middleware/request"
	"rnp-recruitment/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout leaves room for the simulated registry and photo
// analysis delays.
const DefaultRequestTimeout = 30 * time.Second

// Handlers are the domain handlers mounted by NewRouter.
type Handlers struct {
	Applicants    *applicanthandler.Handler
	Verifications *verificationhandler.Handler
	Exam          *examhandler.Handler
	Interviews    *interviewhandler.Handler
	Admins        *adminhandler.Handler
	Config        *sysconfighandler.Handler
	Assistant     *assistanthandler.Handler
}

// Deps are the cross-cutting collaborators of the router.
type Deps struct {
	Tokens authmw.TokenValidator
	// Revocations rejects tokens of removed admin accounts when set.
	Revocations    authmw.PrincipalRevocationChecker
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	// Limiter throttles the unauthenticated routes when set.
	Limiter     *ratelimit.Middleware
	AuthLimit   ratelimit.Class
	PublicLimit ratelimit.Class
}

// NewRouter wires every route behind the shared middleware chain. Route
// groups are gated by role: applicant sessions, recruiters (and super
// admins), and super admins only.
func NewRouter(deps Deps, h Handlers) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(deps.Logger))
	r.Use(request.Recovery(deps.Logger))
	r.Use(request.Timeout(timeout))
	if deps.Metrics != nil {
		r.Use(platformmw.LatencyMiddleware(deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Limit(deps.PublicLimit))
		}
		h.Config.RegisterPublic(r)
		h.Applicants.RegisterPublic(r)
		if h.Assistant != nil {
			h.Assistant.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Limit(deps.AuthLimit))
		}
		h.Admins.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(deps.Tokens, deps.Revocations, deps.Logger, auth.Roles(auth.RoleApplicant)...))
		h.Exam.RegisterApplicant(r)
		h.Interviews.RegisterApplicant(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(deps.Tokens, deps.Revocations, deps.Logger, auth.Roles(auth.RoleRecruiter, auth.RoleSuperAdmin)...))
		h.Applicants.RegisterRecruiter(r)
		h.Verifications.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(deps.Tokens, deps.Revocations, deps.Logger, auth.Roles(auth.RoleSuperAdmin)...))
		h.Applicants.RegisterSuperAdmin(r)
		h.Exam.RegisterAdmin(r)
		h.Interviews.RegisterAdmin(r)
		h.Admins.RegisterSuperAdmin(r)
		h.Config.RegisterSuperAdmin(r)
	})

	return r
}
