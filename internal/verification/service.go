// Package verification runs the identity, education and criminal record
// checks against external registries and records their outcome on the
// applicant.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/verification/registry"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/circuit"
	"rnp-recruitment/pkg/requestcontext"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 200 * time.Millisecond
)

var kindLabels = map[models.CheckKind]string{
	models.CheckIdentity:  "Identity (NIDA)",
	models.CheckEducation: "Education (NESA)",
	models.CheckCriminal:  "Criminal record",
}

// Service dispatches checks to one registry per kind. Registry calls happen
// outside store transactions; only the recorded result is serialized.
type Service struct {
	store      *store.Store
	audit      *audit.Log
	registries map[models.CheckKind]registry.Registry
	breakers   map[models.CheckKind]*circuit.Breaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	breakerOps []circuit.Option
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTimeout bounds a single registry attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithRetry sets how often retryable registry failures are retried and the
// pause between attempts.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithBreaker configures the per-registry circuit breakers.
func WithBreaker(opts ...circuit.Option) Option {
	return func(s *Service) {
		s.breakerOps = append(s.breakerOps, opts...)
	}
}

// New registers regs by kind. A later registry replaces an earlier one of the
// same kind.
func New(st *store.Store, auditLog *audit.Log, regs []registry.Registry, opts ...Option) *Service {
	s := &Service{
		store:      st,
		audit:      auditLog,
		registries: make(map[models.CheckKind]registry.Registry),
		breakers:   make(map[models.CheckKind]*circuit.Breaker),
		logger:     slog.Default(),
		tracer:     otel.Tracer("rnp-recruitment/verification"),
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, r := range regs {
		s.registries[r.Kind()] = r
		s.breakers[r.Kind()] = circuit.New(r.ID(), s.breakerOps...)
	}
	return s
}

// Run performs one check. A check that already completed returns its stored
// result without contacting the registry. Registry failures surface as
// CodeUnavailable and leave the applicant untouched.
func (s *Service) Run(ctx context.Context, applicantID string, kind models.CheckKind) (models.CheckResult, error) {
	reg, ok := s.registries[kind]
	if !ok {
		return models.CheckResult{}, dErrors.New(dErrors.CodeValidation, "no registry configured for "+string(kind))
	}

	a, err := s.applicant(ctx, applicantID)
	if err != nil {
		return models.CheckResult{}, err
	}
	if a.IsVerified(kind) {
		return a.Verification.Result(kind), nil
	}

	outcome, err := s.lookup(ctx, reg, a)
	if err != nil {
		return models.CheckResult{}, err
	}
	return s.record(ctx, applicantID, kind, outcome)
}

// RunAll runs every configured check concurrently. Checks are independent:
// a failing registry does not stop the others. Results are returned for the
// checks that completed, together with the joined errors of those that did not.
func (s *Service) RunAll(ctx context.Context, applicantID string) ([]models.CheckResult, error) {
	if _, err := s.applicant(ctx, applicantID); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[models.CheckKind]models.CheckResult)
		errs    []error
		g       errgroup.Group
	)
	for _, kind := range models.CheckKinds() {
		if _, ok := s.registries[kind]; !ok {
			continue
		}
		g.Go(func() error {
			res, err := s.Run(ctx, applicantID, kind)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				return nil
			}
			results[kind] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.CheckResult, 0, len(results))
	for _, kind := range models.CheckKinds() {
		if res, ok := results[kind]; ok {
			out = append(out, res)
		}
	}
	return out, errors.Join(errs...)
}

func (s *Service) applicant(ctx context.Context, id string) (*models.Applicant, error) {
	var list []models.Applicant
	if err := s.store.Load(ctx, store.Applicants, &list, applicant.SeedApplicants()); err != nil {
		return nil, err
	}
	idx, err := applicant.FindByID(list, id)
	if err != nil {
		return nil, err
	}
	return &list[idx], nil
}

func (s *Service) lookup(ctx context.Context, reg registry.Registry, a *models.Applicant) (registry.Outcome, error) {
	kind := reg.Kind()
	ctx, span := s.tracer.Start(ctx, "verification.check", trace.WithAttributes(
		attribute.String("check.kind", string(kind)),
		attribute.String("registry.id", reg.ID()),
		attribute.String("applicant.application_id", a.ApplicationID),
	))
	defer span.End()

	start := time.Now()
	breaker := s.breakers[kind]
	if !breaker.Allow() {
		s.metrics.ObserveVerification(string(kind), "circuit_open", start)
		span.SetStatus(codes.Error, "circuit open")
		return registry.Outcome{}, dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("%s registry is temporarily unavailable", reg.ID()))
	}

	outcome, attempts, err := s.callWithRetry(ctx, reg, a.NationalID)
	span.SetAttributes(attribute.Int("registry.attempts", attempts))
	if err != nil {
		if registry.IsRetryable(err) {
			if _, change := breaker.RecordFailure(); change.Opened {
				s.logger.WarnContext(ctx, "registry circuit opened", "registry", reg.ID())
			}
		}
		s.metrics.ObserveVerification(string(kind), "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(registry.CategoryOf(err)))
		s.logger.WarnContext(ctx, "registry check failed",
			"registry", reg.ID(),
			"application_id", a.ApplicationID,
			"attempts", attempts,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return registry.Outcome{}, translate(err, reg.ID())
	}

	if _, change := breaker.RecordSuccess(); change.Closed {
		s.logger.InfoContext(ctx, "registry circuit closed", "registry", reg.ID())
	}
	result := "cleared"
	if !outcome.Cleared {
		result = "flagged"
	}
	s.metrics.ObserveVerification(string(kind), result, start)
	span.SetAttributes(attribute.Bool("check.cleared", outcome.Cleared))
	return outcome, nil
}

func (s *Service) callWithRetry(ctx context.Context, reg registry.Registry, nationalID string) (registry.Outcome, int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		outcome, err := reg.Check(callCtx, nationalID)
		cancel()
		if err == nil {
			return outcome, attempt, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && !registry.IsRetryable(err) {
			err = registry.NewProviderError(registry.ErrorTimeout, reg.ID(), "lookup timed out", err)
		}
		lastErr = err
		if !registry.IsRetryable(err) || attempt > s.maxRetries {
			return registry.Outcome{}, attempt, lastErr
		}

		timer := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return registry.Outcome{}, attempt, registry.NewProviderError(registry.ErrorTimeout, reg.ID(), "lookup abandoned", ctx.Err())
		case <-timer.C:
		}
	}
	return registry.Outcome{}, s.maxRetries + 1, lastErr
}

func translate(err error, registryID string) error {
	switch registry.CategoryOf(err) {
	case registry.ErrorTimeout, registry.ErrorProviderOutage:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, registryID+" registry is unavailable, try again later")
	case registry.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, registryID+" registry has no record for this national id")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, registryID+" registry check failed")
	}
}

// record stores the outcome. A concurrent check that completed first wins;
// its result is returned and no second audit entry is written.
func (s *Service) record(ctx context.Context, applicantID string, kind models.CheckKind, outcome registry.Outcome) (models.CheckResult, error) {
	var result models.CheckResult
	err := s.store.RunInTx(ctx, []store.Collection{store.Applicants, store.SystemLogs}, func(tx *store.Tx) error {
		list, err := applicant.LoadApplicants(tx)
		if err != nil {
			return err
		}
		idx, err := applicant.FindByID(list, applicantID)
		if err != nil {
			return err
		}
		a := &list[idx]
		if !a.ApplyCheck(kind, outcome.Message, outcome.Cleared, requestcontext.Now(ctx).UTC()) {
			result = a.Verification.Result(kind)
			return nil
		}
		result = a.Verification.Result(kind)
		if err := applicant.SaveApplicants(tx, list); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionVerification,
			fmt.Sprintf("%s check for %s: %s", kindLabels[kind], a.ApplicationID, outcome.Message))
	})
	if err != nil {
		return models.CheckResult{}, err
	}
	return result, nil
}
