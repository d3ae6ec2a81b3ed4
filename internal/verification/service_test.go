package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/store/backend"
	"rnp-recruitment/internal/verification/registry"
	"rnp-recruitment/internal/verification/registry/mocks"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/circuit"
	"rnp-recruitment/pkg/requestcontext"
)

// unverifiedID is the seed applicant with no completed checks.
const unverifiedID = "2"

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	ctrl  *gomock.Controller
	store *store.Store
	audit *audit.Log
	apps  *applicant.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = requestcontext.WithPrincipal(
		requestcontext.WithTime(context.Background(), time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)),
		requestcontext.Principal{Subject: "admin-1", Name: "Inspector Uwase", Role: "RECRUITER"},
	)
	s.store = store.New(backend.NewMemory())
	s.audit = audit.New(s.store)
	s.apps = applicant.New(s.store, s.audit)
}

func (s *ServiceSuite) registry(kind models.CheckKind) *mocks.MockRegistry {
	r := mocks.NewMockRegistry(s.ctrl)
	r.EXPECT().Kind().Return(kind).AnyTimes()
	r.EXPECT().ID().Return(string(kind) + "-registry").AnyTimes()
	return r
}

func (s *ServiceSuite) newService(regs []registry.Registry, opts ...Option) *Service {
	opts = append([]Option{
		WithRetry(2, 0),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	}, opts...)
	return New(s.store, s.audit, regs, opts...)
}

func (s *ServiceSuite) TestRunRecordsOutcome() {
	reg := s.registry(models.CheckIdentity)
	reg.EXPECT().Check(gomock.Any(), "1199870000000002").
		Return(registry.Outcome{Cleared: true, Message: "NIDA Verified"}, nil)
	svc := s.newService([]registry.Registry{reg})

	res, err := svc.Run(s.ctx, unverifiedID, models.CheckIdentity)
	s.Require().NoError(err)
	s.True(res.Verified)
	s.True(res.Cleared)
	s.Equal("NIDA Verified", res.Message)

	stored, err := s.apps.Get(s.ctx, unverifiedID)
	s.Require().NoError(err)
	s.True(stored.IsVerified(models.CheckIdentity))
	s.False(stored.IsVerified(models.CheckEducation))

	entries, err := s.audit.List(s.ctx)
	s.Require().NoError(err)
	s.Require().NotEmpty(entries)
	s.Equal(audit.ActionVerification, entries[0].Action)
	s.Equal("Identity (NIDA) check for RNP-2024-0002: NIDA Verified", entries[0].Details)
	s.Equal("Inspector Uwase", entries[0].User)
}

func (s *ServiceSuite) TestRunFlaggedCriminalRecord() {
	reg := s.registry(models.CheckCriminal)
	reg.EXPECT().Check(gomock.Any(), gomock.Any()).
		Return(registry.Outcome{Cleared: false, Message: "ALERT: Past minor offense"}, nil)
	svc := s.newService([]registry.Registry{reg})

	res, err := svc.Run(s.ctx, unverifiedID, models.CheckCriminal)
	s.Require().NoError(err)
	s.True(res.Verified)
	s.False(res.Cleared)
}

func (s *ServiceSuite) TestRunSkipsCompletedChecks() {
	reg := s.registry(models.CheckIdentity)
	reg.EXPECT().Check(gomock.Any(), gomock.Any()).Times(0)
	svc := s.newService([]registry.Registry{reg})

	res, err := svc.Run(s.ctx, "1", models.CheckIdentity)
	s.Require().NoError(err)
	s.Equal("Identity Confirmed", res.Message)
}

func (s *ServiceSuite) TestRunRetriesTransientFailures() {
	reg := s.registry(models.CheckEducation)
	outage := registry.NewProviderError(registry.ErrorProviderOutage, "nesa", "503", nil)
	gomock.InOrder(
		reg.EXPECT().Check(gomock.Any(), gomock.Any()).Return(registry.Outcome{}, outage),
		reg.EXPECT().Check(gomock.Any(), gomock.Any()).Return(registry.Outcome{Cleared: true, Message: "NESA Verified"}, nil),
	)
	svc := s.newService([]registry.Registry{reg})

	res, err := svc.Run(s.ctx, unverifiedID, models.CheckEducation)
	s.Require().NoError(err)
	s.Equal("NESA Verified", res.Message)
}

func (s *ServiceSuite) TestRunSurfacesExhaustedRetriesAsUnavailable() {
	reg := s.registry(models.CheckEducation)
	reg.EXPECT().Check(gomock.Any(), gomock.Any()).
		Return(registry.Outcome{}, registry.NewProviderError(registry.ErrorTimeout, "nesa", "slow", nil)).
		Times(3)
	svc := s.newService([]registry.Registry{reg})

	_, err := svc.Run(s.ctx, unverifiedID, models.CheckEducation)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "got %v", err)

	stored, err := s.apps.Get(s.ctx, unverifiedID)
	s.Require().NoError(err)
	s.False(stored.IsVerified(models.CheckEducation))
}

func (s *ServiceSuite) TestRunDoesNotRetryPermanentFailures() {
	reg := s.registry(models.CheckIdentity)
	reg.EXPECT().Check(gomock.Any(), gomock.Any()).
		Return(registry.Outcome{}, registry.NewProviderError(registry.ErrorNotFound, "nida", "no such citizen", nil)).
		Times(1)
	svc := s.newService([]registry.Registry{reg})

	_, err := svc.Run(s.ctx, unverifiedID, models.CheckIdentity)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
}

func (s *ServiceSuite) TestOpenCircuitShortCircuitsCalls() {
	reg := s.registry(models.CheckCriminal)
	reg.EXPECT().Check(gomock.Any(), gomock.Any()).
		Return(registry.Outcome{}, registry.NewProviderError(registry.ErrorProviderOutage, "police", "down", nil)).
		Times(1)
	svc := s.newService([]registry.Registry{reg},
		WithRetry(0, 0),
		WithBreaker(circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour)),
	)

	_, err := svc.Run(s.ctx, unverifiedID, models.CheckCriminal)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = svc.Run(s.ctx, unverifiedID, models.CheckCriminal)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestRunUnknownApplicant() {
	reg := s.registry(models.CheckIdentity)
	svc := s.newService([]registry.Registry{reg})

	_, err := svc.Run(s.ctx, "missing", models.CheckIdentity)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRunUnconfiguredKind() {
	svc := s.newService(nil)
	_, err := svc.Run(s.ctx, unverifiedID, models.CheckIdentity)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestRunAll() {
	svc := s.newService(registry.NewMocks(false))

	results, err := svc.RunAll(s.ctx, unverifiedID)
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	for i, kind := range models.CheckKinds() {
		s.Equal(kind, results[i].Kind)
		s.True(results[i].Verified)
		s.True(results[i].Cleared)
	}
}

func (s *ServiceSuite) TestRunAllKeepsPartialResults() {
	failing := s.registry(models.CheckEducation)
	failing.EXPECT().Check(gomock.Any(), gomock.Any()).
		Return(registry.Outcome{}, errors.New("malformed response")).
		Times(1)
	regs := []registry.Registry{
		registry.NewMockIdentity(0),
		failing,
		registry.NewMockCriminal(0),
	}
	svc := s.newService(regs)

	results, err := svc.RunAll(s.ctx, unverifiedID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal), "got %v", err)
	s.Len(results, 2)

	stored, getErr := s.apps.Get(s.ctx, unverifiedID)
	s.Require().NoError(getErr)
	s.True(stored.IsVerified(models.CheckIdentity))
	s.False(stored.IsVerified(models.CheckEducation))
	s.True(stored.IsVerified(models.CheckCriminal))
}
