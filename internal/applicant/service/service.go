// Package service implements the applicant lifecycle: submission, lookup,
// review and status transitions.
package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"rnp-recruitment/internal/applicant/fraud"
	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/notify"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/sysconfig"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

const (
	applicationIDAttempts = 50
	notifyTimeout         = 10 * time.Second
)

// Service owns the applicant collection. Every mutation runs in a store
// transaction together with its audit entry.
type Service struct {
	store    *store.Store
	audit    *audit.Log
	scorer   fraud.Scorer
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	intn     func(n int) int
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

// WithScorer replaces the default fraud heuristics.
func WithScorer(scorer fraud.Scorer) Option {
	return func(s *Service) {
		s.scorer = scorer
	}
}

// WithNotifier is told about every committed status change.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func New(st *store.Store, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{
		store:  st,
		audit:  auditLog,
		scorer: fraud.Default(),
		logger: slog.Default(),
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create submits a new application. The portal must be open and out of
// maintenance, and a national id may only apply once.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Applicant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created models.Applicant
	collections := []store.Collection{store.Applicants, store.SystemConfig, store.SystemLogs}
	err := s.store.RunInTx(ctx, collections, func(tx *store.Tx) error {
		cfg, err := sysconfig.Read(tx)
		if err != nil {
			return err
		}
		if cfg.MaintenanceMode {
			return dErrors.New(dErrors.CodeUnavailable, "the portal is under maintenance")
		}
		if !cfg.RecruitmentOpen {
			return dErrors.New(dErrors.CodeForbidden, "recruitment is currently closed")
		}

		list, err := LoadApplicants(tx)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].NationalID == req.NationalID {
				return dErrors.New(dErrors.CodeDuplicateSubmission, "an application already exists for this national id")
			}
		}

		now := requestcontext.Now(ctx).UTC()
		appID, err := s.newApplicationID(list, now)
		if err != nil {
			return err
		}
		created = s.newApplicant(ctx, req, appID, now, list)

		if err := SaveApplicants(tx, append(list, created)); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionNewApplication, "New application received: "+created.ApplicationID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementApplicationsCreated()
	s.logger.InfoContext(ctx, "application created",
		"application_id", created.ApplicationID,
		"fraud_score", created.FraudScore,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &created, nil
}

func (s *Service) newApplicant(ctx context.Context, req *models.CreateRequest, appID string, now time.Time, existing []models.Applicant) models.Applicant {
	ip := requestcontext.ClientIP(ctx)
	ua := requestcontext.UserAgent(ctx)
	docs := slices.Clone(req.Documents)
	if docs == nil {
		docs = []models.Document{}
	}
	return models.Applicant{
		ID:                         uuid.NewString(),
		ApplicationID:              appID,
		FirstName:                  req.FirstName,
		LastName:                   req.LastName,
		NationalID:                 req.NationalID,
		Email:                      req.Email,
		Phone:                      req.Phone,
		Gender:                     req.Gender,
		DateOfBirth:                req.DateOfBirth,
		Province:                   req.Province,
		District:                   req.District,
		EducationLevel:             req.EducationLevel,
		CriminalRecord:             req.CriminalRecord,
		PhysicalFitnessDeclaration: req.PhysicalFitnessDeclaration,
		Status:                     models.StatusReceived,
		AppliedDate:                now,
		Documents:                  docs,
		BlockchainHash:             IntegrityHash(req.NationalID, now),
		FraudScore:                 s.scorer.Score(fraud.Input{IPAddress: ip, UserAgent: ua, Existing: existing}),
		IPAddress:                  ip,
		UserAgent:                  ua,
		AIMetrics:                  req.AIMetrics,
		AdminComments:              []models.Comment{},
	}
}

// newApplicationID draws RNP-<year>-NNNN until it finds an unused one.
func (s *Service) newApplicationID(existing []models.Applicant, now time.Time) (string, error) {
	taken := make(map[string]struct{}, len(existing))
	for i := range existing {
		taken[strings.ToUpper(existing[i].ApplicationID)] = struct{}{}
	}
	for range applicationIDAttempts {
		id := fmt.Sprintf("RNP-%d-%04d", now.Year(), 1000+s.intn(9000))
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
	return "", dErrors.New(dErrors.CodeConflict, "could not allocate an application id")
}

// IntegrityHash is the tamper-evidence digest stored with each application.
func IntegrityHash(nationalID string, appliedDate time.Time) string {
	sum := blake3.Sum256([]byte(nationalID + appliedDate.UTC().Format(time.RFC3339Nano)))
	return "0x" + hex.EncodeToString(sum[:16])
}

// CheckStatus finds an application by national id and application id. Both
// must match; the application id is compared case-insensitively.
func (s *Service) CheckStatus(ctx context.Context, nationalID, applicationID string) (*models.Applicant, error) {
	nationalID = strings.TrimSpace(nationalID)
	applicationID = strings.TrimSpace(applicationID)
	if nationalID == "" || applicationID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "national id and application id are required")
	}

	list, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].MatchesLookup(nationalID, applicationID) {
			return &list[i], nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no application matches these details")
}

func (s *Service) Get(ctx context.Context, id string) (*models.Applicant, error) {
	list, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := FindByID(list, id)
	if err != nil {
		return nil, err
	}
	return &list[idx], nil
}

// List returns applicants matching filter, most recent first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]models.Applicant, error) {
	list, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Applicant, 0, len(list))
	for i := range list {
		if filter.Matches(&list[i]) {
			out = append(out, list[i])
		}
	}
	slices.SortStableFunc(out, func(a, b models.Applicant) int {
		return b.AppliedDate.Compare(a.AppliedDate)
	})
	return out, nil
}

// Advance moves an applicant to target. Transitions that skip the exam or
// the interview booking are refused; see models.Applicant.CanTransitionTo.
func (s *Service) Advance(ctx context.Context, id string, target models.Status) (*models.Applicant, error) {
	var (
		updated models.Applicant
		from    models.Status
	)
	err := s.store.RunInTx(ctx, []store.Collection{store.Applicants, store.SystemLogs}, func(tx *store.Tx) error {
		list, err := LoadApplicants(tx)
		if err != nil {
			return err
		}
		idx, err := FindByID(list, id)
		if err != nil {
			return err
		}

		a := &list[idx]
		if err := a.CanTransitionTo(target, models.Changes{}); err != nil {
			return err
		}
		from = a.Status
		a.ApplyTransition(target, models.Changes{})
		updated = *a

		if err := SaveApplicants(tx, list); err != nil {
			return err
		}
		s.afterStatusChange(tx, from, updated)
		return s.audit.Append(tx, audit.ActionStatusUpdate,
			fmt.Sprintf("Updated %s to %s", updated.ApplicationID, updated.Status))
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reject closes the application with Not Selected.
func (s *Service) Reject(ctx context.Context, id string) (*models.Applicant, error) {
	return s.Advance(ctx, id, models.StatusNotSelected)
}

// AfterStatusChange registers the metric and notification for a transition
// committed by tx. Other services changing status inside their own
// transactions call it too.
func (s *Service) AfterStatusChange(tx *store.Tx, from models.Status, a models.Applicant) {
	s.afterStatusChange(tx, from, a)
}

func (s *Service) afterStatusChange(tx *store.Tx, from models.Status, a models.Applicant) {
	ctx := tx.Context()
	tx.OnCommit(func() {
		s.metrics.IncrementStatusTransition(string(from), string(a.Status))
		s.logger.InfoContext(ctx, "applicant status changed",
			"application_id", a.ApplicationID,
			"from", string(from),
			"to", string(a.Status),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.notifier == nil {
			return
		}
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.StatusChanged(nctx, a); err != nil {
			s.logger.WarnContext(ctx, "status notification failed",
				"application_id", a.ApplicationID,
				"error", err,
			)
		}
	})
}

// AddComment appends a reviewer note signed by the acting admin.
func (s *Service) AddComment(ctx context.Context, id, text string) (*models.Applicant, error) {
	text = strings.TrimSpace(text)
	var updated models.Applicant
	err := s.store.RunInTx(ctx, []store.Collection{store.Applicants, store.SystemLogs}, func(tx *store.Tx) error {
		list, err := LoadApplicants(tx)
		if err != nil {
			return err
		}
		idx, err := FindByID(list, id)
		if err != nil {
			return err
		}
		a := &list[idx]
		if err := a.AddComment(requestcontext.Actor(ctx), text, requestcontext.Now(ctx).UTC()); err != nil {
			return err
		}
		updated = *a
		if err := SaveApplicants(tx, list); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionAddComment, "Added comment to "+a.ApplicationID)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Export returns every applicant record and records the export.
func (s *Service) Export(ctx context.Context) ([]models.Applicant, error) {
	var list []models.Applicant
	err := s.store.RunInTx(ctx, []store.Collection{store.Applicants, store.SystemLogs}, func(tx *store.Tx) error {
		var err error
		if list, err = LoadApplicants(tx); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionDataExport,
			fmt.Sprintf("Exported %d applicant records", len(list)))
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Stats summarizes the applicant pool for the dashboards.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	list, err := s.all(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return models.ComputeStats(list), nil
}

func (s *Service) all(ctx context.Context) ([]models.Applicant, error) {
	var list []models.Applicant
	if err := s.store.Load(ctx, store.Applicants, &list, SeedApplicants()); err != nil {
		return nil, err
	}
	return list, nil
}
