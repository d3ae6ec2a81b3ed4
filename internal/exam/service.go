// Package exam holds the written examination: the question bank, grading,
// timed sittings and the single permitted submission per applicant.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

// StatusChangeHook is told about the transition committed by a submission.
type StatusChangeHook interface {
	AfterStatusChange(tx *store.Tx, from models.Status, a models.Applicant)
}

type Service struct {
	store    *store.Store
	audit    *audit.Log
	hook     StatusChangeHook
	sessions *Sessions
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

func WithSessions(sessions *Sessions) Option {
	return func(s *Service) {
		s.sessions = sessions
	}
}

// WithStatusChangeHook registers the hook run for the Exam Submitted transition.
func WithStatusChangeHook(h StatusChangeHook) Option {
	return func(s *Service) {
		s.hook = h
	}
}

func New(st *store.Store, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{
		store:    st,
		audit:    auditLog,
		sessions: NewSessions(DefaultDuration, DefaultMaxViolations),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Questions returns the bank in display order.
func (s *Service) Questions(ctx context.Context) ([]Question, error) {
	var qs []Question
	if err := s.store.Load(ctx, store.ExamQuestions, &qs, SeedQuestions()); err != nil {
		return nil, err
	}
	return qs, nil
}

// PublicQuestions returns the bank without answers.
func (s *Service) PublicQuestions(ctx context.Context) ([]PublicQuestion, error) {
	qs, err := s.Questions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PublicQuestion, len(qs))
	for i, q := range qs {
		out[i] = q.Public()
	}
	return out, nil
}

// ReplaceQuestions swaps the whole bank. Questions without an id get one
// derived from the current time.
func (s *Service) ReplaceQuestions(ctx context.Context, qs []Question) ([]Question, error) {
	qs = slices.Clone(qs)
	if err := prepare(qs, nil, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	err := s.store.RunInTx(ctx, []store.Collection{store.ExamQuestions, store.SystemLogs}, func(tx *store.Tx) error {
		if err := tx.Save(store.ExamQuestions, qs); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionUpdateExam, "Updated exam questions repository")
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "exam questions replaced", "count", len(qs))
	return qs, nil
}

// AddQuestion appends q to the bank.
func (s *Service) AddQuestion(ctx context.Context, q Question) (Question, error) {
	err := s.store.RunInTx(ctx, []store.Collection{store.ExamQuestions, store.SystemLogs}, func(tx *store.Tx) error {
		var qs []Question
		if err := tx.Load(store.ExamQuestions, &qs, SeedQuestions()); err != nil {
			return err
		}
		added := []Question{q}
		if err := prepare(added, qs, requestcontext.Now(ctx)); err != nil {
			return err
		}
		q = added[0]
		if err := tx.Save(store.ExamQuestions, append(qs, q)); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionUpdateExam, "Updated exam questions repository")
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// prepare validates qs and assigns ids unique across qs and existing.
func prepare(qs, existing []Question, now time.Time) error {
	taken := make(map[int64]bool, len(qs)+len(existing))
	for _, q := range existing {
		taken[q.ID] = true
	}
	for i := range qs {
		if err := qs[i].Validate(); err != nil {
			return err
		}
		if qs[i].ID == 0 {
			continue
		}
		if taken[qs[i].ID] {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate question id %d", qs[i].ID))
		}
		taken[qs[i].ID] = true
	}
	next := now.UnixMilli()
	for i := range qs {
		if qs[i].ID != 0 {
			continue
		}
		for taken[next] {
			next++
		}
		qs[i].ID = next
		taken[next] = true
	}
	return nil
}

// StartSession opens the timed sitting for an applicant invited to the exam.
func (s *Service) StartSession(ctx context.Context, applicantID string) (Session, []PublicQuestion, error) {
	a, err := s.invited(ctx, applicantID)
	if err != nil {
		return Session{}, nil, err
	}
	qs, err := s.PublicQuestions(ctx)
	if err != nil {
		return Session{}, nil, err
	}
	sess := s.sessions.Start(a.ID, requestcontext.Now(ctx))
	if sess.Terminated {
		return sess, nil, dErrors.New(dErrors.CodeForbidden, "exam terminated for proctoring violations")
	}
	return sess, qs, nil
}

// ReportViolation records a proctoring warning for the applicant's sitting.
func (s *Service) ReportViolation(ctx context.Context, applicantID string) (Session, error) {
	sess, err := s.sessions.RecordViolation(applicantID)
	if err != nil {
		return Session{}, err
	}
	if sess.Terminated {
		s.logger.WarnContext(ctx, "exam session terminated",
			"applicant_id", applicantID,
			"violations", sess.Violations,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return sess, nil
}

// Submit grades answers and records the score. Only applicants invited to
// the exam may submit, and only once. A sitting past its deadline still
// accepts the submission; a terminated one does not.
func (s *Service) Submit(ctx context.Context, applicantID string, answers Answers) (Result, error) {
	if sess, ok := s.sessions.Get(applicantID); ok && sess.Terminated {
		return Result{}, dErrors.New(dErrors.CodeForbidden, "exam terminated for proctoring violations")
	}

	var result Result
	collections := []store.Collection{store.Applicants, store.ExamQuestions, store.SystemLogs}
	err := s.store.RunInTx(ctx, collections, func(tx *store.Tx) error {
		var qs []Question
		if err := tx.Load(store.ExamQuestions, &qs, SeedQuestions()); err != nil {
			return err
		}
		list, err := applicant.LoadApplicants(tx)
		if err != nil {
			return err
		}
		idx, err := applicant.FindByID(list, applicantID)
		if err != nil {
			return err
		}
		a := &list[idx]
		if a.ExamScore != nil {
			return dErrors.New(dErrors.CodeDuplicateSubmission, "exam already submitted")
		}
		if a.Status != models.StatusInvitedForExam {
			return dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("applicant is %q, not invited for exam", a.Status))
		}

		result = Grade(qs, answers)
		score, now := result.Score, requestcontext.Now(ctx).UTC()
		changes := models.Changes{ExamScore: &score, ExamDate: &now}
		if err := a.CanTransitionTo(models.StatusExamSubmitted, changes); err != nil {
			return err
		}
		from := a.Status
		a.ApplyTransition(models.StatusExamSubmitted, changes)
		if err := applicant.SaveApplicants(tx, list); err != nil {
			return err
		}
		if s.hook != nil {
			s.hook.AfterStatusChange(tx, from, *a)
		}
		return s.audit.Append(tx, audit.ActionExamSubmission,
			fmt.Sprintf("Applicant %s submitted exam. Score: %d", a.ApplicationID, result.Score))
	})
	if err != nil {
		return Result{}, err
	}

	s.sessions.End(applicantID)
	s.metrics.ObserveExamScore(result.Score)
	s.logger.InfoContext(ctx, "exam submitted",
		"applicant_id", applicantID,
		"score", result.Score,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

func (s *Service) invited(ctx context.Context, applicantID string) (*models.Applicant, error) {
	var list []models.Applicant
	if err := s.store.Load(ctx, store.Applicants, &list, applicant.SeedApplicants()); err != nil {
		return nil, err
	}
	idx, err := applicant.FindByID(list, applicantID)
	if err != nil {
		return nil, err
	}
	a := &list[idx]
	if a.ExamScore != nil {
		return nil, dErrors.New(dErrors.CodeDuplicateSubmission, "exam already submitted")
	}
	if a.Status != models.StatusInvitedForExam {
		return nil, dErrors.New(dErrors.CodeForbidden, "applicant is not invited for the exam")
	}
	return a, nil
}
