package exam

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/store/backend"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *store.Store
	audit *audit.Log
	apps  *applicant.Service
	exam  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.store = store.New(backend.NewMemory())
	s.audit = audit.New(s.store)
	s.apps = applicant.New(s.store, s.audit)
	s.exam = New(s.store, s.audit,
		WithStatusChangeHook(s.apps),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
}

func (s *ServiceSuite) invite(id string) {
	_, err := s.apps.Advance(s.ctx, id, models.StatusInvitedForExam)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestSubmitScoresAndAdvances() {
	s.invite("2")

	res, err := s.exam.Submit(s.ctx, "2", Answers{1: 0, 2: 2, 3: 3, 4: 1})
	s.Require().NoError(err)
	s.Equal(75, res.Score)

	a, err := s.apps.Get(s.ctx, "2")
	s.Require().NoError(err)
	s.Equal(models.StatusExamSubmitted, a.Status)
	s.Require().NotNil(a.ExamScore)
	s.Equal(75, *a.ExamScore)
	s.Equal(s.now, *a.ExamDate)

	entries, err := s.audit.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(audit.ActionExamSubmission, entries[0].Action)
	s.Equal("Applicant RNP-2024-0002 submitted exam. Score: 75", entries[0].Details)
}

func (s *ServiceSuite) TestSubmitOnlyOnce() {
	s.invite("2")
	_, err := s.exam.Submit(s.ctx, "2", Answers{1: 0})
	s.Require().NoError(err)

	_, err = s.exam.Submit(s.ctx, "2", Answers{1: 0, 2: 2, 3: 0, 4: 1})
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateSubmission), "got %v", err)

	a, err := s.apps.Get(s.ctx, "2")
	s.Require().NoError(err)
	s.Equal(25, *a.ExamScore)
}

func (s *ServiceSuite) TestConcurrentSubmissionsRecordOneScore() {
	s.invite("2")
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 8 {
		wg.Go(func() {
			if _, err := s.exam.Submit(s.ctx, "2", Answers{1: 0}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	s.Equal(1, successes)
}

func (s *ServiceSuite) TestSubmitRequiresInvitation() {
	_, err := s.exam.Submit(s.ctx, "2", Answers{1: 0})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)

	_, err = s.exam.Submit(s.ctx, "missing", Answers{})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSessionLifecycle() {
	_, _, err := s.exam.StartSession(s.ctx, "2")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "not invited yet")

	s.invite("2")
	sess, qs, err := s.exam.StartSession(s.ctx, "2")
	s.Require().NoError(err)
	s.Len(qs, 4)
	s.Equal(s.now.Add(DefaultDuration), sess.Deadline)

	for range DefaultMaxViolations + 1 {
		sess, err = s.exam.ReportViolation(s.ctx, "2")
		s.Require().NoError(err)
	}
	s.True(sess.Terminated)

	_, err = s.exam.Submit(s.ctx, "2", Answers{1: 0})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, _, err = s.exam.StartSession(s.ctx, "2")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "a terminated applicant cannot start over")
	s.Equal(0, s.exam.sessions.Len())
}

func (s *ServiceSuite) TestSubmitAfterDeadlineIsAccepted() {
	s.invite("2")
	_, _, err := s.exam.StartSession(s.ctx, "2")
	s.Require().NoError(err)

	late := requestcontext.WithTime(context.Background(), s.now.Add(DefaultDuration+time.Minute))
	res, err := s.exam.Submit(late, "2", Answers{1: 0, 2: 2})
	s.Require().NoError(err)
	s.Equal(50, res.Score)
	s.Equal(0, s.exam.sessions.Len(), "submission closes the sitting")
}

func (s *ServiceSuite) TestReplaceQuestions() {
	qs, err := s.exam.ReplaceQuestions(s.ctx, []Question{
		{Q: "Integrity means:", Opts: []string{"Honesty", "Strength", "Speed", "Punctuality"}, Ans: 0},
	})
	s.Require().NoError(err)
	s.Equal(s.now.UnixMilli(), qs[0].ID)

	public, err := s.exam.PublicQuestions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(public, 1)
	s.Equal("Integrity means:", public[0].Q)

	entries, err := s.audit.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(audit.ActionUpdateExam, entries[0].Action)
	s.Equal("Updated exam questions repository", entries[0].Details)

	_, err = s.exam.ReplaceQuestions(s.ctx, []Question{{Q: "broken"}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	public, err = s.exam.PublicQuestions(s.ctx)
	s.Require().NoError(err)
	s.Len(public, 1, "failed replace leaves the bank untouched")
}

func (s *ServiceSuite) TestAddQuestionAppends() {
	q, err := s.exam.AddQuestion(s.ctx, Question{Q: "Who leads RNP?", Opts: []string{"IGP", "Mayor", "Judge", "Minister"}, Ans: 0})
	s.Require().NoError(err)
	s.NotZero(q.ID)

	qs, err := s.exam.Questions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(qs, 5)
	s.Equal(q.ID, qs[4].ID)
}
