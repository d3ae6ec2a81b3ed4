package exam

import (
	"context"
	"sync"
	"time"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

const (
	DefaultDuration      = 30 * time.Minute
	DefaultMaxViolations = 3
)

// Session is one applicant's timed sitting.
type Session struct {
	ApplicantID string    `json:"-"`
	StartedAt   time.Time `json:"startedAt"`
	Deadline    time.Time `json:"deadline"`
	Violations  int       `json:"violations"`
	Terminated  bool      `json:"terminated"`
}

// Remaining is the time left before the deadline, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	return max(s.Deadline.Sub(now), 0)
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// Sessions tracks open sittings in process memory. A sitting is terminated
// once its violations exceed the allowed number of warnings; the applicant
// then stays barred and only the violation count is kept.
type Sessions struct {
	mu            sync.Mutex
	open          map[string]*Session
	barred        map[string]int
	duration      time.Duration
	maxViolations int
}

func NewSessions(duration time.Duration, maxViolations int) *Sessions {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if maxViolations <= 0 {
		maxViolations = DefaultMaxViolations
	}
	return &Sessions{
		open:          make(map[string]*Session),
		barred:        make(map[string]int),
		duration:      duration,
		maxViolations: maxViolations,
	}
}

// Start opens a sitting. Starting again returns the existing one; the clock
// is not reset.
func (s *Sessions) Start(applicantID string, now time.Time) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.lookup(applicantID); ok {
		return sess
	}
	sess := &Session{ApplicantID: applicantID, StartedAt: now, Deadline: now.Add(s.duration)}
	s.open[applicantID] = sess
	return *sess
}

func (s *Sessions) Get(applicantID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(applicantID)
}

func (s *Sessions) lookup(applicantID string) (Session, bool) {
	if violations, ok := s.barred[applicantID]; ok {
		return Session{ApplicantID: applicantID, Violations: violations, Terminated: true}, true
	}
	sess, ok := s.open[applicantID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// RecordViolation counts a proctoring warning. The sitting that crosses the
// limit is closed and its applicant barred.
func (s *Sessions) RecordViolation(applicantID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.barred[applicantID]; ok {
		sess, _ := s.lookup(applicantID)
		return sess, nil
	}
	sess, ok := s.open[applicantID]
	if !ok {
		return Session{}, dErrors.New(dErrors.CodeNotFound, "no exam session in progress")
	}
	sess.Violations++
	if sess.Violations > s.maxViolations {
		sess.Terminated = true
		delete(s.open, applicantID)
		s.barred[applicantID] = sess.Violations
	}
	return *sess, nil
}

// End closes a sitting after submission.
func (s *Sessions) End(applicantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, applicantID)
}

// Sweep closes sittings whose deadline passed more than one exam duration
// before now. Barred applicants are kept.
func (s *Sessions) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.duration)
	swept := 0
	for id, sess := range s.open {
		if sess.Expired(cutoff) {
			delete(s.open, id)
			swept++
		}
	}
	return swept
}

// Len is the number of open sittings.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}
