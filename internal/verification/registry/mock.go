package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rnp-recruitment/internal/applicant/models"
)

// Simulated response times of the government registries.
const (
	IdentityLatency  = 1500 * time.Millisecond
	EducationLatency = 2000 * time.Millisecond
	CriminalLatency  = 1800 * time.Millisecond
)

// Mock answers from canned responses after a simulated delay.
type Mock struct {
	id      string
	kind    models.CheckKind
	latency time.Duration
	answer  func(nationalID string) Outcome
}

func (m *Mock) ID() string             { return m.id }
func (m *Mock) Kind() models.CheckKind { return m.kind }

func (m *Mock) Check(ctx context.Context, nationalID string) (Outcome, error) {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Outcome{}, NewProviderError(ErrorTimeout, m.id, "lookup interrupted", ctx.Err())
		case <-timer.C:
		}
	}
	return m.answer(nationalID), nil
}

// NewMockIdentity simulates the national identification agency.
func NewMockIdentity(latency time.Duration) *Mock {
	return &Mock{id: "nida", kind: models.CheckIdentity, latency: latency, answer: func(nid string) Outcome {
		return Outcome{Cleared: true, Message: fmt.Sprintf("NIDA Verified: %s matches database records. Parents: Verified.", nid)}
	}}
}

// NewMockEducation simulates the national examination board.
func NewMockEducation(latency time.Duration) *Mock {
	return &Mock{id: "nesa", kind: models.CheckEducation, latency: latency, answer: func(string) Outcome {
		return Outcome{Cleared: true, Message: "NESA Verified: A2 Diploma (2018) - Physics, Chem, Bio. Grade: Excellent."}
	}}
}

// NewMockCriminal simulates the police records office. National ids ending
// in 9 carry a record.
func NewMockCriminal(latency time.Duration) *Mock {
	return &Mock{id: "police", kind: models.CheckCriminal, latency: latency, answer: func(nid string) Outcome {
		if strings.HasSuffix(nid, "9") {
			return Outcome{Cleared: false, Message: "ALERT: Past minor offense (2020). Requires manual review."}
		}
		return Outcome{Cleared: true, Message: "CR Record: CLEAR. No history found."}
	}}
}

// NewMocks returns one mock per check kind. withLatency enables the simulated delays.
func NewMocks(withLatency bool) []Registry {
	latency := func(d time.Duration) time.Duration {
		if withLatency {
			return d
		}
		return 0
	}
	return []Registry{
		NewMockIdentity(latency(IdentityLatency)),
		NewMockEducation(latency(EducationLatency)),
		NewMockCriminal(latency(CriminalLatency)),
	}
}
