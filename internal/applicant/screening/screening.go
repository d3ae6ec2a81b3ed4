// Package screening runs the automated photo check attached to an application.
package screening

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"rnp-recruitment/internal/applicant/models"
	dErrors "rnp-recruitment/pkg/domain-errors"
)

// DefaultLatency mirrors the response time of the hosted vision model.
const DefaultLatency = 3 * time.Second

// Photo is the uploaded full-body picture.
type Photo struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// PhotoAnalyzer estimates physical metrics from a photo.
type PhotoAnalyzer interface {
	Analyze(ctx context.Context, photo Photo) (*models.AIMetrics, error)
}

// MockAnalyzer returns plausible metrics after a fixed delay.
type MockAnalyzer struct {
	latency time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*MockAnalyzer)

// WithLatency overrides the simulated processing time. Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(m *MockAnalyzer) {
		m.latency = d
	}
}

// WithSeed makes the generated metrics reproducible.
func WithSeed(seed uint64) Option {
	return func(m *MockAnalyzer) {
		m.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

func NewMockAnalyzer(opts ...Option) *MockAnalyzer {
	m := &MockAnalyzer{
		latency: DefaultLatency,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockAnalyzer) Analyze(ctx context.Context, photo Photo) (*models.AIMetrics, error) {
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "photo analysis cancelled")
		case <-timer.C:
		}
	}

	m.mu.Lock()
	height := 1.70 + m.rnd.Float64()*0.15
	fitness := 70 + m.rnd.IntN(30)
	edited := m.rnd.Float64() > 0.9
	m.mu.Unlock()

	return &models.AIMetrics{
		EstimatedHeight: fmt.Sprintf("%.2fm", height),
		BodyProportions: "Within RNP Standards",
		FitnessScore:    fmt.Sprintf("%d/100", fitness),
		IsPhotoEdited:   edited,
		ConfidenceScore: 95,
	}, nil
}
