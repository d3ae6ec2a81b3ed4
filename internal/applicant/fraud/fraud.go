// Package fraud scores new applications for signs of abuse. Scores are
// additive and capped at MaxScore; they are advisory and never block an
// application.
package fraud

import (
	"strings"

	"github.com/mssola/useragent"

	"rnp-recruitment/internal/applicant/models"
)

const (
	MaxScore = 100

	// IPCollisionWeight is added when another applicant used the same address.
	IPCollisionWeight = 20
	// AutomatedClientWeight is added for bots and missing user agents.
	AutomatedClientWeight = 15
)

// Input is what a scorer may look at.
type Input struct {
	IPAddress string
	UserAgent string
	Existing  []models.Applicant
}

// Scorer is a pluggable fraud heuristic.
type Scorer interface {
	Score(in Input) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(in Input) int

func (f ScorerFunc) Score(in Input) int { return f(in) }

// IPCollision flags addresses already seen on another application.
type IPCollision struct{}

func (IPCollision) Score(in Input) int {
	if in.IPAddress == "" {
		return 0
	}
	for i := range in.Existing {
		if in.Existing[i].IPAddress == in.IPAddress {
			return IPCollisionWeight
		}
	}
	return 0
}

// UserAgent flags crawlers, scripted clients and empty agents.
type UserAgent struct{}

func (UserAgent) Score(in Input) int {
	raw := strings.TrimSpace(in.UserAgent)
	if raw == "" {
		return AutomatedClientWeight
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return AutomatedClientWeight
	}
	if name, _ := ua.Browser(); name == "" || isScriptClient(raw) {
		return AutomatedClientWeight
	}
	return 0
}

var scriptClients = []string{"curl/", "wget/", "python-requests", "go-http-client", "httpie/", "postmanruntime"}

func isScriptClient(raw string) bool {
	lower := strings.ToLower(raw)
	for _, p := range scriptClients {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Chain sums the scores of its members.
type Chain []Scorer

func (c Chain) Score(in Input) int {
	total := 0
	for _, s := range c {
		total += s.Score(in)
	}
	return min(total, MaxScore)
}

// Default is the scorer used by the applicant service.
func Default() Chain {
	return Chain{IPCollision{}, UserAgent{}}
}
