// Package registry defines the external registries consulted by background
// checks and the mock implementations used outside production.
package registry

import (
	"context"

	"rnp-recruitment/internal/applicant/models"
)

//go:generate mockgen -source=registry.go -destination=mocks/mock_registry.go -package=mocks

// Outcome is a completed lookup. Cleared=false is a negative result, not a failure.
type Outcome struct {
	Cleared bool
	Message string
}

// Registry is one external source of truth (NIDA, NESA, police records).
type Registry interface {
	// ID names the registry in logs and errors.
	ID() string
	Kind() models.CheckKind
	Check(ctx context.Context, nationalID string) (Outcome, error)
}
