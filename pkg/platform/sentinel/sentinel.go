package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Store backends return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: key or record does not exist in the backend
//   - ErrConflict: a concurrent writer won
//   - ErrUnavailable: backend or external registry temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
