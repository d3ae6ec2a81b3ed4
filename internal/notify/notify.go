// Package notify tells applicants and staff that an application changed status.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rnp-recruitment/internal/applicant/models"
)

// Notifier is called after a status change has been committed.
type Notifier interface {
	StatusChanged(ctx context.Context, a models.Applicant) error
}

// Message renders the notification text for a.
func Message(a models.Applicant) string {
	return fmt.Sprintf("Application %s (%s) is now: %s", a.ApplicationID, a.FullName(), a.Status)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) StatusChanged(ctx context.Context, a models.Applicant) error {
	n.logger.InfoContext(ctx, "notification sent",
		"application_id", a.ApplicationID,
		"status", string(a.Status),
		"email", a.Email,
	)
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) StatusChanged(ctx context.Context, a models.Applicant) error {
	var errs []error
	for _, n := range m {
		if err := n.StatusChanged(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
