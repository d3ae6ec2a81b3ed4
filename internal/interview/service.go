// Package interview schedules applicants into capacity-limited interview slots.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

// StatusChangeHook is told about the transition committed by a booking.
type StatusChangeHook interface {
	AfterStatusChange(tx *store.Tx, from models.Status, a models.Applicant)
}

type Service struct {
	store   *store.Store
	audit   *audit.Log
	hook    StatusChangeHook
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func WithStatusChangeHook(h StatusChangeHook) Option {
	return func(s *Service) {
		s.hook = h
	}
}

func New(st *store.Store, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{store: st, audit: auditLog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slots returns every slot in calendar order.
func (s *Service) Slots(ctx context.Context) ([]Slot, error) {
	var slots []Slot
	if err := s.store.Load(ctx, store.InterviewSlots, &slots, SeedSlots()); err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

// ListSlots returns the calendar grouped by date.
func (s *Service) ListSlots(ctx context.Context) ([]Day, error) {
	slots, err := s.Slots(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDate(slots), nil
}

// Book reserves a seat in slotID for an applicant invited to interview. The
// capacity check, the seat increment and the status change commit together.
func (s *Service) Book(ctx context.Context, applicantID, slotID string) (*models.Applicant, error) {
	var (
		booked models.Applicant
		label  string
	)
	collections := []store.Collection{store.Applicants, store.InterviewSlots, store.SystemLogs}
	err := s.store.RunInTx(ctx, collections, func(tx *store.Tx) error {
		var slots []Slot
		if err := tx.Load(store.InterviewSlots, &slots, SeedSlots()); err != nil {
			return err
		}
		si := slices.IndexFunc(slots, func(sl Slot) bool { return sl.ID == slotID })
		if si < 0 {
			return dErrors.New(dErrors.CodeNotFound, "interview slot not found")
		}
		slot := &slots[si]
		if slot.IsFull() {
			return dErrors.New(dErrors.CodeSlotFull, "interview slot is fully booked")
		}

		list, err := applicant.LoadApplicants(tx)
		if err != nil {
			return err
		}
		ai, err := applicant.FindByID(list, applicantID)
		if err != nil {
			return err
		}
		a := &list[ai]
		if a.InterviewDate != nil {
			return dErrors.New(dErrors.CodeDuplicateSubmission, "interview already booked")
		}
		if a.Status != models.StatusInvitedInterview {
			return dErrors.New(dErrors.CodeInvalidTransition,
				fmt.Sprintf("applicant is %q, not invited for interview", a.Status))
		}

		label = slot.Label()
		id := slot.ID
		changes := models.Changes{InterviewDate: &label, InterviewSlotID: &id}
		if err := a.CanTransitionTo(models.StatusInterviewScheduled, changes); err != nil {
			return err
		}
		from := a.Status
		a.ApplyTransition(models.StatusInterviewScheduled, changes)
		slot.Booked++

		if err := tx.Save(store.InterviewSlots, slots); err != nil {
			return err
		}
		if err := applicant.SaveApplicants(tx, list); err != nil {
			return err
		}
		booked = *a
		if s.hook != nil {
			s.hook.AfterStatusChange(tx, from, booked)
		}
		return s.audit.Append(tx, audit.ActionInterviewBooking,
			fmt.Sprintf("Applicant %s booked %s", a.ApplicationID, label))
	})
	if err != nil {
		s.metrics.IncrementInterviewBooking(string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementInterviewBooking("booked")
	s.logger.InfoContext(ctx, "interview booked",
		"applicant_id", applicantID,
		"slot", label,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &booked, nil
}

// ReplaceSlots swaps the whole calendar. Slots without an id get a new one.
func (s *Service) ReplaceSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	slots = append([]Slot{}, slots...)
	seen := make(map[string]bool, len(slots))
	for i := range slots {
		if err := slots[i].Validate(); err != nil {
			return nil, err
		}
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if seen[slots[i].ID] {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate slot id "+slots[i].ID)
		}
		seen[slots[i].ID] = true
	}
	if err := s.saveCalendar(ctx, func([]Slot) ([]Slot, error) { return slots, nil }); err != nil {
		return nil, err
	}
	return slots, nil
}

// AddSlot appends a slot. A zero capacity means DefaultCapacity.
func (s *Service) AddSlot(ctx context.Context, slot Slot) (Slot, error) {
	if slot.Capacity == 0 {
		slot.Capacity = DefaultCapacity
	}
	slot.ID = uuid.NewString()
	slot.Booked = 0
	if err := slot.Validate(); err != nil {
		return Slot{}, err
	}
	err := s.saveCalendar(ctx, func(current []Slot) ([]Slot, error) {
		return append(current, slot), nil
	})
	if err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// DeleteSlot removes a slot. Applicants already booked keep their appointment.
func (s *Service) DeleteSlot(ctx context.Context, slotID string) error {
	return s.saveCalendar(ctx, func(current []Slot) ([]Slot, error) {
		i := slices.IndexFunc(current, func(sl Slot) bool { return sl.ID == slotID })
		if i < 0 {
			return nil, dErrors.New(dErrors.CodeNotFound, "interview slot not found")
		}
		return slices.Delete(current, i, i+1), nil
	})
}

func (s *Service) saveCalendar(ctx context.Context, update func([]Slot) ([]Slot, error)) error {
	return s.store.RunInTx(ctx, []store.Collection{store.InterviewSlots, store.SystemLogs}, func(tx *store.Tx) error {
		var current []Slot
		if err := tx.Load(store.InterviewSlots, &current, SeedSlots()); err != nil {
			return err
		}
		next, err := update(current)
		if err != nil {
			return err
		}
		if err := tx.Save(store.InterviewSlots, next); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionUpdateInterview, "Updated interview calendar")
	})
}
