package models

import (
	"slices"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// Status is an applicant's lifecycle state.
type Status string

const (
	StatusReceived           Status = "Received"
	StatusUnderReview        Status = "Under Review"
	StatusShortlisted        Status = "Shortlisted"
	StatusInvitedForExam     Status = "Invited for Exam"
	StatusExamSubmitted      Status = "Exam Submitted"
	StatusInvitedInterview   Status = "Invited for Interview"
	StatusInterviewScheduled Status = "Interview Scheduled"
	StatusFinalReview        Status = "Final Review"
	StatusSelected           Status = "Selected for Training"
	StatusNotSelected        Status = "Not Selected"
)

// pipeline is the canonical forward order.
var pipeline = []Status{
	StatusReceived,
	StatusUnderReview,
	StatusShortlisted,
	StatusInvitedForExam,
	StatusExamSubmitted,
	StatusInvitedInterview,
	StatusInterviewScheduled,
	StatusFinalReview,
	StatusSelected,
}

// Pipeline returns the canonical forward order.
func Pipeline() []Status {
	return slices.Clone(pipeline)
}

// AllStatuses returns the pipeline followed by the rejection state.
func AllStatuses() []Status {
	return append(Pipeline(), StatusNotSelected)
}

// Position is the index in the forward order, or -1 for the rejection state
// and unknown values.
func (s Status) Position() int {
	return slices.Index(pipeline, s)
}

func (s Status) IsValid() bool {
	return s == StatusNotSelected || s.Position() >= 0
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusSelected || s == StatusNotSelected
}

// HasReached reports whether s is at or past stage in the forward order.
// The rejection state has reached nothing.
func (s Status) HasReached(stage Status) bool {
	pos, target := s.Position(), stage.Position()
	return pos >= 0 && target >= 0 && pos >= target
}

// ParseStatus validates a status label.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown status "+v)
	}
	return s, nil
}
