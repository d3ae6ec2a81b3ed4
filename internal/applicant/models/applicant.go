package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// Gender as declared on the application form.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Document is an uploaded supporting file reference.
type Document struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	DateUploaded time.Time `json:"dateUploaded"`
}

// Comment is an internal reviewer note.
type Comment struct {
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Date   time.Time `json:"date"`
}

// AIMetrics is the result of the photo screening step.
type AIMetrics struct {
	EstimatedHeight string `json:"estimatedHeight"`
	BodyProportions string `json:"bodyProportions"`
	FitnessScore    string `json:"fitnessScore"`
	IsPhotoEdited   bool   `json:"isPhotoEdited"`
	ConfidenceScore int    `json:"confidenceScore"`
}

// Applicant is the aggregate root for one candidate.
//
// Invariants:
//   - ID and ApplicationID are assigned at creation and never change
//   - Status only moves forward through the pipeline, or to Not Selected
//   - FraudScore and AIMetrics are written at creation only
//   - ExamScore/ExamDate and InterviewDate are write-once
//   - each verification check goes from unverified to verified at most once
//   - AdminComments is append-only
type Applicant struct {
	ID                         string       `json:"id"`
	ApplicationID              string       `json:"applicationId"`
	FirstName                  string       `json:"firstName"`
	LastName                   string       `json:"lastName"`
	NationalID                 string       `json:"nationalId"`
	Email                      string       `json:"email"`
	Phone                      string       `json:"phone"`
	Gender                     Gender       `json:"gender"`
	DateOfBirth                string       `json:"dateOfBirth"`
	Province                   string       `json:"province"`
	District                   string       `json:"district"`
	EducationLevel             string       `json:"educationLevel"`
	CriminalRecord             bool         `json:"criminalRecord"`
	PhysicalFitnessDeclaration bool         `json:"physicalFitnessDeclaration"`
	Status                     Status       `json:"status"`
	AppliedDate                time.Time    `json:"appliedDate"`
	Documents                  []Document   `json:"documents"`
	BlockchainHash             string       `json:"blockchainHash"`
	FraudScore                 int          `json:"fraudScore"`
	IPAddress                  string       `json:"ipAddress"`
	UserAgent                  string       `json:"userAgent,omitempty"`
	AIMetrics                  *AIMetrics   `json:"aiMetrics,omitempty"`
	Verification               Verification `json:"verification"`
	AdminComments              []Comment    `json:"adminComments"`
	ExamScore                  *int         `json:"examScore,omitempty"`
	ExamDate                   *time.Time   `json:"examDate,omitempty"`
	InterviewDate              *string      `json:"interviewDate,omitempty"`
	InterviewSlotID            *string      `json:"interviewSlotId,omitempty"`
}

// FullName joins first and last name.
func (a *Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Changes are the fields a transition may set alongside the new status.
type Changes struct {
	ExamScore       *int
	ExamDate        *time.Time
	InterviewDate   *string
	InterviewSlotID *string
}

// CanTransitionTo checks whether target is reachable from the current status
// once changes are merged. Returns InvalidTransition or DuplicateSubmission.
func (a *Applicant) CanTransitionTo(target Status, changes Changes) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", target))
	}
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("application is closed with status %q", a.Status))
	}
	if changes.ExamScore != nil && a.ExamScore != nil {
		return dErrors.New(dErrors.CodeDuplicateSubmission, "exam already submitted")
	}
	if changes.InterviewDate != nil && a.InterviewDate != nil {
		return dErrors.New(dErrors.CodeDuplicateSubmission, "interview already booked")
	}
	if target == StatusNotSelected {
		return nil
	}
	if target == a.Status {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("application is already %q", a.Status))
	}
	if target.Position() <= a.Status.Position() {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move from %q back to %q", a.Status, target))
	}

	hasScore := a.ExamScore != nil || changes.ExamScore != nil
	hasInterview := a.InterviewDate != nil || changes.InterviewDate != nil
	if target.HasReached(StatusExamSubmitted) && !hasScore {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("%q requires a recorded exam score", target))
	}
	if target.HasReached(StatusInterviewScheduled) && !hasInterview {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("%q requires a booked interview", target))
	}
	return nil
}

// ApplyTransition sets the status and merges changes.
// Call CanTransitionTo first to validate the transition.
func (a *Applicant) ApplyTransition(target Status, changes Changes) {
	a.Status = target
	if changes.ExamScore != nil {
		a.ExamScore = changes.ExamScore
	}
	if changes.ExamDate != nil {
		a.ExamDate = changes.ExamDate
	}
	if changes.InterviewDate != nil {
		a.InterviewDate = changes.InterviewDate
	}
	if changes.InterviewSlotID != nil {
		a.InterviewSlotID = changes.InterviewSlotID
	}
}

// Transition validates and applies a transition in one call.
// Prefer CanTransitionTo + ApplyTransition inside store transactions.
func (a *Applicant) Transition(target Status, changes Changes) error {
	if err := a.CanTransitionTo(target, changes); err != nil {
		return err
	}
	a.ApplyTransition(target, changes)
	return nil
}

// AddComment appends a reviewer note.
func (a *Applicant) AddComment(author, text string, now time.Time) error {
	if text == "" {
		return dErrors.New(dErrors.CodeValidation, "comment text is required")
	}
	a.AdminComments = append(a.AdminComments, Comment{Author: author, Text: text, Date: now})
	return nil
}

// MatchesLookup reports whether both lookup keys identify this applicant.
// The application id comparison ignores case.
func (a *Applicant) MatchesLookup(nationalID, applicationID string) bool {
	return nationalID != "" && applicationID != "" &&
		a.NationalID == nationalID && strings.EqualFold(a.ApplicationID, applicationID)
}
