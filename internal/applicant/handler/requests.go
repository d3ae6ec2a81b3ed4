package handler

import (
	"strings"

	"rnp-recruitment/internal/applicant/models"
	"rnp-recruitment/internal/applicant/screening"
	"rnp-recruitment/internal/auth"
	dErrors "rnp-recruitment/pkg/domain-errors"
)

type StatusCheckRequest struct {
	NationalID    string `json:"nationalId"`
	ApplicationID string `json:"applicationId"`
}

func (r *StatusCheckRequest) Normalize() {
	r.NationalID = strings.ReplaceAll(strings.TrimSpace(r.NationalID), " ", "")
	r.ApplicationID = strings.TrimSpace(r.ApplicationID)
}

func (r *StatusCheckRequest) Validate() error {
	if r.NationalID == "" || r.ApplicationID == "" {
		return dErrors.New(dErrors.CodeValidation, "nationalId and applicationId are required")
	}
	return nil
}

// StatusCheckResponse carries the applicant and the session token used for
// the exam and interview booking.
type StatusCheckResponse struct {
	Applicant ApplicantStatus `json:"applicant"`
	Session   auth.Token      `json:"session"`
}

// ApplicantStatus is what an applicant may see about their own file.
type ApplicantStatus struct {
	ID            string        `json:"id"`
	ApplicationID string        `json:"applicationId"`
	FirstName     string        `json:"firstName"`
	LastName      string        `json:"lastName"`
	Status        models.Status `json:"status"`
	AppliedDate   string        `json:"appliedDate"`
	ExamScore     *int          `json:"examScore,omitempty"`
	InterviewDate *string       `json:"interviewDate,omitempty"`
}

func toStatus(a *models.Applicant) ApplicantStatus {
	return ApplicantStatus{
		ID:            a.ID,
		ApplicationID: a.ApplicationID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Status:        a.Status,
		AppliedDate:   a.AppliedDate.Format("2006-01-02"),
		ExamScore:     a.ExamScore,
		InterviewDate: a.InterviewDate,
	}
}

// CreateResponse confirms a submitted application.
type CreateResponse struct {
	ID             string        `json:"id"`
	ApplicationID  string        `json:"applicationId"`
	Status         models.Status `json:"status"`
	BlockchainHash string        `json:"blockchainHash"`
}

type PhotoRequest struct {
	screening.Photo
}

func (r *PhotoRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.ContentType = strings.ToLower(strings.TrimSpace(r.ContentType))
}

func (r *PhotoRequest) Validate() error {
	if r.Name == "" && r.URL == "" {
		return dErrors.New(dErrors.CodeValidation, "photo name or url is required")
	}
	if r.ContentType != "" && !strings.HasPrefix(r.ContentType, "image/") {
		return dErrors.New(dErrors.CodeValidation, "photo must be an image")
	}
	return nil
}

type AdvanceRequest struct {
	Status models.Status `json:"status"`
}

func (r *AdvanceRequest) Validate() error {
	if _, err := models.ParseStatus(string(r.Status)); err != nil {
		return err
	}
	return nil
}

type CommentRequest struct {
	Text string `json:"text"`
}

func (r *CommentRequest) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
}

func (r *CommentRequest) Validate() error {
	if r.Text == "" {
		return dErrors.New(dErrors.CodeValidation, "comment text is required")
	}
	return nil
}
