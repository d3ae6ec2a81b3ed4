package models

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

const maxNameLength = 64

// Bounds on photo screening metrics echoed back by the client.
const (
	minEstimatedHeight = 1.0
	maxEstimatedHeight = 2.5
	maxProportionsText = 64
)

// CreateRequest is the submitted application form.
type CreateRequest struct {
	FirstName                  string     `json:"firstName"`
	LastName                   string     `json:"lastName"`
	NationalID                 string     `json:"nationalId"`
	Email                      string     `json:"email"`
	Phone                      string     `json:"phone"`
	Gender                     Gender     `json:"gender"`
	DateOfBirth                string     `json:"dateOfBirth"`
	Province                   string     `json:"province"`
	District                   string     `json:"district"`
	EducationLevel             string     `json:"educationLevel"`
	CriminalRecord             bool       `json:"criminalRecord"`
	PhysicalFitnessDeclaration bool       `json:"physicalFitnessDeclaration"`
	Documents                  []Document `json:"documents"`
	AIMetrics                  *AIMetrics `json:"aiMetrics,omitempty"`
}

// Normalize trims free-text fields and canonicalizes identifiers.
func (r *CreateRequest) Normalize() {
	if r == nil {
		return
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.NationalID = strings.ReplaceAll(strings.TrimSpace(r.NationalID), " ", "")
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.ReplaceAll(strings.TrimSpace(r.Phone), " ", "")
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Province = strings.TrimSpace(r.Province)
	r.District = strings.TrimSpace(r.District)
	r.EducationLevel = strings.TrimSpace(r.EducationLevel)
	r.AIMetrics.normalize()
}

// Validate checks the form. Errors carry CodeValidation.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.FirstName == "" || r.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	if len(r.FirstName) > maxNameLength || len(r.LastName) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "names must be 64 characters or less")
	}
	if !IsNationalID(r.NationalID) {
		return dErrors.New(dErrors.CodeValidation, "national id must be exactly 16 digits")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if !isPhone(r.Phone) {
		return dErrors.New(dErrors.CodeValidation, "invalid phone number")
	}
	if r.Gender != GenderMale && r.Gender != GenderFemale {
		return dErrors.New(dErrors.CodeValidation, "gender must be Male or Female")
	}
	if _, err := time.Parse(time.DateOnly, r.DateOfBirth); err != nil {
		return dErrors.New(dErrors.CodeValidation, "date of birth must be YYYY-MM-DD")
	}
	if r.Province == "" || r.District == "" {
		return dErrors.New(dErrors.CodeValidation, "province and district are required")
	}
	if r.EducationLevel == "" {
		return dErrors.New(dErrors.CodeValidation, "education level is required")
	}
	if !r.PhysicalFitnessDeclaration {
		return dErrors.New(dErrors.CodeValidation, "physical fitness declaration must be accepted")
	}
	return r.AIMetrics.validate()
}

// normalize rewrites parseable height and fitness values in the analyzer's
// canonical form, so equivalent inputs are stored identically.
func (m *AIMetrics) normalize() {
	if m == nil {
		return
	}
	m.EstimatedHeight = strings.TrimSpace(m.EstimatedHeight)
	m.BodyProportions = strings.TrimSpace(m.BodyProportions)
	m.FitnessScore = strings.TrimSpace(m.FitnessScore)
	if h, err := parseHeight(m.EstimatedHeight); err == nil {
		m.EstimatedHeight = fmt.Sprintf("%.2fm", h)
	}
	if f, err := parseFitness(m.FitnessScore); err == nil {
		m.FitnessScore = fmt.Sprintf("%d/100", f)
	}
}

func (m *AIMetrics) validate() error {
	if m == nil {
		return nil
	}
	h, err := parseHeight(m.EstimatedHeight)
	if err != nil || !(h >= minEstimatedHeight && h <= maxEstimatedHeight) {
		return dErrors.New(dErrors.CodeValidation, "estimated height must be between 1.00m and 2.50m")
	}
	if f, err := parseFitness(m.FitnessScore); err != nil || f < 0 || f > 100 {
		return dErrors.New(dErrors.CodeValidation, "fitness score must be between 0/100 and 100/100")
	}
	if m.ConfidenceScore < 0 || m.ConfidenceScore > 100 {
		return dErrors.New(dErrors.CodeValidation, "confidence score must be between 0 and 100")
	}
	if m.BodyProportions == "" || len(m.BodyProportions) > maxProportionsText {
		return dErrors.New(dErrors.CodeValidation, "body proportions must be 1 to 64 characters")
	}
	return nil
}

func parseHeight(v string) (float64, error) {
	num, ok := strings.CutSuffix(v, "m")
	if !ok {
		return 0, fmt.Errorf("height %q has no unit", v)
	}
	return strconv.ParseFloat(num, 64)
}

func parseFitness(v string) (int, error) {
	num, ok := strings.CutSuffix(v, "/100")
	if !ok {
		return 0, fmt.Errorf("fitness %q is not out of 100", v)
	}
	return strconv.Atoi(num)
}

// IsNationalID reports whether v is exactly 16 ASCII digits.
func IsNationalID(v string) bool {
	return len(v) == 16 && allDigits(v)
}

func isPhone(v string) bool {
	v = strings.TrimPrefix(v, "+")
	return len(v) >= 10 && len(v) <= 15 && allDigits(v)
}

func allDigits(v string) bool {
	for _, c := range v {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
