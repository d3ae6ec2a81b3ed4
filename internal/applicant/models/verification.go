package models

import (
	"time"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// CheckKind names one of the three background checks.
type CheckKind string

const (
	CheckIdentity  CheckKind = "identity"
	CheckEducation CheckKind = "education"
	CheckCriminal  CheckKind = "criminal"
)

// CheckKinds lists every check in display order.
func CheckKinds() []CheckKind {
	return []CheckKind{CheckIdentity, CheckEducation, CheckCriminal}
}

func ParseCheckKind(v string) (CheckKind, error) {
	switch k := CheckKind(v); k {
	case CheckIdentity, CheckEducation, CheckCriminal:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown verification check "+v)
}

// Check is the stored outcome of one registry lookup.
type Check struct {
	Verified  bool       `json:"verified"`
	Data      string     `json:"data,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// CriminalCheck adds the clearance flag to the police lookup.
type CriminalCheck struct {
	Check
	Cleared bool `json:"cleared"`
}

// Verification holds the three checks under their registry names.
type Verification struct {
	Identity  Check         `json:"nida"`
	Education Check         `json:"nesa"`
	Criminal  CriminalCheck `json:"police"`
}

// CheckResult is the kind-independent view of a check.
type CheckResult struct {
	Kind      CheckKind  `json:"kind"`
	Verified  bool       `json:"verified"`
	Cleared   bool       `json:"cleared"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Result returns the stored outcome of kind. Identity and education checks
// count as cleared once verified.
func (v Verification) Result(kind CheckKind) CheckResult {
	var c Check
	cleared := false
	switch kind {
	case CheckIdentity:
		c, cleared = v.Identity, v.Identity.Verified
	case CheckEducation:
		c, cleared = v.Education, v.Education.Verified
	case CheckCriminal:
		c, cleared = v.Criminal.Check, v.Criminal.Cleared
	}
	return CheckResult{Kind: kind, Verified: c.Verified, Cleared: cleared, Message: c.Data, Timestamp: c.Timestamp}
}

// IsVerified reports whether kind has already completed.
func (a *Applicant) IsVerified(kind CheckKind) bool {
	return a.Verification.Result(kind).Verified
}

// ApplyCheck records a completed lookup. A check that is already verified is
// left untouched and false is returned.
func (a *Applicant) ApplyCheck(kind CheckKind, message string, cleared bool, now time.Time) bool {
	if a.IsVerified(kind) {
		return false
	}
	c := Check{Verified: true, Data: message, Timestamp: &now}
	switch kind {
	case CheckIdentity:
		a.Verification.Identity = c
	case CheckEducation:
		a.Verification.Education = c
	case CheckCriminal:
		a.Verification.Criminal = CriminalCheck{Check: c, Cleared: cleared}
	default:
		return false
	}
	return true
}
