package models

import "strings"

// ListFilter narrows the admin applicant list. Zero values match everything.
type ListFilter struct {
	Status   Status
	Province string
	Query    string
}

// Matches reports whether a passes every set criterion. Query is matched
// case-insensitively against names, ids and email.
func (f ListFilter) Matches(a *Applicant) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Province != "" && !strings.EqualFold(a.Province, f.Province) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{a.FullName(), a.ApplicationID, a.NationalID, a.Email} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
