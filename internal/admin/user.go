package admin

import (
	"net/mail"
	"strings"
	"time"

	"rnp-recruitment/internal/auth"
	dErrors "rnp-recruitment/pkg/domain-errors"
)

// User is a back-office account. The access code is kept only as a bcrypt
// hash plus a keyed lookup digest.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             auth.Role  `json:"role"`
	AccessCodeHash   string     `json:"accessCodeHash"`
	AccessCodeDigest string     `json:"accessCodeDigest,omitempty"`
	DateAdded        time.Time  `json:"dateAdded"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
}

// View is a User without credentials.
type View struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      auth.Role  `json:"role"`
	DateAdded time.Time  `json:"dateAdded"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (u User) View() View {
	return View{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		DateAdded: u.DateAdded,
		LastLogin: u.LastLogin,
	}
}

// CreateRequest adds a recruiter account.
type CreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	return nil
}

// Created is returned once on account creation; the code is not recoverable later.
type Created struct {
	User       View   `json:"user"`
	AccessCode string `json:"accessCode"`
}
