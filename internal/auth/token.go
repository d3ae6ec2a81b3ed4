// Package auth issues and validates the signed tokens that identify applicants
// and admin users between requests.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// Role is the principal kind carried in a token.
type Role string

const (
	RoleApplicant  Role = "APPLICANT"
	RoleRecruiter  Role = "RECRUITER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

const issuer = "rnp-recruitment"

// Claims represents the JWT claims for our access tokens
type Claims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed token and its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenService handles JWT creation and validation
type TokenService struct {
	signingKey []byte
	adminTTL   time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewTokenService(signingKey string, adminTTL, sessionTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		adminTTL:   adminTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// IssueApplicantSession returns the token an applicant uses for the exam and
// interview booking after a successful status check.
func (s *TokenService) IssueApplicantSession(applicantID, name string) (Token, error) {
	return s.issue(applicantID, name, RoleApplicant, s.sessionTTL)
}

// IssueAdmin returns the token for a logged-in admin user.
func (s *TokenService) IssueAdmin(adminID, name string, role Role) (Token, error) {
	if role != RoleRecruiter && role != RoleSuperAdmin {
		return Token{}, dErrors.New(dErrors.CodeInternal, "unsupported admin role "+string(role))
	}
	return s.issue(adminID, name, role, s.adminTTL)
}

func (s *TokenService) issue(subject, name string, role Role, ttl time.Duration) (Token, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// ValidateToken checks signature, issuer and expiry.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Allows reports whether role is one of allowed.
func (r Role) Allows(allowed ...Role) bool {
	return slices.Contains(allowed, r)
}
