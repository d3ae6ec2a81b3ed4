package auth

import (
	authmw "rnp-recruitment/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.Claims {
	return &authmw.Claims{
		Subject: claims.Subject,
		Name:    claims.Name,
		Role:    string(claims.Role),
	}
}

// MiddlewareAdapter exposes TokenService to the auth middleware.
type MiddlewareAdapter struct {
	service *TokenService
}

func NewMiddlewareAdapter(service *TokenService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*authmw.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}

// Roles converts roles for the middleware.
func Roles(roles ...Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
