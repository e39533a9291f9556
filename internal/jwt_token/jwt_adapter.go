package jwttoken

import (
	authmw "firmus/pkg/platform/middleware/auth"
)

// JWTServiceAdapter bridges JWTService to the auth middleware's
// TokenValidator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

// NewJWTServiceAdapter wraps a JWTService for middleware use.
func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

// ValidateToken validates the token and maps its claims onto the
// middleware's view.
func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.TokenClaims{
		TenantID: claims.TenantID,
		JTI:      claims.ID,
	}, nil
}
