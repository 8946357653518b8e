package jwttoken

import (
	"brokerage/internal/platform/middleware"
	"brokerage/pkg/domain"
)

var _ middleware.SessionValidator = (*JWTServiceAdapter)(nil)

// JWTServiceAdapter exposes JWTService as a middleware.SessionValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateSession(token string) (domain.SessionID, error) {
	return a.service.SessionFromToken(token)
}
