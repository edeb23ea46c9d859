package jwttoken

import (
	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

// PrincipalValidator adapts JWTService to the auth middleware: it resolves a
// token straight to the subject principal.
type PrincipalValidator struct {
	service *JWTService
}

func NewPrincipalValidator(service *JWTService) *PrincipalValidator {
	return &PrincipalValidator{service: service}
}

func (a *PrincipalValidator) ValidateToken(tokenString string) (id.Principal, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	principal, err := id.ParsePrincipal(claims.Subject)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token subject is not a valid principal")
	}
	return principal, nil
}
