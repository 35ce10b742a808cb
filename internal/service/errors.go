package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrAuthFailed            = errors.New("no active account found with the given credentials")
	ErrMissingCredential     = errors.New("refresh token missing")
	ErrMalformedCredential   = errors.New("refresh token malformed")
	ErrUnknownCredential     = errors.New("refresh token not found")
	ErrExpiredCredential     = errors.New("refresh token expired")
	ErrCredentialExpired     = errors.New("access token expired")
	ErrPrincipalNotFound     = errors.New("user not found")
	ErrPrincipalInactive     = errors.New("user is inactive")
	ErrRefreshTokenCollision = errors.New("refresh token value collided twice")
)

// ValidationError carries every field violation found in one input.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// outcome maps a service result onto the status label used by auth metrics.
func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrAuthFailed):
		return "failure"
	case errors.Is(err, ErrMissingCredential):
		return "missing"
	case errors.Is(err, ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, ErrUnknownCredential):
		return "unknown"
	case errors.Is(err, ErrExpiredCredential):
		return "expired"
	default:
		return "error"
	}
}
