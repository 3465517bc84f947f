package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling in the handler layer.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AuthorizationError is raised when an explicit ownership check fails and listing
// the offending ids helps the caller (e.g. batch creation with foreign client ids).
// Plain ownership misses on single resources surface as ErrNotFound instead, so the
// API never confirms the existence of another tenant's records.
type AuthorizationError struct {
	Message    string
	InvalidIDs []string
}

func (e *AuthorizationError) Error() string {
	if len(e.InvalidIDs) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.InvalidIDs, ", "))
}

func (e *AuthorizationError) StatusCode() int { return http.StatusForbidden }

// Is allows errors.Is() to match against ErrForbidden
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrForbidden
}

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string
	ResourceType string
	ResourceID   string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
