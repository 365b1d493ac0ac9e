package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every "missing entity" error of this package.
var ErrNotFound = errors.New("not found")

var (
	ErrJobNotFound           = fmt.Errorf("generation job %w", ErrNotFound)
	ErrPlanNotFound          = fmt.Errorf("plan %w", ErrNotFound)
	ErrQuestionnaireNotFound = fmt.Errorf("questionnaire %w", ErrNotFound)
	ErrClientNotFound        = fmt.Errorf("client user %w", ErrNotFound)
	ErrPDFNotAttached        = fmt.Errorf("plan pdf %w", ErrNotFound)

	// ErrJobTerminal is returned when a worker result arrives for a job that
	// already completed or failed, including one that timed out.
	ErrJobTerminal = errors.New("generation job already reached a terminal state")
)

// ValidationError reports bad caller input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError is returned when a client already has a queued or running
// job. ActiveJobID lets callers poll that job instead of resubmitting.
type ConflictError struct {
	ClientID    string
	ActiveJobID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("generation already in progress for client %s (job %s)", e.ClientID, e.ActiveJobID)
}
