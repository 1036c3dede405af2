// Package services provides the application layer between the HTTP API and
// the lifecycle core packages, with standardized error types.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/journey"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrJourneyNil          = errors.New("journey cannot be nil")
	ErrJourneyNameRequired = errors.New("journey name is required")
	ErrJourneyNotValid     = errors.New("journey definition is not valid")
	ErrSegmentNil          = errors.New("segment cannot be nil")
	ErrSegmentNameRequired = errors.New("segment name is required")
	ErrStageNameRequired   = errors.New("churn stage name is required")
	ErrInvalidMetric       = errors.New("churn metric is not valid")

	// Business logic conflicts (409 Conflict).
	ErrCannotModifyActive  = errors.New("cannot modify a journey while it is active")
	ErrCannotDeleteActive  = errors.New("cannot delete a journey while it is active")
	ErrJourneyNotActivable = errors.New("only draft or paused journeys can be activated")
	ErrJourneyNotPausable  = errors.New("only active journeys can be paused")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// JourneyValidationError carries the structural issues that block a journey
// activation, so the API can return them as a machine-readable list.
type JourneyValidationError struct {
	Issues []journey.ValidationError
}

func (e *JourneyValidationError) Error() string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, issue.Error())
	}

	return "journey definition is not valid: " + strings.Join(messages, "; ")
}

func (e *JourneyValidationError) Unwrap() error {
	return ErrJourneyNotValid
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrJourneyNil) ||
		errors.Is(err, ErrJourneyNameRequired) ||
		errors.Is(err, ErrJourneyNotValid) ||
		errors.Is(err, ErrSegmentNil) ||
		errors.Is(err, ErrSegmentNameRequired) ||
		errors.Is(err, ErrStageNameRequired) ||
		errors.Is(err, ErrInvalidMetric)
}

// IsConflictError checks if an error is a business logic conflict that should
// return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyActive) ||
		errors.Is(err, ErrCannotDeleteActive) ||
		errors.Is(err, ErrJourneyNotActivable) ||
		errors.Is(err, ErrJourneyNotPausable)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
