package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations use.
var (
	ErrJourneyNotFound   = errors.New("journey not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrStageNotFound     = errors.New("churn stage not found")
	ErrMetricNotFound    = errors.New("churn metric not found")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op       string // Operation being performed (e.g. "GetByID", "Save")
	Entity   string // Entity kind (journey, execution, segment, ...)
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJourneyNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrSegmentNotFound) ||
		errors.Is(err, ErrStageNotFound) ||
		errors.Is(err, ErrMetricNotFound)
}
