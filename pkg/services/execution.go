package services

import (
	"context"
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution exposes execution queries and the operator-facing state machine
// commands (enroll, approve, reject, cancel).
type Execution struct {
	persistence persistence.Persistence
	engine      *engine.Engine
}

// NewExecution creates a new execution service.
func NewExecution(persistence persistence.Persistence, eng *engine.Engine) *Execution {
	return &Execution{
		persistence: persistence,
		engine:      eng,
	}
}

// FetchByID retrieves an execution by its ID.
func (s *Execution) FetchByID(ctx context.Context, id string) (*models.JourneyExecution, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, id)
}

// ListByJourney retrieves all executions of a journey.
func (s *Execution) ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyExecution, error) {
	executions, err := s.persistence.ExecutionRepository().ListByJourney(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// ListByState retrieves all executions in one state, across journeys.
func (s *Execution) ListByState(ctx context.Context, state models.ExecutionState) ([]*models.JourneyExecution, error) {
	executions, err := s.persistence.ExecutionRepository().ListByState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Enroll starts a journey execution for a customer.
func (s *Execution) Enroll(ctx context.Context, journeyID, customerID string) (*models.JourneyExecution, error) {
	return s.engine.Enroll(ctx, journeyID, customerID)
}

// Approve releases an approval-gated action.
func (s *Execution) Approve(ctx context.Context, executionID string) error {
	return s.engine.Approve(ctx, executionID)
}

// Reject declines an approval-gated action, failing the execution.
func (s *Execution) Reject(ctx context.Context, executionID, reason string) error {
	return s.engine.Reject(ctx, executionID, reason)
}

// Cancel terminates an execution from any non-terminal state.
func (s *Execution) Cancel(ctx context.Context, executionID, reason string) error {
	return s.engine.Cancel(ctx, executionID, reason)
}
