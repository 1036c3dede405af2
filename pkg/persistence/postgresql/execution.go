package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

const executionColumns = `
	id
  , journey_id
  , customer_id
  , current_node_id
  , state
  , entered_at
  , wait_until
  , branch_picks
  , failure_type
  , failure_reason
  , created_at
  , updated_at
  , finished_at
`

// ExecutionRepository handles journey execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.JourneyExecution, error) {
	query := "SELECT " + executionColumns + " FROM journey_executions WHERE id = $1"

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.JourneyExecution) error {
	branchPicks, err := json.Marshal(execution.BranchPicks)
	if err != nil {
		return fmt.Errorf("failed to encode branch picks: %w", err)
	}

	query := `
		INSERT INTO journey_executions (
			id, journey_id, customer_id, current_node_id, state, entered_at,
			wait_until, branch_picks, failure_type, failure_reason,
			created_at, updated_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id
		  , state = EXCLUDED.state
		  , entered_at = EXCLUDED.entered_at
		  , wait_until = EXCLUDED.wait_until
		  , branch_picks = EXCLUDED.branch_picks
		  , failure_type = EXCLUDED.failure_type
		  , failure_reason = EXCLUDED.failure_reason
		  , updated_at = EXCLUDED.updated_at
		  , finished_at = EXCLUDED.finished_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.JourneyID,
		execution.CustomerID,
		execution.CurrentNodeID,
		execution.State,
		execution.EnteredAt,
		execution.WaitUntil,
		branchPicks,
		execution.FailureType,
		execution.FailureReason,
		execution.CreatedAt,
		execution.UpdatedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Save", Entity: "execution", EntityID: execution.ID, Err: err}
	}

	return nil
}

func (r *ExecutionRepository) ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyExecution, error) {
	query := "SELECT " + executionColumns + " FROM journey_executions WHERE journey_id = $1 ORDER BY created_at"

	return r.queryExecutions(ctx, query, journeyID)
}

func (r *ExecutionRepository) ListByState(ctx context.Context, state models.ExecutionState) ([]*models.JourneyExecution, error) {
	query := "SELECT " + executionColumns + " FROM journey_executions WHERE state = $1 ORDER BY created_at"

	return r.queryExecutions(ctx, query, state)
}

func (r *ExecutionRepository) ListWaitingDue(ctx context.Context, before time.Time) ([]*models.JourneyExecution, error) {
	query := "SELECT " + executionColumns + ` FROM journey_executions
		WHERE state = 'waiting' AND wait_until IS NOT NULL AND wait_until <= $1
		ORDER BY wait_until`

	return r.queryExecutions(ctx, query, before)
}

func (r *ExecutionRepository) ExistsForCustomer(ctx context.Context, journeyID, customerID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM journey_executions WHERE journey_id = $1 AND customer_id = $2)",
		journeyID, customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check execution existence: %w", err)
	}

	return exists, nil
}

func (r *ExecutionRepository) queryExecutions(ctx context.Context, query string, args ...any) ([]*models.JourneyExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.JourneyExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row rowScanner) (*models.JourneyExecution, error) {
	var (
		execution   models.JourneyExecution
		branchPicks []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.JourneyID,
		&execution.CustomerID,
		&execution.CurrentNodeID,
		&execution.State,
		&execution.EnteredAt,
		&execution.WaitUntil,
		&branchPicks,
		&execution.FailureType,
		&execution.FailureReason,
		&execution.CreatedAt,
		&execution.UpdatedAt,
		&execution.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(branchPicks, &execution.BranchPicks)
	if err != nil {
		return nil, fmt.Errorf("failed to decode branch picks: %w", err)
	}

	return &execution, nil
}
