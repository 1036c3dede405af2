package engine

import (
	"context"
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

// Resume moves a waiting execution back to running once its wait has elapsed
// and continues advancement from the wait node's successor.
func (e *Engine) Resume(ctx context.Context, executionID string) error {
	return e.withLock(ctx, executionID, func(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error {
		if execution.State != models.ExecutionStateWaiting {
			if execution.State.Terminal() {
				return ErrExecutionTerminal
			}

			return ErrNotWaiting
		}

		if execution.WaitUntil != nil && e.now().Before(*execution.WaitUntil) {
			return ErrWaitNotElapsed
		}

		node := journey.NodeByID(execution.CurrentNodeID)
		if node == nil {
			return e.failConfiguration(ctx, execution,
				fmt.Sprintf("node %q does not resolve in journey %s", execution.CurrentNodeID, journey.ID))
		}

		if _, isWait := node.Config.(*models.WaitConfig); !isWait {
			return e.failConfiguration(ctx, execution,
				fmt.Sprintf("waiting execution parked on non-wait node %s", node.ID))
		}

		if len(node.Next) == 0 {
			return e.failConfiguration(ctx, execution,
				fmt.Sprintf("wait node %s has no outgoing edge", node.ID))
		}

		execution.State = models.ExecutionStateRunning
		execution.WaitUntil = nil

		err := e.moveTo(ctx, execution, node.ID, node.Next[0])
		if err != nil {
			return err
		}

		e.logger.InfoContext(ctx, "Resumed waiting execution",
			"execution_id", execution.ID,
			"journey_id", execution.JourneyID,
		)

		return e.run(ctx, journey, execution)
	})
}

// Approve releases an approval-gated action: the message is dispatched and
// the execution continues past the action node.
func (e *Engine) Approve(ctx context.Context, executionID string) error {
	return e.withLock(ctx, executionID, func(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error {
		node, config, err := e.pendingActionNode(ctx, journey, execution)
		if err != nil || node == nil {
			return err
		}

		if len(node.Next) == 0 {
			return e.failConfiguration(ctx, execution,
				fmt.Sprintf("action node %s has no outgoing edge", node.ID))
		}

		e.publishApprovalResolved(ctx, execution, true, "")

		execution.State = models.ExecutionStateRunning

		delivered, err := e.dispatchAction(ctx, execution, node, config)
		if err != nil {
			return err
		}

		if !delivered {
			return nil
		}

		err = e.moveTo(ctx, execution, node.ID, node.Next[0])
		if err != nil {
			return err
		}

		return e.run(ctx, journey, execution)
	})
}

// Reject fails an approval-gated execution. Nothing is sent.
func (e *Engine) Reject(ctx context.Context, executionID, reason string) error {
	return e.withLock(ctx, executionID, func(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error {
		node, _, err := e.pendingActionNode(ctx, journey, execution)
		if err != nil || node == nil {
			return err
		}

		e.publishApprovalResolved(ctx, execution, false, reason)

		if reason == "" {
			reason = "approval rejected"
		}

		return e.fail(ctx, execution, models.FailureTypeApprovalRejected,
			fmt.Sprintf("approval rejected at node %s: %s", node.ID, reason))
	})
}

// Cancel terminates an execution from any non-terminal state.
func (e *Engine) Cancel(ctx context.Context, executionID, reason string) error {
	return e.withLock(ctx, executionID, func(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error {
		if execution.State.Terminal() {
			return ErrExecutionTerminal
		}

		now := e.now()
		execution.State = models.ExecutionStateCancelled
		execution.WaitUntil = nil
		execution.FinishedAt = &now

		err := e.saveExecution(ctx, execution)
		if err != nil {
			return err
		}

		e.publishCancelled(ctx, execution, reason)

		e.logger.InfoContext(ctx, "Cancelled execution",
			"execution_id", execution.ID,
			"journey_id", execution.JourneyID,
			"reason", reason,
		)

		return nil
	})
}

// pendingActionNode validates that the execution is pending approval and
// parked on an approval-gated action node. A nil node with nil error means
// the execution was failed in place for a configuration defect.
func (e *Engine) pendingActionNode(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) (*models.JourneyNode, *models.ActionConfig, error) {
	if execution.State != models.ExecutionStatePendingApproval {
		if execution.State.Terminal() {
			return nil, nil, ErrExecutionTerminal
		}

		return nil, nil, ErrNotPendingApproval
	}

	node := journey.NodeByID(execution.CurrentNodeID)
	if node == nil {
		return nil, nil, e.failConfiguration(ctx, execution,
			fmt.Sprintf("node %q does not resolve in journey %s", execution.CurrentNodeID, journey.ID))
	}

	config, isAction := node.Config.(*models.ActionConfig)
	if !isAction || !config.RequiresApproval {
		return nil, nil, e.failConfiguration(ctx, execution,
			fmt.Sprintf("pending execution parked on non-gated node %s", node.ID))
	}

	return node, config, nil
}

// withLock loads the execution and its journey under the per-execution lock
// and runs fn. Every externally triggered transition goes through here.
func (e *Engine) withLock(ctx context.Context, executionID string, fn func(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error) error {
	release, err := e.locker.Acquire(ctx, executionID, e.lockTTL)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := release(ctx); releaseErr != nil {
			e.logger.ErrorContext(ctx, "Failed to release execution lock", "execution_id", executionID, "error", releaseErr)
		}
	}()

	execution, err := e.persistence.ExecutionRepository().GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	journey, err := e.persistence.JourneyRepository().GetByID(ctx, execution.JourneyID)
	if err != nil {
		return fmt.Errorf("failed to fetch journey %s: %w", execution.JourneyID, err)
	}

	return fn(ctx, journey, execution)
}
