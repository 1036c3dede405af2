package engine

import (
	"context"
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/otelhelper"
	"github.com/pulsecrm/lifecycle/pkg/rules"
	"github.com/pulsecrm/lifecycle/pkg/template"
	"go.opentelemetry.io/otel/attribute"
)

// Advance moves a running execution forward until it suspends (wait,
// approval), terminates, or a failure is recorded. The per-execution lock
// guarantees at most one concurrent advancement per instance.
func (e *Engine) Advance(ctx context.Context, executionID string) error {
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

	if execution.State.Terminal() {
		return ErrExecutionTerminal
	}

	if execution.State != models.ExecutionStateRunning {
		return ErrNotRunning
	}

	journey, err := e.persistence.JourneyRepository().GetByID(ctx, execution.JourneyID)
	if err != nil {
		return fmt.Errorf("failed to fetch journey %s: %w", execution.JourneyID, err)
	}

	return e.run(ctx, journey, execution)
}

// run executes nodes starting at the execution's current node. The caller
// must hold the execution lock (Enroll holds it implicitly: the execution is
// not yet visible to other advancers).
func (e *Engine) run(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "execution.advance",
		attribute.String(otelhelper.JourneyIDKey, journey.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.CustomerIDKey, execution.CustomerID),
	)
	defer span.End()

	for step := 0; step < maxStepsPerAdvance; step++ {
		node := journey.NodeByID(execution.CurrentNodeID)
		if node == nil {
			return e.failConfiguration(ctx, execution,
				fmt.Sprintf("node %q does not resolve in journey %s", execution.CurrentNodeID, journey.ID))
		}

		suspended, err := e.step(ctx, journey, execution, node)
		if err != nil {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))

			return err
		}

		if suspended {
			return nil
		}
	}

	return e.failConfiguration(ctx, execution,
		fmt.Sprintf("advancement exceeded %d steps, journey %s likely has an unguarded cycle", maxStepsPerAdvance, journey.ID))
}

// step processes one node. It returns suspended=true when the execution
// stopped (wait, approval, terminal state, recorded failure) and false when
// it moved to the next node. The switch is exhaustive over the config union.
func (e *Engine) step(ctx context.Context, journey *models.Journey, execution *models.JourneyExecution, node *models.JourneyNode) (bool, error) {
	switch config := node.Config.(type) {
	case *models.TriggerConfig:
		if len(node.Next) == 0 {
			return true, e.failConfiguration(ctx, execution,
				fmt.Sprintf("trigger node %s has no outgoing edge", node.ID))
		}

		return false, e.moveTo(ctx, execution, node.ID, node.Next[0])

	case *models.ActionConfig:
		return e.stepAction(ctx, execution, node, config)

	case *models.WaitConfig:
		duration, err := config.WaitDuration()
		if err != nil {
			return true, e.failConfiguration(ctx, execution, err.Error())
		}

		waitUntil := e.now().Add(duration)
		execution.State = models.ExecutionStateWaiting
		execution.WaitUntil = &waitUntil

		err = e.saveExecution(ctx, execution)
		if err != nil {
			return true, err
		}

		e.publishWaiting(ctx, execution, node.ID, waitUntil)

		return true, nil

	case *models.ConditionConfig:
		if len(node.Next) < 2 {
			return true, e.failConfiguration(ctx, execution,
				fmt.Sprintf("condition node %s needs 2 outgoing edges, has %d", node.ID, len(node.Next)))
		}

		customer, err := e.attributes.GetAttributes(execution.CustomerID)
		if err != nil {
			// Transient: leave the execution running so a later advance retries.
			return true, fmt.Errorf("failed to fetch attributes for customer %s: %w", execution.CustomerID, err)
		}

		// Evaluated against the customer's attributes at this moment, not
		// cached from trigger time.
		value, present := customer.AttributeValue(config.Field)
		holds := present && rules.Compare(config.Operator, value, config.Value, config.ValueMax)

		target := node.Next[1]
		if holds {
			target = node.Next[0]
		}

		return false, e.moveTo(ctx, execution, node.ID, target)

	case *models.SplitConfig:
		index := e.pickBranch(execution, node.ID, config)
		if index < 0 || index >= len(node.Next) {
			return true, e.failConfiguration(ctx, execution,
				fmt.Sprintf("split node %s drew branch %d outside its %d targets", node.ID, index, len(node.Next)))
		}

		return false, e.moveTo(ctx, execution, node.ID, node.Next[index])

	case *models.EndConfig:
		now := e.now()
		execution.State = models.ExecutionStateCompleted
		execution.FinishedAt = &now

		err := e.saveExecution(ctx, execution)
		if err != nil {
			return true, err
		}

		e.publishCompleted(ctx, execution, node.ID)

		return true, nil

	default:
		return true, e.failConfiguration(ctx, execution,
			fmt.Sprintf("node %s carries an unknown config %T", node.ID, node.Config))
	}
}

func (e *Engine) stepAction(ctx context.Context, execution *models.JourneyExecution, node *models.JourneyNode, config *models.ActionConfig) (bool, error) {
	// Checked before dispatching: a dead-end action must not send and then
	// strand the execution.
	if len(node.Next) == 0 {
		return true, e.failConfiguration(ctx, execution,
			fmt.Sprintf("action node %s has no outgoing edge", node.ID))
	}

	if config.RequiresApproval {
		preview, err := e.renderMessage(execution.CustomerID, config)
		if err != nil {
			return true, e.failConfiguration(ctx, execution, err.Error())
		}

		execution.State = models.ExecutionStatePendingApproval

		err = e.saveExecution(ctx, execution)
		if err != nil {
			return true, err
		}

		e.publishPendingApproval(ctx, execution, node.ID, preview.Content)

		if e.approvals != nil {
			err = e.approvals.RequestApproval(execution.ID, preview.Content)
			if err != nil {
				e.logger.ErrorContext(ctx, "Failed to notify approval authority", "execution_id", execution.ID, "error", err)
			}
		}

		return true, nil
	}

	delivered, err := e.dispatchAction(ctx, execution, node, config)
	if err != nil {
		return true, err
	}

	if !delivered {
		return true, nil
	}

	return false, e.moveTo(ctx, execution, node.ID, node.Next[0])
}

// dispatchAction renders and sends the action's message. A send failure
// marks the execution failed (delivered=false) and is not retried
// automatically; retry is an explicit re-trigger by an operator.
func (e *Engine) dispatchAction(ctx context.Context, execution *models.JourneyExecution, node *models.JourneyNode, config *models.ActionConfig) (bool, error) {
	message, err := e.renderMessage(execution.CustomerID, config)
	if err != nil {
		return false, e.failConfiguration(ctx, execution, err.Error())
	}

	dispatcher, err := e.dispatchers.Dispatcher(config.Channel)
	if err != nil {
		return false, e.failConfiguration(ctx, execution, err.Error())
	}

	err = dispatcher.Send(ctx, *message)
	if err != nil {
		e.publishDispatchFailed(ctx, execution, node.ID, config.Channel, err)

		return false, e.failDispatch(ctx, execution, node.ID, err)
	}

	e.publishDispatched(ctx, execution, node.ID, config.Channel)

	return true, nil
}

func (e *Engine) renderMessage(customerID string, config *models.ActionConfig) (*dispatch.Message, error) {
	customer, err := e.attributes.GetAttributes(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attributes for customer %s: %w", customerID, err)
	}

	context := template.CustomerContext(customer)

	return &dispatch.Message{
		CustomerID: customerID,
		Channel:    config.Channel,
		Subject:    template.Render(config.Subject, context),
		Content:    template.Render(config.Content, context),
	}, nil
}

// moveTo advances the execution pointer one edge and persists it, so a crash
// between nodes resumes from the last completed transition.
func (e *Engine) moveTo(ctx context.Context, execution *models.JourneyExecution, fromNodeID, toNodeID string) error {
	execution.CurrentNodeID = toNodeID
	execution.EnteredAt = e.now()

	err := e.saveExecution(ctx, execution)
	if err != nil {
		return err
	}

	e.publishAdvanced(ctx, execution, fromNodeID, toNodeID)

	return nil
}

func (e *Engine) saveExecution(ctx context.Context, execution *models.JourneyExecution) error {
	execution.UpdatedAt = e.now()

	err := e.persistence.ExecutionRepository().Save(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

// failConfiguration records a structural error discovered at execution time.
// It fails only this execution; the journey keeps serving other customers.
func (e *Engine) failConfiguration(ctx context.Context, execution *models.JourneyExecution, reason string) error {
	return e.fail(ctx, execution, models.FailureTypeConfiguration, reason)
}

func (e *Engine) failDispatch(ctx context.Context, execution *models.JourneyExecution, nodeID string, cause error) error {
	return e.fail(ctx, execution, models.FailureTypeDispatch,
		fmt.Sprintf("dispatch failed at node %s: %v", nodeID, cause))
}

func (e *Engine) fail(ctx context.Context, execution *models.JourneyExecution, failureType models.FailureType, reason string) error {
	execution.State = models.ExecutionStateFailed
	execution.FailureType = failureType
	execution.FailureReason = reason

	err := e.saveExecution(ctx, execution)
	if err != nil {
		return err
	}

	e.publishFailed(ctx, execution, failureType, reason)

	e.logger.WarnContext(ctx, "Execution failed",
		"execution_id", execution.ID,
		"journey_id", execution.JourneyID,
		"failure_type", failureType,
		"reason", reason,
	)

	return nil
}
