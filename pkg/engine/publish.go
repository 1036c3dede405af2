package engine

import (
	"context"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/events"
	"github.com/pulsecrm/lifecycle/pkg/models"
)

// publish sends an event keyed by execution id so all events for one
// execution land on the same partition in order. Publish failures are
// logged, not propagated: the execution state is already durable and event
// consumers are observers.
func (e *Engine) publish(ctx context.Context, execution *models.JourneyExecution, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, execution.ID, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"execution_id", execution.ID,
			"error", err,
		)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, execution *models.JourneyExecution) events.BaseEvent {
	return events.BaseEvent{
		ID:          e.newID(),
		Type:        eventType,
		Timestamp:   e.now(),
		JourneyID:   execution.JourneyID,
		ExecutionID: execution.ID,
		CustomerID:  execution.CustomerID,
	}
}

func (e *Engine) publishStarted(ctx context.Context, execution *models.JourneyExecution, triggerNodeID string) {
	e.publish(ctx, execution, events.ExecutionStarted{
		BaseEvent:     e.baseEvent(events.ExecutionStartedEvent, execution),
		TriggerNodeID: triggerNodeID,
	})
}

func (e *Engine) publishAdvanced(ctx context.Context, execution *models.JourneyExecution, fromNodeID, toNodeID string) {
	e.publish(ctx, execution, events.ExecutionAdvanced{
		BaseEvent:  e.baseEvent(events.ExecutionAdvancedEvent, execution),
		FromNodeID: fromNodeID,
		ToNodeID:   toNodeID,
	})
}

func (e *Engine) publishWaiting(ctx context.Context, execution *models.JourneyExecution, nodeID string, waitUntil time.Time) {
	e.publish(ctx, execution, events.ExecutionWaiting{
		BaseEvent: e.baseEvent(events.ExecutionWaitingEvent, execution),
		NodeID:    nodeID,
		WaitUntil: waitUntil,
	})
}

func (e *Engine) publishPendingApproval(ctx context.Context, execution *models.JourneyExecution, nodeID, preview string) {
	e.publish(ctx, execution, events.ExecutionPendingApproval{
		BaseEvent: e.baseEvent(events.ExecutionPendingApprovalEvent, execution),
		NodeID:    nodeID,
		Preview:   preview,
	})

	e.publish(ctx, execution, events.ApprovalRequested{
		BaseEvent: e.baseEvent(events.ApprovalRequestedEvent, execution),
		NodeID:    nodeID,
		Preview:   preview,
	})
}

func (e *Engine) publishCompleted(ctx context.Context, execution *models.JourneyExecution, endNodeID string) {
	e.publish(ctx, execution, events.ExecutionCompleted{
		BaseEvent: e.baseEvent(events.ExecutionCompletedEvent, execution),
		EndNodeID: endNodeID,
		Duration:  e.now().Sub(execution.CreatedAt),
	})
}

func (e *Engine) publishFailed(ctx context.Context, execution *models.JourneyExecution, failureType models.FailureType, reason string) {
	e.publish(ctx, execution, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, execution),
		NodeID:      execution.CurrentNodeID,
		FailureType: failureType,
		Error:       reason,
	})
}

func (e *Engine) publishCancelled(ctx context.Context, execution *models.JourneyExecution, reason string) {
	e.publish(ctx, execution, events.ExecutionCancelled{
		BaseEvent: e.baseEvent(events.ExecutionCancelledEvent, execution),
		NodeID:    execution.CurrentNodeID,
		Reason:    reason,
	})
}

func (e *Engine) publishDispatched(ctx context.Context, execution *models.JourneyExecution, nodeID, channel string) {
	e.publish(ctx, execution, events.MessageDispatched{
		BaseEvent: e.baseEvent(events.MessageDispatchedEvent, execution),
		NodeID:    nodeID,
		Channel:   channel,
	})
}

func (e *Engine) publishDispatchFailed(ctx context.Context, execution *models.JourneyExecution, nodeID, channel string, cause error) {
	e.publish(ctx, execution, events.MessageDispatchFailed{
		BaseEvent: e.baseEvent(events.MessageDispatchFailedEvent, execution),
		NodeID:    nodeID,
		Channel:   channel,
		Error:     cause.Error(),
	})
}

func (e *Engine) publishApprovalResolved(ctx context.Context, execution *models.JourneyExecution, approved bool, reason string) {
	e.publish(ctx, execution, events.ApprovalResolved{
		BaseEvent: e.baseEvent(events.ApprovalResolvedEvent, execution),
		Approved:  approved,
		Reason:    reason,
	})
}
