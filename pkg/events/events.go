// Package events defines event types for journey execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

type EventType string

// Kafka topic carrying all lifecycle events.
const Topic = "lifecycle.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent         EventType = "journey.execution.started"
	ExecutionAdvancedEvent        EventType = "journey.execution.advanced"
	ExecutionWaitingEvent         EventType = "journey.execution.waiting"
	ExecutionPendingApprovalEvent EventType = "journey.execution.pending_approval"
	ExecutionCompletedEvent       EventType = "journey.execution.completed"
	ExecutionFailedEvent          EventType = "journey.execution.failed"
	ExecutionCancelledEvent       EventType = "journey.execution.cancelled"

	// Commands consumed by the worker.
	ExecutionResumeEvent EventType = "journey.execution.resume"

	// Dispatch and approval events.
	MessageDispatchedEvent     EventType = "message.dispatched"
	MessageDispatchFailedEvent EventType = "message.dispatch.failed"
	ApprovalRequestedEvent     EventType = "approval.requested"
	ApprovalResolvedEvent      EventType = "approval.resolved"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	JourneyID   string    `json:"journey_id"`
	ExecutionID string    `json:"execution_id"`
	CustomerID  string    `json:"customer_id,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	TriggerNodeID string `json:"trigger_node_id"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionAdvanced struct {
	BaseEvent

	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
}

func (e ExecutionAdvanced) GetType() EventType { return ExecutionAdvancedEvent }

type ExecutionWaiting struct {
	BaseEvent

	NodeID    string    `json:"node_id"`
	WaitUntil time.Time `json:"wait_until"`
}

func (e ExecutionWaiting) GetType() EventType { return ExecutionWaitingEvent }

type ExecutionPendingApproval struct {
	BaseEvent

	NodeID  string `json:"node_id"`
	Preview string `json:"preview"`
}

func (e ExecutionPendingApproval) GetType() EventType { return ExecutionPendingApprovalEvent }

type ExecutionCompleted struct {
	BaseEvent

	EndNodeID string        `json:"end_node_id"`
	Duration  time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	NodeID      string             `json:"node_id"`
	FailureType models.FailureType `json:"failure_type"`
	Error       string             `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Reason string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

// ExecutionResume asks a worker to re-advance a waiting execution whose
// wait_until has elapsed. Published by the scheduler.
type ExecutionResume struct {
	BaseEvent
}

func (e ExecutionResume) GetType() EventType { return ExecutionResumeEvent }

type MessageDispatched struct {
	BaseEvent

	NodeID  string `json:"node_id"`
	Channel string `json:"channel"`
}

func (e MessageDispatched) GetType() EventType { return MessageDispatchedEvent }

type MessageDispatchFailed struct {
	BaseEvent

	NodeID  string `json:"node_id"`
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

func (e MessageDispatchFailed) GetType() EventType { return MessageDispatchFailedEvent }

type ApprovalRequested struct {
	BaseEvent

	NodeID  string `json:"node_id"`
	Preview string `json:"preview"`
}

func (e ApprovalRequested) GetType() EventType { return ApprovalRequestedEvent }

type ApprovalResolved struct {
	BaseEvent

	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

func (e ApprovalResolved) GetType() EventType { return ApprovalResolvedEvent }
