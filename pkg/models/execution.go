package models

import "time"

// ExecutionState is the state machine position of a journey execution.
type ExecutionState string

const (
	ExecutionStateRunning         ExecutionState = "running"          // At a node, eligible to advance
	ExecutionStateWaiting         ExecutionState = "waiting"          // Suspended at a wait node until WaitUntil
	ExecutionStatePendingApproval ExecutionState = "pending_approval" // Blocked on an approval decision
	ExecutionStateCompleted       ExecutionState = "completed"        // Reached an end node
	ExecutionStateFailed          ExecutionState = "failed"           // Dispatch failure, rejection or structural error
	ExecutionStateCancelled       ExecutionState = "cancelled"        // Explicitly cancelled by an operator
)

// Terminal reports whether the state admits no further transitions.
func (s ExecutionState) Terminal() bool {
	return s == ExecutionStateCompleted || s == ExecutionStateFailed || s == ExecutionStateCancelled
}

// FailureType distinguishes the classes of execution failure surfaced to
// operators.
type FailureType string

const (
	FailureTypeConfiguration    FailureType = "configuration"     // Structural error discovered at execution time
	FailureTypeDispatch         FailureType = "dispatch"          // External send failed
	FailureTypeApprovalRejected FailureType = "approval_rejected" // Operator rejected a gated action
)

// JourneyExecution is one customer's live progress through a journey. Each
// execution is an independent unit of work; a single execution must only be
// advanced by one process at a time.
type JourneyExecution struct {
	ID            string         `json:"id"`
	JourneyID     string         `json:"journey_id"  validate:"required"`
	CustomerID    string         `json:"customer_id" validate:"required"`
	CurrentNodeID string         `json:"current_node_id"`
	State         ExecutionState `json:"state"`
	EnteredAt     time.Time      `json:"entered_at"` // When the current node was entered
	WaitUntil     *time.Time     `json:"wait_until,omitempty"`
	BranchPicks   map[string]int `json:"branch_picks,omitempty"` // Split node id -> drawn branch index, fixed per execution
	FailureType   FailureType    `json:"failure_type,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"` // Set on any terminal transition
}
