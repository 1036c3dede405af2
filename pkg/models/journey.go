package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JourneyStatus represents the lifecycle state of a journey definition.
type JourneyStatus string

const (
	JourneyStatusDraft     JourneyStatus = "draft"     // Editable, not enrolling
	JourneyStatusActive    JourneyStatus = "active"    // Enrolling and advancing customers
	JourneyStatusPaused    JourneyStatus = "paused"    // No new enrollments, existing executions keep advancing
	JourneyStatusCompleted JourneyStatus = "completed" // Retired
)

// Journey is a graph-defined, multi-step automated customer communication
// workflow. Nodes are keyed by id; edges are each node's ordered Next list.
type Journey struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"   validate:"required,min=3"`
	Description string         `json:"description"`
	Status      JourneyStatus  `json:"status" validate:"required"`
	Nodes       []*JourneyNode `json:"nodes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ActivatedAt *time.Time     `json:"activated_at,omitempty"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (j *Journey) NodeByID(id string) *JourneyNode {
	for _, node := range j.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerNode returns the journey's entry node, or nil when the graph has no
// trigger (an invalid graph).
func (j *Journey) TriggerNode() *JourneyNode {
	for _, node := range j.Nodes {
		if node.Type == NodeTypeTrigger {
			return node
		}
	}

	return nil
}

// NodeType discriminates the typed node configs of a journey graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeWait      NodeType = "wait"
	NodeTypeCondition NodeType = "condition"
	NodeTypeSplit     NodeType = "split"
	NodeTypeEnd       NodeType = "end"
)

// JourneyNode is a node instance in a journey graph. Next is the ordered list
// of outgoing edges; its required cardinality depends on the node type
// (condition: [trueTarget, falseTarget], split: one per branch).
type JourneyNode struct {
	ID     string     `json:"id"   validate:"required"`
	Type   NodeType   `json:"type" validate:"required"`
	Name   string     `json:"name"`
	Next   []string   `json:"next"`
	Config NodeConfig `json:"config"`
}

type journeyNodeEnvelope struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Name   string          `json:"name"`
	Next   []string        `json:"next"`
	Config json.RawMessage `json:"config"`
}

// UnmarshalJSON decodes the type-specific config into its concrete struct,
// switching exhaustively on the node type.
func (n *JourneyNode) UnmarshalJSON(data []byte) error {
	var envelope journeyNodeEnvelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return err
	}

	n.ID = envelope.ID
	n.Type = envelope.Type
	n.Name = envelope.Name
	n.Next = envelope.Next

	config, err := DecodeNodeConfig(envelope.Type, envelope.Config)
	if err != nil {
		return fmt.Errorf("node %s: %w", envelope.ID, err)
	}

	n.Config = config

	return nil
}
