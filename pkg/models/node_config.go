package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// NodeConfig is the tagged union of type-specific journey node configs. Every
// consumption site switches exhaustively on the concrete type so that new
// node types force a review of all handlers.
type NodeConfig interface {
	NodeType() NodeType
}

// TriggerConfig defines how customers enter the journey: membership in the
// referenced segment enrolls them.
type TriggerConfig struct {
	SegmentID string `json:"segment_id" validate:"required"`
}

func (TriggerConfig) NodeType() NodeType { return NodeTypeTrigger }

// ActionConfig is a side-effecting message send through the external
// dispatcher. When RequiresApproval is set the execution halts in
// pending_approval until an operator decides.
type ActionConfig struct {
	Channel          string `json:"channel" validate:"required"`
	Subject          string `json:"subject,omitempty"`
	Content          string `json:"content" validate:"required"`
	RequiresApproval bool   `json:"requires_approval"`
}

func (ActionConfig) NodeType() NodeType { return NodeTypeAction }

// WaitConfig suspends the execution for at least Duration (a Go duration
// string, e.g. "72h"). The wait is a lower bound, resumed by the scheduler.
type WaitConfig struct {
	Duration string `json:"duration" validate:"required"`
}

func (WaitConfig) NodeType() NodeType { return NodeTypeWait }

// WaitDuration parses the configured duration.
func (c WaitConfig) WaitDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return 0, fmt.Errorf("invalid wait duration %q: %w", c.Duration, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("wait duration must be positive, got %q", c.Duration)
	}

	return d, nil
}

// ConditionConfig routes to Next[0] when the comparison holds against the
// customer's current attributes, Next[1] otherwise.
type ConditionConfig struct {
	Field    string       `json:"field"    validate:"required"`
	Operator RuleOperator `json:"operator" validate:"required"`
	Value    any          `json:"value"`
	ValueMax any          `json:"value_max,omitempty"` // Only for the between operator
}

func (ConditionConfig) NodeType() NodeType { return NodeTypeCondition }

// SplitBranch is one weighted arm of an A/B split. Weights across a split
// node's branches must sum to 100.
type SplitBranch struct {
	Name   string `json:"name"`
	Weight int    `json:"weight" validate:"min=1,max=100"`
}

// SplitConfig routes each execution to exactly one branch by a single
// weighted draw, fixed for the life of the execution.
type SplitConfig struct {
	Branches []SplitBranch `json:"branches" validate:"required,min=2"`
}

func (SplitConfig) NodeType() NodeType { return NodeTypeSplit }

// EndConfig is the terminal node; it carries no settings.
type EndConfig struct{}

func (EndConfig) NodeType() NodeType { return NodeTypeEnd }

// ErrUnknownNodeType is returned when a node carries a type outside the
// supported union.
var ErrUnknownNodeType = errors.New("unknown node type")

// DecodeNodeConfig decodes raw JSON into the concrete config for the given
// node type.
func DecodeNodeConfig(nodeType NodeType, raw json.RawMessage) (NodeConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	switch nodeType {
	case NodeTypeTrigger:
		var config TriggerConfig

		return &config, decodeConfig(raw, &config)
	case NodeTypeAction:
		var config ActionConfig

		return &config, decodeConfig(raw, &config)
	case NodeTypeWait:
		var config WaitConfig

		return &config, decodeConfig(raw, &config)
	case NodeTypeCondition:
		var config ConditionConfig

		return &config, decodeConfig(raw, &config)
	case NodeTypeSplit:
		var config SplitConfig

		return &config, decodeConfig(raw, &config)
	case NodeTypeEnd:
		return &EndConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}
}

func decodeConfig(raw json.RawMessage, target any) error {
	err := json.Unmarshal(raw, target)
	if err != nil {
		return fmt.Errorf("failed to decode node config: %w", err)
	}

	return nil
}
