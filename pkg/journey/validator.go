// Package journey provides static validation for journey graph definitions.
// Validation runs at authoring time and never executes the journey.
package journey

import (
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

// ValidationError describes one structural problem in a journey definition.
// NodeID is empty for graph-level problems.
type ValidationError struct {
	NodeID  string `json:"node_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: node %s: %s", e.Code, e.NodeID, e.Message)
}

// Validation error codes surfaced to the authoring UI.
const (
	CodeNoTrigger        = "no_trigger"
	CodeMultipleTriggers = "multiple_triggers"
	CodeDuplicateNodeID  = "duplicate_node_id"
	CodeUnknownNodeType  = "unknown_node_type"
	CodeBadConfig        = "invalid_config"
	CodeBadCardinality   = "invalid_next_count"
	CodeUnresolvedNext   = "unresolved_next"
	CodeTriggerIncoming  = "trigger_has_incoming_edge"
	CodeBadSplitWeights  = "split_weights_not_100"
	CodeUnreachableNode  = "unreachable_node"
)

// Validate runs the full structural validation pass over a journey graph.
// The returned list is deterministic: re-running on an unchanged definition
// yields the same errors in the same order. An empty list means the journey
// may be activated.
func Validate(j *models.Journey) []ValidationError {
	var errs []ValidationError

	nodesByID := make(map[string]*models.JourneyNode, len(j.Nodes))
	incoming := make(map[string]int, len(j.Nodes))

	for _, node := range j.Nodes {
		if _, dup := nodesByID[node.ID]; dup {
			errs = append(errs, ValidationError{
				NodeID:  node.ID,
				Code:    CodeDuplicateNodeID,
				Message: "node id is used more than once",
			})

			continue
		}

		nodesByID[node.ID] = node
	}

	var trigger *models.JourneyNode

	for _, node := range j.Nodes {
		if node.Type == models.NodeTypeTrigger {
			if trigger != nil {
				errs = append(errs, ValidationError{
					NodeID:  node.ID,
					Code:    CodeMultipleTriggers,
					Message: "journey must have exactly one trigger node",
				})

				continue
			}

			trigger = node
		}
	}

	if trigger == nil {
		errs = append(errs, ValidationError{
			Code:    CodeNoTrigger,
			Message: "journey must have exactly one trigger node",
		})
	}

	for _, node := range j.Nodes {
		errs = append(errs, validateNode(node)...)

		for _, next := range node.Next {
			target, resolved := nodesByID[next]
			if !resolved {
				errs = append(errs, ValidationError{
					NodeID:  node.ID,
					Code:    CodeUnresolvedNext,
					Message: fmt.Sprintf("next id %q does not resolve to a node", next),
				})

				continue
			}

			incoming[next]++

			if target.Type == models.NodeTypeTrigger {
				errs = append(errs, ValidationError{
					NodeID:  node.ID,
					Code:    CodeTriggerIncoming,
					Message: "trigger node must not have incoming edges",
				})
			}
		}
	}

	if trigger != nil {
		reachable := reachableFrom(trigger, nodesByID)

		for _, node := range j.Nodes {
			if !reachable[node.ID] {
				errs = append(errs, ValidationError{
					NodeID:  node.ID,
					Code:    CodeUnreachableNode,
					Message: "node is not reachable from the trigger",
				})
			}
		}
	}

	return errs
}

// validateNode checks the per-type cardinality rule and the type-specific
// config. The switch is exhaustive over the node config union.
func validateNode(node *models.JourneyNode) []ValidationError {
	var errs []ValidationError

	badCardinality := func(expected string) {
		errs = append(errs, ValidationError{
			NodeID:  node.ID,
			Code:    CodeBadCardinality,
			Message: fmt.Sprintf("%s node must have %s outgoing edge(s), got %d", node.Type, expected, len(node.Next)),
		})
	}

	badConfig := func(message string) {
		errs = append(errs, ValidationError{
			NodeID:  node.ID,
			Code:    CodeBadConfig,
			Message: message,
		})
	}

	switch config := node.Config.(type) {
	case *models.TriggerConfig:
		if len(node.Next) != 1 {
			badCardinality("exactly 1")
		}

		if config.SegmentID == "" {
			badConfig("trigger node requires a segment_id")
		}
	case *models.ActionConfig:
		if len(node.Next) != 1 {
			badCardinality("exactly 1")
		}

		if config.Channel == "" {
			badConfig("action node requires a channel")
		}

		if config.Content == "" {
			badConfig("action node requires message content")
		}
	case *models.WaitConfig:
		if len(node.Next) != 1 {
			badCardinality("exactly 1")
		}

		if _, err := config.WaitDuration(); err != nil {
			badConfig(err.Error())
		}
	case *models.ConditionConfig:
		if len(node.Next) != 2 {
			badCardinality("exactly 2 ([true, false])")
		}

		if !models.ValidOperator(config.Operator) {
			badConfig(fmt.Sprintf("unknown operator %q", config.Operator))
		} else if config.Operator == models.OperatorBetween {
			low, lowOK := models.NumericValue(config.Value)
			high, highOK := models.NumericValue(config.ValueMax)

			if !lowOK || !highOK {
				badConfig("between condition requires numeric value and value_max")
			} else if high <= low {
				badConfig("between condition requires value_max > value")
			}
		}
	case *models.SplitConfig:
		if len(node.Next) < 2 || len(node.Next) != len(config.Branches) {
			badCardinality(fmt.Sprintf("%d (one per branch)", len(config.Branches)))
		}

		total := 0
		for _, branch := range config.Branches {
			total += branch.Weight
		}

		if total != 100 {
			errs = append(errs, ValidationError{
				NodeID:  node.ID,
				Code:    CodeBadSplitWeights,
				Message: fmt.Sprintf("split branch weights must sum to 100, got %d", total),
			})
		}
	case *models.EndConfig:
		if len(node.Next) != 0 {
			badCardinality("exactly 0")
		}
	default:
		errs = append(errs, ValidationError{
			NodeID:  node.ID,
			Code:    CodeUnknownNodeType,
			Message: fmt.Sprintf("unknown or missing config for node type %q", node.Type),
		})
	}

	return errs
}

func reachableFrom(start *models.JourneyNode, nodesByID map[string]*models.JourneyNode) map[string]bool {
	reachable := make(map[string]bool, len(nodesByID))
	stack := []*models.JourneyNode{start}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reachable[node.ID] {
			continue
		}

		reachable[node.ID] = true

		for _, next := range node.Next {
			if target, resolved := nodesByID[next]; resolved {
				stack = append(stack, target)
			}
		}
	}

	return reachable
}
