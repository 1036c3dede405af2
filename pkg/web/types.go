// Package web provides HTTP request and response types for the lifecycle API.
package web

import (
	"encoding/json"
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/journey"
	"github.com/pulsecrm/lifecycle/pkg/models"
)

// NodeRequest is one node of a journey definition as authored by the client.
// Config stays raw until the payload passes the per-type schema check.
type NodeRequest struct {
	ID     string         `json:"id"   validate:"required"`
	Type   string         `json:"type" validate:"required"`
	Name   string         `json:"name"`
	Next   []string       `json:"next"`
	Config map[string]any `json:"config"`
}

// ToModel validates the raw config against the node type's schema and decodes
// it into the typed config union.
func (r NodeRequest) ToModel() (*models.JourneyNode, error) {
	nodeType := models.NodeType(r.Type)

	if err := journey.ValidateConfigPayload(nodeType, r.Config); err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}

	raw, err := json.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}

	config, err := models.DecodeNodeConfig(nodeType, raw)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", r.ID, err)
	}

	return &models.JourneyNode{
		ID:     r.ID,
		Type:   nodeType,
		Name:   r.Name,
		Next:   r.Next,
		Config: config,
	}, nil
}

// CreateJourneyRequest represents the request body for creating a journey.
type CreateJourneyRequest struct {
	Name        string        `json:"name"        validate:"required,min=3"`
	Description string        `json:"description"`
	Nodes       []NodeRequest `json:"nodes"`
}

// UpdateJourneyRequest represents the request body for updating a draft
// journey. The node list replaces the stored one wholesale.
type UpdateJourneyRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=3"`
	Description *string       `json:"description,omitempty"`
	Nodes       []NodeRequest `json:"nodes,omitempty"`
}

// ToNodes converts the authored node list into domain nodes.
func toNodes(requests []NodeRequest) ([]*models.JourneyNode, error) {
	nodes := make([]*models.JourneyNode, 0, len(requests))

	for _, request := range requests {
		node, err := request.ToModel()
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// CreateSegmentRequest represents the request body for creating a segment.
type CreateSegmentRequest struct {
	Name        string                 `json:"name"        validate:"required,min=2"`
	Description string                 `json:"description"`
	Criteria    models.SegmentCriteria `json:"criteria"`
}

// PreviewSegmentRequest represents the request body for an ad-hoc criteria
// evaluation.
type PreviewSegmentRequest struct {
	Criteria models.SegmentCriteria `json:"criteria"`
}

// EnrollRequest represents the request body for enrolling a customer into a
// journey.
type EnrollRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

// DecisionRequest carries the optional operator reason on reject and cancel.
type DecisionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ValidationResponse is the outcome of a journey validation pass.
type ValidationResponse struct {
	Valid  bool                      `json:"valid"`
	Issues []journey.ValidationError `json:"issues,omitempty"`
}
