package journey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/lifecycle/pkg/journey"
	"github.com/pulsecrm/lifecycle/pkg/models"
)

func TestValidateConfigPayloadAccepts(t *testing.T) {
	tests := []struct {
		name     string
		nodeType models.NodeType
		config   map[string]any
	}{
		{"trigger", models.NodeTypeTrigger, map[string]any{"segment_id": "seg-1"}},
		{"action", models.NodeTypeAction, map[string]any{"channel": "email", "content": "hi", "requires_approval": true}},
		{"wait", models.NodeTypeWait, map[string]any{"duration": "72h"}},
		{"condition", models.NodeTypeCondition, map[string]any{"field": "daysInactive", "operator": "gte", "value": 30}},
		{"split", models.NodeTypeSplit, map[string]any{"branches": []any{
			map[string]any{"name": "control", "weight": 50},
			map[string]any{"name": "variant", "weight": 50},
		}}},
		{"end", models.NodeTypeEnd, map[string]any{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.NoError(t, journey.ValidateConfigPayload(test.nodeType, test.config))
		})
	}
}

func TestValidateConfigPayloadRejects(t *testing.T) {
	tests := []struct {
		name     string
		nodeType models.NodeType
		config   map[string]any
	}{
		{"trigger missing segment", models.NodeTypeTrigger, map[string]any{}},
		{"action missing content", models.NodeTypeAction, map[string]any{"channel": "email"}},
		{"action non-string channel", models.NodeTypeAction, map[string]any{"channel": 5, "content": "hi"}},
		{"wait missing duration", models.NodeTypeWait, map[string]any{}},
		{"condition unknown operator", models.NodeTypeCondition, map[string]any{"field": "age", "operator": "matches"}},
		{"split single branch", models.NodeTypeSplit, map[string]any{"branches": []any{
			map[string]any{"weight": 100},
		}}},
		{"split weight out of range", models.NodeTypeSplit, map[string]any{"branches": []any{
			map[string]any{"weight": 0},
			map[string]any{"weight": 100},
		}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, journey.ValidateConfigPayload(test.nodeType, test.config))
		})
	}
}

func TestValidateConfigPayloadUnknownType(t *testing.T) {
	err := journey.ValidateConfigPayload(models.NodeType("loop"), map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownNodeType)
}
