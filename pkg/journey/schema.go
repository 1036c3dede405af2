package journey

import (
	"fmt"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Per-type JSON Schemas applied to raw node config payloads at the service
// boundary, before the typed decode. They catch shape mistakes (wrong field
// types, missing keys) with authoring-friendly messages.
var nodeConfigSchemas = map[models.NodeType]map[string]any{
	models.NodeTypeTrigger: {
		"type":     "object",
		"required": []string{"segment_id"},
		"properties": map[string]any{
			"segment_id": map[string]any{"type": "string", "minLength": 1},
		},
	},
	models.NodeTypeAction: {
		"type":     "object",
		"required": []string{"channel", "content"},
		"properties": map[string]any{
			"channel":           map[string]any{"type": "string", "minLength": 1},
			"subject":           map[string]any{"type": "string"},
			"content":           map[string]any{"type": "string", "minLength": 1},
			"requires_approval": map[string]any{"type": "boolean"},
		},
	},
	models.NodeTypeWait: {
		"type":     "object",
		"required": []string{"duration"},
		"properties": map[string]any{
			"duration": map[string]any{"type": "string", "minLength": 2},
		},
	},
	models.NodeTypeCondition: {
		"type":     "object",
		"required": []string{"field", "operator"},
		"properties": map[string]any{
			"field":    map[string]any{"type": "string", "minLength": 1},
			"operator": map[string]any{"type": "string", "enum": []string{"gt", "gte", "lt", "lte", "eq", "between"}},
		},
	},
	models.NodeTypeSplit: {
		"type":     "object",
		"required": []string{"branches"},
		"properties": map[string]any{
			"branches": map[string]any{
				"type":     "array",
				"minItems": 2,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"weight"},
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"weight": map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
					},
				},
			},
		},
	},
	models.NodeTypeEnd: {
		"type": "object",
	},
}

// ValidateConfigPayload checks a raw (already JSON-decoded) node config
// against the schema for its node type.
func ValidateConfigPayload(nodeType models.NodeType, config map[string]any) error {
	schema, known := nodeConfigSchemas[nodeType]
	if !known {
		return fmt.Errorf("%w: %q", models.ErrUnknownNodeType, nodeType)
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate node config: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("invalid %s config: %s", nodeType, strings.Join(problems, "; "))
	}

	return nil
}
