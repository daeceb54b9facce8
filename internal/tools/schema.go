package tools

import (
	"github.com/mesh-intelligence/paradox-mcp/internal/guard"
	"github.com/mesh-intelligence/paradox-mcp/pkg/types"
)

// InputSchema returns the JSON Schema of the tool's arguments as reported
// by tools/list. Aliases are accepted on input but not advertised.
func (t Tool) InputSchema() map[string]any {
	properties := make(map[string]any, len(t.Params))
	required := []string{}
	for _, p := range t.Params {
		prop := paramSchema(p.Kind)
		prop["description"] = p.Description
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// Annotations returns the MCP behavior hints of the tool.
func (t Tool) Annotations() map[string]any {
	return map[string]any{
		"readOnlyHint":    t.Kind == guard.Read,
		"destructiveHint": t.Name == MethodUpdateRecord,
		"idempotentHint":  t.Kind == guard.Read,
		"openWorldHint":   false,
	}
}

func paramSchema(kind ParamKind) map[string]any {
	switch kind {
	case KindInteger:
		return map[string]any{"type": "integer", "minimum": 0}
	case KindObject:
		return map[string]any{"type": "object"}
	case KindCriteria:
		return map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"value":   map[string]any{},
					"partial": map[string]any{"type": "boolean"},
				},
				"required": []string{"value"},
			},
		}
	case KindSchema:
		typeNames := make([]string, len(types.FieldTypes))
		for i, ft := range types.FieldTypes {
			typeNames[i] = ft.String()
		}
		return map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"type": map[string]any{"type": "string", "enum": typeNames},
					"size": map[string]any{"type": "integer", "minimum": 0},
				},
				"required": []string{"name", "type"},
			},
		}
	default:
		return map[string]any{"type": "string"}
	}
}
