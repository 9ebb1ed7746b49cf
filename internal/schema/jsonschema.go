package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic
// map for a field list. We embed it in extraction prompts and use it locally
// to validate inference output before accepting it.
func BuildJSONSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = propFor(f.Type)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func propFor(t FieldType) map[string]any {
	switch t {
	case TypeNumber, TypeCurrency, TypePercentage:
		return map[string]any{"type": "number"}
	case TypeDate:
		return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	case TypeBoolean:
		return map[string]any{"type": "boolean"}
	case TypeArray:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case TypeNumbers:
		return map[string]any{"type": "array", "items": map[string]any{"type": "number"}}
	default:
		return map[string]any{"type": "string"}
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
