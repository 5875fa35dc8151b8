package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/hackmate/hackmate/pkg/steps"
)

// SchemaID identifies the exported workflow schema.
const SchemaID = "https://github.com/hackmate/hackmate/schemas/workflow-v1.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from
// the Go Workflow struct using invopop/jsonschema.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Workflow{})
	s.ID = SchemaID
	s.Title = "hackmate workflow v1"
	s.Description = "Schema for hackmate workflow YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// JSONSchema describes the single-key step form. Registered step names get
// typed parameter objects; other names are accepted here and reported by
// domain validation instead.
func (Step) JSONSchema() *jsonschema.Schema {
	names := steps.Names()
	enum := make([]any, len(names))
	for i, n := range names {
		enum[i] = n
	}

	props := jsonschema.NewProperties()
	for _, k := range steps.Kinds() {
		props.Set(k.String(), &jsonschema.Schema{
			Description: k.Summary(),
			AnyOf: []*jsonschema.Schema{
				{Type: "null"},
				paramsSchema(k),
			},
		})
	}

	return &jsonschema.Schema{
		Description: "A step name, or a single-key mapping from step name to parameters",
		AnyOf: []*jsonschema.Schema{
			{Type: "string", Enum: enum},
			{Type: "string", MinLength: uint64Ptr(1)},
			{
				Type:          "object",
				Properties:    props,
				MinProperties: uint64Ptr(1),
				MaxProperties: uint64Ptr(1),
				AdditionalProperties: &jsonschema.Schema{
					AnyOf: []*jsonschema.Schema{
						{Type: "null"},
						{Type: "object"},
					},
				},
			},
		},
	}
}

func paramsSchema(k steps.Kind) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, p := range k.Params() {
		props.Set(p.Name, paramSchema(p))
	}
	// Unknown keys are ignored with a validation warning, not rejected.
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
	}
}

// paramSchema mirrors the coercions the step registry accepts: integers and
// booleans may also be written as strings.
func paramSchema(p steps.ParamDoc) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: p.Description}
	if p.Default != "" {
		s.Default = p.Default
	}
	switch p.Type {
	case "int":
		s.AnyOf = []*jsonschema.Schema{
			{Type: "integer", Minimum: json.Number("1")},
			{Type: "string", Pattern: `^[0-9]+$`},
		}
	case "bool":
		s.AnyOf = []*jsonschema.Schema{
			{Type: "boolean"},
			{Type: "string", Enum: []any{"true", "false", "True", "False", "TRUE", "FALSE", "1", "0", "t", "f", "T", "F"}},
			{Type: "integer", Enum: []any{0, 1}},
		}
	case "duration":
		s.AnyOf = []*jsonschema.Schema{
			{Type: "number", ExclusiveMinimum: json.Number("0")},
			{Type: "string", MinLength: uint64Ptr(1)},
		}
	default:
		s.AnyOf = []*jsonschema.Schema{
			{Type: "string", MinLength: uint64Ptr(1)},
			{Type: "integer"},
		}
	}
	return s
}

func uint64Ptr(n uint64) *uint64 { return &n }
