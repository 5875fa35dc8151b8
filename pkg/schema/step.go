package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Step is one workflow item. In YAML it is written as a single-key mapping
// from step name to parameters, or as a bare step name:
//
//	steps:
//	  - recon_subdomains
//	  - scan_nmap: {ports: "22,80", fast: true}
type Step struct {
	Name   string
	Params map[string]any // scalar values only; nil when none were given
}

// UnmarshalYAML decodes the single-key form.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() != "!!str" || node.Value == "" {
			return fmt.Errorf("line %d: step must be a step name or a single-key mapping", node.Line)
		}
		s.Name = node.Value
		return nil
	case yaml.MappingNode:
		if n := len(node.Content) / 2; n != 1 {
			return fmt.Errorf("line %d: step must be a single-key mapping, got %d keys", node.Line, n)
		}
	default:
		return fmt.Errorf("line %d: step must be a step name or a single-key mapping", node.Line)
	}

	key, value := node.Content[0], node.Content[1]
	if key.Kind != yaml.ScalarNode || key.Value == "" {
		return fmt.Errorf("line %d: step name must be a string", key.Line)
	}
	s.Name = key.Value

	switch {
	case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!null":
		return nil
	case value.Kind != yaml.MappingNode:
		return fmt.Errorf("line %d: parameters of step %q must be a mapping", value.Line, s.Name)
	}

	params := make(map[string]any, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: parameter names of step %q must be strings", k.Line, s.Name)
		}
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: parameter %q of step %q must be a string, boolean or integer", v.Line, k.Value, s.Name)
		}
		var decoded any
		if err := v.Decode(&decoded); err != nil {
			return fmt.Errorf("line %d: parameter %q of step %q: %w", v.Line, k.Value, s.Name, err)
		}
		params[k.Value] = decoded
	}
	s.Params = params
	return nil
}

// MarshalYAML writes the single-key form.
func (s Step) MarshalYAML() (any, error) {
	if len(s.Params) == 0 {
		return s.Name, nil
	}
	return map[string]map[string]any{s.Name: s.Params}, nil
}

// MarshalJSON writes {"name": params}; params is null when empty.
func (s Step) MarshalJSON() ([]byte, error) {
	var params map[string]any
	if len(s.Params) > 0 {
		params = s.Params
	}
	return json.Marshal(map[string]map[string]any{s.Name: params})
}

// UnmarshalJSON reads the form MarshalJSON writes, or a bare name.
func (s *Step) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		s.Name, s.Params = name, nil
		return nil
	}
	var m map[string]map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	if len(m) != 1 {
		return fmt.Errorf("step must be a single-key object, got %d keys", len(m))
	}
	for name, params := range m {
		s.Name, s.Params = name, params
	}
	return nil
}
