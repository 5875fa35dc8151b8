// Package testing defines the test specification schema, assertion evaluator,
// and scenario runner for offline workflow replay testing.
package testing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTarget is used when a test spec names no target.
const DefaultTarget = "example.com"

// TestSpec defines expected outcomes for a scenario replay.
// All expectation fields are optional; omitted fields are not asserted.
type TestSpec struct {
	Target  string `yaml:"target,omitempty"  json:"target,omitempty"`
	Execute bool   `yaml:"execute,omitempty" json:"execute,omitempty"`

	ExpectedState     string            `yaml:"expected_state,omitempty"     json:"expected_state,omitempty"`
	ExpectedResults   map[string]string `yaml:"expected_results,omitempty"   json:"expected_results,omitempty"`
	MustRun           []string          `yaml:"must_run,omitempty"           json:"must_run,omitempty"`
	MustNotRun        []string          `yaml:"must_not_run,omitempty"       json:"must_not_run,omitempty"`
	ExpectedArtifacts map[string]string `yaml:"expected_artifacts,omitempty" json:"expected_artifacts,omitempty"`
	AllCommandsUsed   bool              `yaml:"all_commands_used,omitempty"  json:"all_commands_used,omitempty"`

	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"        json:"tags,omitempty"`
}

// LoadTestSpec reads and parses a test.yaml file.
func LoadTestSpec(path string) (*TestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test spec: %w", err)
	}
	return ParseTestSpec(data)
}

// ParseTestSpec parses a TestSpec from raw YAML bytes.
func ParseTestSpec(data []byte) (*TestSpec, error) {
	var spec TestSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse test spec: %w", err)
	}
	if spec.Target == "" {
		spec.Target = DefaultTarget
	}
	return &spec, nil
}
