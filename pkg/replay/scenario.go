// Package replay implements a CommandExecutor that answers tool invocations
// from pre-recorded responses, for deterministic offline runs of a workflow.
package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a replay file: the tool invocations a run is expected to make
// and what each one printed.
type Scenario struct {
	// WorkspaceDir replaces the {workspace} placeholder in argv entries.
	// Callers usually set it from the configured workspace root.
	WorkspaceDir string            `yaml:"workspace_dir,omitempty"`
	Commands     []ScenarioCommand `yaml:"commands"`
}

// ScenarioCommand is a pre-recorded command with its expected output.
//
// An argv element of "*" matches any single argument. "{workspace}" inside
// an element expands to the scenario's WorkspaceDir.
type ScenarioCommand struct {
	Argv     []string `yaml:"argv"`
	Stdout   string   `yaml:"stdout"`
	Stderr   string   `yaml:"stderr"`
	ExitCode int      `yaml:"exit_code"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Commands) == 0 {
		return nil, fmt.Errorf("scenario must have at least one command")
	}
	for i, c := range s.Commands {
		if len(c.Argv) == 0 {
			return nil, fmt.Errorf("scenario command %d: argv is empty", i+1)
		}
	}
	return &s, nil
}
