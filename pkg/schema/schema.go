// Package schema defines the workflow YAML document and provides strict
// parsing, JSON Schema export and validation.
package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hackmate/hackmate/pkg/workspace"
)

// ErrWorkflowFormat marks a workflow document that cannot be run at all.
var ErrWorkflowFormat = errors.New("workflow format error")

// DefaultName is reported for workflows without a name.
const DefaultName = "Unnamed Flow"

// Workflow is an ordered list of steps run best-effort against one target.
type Workflow struct {
	Name        string `yaml:"name"                  json:"name"                  jsonschema:"description=Human-readable workflow name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps"                 json:"steps"                 jsonschema:"required,minItems=1"`
}

// DisplayName returns Name, or DefaultName when empty.
func (w *Workflow) DisplayName() string {
	if w.Name == "" {
		return DefaultName
	}
	return w.Name
}

// LoadFile reads and parses a workflow YAML file. A file that cannot be
// opened is a workspace.ErrFilesystem, not a format error.
func LoadFile(path string) (*Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workflow: %w", workspace.ErrFilesystem, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a workflow with strict unknown-field rejection. A document
// without a non-empty steps sequence is an ErrWorkflowFormat.
func Load(r io.Reader) (*Workflow, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var wf Workflow
	if err := dec.Decode(&wf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrWorkflowFormat)
		}
		return nil, fmt.Errorf("%w: decode workflow: %w", ErrWorkflowFormat, err)
	}
	if wf.Steps == nil {
		return nil, fmt.Errorf("%w: workflow must contain a 'steps' list", ErrWorkflowFormat)
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("%w: 'steps' list is empty", ErrWorkflowFormat)
	}
	return &wf, nil
}
