// Package recorder captures a run's step outcomes as a YAML log.
package recorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hackmate/hackmate/pkg/evidence"
	"github.com/hackmate/hackmate/pkg/extension"
)

// CapturedStep records a single attempted step.
type CapturedStep struct {
	Index    int      `yaml:"index"`
	Step     string   `yaml:"step"`
	Command  string   `yaml:"command,omitempty"`
	Result   string   `yaml:"result"`
	ExitCode int      `yaml:"exit_code"`
	Output   string   `yaml:"output,omitempty"`
	File     string   `yaml:"output_file,omitempty"`
	SHA256   string   `yaml:"sha256,omitempty"`
	Size     int64    `yaml:"size,omitempty"`
	Reason   string   `yaml:"reason,omitempty"`
	Duration string   `yaml:"duration"`
	Notes    []string `yaml:"notes,omitempty"`
}

// Log is the recorded form of one run.
type Log struct {
	RunID     string         `yaml:"run_id"`
	Workflow  string         `yaml:"workflow"`
	Target    string         `yaml:"target"`
	Workspace string         `yaml:"workspace"`
	Steps     []CapturedStep `yaml:"steps"`
}

// Recorder is an extension.Hooks that captures every step outcome.
type Recorder struct {
	extension.NopHooks

	mu      sync.Mutex
	log     Log
	secrets []string // env var names whose values should be redacted
}

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// SetSecrets configures secret env var names whose values are redacted in captured output.
func (r *Recorder) SetSecrets(envVars []string) {
	r.secrets = envVars
}

func (r *Recorder) RunStarted(_ context.Context, ev extension.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = Log{
		RunID:     ev.RunID,
		Workflow:  ev.Workflow,
		Target:    ev.Target,
		Workspace: ev.Workspace,
		Steps:     make([]CapturedStep, 0, ev.Steps),
	}
}

func (r *Recorder) AfterStep(_ context.Context, ev extension.StepEvent) {
	if ev.Result == nil {
		return
	}
	res := ev.Result
	captured := CapturedStep{
		Index:    ev.Index,
		Step:     ev.Name,
		Result:   res.Kind.String(),
		ExitCode: res.ExitCode,
		Output:   r.redact(res.Output),
		File:     res.OutputFile,
		Reason:   r.redact(res.Reason),
		Duration: res.Duration.String(),
	}
	if ev.Spec != nil {
		captured.Command = r.redact(ev.Spec.CommandLine())
	}
	if res.OutputFile != "" {
		if a, err := evidence.NewArtifact(res.OutputFile); err == nil {
			captured.SHA256 = a.SHA256
			captured.Size = a.Size
		}
	}
	captured.Notes = append(captured.Notes, ev.Warnings...)
	captured.Notes = append(captured.Notes, res.Notices...)

	r.mu.Lock()
	r.log.Steps = append(r.log.Steps, captured)
	r.mu.Unlock()
}

// Log returns a copy of what has been recorded so far.
func (r *Recorder) Log() Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.log
	out.Steps = append([]CapturedStep(nil), r.log.Steps...)
	return out
}

// WriteTo encodes the log as YAML.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	data, err := yaml.Marshal(r.Log())
	if err != nil {
		return 0, fmt.Errorf("encode run log: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Save writes the log to path.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create run log: %w", err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// redact replaces secret values with <REDACTED>.
func (r *Recorder) redact(s string) string {
	for _, envVar := range r.secrets {
		val := os.Getenv(envVar)
		if val != "" {
			s = strings.ReplaceAll(s, val, "<REDACTED>")
		}
	}
	return s
}

var _ extension.Hooks = (*Recorder)(nil)
