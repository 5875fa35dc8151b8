// Package runtime defines the workflow engine and the state of a run.
package runtime

import (
	"errors"
	"time"

	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// ErrScopeNotConfirmed is returned when a workflow is started without scope
// confirmation. No step runs.
var ErrScopeNotConfirmed = errors.New("workflows require explicit scope confirmation")

// State is the lifecycle of a run. There is no failed state: a run is
// Completed once every step has been attempted.
type State int

const (
	NotStarted State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options carry the operator's confirmations for a run.
type Options struct {
	ScopeConfirmed   bool
	ExecuteConfirmed bool
}

func (o Options) confirmation() providers.Confirmation {
	return providers.Confirmation{Scope: o.ScopeConfirmed, Execute: o.ExecuteConfirmed}
}

// StepOutcome is the result of one attempted step.
type StepOutcome struct {
	Index    int                    `json:"index"`
	Name     string                 `json:"name"`
	Spec     *providers.CommandSpec `json:"spec,omitempty"`
	Result   providers.Result       `json:"result"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Run is the record of one workflow execution. Steps holds one outcome per
// attempted step, in workflow order.
type Run struct {
	ID        string         `json:"run_id"`
	Workflow  string         `json:"workflow"`
	Target    string         `json:"target"`
	Workspace workspace.Path `json:"workspace"`
	State     State          `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at,omitzero"`
	Steps     []StepOutcome  `json:"steps"`
}

// Summary counts step outcomes by result kind.
func (r *Run) Summary() map[providers.ResultKind]int {
	counts := make(map[providers.ResultKind]int)
	for _, s := range r.Steps {
		counts[s.Result.Kind]++
	}
	return counts
}

// PlannedStep is a step resolved without running it.
type PlannedStep struct {
	Index    int
	Name     string
	Spec     *providers.CommandSpec // nil when Err is set
	Err      error                  // unknown step or parameter problem
	Decision providers.Decision
}
