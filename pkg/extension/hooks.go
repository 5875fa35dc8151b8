// Package extension defines the optional capabilities the workflow engine
// can be given. Every capability has a no-op default, so the engine never
// depends on whether a real implementation is plugged in.
package extension

import (
	"context"

	"github.com/hackmate/hackmate/pkg/providers"
)

// RunEvent describes a workflow run as a whole.
type RunEvent struct {
	RunID     string
	Workflow  string
	Target    string
	Workspace string
	Steps     int
}

// StepEvent describes one step. Spec is nil when the step could not be
// resolved; Result is nil in BeforeStep.
type StepEvent struct {
	RunID    string
	Index    int
	Total    int
	Name     string
	Spec     *providers.CommandSpec
	Result   *providers.Result
	Warnings []string
}

// Hooks observe a run. Implementations must not block for long: they run on
// the engine goroutine between steps.
type Hooks interface {
	RunStarted(ctx context.Context, ev RunEvent)
	BeforeStep(ctx context.Context, ev StepEvent)
	AfterStep(ctx context.Context, ev StepEvent)
	RunCompleted(ctx context.Context, ev RunEvent)
}

// NopHooks ignores every event. Embed it to implement a subset of Hooks.
type NopHooks struct{}

func (NopHooks) RunStarted(context.Context, RunEvent)   {}
func (NopHooks) BeforeStep(context.Context, StepEvent)  {}
func (NopHooks) AfterStep(context.Context, StepEvent)   {}
func (NopHooks) RunCompleted(context.Context, RunEvent) {}

// MultiHooks fans events out in order. Nil entries are skipped.
type MultiHooks []Hooks

func (m MultiHooks) RunStarted(ctx context.Context, ev RunEvent) {
	for _, h := range m {
		if h != nil {
			h.RunStarted(ctx, ev)
		}
	}
}

func (m MultiHooks) BeforeStep(ctx context.Context, ev StepEvent) {
	for _, h := range m {
		if h != nil {
			h.BeforeStep(ctx, ev)
		}
	}
}

func (m MultiHooks) AfterStep(ctx context.Context, ev StepEvent) {
	for _, h := range m {
		if h != nil {
			h.AfterStep(ctx, ev)
		}
	}
}

func (m MultiHooks) RunCompleted(ctx context.Context, ev RunEvent) {
	for _, h := range m {
		if h != nil {
			h.RunCompleted(ctx, ev)
		}
	}
}
