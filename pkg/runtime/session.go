package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hackmate/hackmate/pkg/extension"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/steps"
)

// Session is a run in progress, advanced one step at a time. It is not safe
// for concurrent use.
type Session struct {
	engine *Engine
	wf     *schema.Workflow
	parsed []parsedStep
	opts   Options
	run    *Run
	log    *slog.Logger
}

// Run returns the run record. It is complete once Done reports true.
func (s *Session) Run() *Run { return s.run }

// Done reports whether every step has been attempted.
func (s *Session) Done() bool { return s.run.State == Completed }

// Position is the index of the next step to run.
func (s *Session) Position() int { return len(s.run.Steps) }

// Steps returns the workflow's steps.
func (s *Session) Steps() []schema.Step { return s.wf.Steps }

// Next attempts the next step and returns its outcome. ok is false once the
// run is complete. A cancelled ctx does not skip steps: each remaining step
// is still attempted and reported.
func (s *Session) Next(ctx context.Context) (outcome StepOutcome, ok bool) {
	if s.Done() {
		return StepOutcome{}, false
	}
	hooks := s.engine.hooks()
	if s.run.State == NotStarted {
		s.run.State = Running
		hooks.RunStarted(ctx, s.runEvent())
		s.log.Info("run started", slog.String("workflow", s.run.Workflow), slog.Int("steps", len(s.wf.Steps)))
	}

	i := s.Position()
	step := s.wf.Steps[i]
	outcome = StepOutcome{Index: i, Name: step.Name}

	var spec *providers.CommandSpec
	if s.parsed[i].err == nil {
		resolved, err := s.engine.Registry.Resolve(s.parsed[i].params, s.run.Target, s.run.Workspace)
		if err == nil {
			spec = &resolved
		} else {
			outcome.Result = providers.Result{Kind: providers.ExecError, Reason: err.Error()}
		}
		for _, name := range steps.UnknownParams(step.Name, step.Params) {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("unknown parameter %q ignored", name))
		}
		if s.parsed[i].params.Kind() == steps.KindProbe && !s.run.Workspace.Has(steps.SubdomainsFile) {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("input file %s not found; run %s first", s.run.Workspace.Join(steps.SubdomainsFile), steps.KindSubdomains))
		}
	}
	outcome.Spec = spec

	ev := extension.StepEvent{
		RunID:    s.run.ID,
		Index:    i,
		Total:    len(s.wf.Steps),
		Name:     step.Name,
		Spec:     spec,
		Warnings: outcome.Warnings,
	}
	hooks.BeforeStep(ctx, ev)

	switch {
	case s.parsed[i].err != nil:
		outcome.Result = providers.UnknownStepResult(step.Name)
	case spec != nil:
		outcome.Result = s.engine.Runner.Run(ctx, *spec, s.run.Workspace, s.opts.confirmation())
	}

	s.log.Info("step finished",
		slog.Int("index", i),
		slog.String("step", step.Name),
		slog.String("result", outcome.Result.Kind.String()),
		slog.Duration("duration", outcome.Result.Duration))

	s.run.Steps = append(s.run.Steps, outcome)
	res := outcome.Result
	ev.Result = &res
	hooks.AfterStep(ctx, ev)

	if len(s.run.Steps) == len(s.wf.Steps) {
		s.run.State = Completed
		s.run.EndedAt = time.Now()
		s.log.Info("run completed", slog.Duration("elapsed", s.run.EndedAt.Sub(s.run.StartedAt)))
		hooks.RunCompleted(ctx, s.runEvent())
	}
	return outcome, true
}

func (s *Session) runEvent() extension.RunEvent {
	return extension.RunEvent{
		RunID:     s.run.ID,
		Workflow:  s.run.Workflow,
		Target:    s.run.Target,
		Workspace: s.run.Workspace.String(),
		Steps:     len(s.wf.Steps),
	}
}
