package runtime

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/extension"
	"github.com/hackmate/hackmate/pkg/governance"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/steps"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// GenerateRunID creates a run ID in format YYYYMMDDTHHmmss-xxxxxxxx.
func GenerateRunID() string {
	ts := time.Now().Format("20060102T150405")
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%x", ts, suffix)
}

// CommandRunner runs one command spec. *providers.Runner implements it.
type CommandRunner interface {
	Run(ctx context.Context, spec providers.CommandSpec, ws workspace.Path, c providers.Confirmation) providers.Result
}

// Engine drives workflows: steps run one at a time, in file order, and a
// failing step never stops the run.
type Engine struct {
	Registry *steps.Registry
	Runner   CommandRunner
	Resolver *workspace.Resolver
	Gate     providers.Authorizer // consulted by Plan only; nil skips gate evaluation
	Hooks    extension.Hooks
	Logger   *slog.Logger
}

// NewEngine wires an engine from the run configuration.
func NewEngine(cfg *config.Config, runner CommandRunner, gate providers.Authorizer, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := steps.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("step registry: %w", err)
	}
	return &Engine{
		Registry: reg,
		Runner:   runner,
		Resolver: workspace.NewResolver(cfg.WorkspaceDir),
		Gate:     gate,
		Hooks:    extension.NopHooks{},
		Logger:   logger,
	}, nil
}

// NewFromConfig wires the safety gate, the process runner and the engine
// for cfg. A nil executor spawns real processes.
func NewFromConfig(cfg *config.Config, executor providers.CommandExecutor, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if executor == nil {
		executor = &providers.RealExecutor{}
	}
	gate, err := governance.NewGate(cfg)
	if err != nil {
		return nil, fmt.Errorf("safety gate: %w", err)
	}
	return NewEngine(cfg, providers.NewRunner(cfg, gate, executor, logger), gate, logger)
}

// Execute runs every step of wf against target and returns the completed run.
// Errors are fatal preconditions reported before any step runs.
func (e *Engine) Execute(ctx context.Context, wf *schema.Workflow, target string, opts Options) (*Run, error) {
	sess, err := e.Start(ctx, wf, target, opts)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := sess.Next(ctx); !ok {
			break
		}
	}
	return sess.Run(), nil
}

// Start checks every precondition of a run and returns a session positioned
// before the first step. Scope confirmation, the step list, every step's
// parameters and the workspace are all checked here, so a run either fails
// before spawning anything or attempts every step.
func (e *Engine) Start(ctx context.Context, wf *schema.Workflow, target string, opts Options) (*Session, error) {
	if !opts.ScopeConfirmed {
		return nil, ErrScopeNotConfirmed
	}
	parsed, err := e.precheck(wf)
	if err != nil {
		return nil, err
	}
	ws, err := e.Resolver.Resolve(target)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        GenerateRunID(),
		Workflow:  wf.DisplayName(),
		Target:    target,
		Workspace: ws,
		State:     NotStarted,
		StartedAt: time.Now(),
		Steps:     make([]StepOutcome, 0, len(wf.Steps)),
	}
	return &Session{
		engine: e,
		wf:     wf,
		parsed: parsed,
		opts:   opts,
		run:    run,
		log:    e.logger().With(slog.String("run_id", run.ID), slog.String("target", target)),
	}, nil
}

// Plan resolves every step without creating the workspace or spawning
// anything. Step-local problems are reported per step; the error return is
// reserved for an unusable workflow.
func (e *Engine) Plan(wf *schema.Workflow, target string, opts Options) ([]PlannedStep, error) {
	parsed, err := e.precheck(wf)
	if err != nil {
		return nil, err
	}
	ws := e.Resolver.Path(target)
	out := make([]PlannedStep, len(wf.Steps))
	for i, s := range wf.Steps {
		ps := PlannedStep{Index: i, Name: s.Name}
		if parsed[i].err != nil {
			ps.Err = parsed[i].err
			out[i] = ps
			continue
		}
		spec, err := e.Registry.Resolve(parsed[i].params, target, ws)
		if err != nil {
			ps.Err = err
			out[i] = ps
			continue
		}
		ps.Spec = &spec
		if e.Gate != nil {
			ps.Decision = e.Gate.Authorize(spec, opts.confirmation())
		} else {
			ps.Decision = providers.Decision{Allowed: true}
		}
		out[i] = ps
	}
	return out, nil
}

type parsedStep struct {
	params steps.Params
	err    error // *steps.UnknownStepError; step-local
}

// precheck rejects empty workflows and ill-typed parameters.
func (e *Engine) precheck(wf *schema.Workflow) ([]parsedStep, error) {
	if wf == nil || len(wf.Steps) == 0 {
		return nil, fmt.Errorf("%w: workflow must declare at least one step", schema.ErrWorkflowFormat)
	}
	parsed := make([]parsedStep, len(wf.Steps))
	for i, s := range wf.Steps {
		p, err := e.Registry.Parse(s.Name, s.Params)
		var unknown *steps.UnknownStepError
		switch {
		case err == nil:
			parsed[i].params = p
		case errors.As(err, &unknown):
			parsed[i].err = err
		default:
			return nil, fmt.Errorf("%w: steps[%d]: %w", schema.ErrWorkflowFormat, i, err)
		}
	}
	return parsed, nil
}

func (e *Engine) hooks() extension.Hooks {
	if e.Hooks == nil {
		return extension.NopHooks{}
	}
	return e.Hooks
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
