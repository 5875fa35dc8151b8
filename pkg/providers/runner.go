package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// Runner executes one external command per call, behind a safety gate.
// It never returns an error and never panics: every outcome is a Result.
type Runner struct {
	Gate           Authorizer
	Executor       CommandExecutor
	Redact         Redactor      // optional
	Env            EnvFilter     // optional; nil inherits the full environment
	DefaultTimeout time.Duration // used when the CommandSpec has none
	Logger         *slog.Logger  // optional; nil uses slog.Default
}

// NewRunner creates a Runner from the run configuration.
func NewRunner(cfg *config.Config, gate Authorizer, executor CommandExecutor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := config.DefaultTimeout
	if cfg != nil && cfg.DefaultTimeout > 0 {
		timeout = cfg.DefaultTimeout
	}
	r := &Runner{
		Gate:           gate,
		Executor:       executor,
		DefaultTimeout: timeout,
		Logger:         logger,
	}
	if red, ok := gate.(Redactor); ok {
		r.Redact = red
	}
	if ef, ok := gate.(EnvFilter); ok {
		r.Env = ef
	}
	return r
}

// Run authorizes spec, spawns it exactly once, and classifies the outcome.
func (r *Runner) Run(ctx context.Context, spec CommandSpec, ws workspace.Path, c Confirmation) (res Result) {
	res = Result{Command: spec.Argv()}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Kind = ExecError
			res.Reason = fmt.Sprintf("panic during execution: %v", p)
		}
		res.Duration = time.Since(start)
	}()

	decision := r.Gate.Authorize(spec, c)
	res.Notices = decision.Notices
	if !decision.Allowed {
		res.Kind = GateRejected
		res.Reason = decision.Reason
		return res
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	res.Timeout = timeout

	req := &CommandRequest{Command: spec.Executable, Args: spec.Args}
	if r.Env != nil {
		env, blocked := r.Env.FilterEnvVars(os.Environ())
		if len(blocked) > 0 {
			r.logger().Debug("withholding environment variables", slog.Any("names", blocked))
			req.Env = env
		}
	}
	var outFile *os.File
	if spec.OutputFile != "" {
		if err := validOutputName(spec.OutputFile); err != nil {
			res.Kind = ExecError
			res.Reason = err.Error()
			return res
		}
		path := ws.Join(spec.OutputFile)
		f, err := os.Create(path)
		if err != nil {
			res.Kind = ExecError
			res.Reason = fmt.Sprintf("open output file: %v", err)
			return res
		}
		defer f.Close()
		outFile = f
		req.Stdout = f
		res.OutputFile = path
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger().Debug("spawning command",
		slog.String("tool", spec.Tool),
		slog.String("command", spec.CommandLine()),
		slog.Duration("timeout", timeout))

	out, err := r.Executor.Execute(runCtx, req)

	// The deadline wins over whatever the killed process reported.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.Kind = Timeout
		if out != nil {
			res.Stderr = r.redact(string(out.Stderr))
		}
		return res
	}
	if err != nil {
		// The tool never started; an empty artifact would pass for a real one.
		if r.discardEmptyOutput(outFile) {
			res.OutputFile = ""
		}
		switch {
		case IsExecNotFound(err):
			res.Kind = ToolNotFound
		case ctx.Err() != nil:
			res.Kind = ExecError
			res.Reason = fmt.Sprintf("cancelled: %v", ctx.Err())
			return res
		default:
			res.Kind = ExecError
		}
		res.Reason = r.redact(err.Error())
		return res
	}
	if out == nil {
		res.Kind = ExecError
		res.Reason = "executor returned no result"
		return res
	}

	res.ExitCode = out.ExitCode
	res.Stderr = r.redact(strings.TrimSpace(string(out.Stderr)))
	if out.ExitCode != 0 {
		if ctx.Err() != nil {
			res.Kind = ExecError
			res.Reason = fmt.Sprintf("cancelled: %v", ctx.Err())
			return res
		}
		res.Kind = NonZeroExit
		return res
	}
	res.Kind = Success
	if req.Stdout == nil {
		res.Output = r.redact(strings.TrimSpace(string(out.Stdout)))
	}
	return res
}

// discardEmptyOutput removes f from the workspace if nothing was written to
// it, reporting whether it did.
func (r *Runner) discardEmptyOutput(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil || info.Size() > 0 {
		return false
	}
	f.Close()
	if err := os.Remove(f.Name()); err != nil {
		r.logger().Debug("removing empty output file", slog.String("path", f.Name()), slog.Any("error", err))
		return false
	}
	return true
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) redact(s string) string {
	if r.Redact == nil {
		return s
	}
	return r.Redact.Redact(s)
}

// validOutputName keeps artifacts directly inside the workspace.
func validOutputName(name string) error {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("output file %q must be a plain file name inside the workspace", name)
	}
	return nil
}
