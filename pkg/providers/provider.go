// Package providers defines the CommandExecutor seam, the Runner that
// executes one safety-gated external command, and their shared types.
package providers

import (
	"context"
	"io"
	"strings"
	"time"
)

// CommandSpec is the immutable description of one external tool invocation.
type CommandSpec struct {
	// Tool is the config key the executable was resolved from (subfinder, nmap, ...).
	Tool       string   `json:"tool"`
	Executable string   `json:"executable"`
	Args       []string `json:"args"`

	// Step and Target record what the command was resolved for; policy rules
	// can match on them.
	Step   string `json:"step,omitempty"`
	Target string `json:"target,omitempty"`

	// OutputFile, when set, names a file inside the workspace that receives
	// the child's stdout instead of capturing it.
	OutputFile string `json:"output_file,omitempty"`

	Timeout       time.Duration `json:"timeout"`
	RequiresScope bool          `json:"requires_scope"`
	Intrusive     bool          `json:"intrusive"`
}

// Argv returns the full argument vector, executable first.
func (s CommandSpec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Executable)
	return append(argv, s.Args...)
}

// CommandLine renders the argument vector for display only; commands are
// never executed through a shell.
func (s CommandSpec) CommandLine() string {
	return strings.Join(s.Argv(), " ")
}

// Confirmation carries the operator's answers to the two safety gates.
type Confirmation struct {
	Scope   bool
	Execute bool
}

// Decision is the outcome of a safety gate evaluation. Notices are advisory
// messages that never affect Allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Notices []string
}

// Authorizer decides whether a command may run. Implementations must be
// free of side effects.
type Authorizer interface {
	Authorize(spec CommandSpec, c Confirmation) Decision
}

// Redactor sanitizes text before it is shown to the operator.
type Redactor interface {
	Redact(s string) string
}

// EnvFilter trims the environment handed to child processes.
type EnvFilter interface {
	FilterEnvVars(env []string) (kept, blocked []string)
}

// CommandRequest is one process spawn.
type CommandRequest struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	// Stdout, when non-nil, receives the child's stdout directly and
	// CommandResult.Stdout stays empty.
	Stdout io.Writer
}

// CommandResult holds the output of a single command execution.
type CommandResult struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// CommandExecutor abstracts process creation.
// Implementations: RealExecutor; tests use fakes.
//
// Execute returns a non-nil error only when the process could not be started
// or waited for; a non-zero exit is reported through CommandResult.ExitCode.
type CommandExecutor interface {
	Execute(ctx context.Context, req *CommandRequest) (*CommandResult, error)
}

// ResultKind classifies how an invocation ended.
type ResultKind int

const (
	Success ResultKind = iota
	ToolNotFound
	NonZeroExit
	Timeout
	GateRejected
	UnknownStep
	ExecError
)

var kindNames = [...]string{
	Success:      "success",
	ToolNotFound: "tool_not_found",
	NonZeroExit:  "non_zero_exit",
	Timeout:      "timeout",
	GateRejected: "gate_rejected",
	UnknownStep:  "unknown_step",
	ExecError:    "exec_error",
}

func (k ResultKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name in JSON output.
func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the outcome of one Runner invocation (or of a step that could not
// be resolved to one).
type Result struct {
	Kind    ResultKind `json:"kind"`
	Command []string   `json:"command,omitempty"`

	// Output is captured stdout; empty when stdout went to OutputFile.
	Output     string        `json:"output,omitempty"`
	OutputFile string        `json:"output_file,omitempty"`
	ExitCode   int           `json:"exit_code"`
	Stderr     string        `json:"stderr,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Notices    []string      `json:"notices,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.Kind == Success }

// UnknownStepResult is the result for a step name with no registered command.
func UnknownStepResult(name string) Result {
	return Result{Kind: UnknownStep, Reason: name}
}
