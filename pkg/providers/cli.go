package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes after the child has been
// killed, in case a grandchild still holds them open.
const waitDelay = 2 * time.Second

// RealExecutor runs commands via os/exec. Cancelling ctx kills the child's
// whole process group before Execute returns.
type RealExecutor struct{}

// Execute runs a command with the given arguments. The argument vector is
// passed to the OS as-is; no shell is involved.
func (r *RealExecutor) Execute(ctx context.Context, req *CommandRequest) (*CommandResult, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, req.Command, req.Args...) //#nosec G204 -- argv is built by the step registry, never by a shell
	cmd.Dir = req.Dir
	if req.Env != nil {
		cmd.Env = req.Env
	}
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	if req.Stdout != nil {
		cmd.Stdout = req.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("execute command %q: %w", req.Command, err)
		}
	}

	return &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// IsExecNotFound returns true when the error indicates the executable was not
// found or could not be launched.
func IsExecNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) {
		return true
	}
	// exec.Error wraps lookup failures for the specific binary name
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	// fork/exec of an explicit path reports a *fs.PathError
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
