package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/runtime"
	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// Describe returns the operator message for a step result. Every result
// kind has distinct wording.
func Describe(res providers.Result) string {
	switch res.Kind {
	case providers.Success:
		if res.OutputFile != "" {
			return fmt.Sprintf("Completed. Output saved to %s", res.OutputFile)
		}
		return "Completed."
	case providers.ToolNotFound:
		tool := "tool"
		if len(res.Command) > 0 {
			tool = res.Command[0]
		}
		return fmt.Sprintf("Tool not found: %s is not installed or not on PATH.", tool)
	case providers.NonZeroExit:
		msg := fmt.Sprintf("Tool failed with exit code %d.", res.ExitCode)
		if res.Stderr != "" {
			msg += " stderr: " + firstLines(res.Stderr, 5)
		}
		return msg
	case providers.Timeout:
		return fmt.Sprintf("Timed out after %s; the process was terminated.", res.Timeout)
	case providers.GateRejected:
		return fmt.Sprintf("Blocked by safety gate: %s.", res.Reason)
	case providers.UnknownStep:
		return fmt.Sprintf("Unknown flow step: %s. Skipped.", res.Reason)
	case providers.ExecError:
		return fmt.Sprintf("Execution error: %s.", res.Reason)
	}
	return fmt.Sprintf("Unrecognized result %s.", res.Kind)
}

// DescribeError returns the operator message for a fatal run error.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, runtime.ErrScopeNotConfirmed):
		return "Safety error: flows require the --confirm-scope flag to run."
	case errors.Is(err, schema.ErrWorkflowFormat):
		return "Workflow format error: " + err.Error()
	case errors.Is(err, workspace.ErrFilesystem):
		return "Filesystem error: " + err.Error()
	}
	return "Error: " + err.Error()
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = append(lines[:n], fmt.Sprintf("... (%d more lines)", len(lines)-n))
	}
	return strings.Join(lines, "\n    ")
}
