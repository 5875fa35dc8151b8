package steps

import (
	"fmt"
	"strings"
)

// UnknownStepError reports a step name with no registered kind.
type UnknownStepError struct {
	Name string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.Name)
}

// ParamError reports parameters a step cannot accept.
type ParamError struct {
	Step     string
	Problems []string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("step %s: %s", e.Step, strings.Join(e.Problems, "; "))
}
