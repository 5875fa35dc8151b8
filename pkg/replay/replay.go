package replay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hackmate/hackmate/pkg/providers"
)

// WorkspacePlaceholder expands to Scenario.WorkspaceDir in recorded argv.
const WorkspacePlaceholder = "{workspace}"

// ReplayExecutor implements CommandExecutor by matching commands against
// pre-recorded scenario entries. Fail-closed: returns an error if no match.
type ReplayExecutor struct {
	scenario *Scenario

	mu   sync.Mutex
	used []bool // track which commands have been used
}

// NewReplayExecutor creates a ReplayExecutor from a loaded scenario.
func NewReplayExecutor(s *Scenario) *ReplayExecutor {
	return &ReplayExecutor{
		scenario: s,
		used:     make([]bool, len(s.Commands)),
	}
}

// Execute matches the request's argv against unused scenario entries in
// order and returns the first match's recorded response. When the request
// redirects stdout, the recorded stdout is written there instead.
func (r *ReplayExecutor) Execute(ctx context.Context, req *providers.CommandRequest) (*providers.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullArgv := append([]string{req.Command}, req.Args...)

	sc, ok := r.claim(fullArgv)
	if !ok {
		return nil, fmt.Errorf("replay: no matching scenario entry for command: %s", strings.Join(fullArgv, " "))
	}

	res := &providers.CommandResult{
		Stderr:   []byte(sc.Stderr),
		ExitCode: sc.ExitCode,
	}
	if req.Stdout != nil {
		if _, err := io.WriteString(req.Stdout, sc.Stdout); err != nil {
			return nil, fmt.Errorf("replay: write output: %w", err)
		}
		return res, nil
	}
	res.Stdout = []byte(sc.Stdout)
	return res, nil
}

// Remaining reports how many scenario entries have not been matched yet.
func (r *ReplayExecutor) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.used {
		if !u {
			n++
		}
	}
	return n
}

func (r *ReplayExecutor) claim(argv []string) (ScenarioCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sc := range r.scenario.Commands {
		if r.used[i] {
			continue
		}
		if r.argvMatch(argv, sc.Argv) {
			r.used[i] = true
			return sc, true
		}
	}
	return ScenarioCommand{}, false
}

// argvMatch returns true if actual matches the recorded argv element by
// element, after placeholder expansion.
func (r *ReplayExecutor) argvMatch(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		want := expected[i]
		if want == "*" {
			continue
		}
		if r.scenario.WorkspaceDir != "" {
			want = strings.ReplaceAll(want, WorkspacePlaceholder, r.scenario.WorkspaceDir)
		}
		if actual[i] != want {
			return false
		}
	}
	return true
}
