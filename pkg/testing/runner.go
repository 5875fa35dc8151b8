package testing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/replay"
	"github.com/hackmate/hackmate/pkg/runtime"
	"github.com/hackmate/hackmate/pkg/schema"
)

// Runner discovers and executes scenario tests for a workflow.
type Runner struct {
	// Config supplies tool paths and safety rules; nil means defaults.
	// Its workspace directory is replaced by a temporary one per scenario.
	Config  *config.Config
	Logger  *slog.Logger
	Timeout time.Duration // per-scenario timeout
}

// ScenarioInfo describes a discovered scenario directory.
type ScenarioInfo struct {
	Name    string // directory name (e.g. "no-subdomains")
	Dir     string // absolute path to the scenario directory
	HasTest bool   // whether test.yaml exists
}

// DiscoverScenarios finds all scenario directories for a workflow by convention:
// {workflow-dir}/scenarios/{workflow-name}/*/scenario.yaml
func DiscoverScenarios(workflowPath string) ([]ScenarioInfo, error) {
	dir := filepath.Dir(workflowPath)
	base := filepath.Base(workflowPath)
	name := strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	name = strings.TrimSuffix(name, ".flow")

	scenariosBase := filepath.Join(dir, "scenarios", name)
	entries, err := os.ReadDir(scenariosBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no scenarios directory, not an error
		}
		return nil, fmt.Errorf("read scenarios directory: %w", err)
	}

	var scenarios []ScenarioInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		scenDir, err := filepath.Abs(filepath.Join(scenariosBase, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(scenDir, "scenario.yaml")); err != nil {
			continue
		}
		_, statErr := os.Stat(filepath.Join(scenDir, "test.yaml"))
		scenarios = append(scenarios, ScenarioInfo{
			Name:    entry.Name(),
			Dir:     scenDir,
			HasTest: statErr == nil,
		})
	}
	return scenarios, nil
}

// RunAll executes all scenarios for a workflow and returns test results.
func (r *Runner) RunAll(ctx context.Context, workflowPath string, failFast bool) (*TestOutput, error) {
	wf, err := loadValid(workflowPath)
	if err != nil {
		return nil, err
	}
	scenarios, err := DiscoverScenarios(workflowPath)
	if err != nil {
		return nil, err
	}

	output := &TestOutput{Workflow: wf.DisplayName()}
	for _, scenario := range scenarios {
		result := r.runScenario(ctx, wf, scenario)
		output.Scenarios = append(output.Scenarios, result)

		switch result.Status {
		case "passed":
			output.Summary.Passed++
		case "failed":
			output.Summary.Failed++
		case "skipped":
			output.Summary.Skipped++
		case "error":
			output.Summary.Errors++
		}
		output.Summary.Total++

		if failFast && (result.Status == "failed" || result.Status == "error") {
			break
		}
	}
	return output, nil
}

// RunScenario executes a single named scenario for a workflow.
func (r *Runner) RunScenario(ctx context.Context, workflowPath, scenarioName string) (*TestResult, error) {
	wf, err := loadValid(workflowPath)
	if err != nil {
		return nil, err
	}
	scenarios, err := DiscoverScenarios(workflowPath)
	if err != nil {
		return nil, err
	}
	for _, s := range scenarios {
		if s.Name == scenarioName {
			result := r.runScenario(ctx, wf, s)
			return &result, nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found", scenarioName)
}

func (r *Runner) runScenario(ctx context.Context, wf *schema.Workflow, scenario ScenarioInfo) TestResult {
	start := time.Now()
	result := TestResult{
		WorkflowName: wf.DisplayName(),
		ScenarioName: scenario.Name,
		ScenarioDir:  scenario.Dir,
	}
	finish := func(status string) TestResult {
		result.Status = status
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	if !scenario.HasTest {
		return finish("skipped")
	}

	spec, err := LoadTestSpec(filepath.Join(scenario.Dir, "test.yaml"))
	if err != nil {
		result.Error = fmt.Sprintf("load test.yaml: %v", err)
		return finish("error")
	}

	runResult, err := r.executeReplay(ctx, wf, scenario, spec)
	if err != nil {
		result.Error = fmt.Sprintf("replay: %v", err)
		return finish("error")
	}

	result.Assertions = Evaluate(spec, runResult)
	if HasFailures(result.Assertions) {
		return finish("failed")
	}
	return finish("passed")
}

// executeReplay runs the workflow with scope confirmed against the
// scenario's recorded tool output, in a throwaway workspace root.
func (r *Runner) executeReplay(ctx context.Context, wf *schema.Workflow, scenario ScenarioInfo, spec *TestSpec) (*RunResult, error) {
	sc, err := replay.LoadScenario(filepath.Join(scenario.Dir, "scenario.yaml"))
	if err != nil {
		return nil, err
	}

	root, err := os.MkdirTemp("", "hackmate-test-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	defer os.RemoveAll(root)

	cfg := config.Default()
	if r.Config != nil {
		c := *r.Config
		cfg = &c
	}
	cfg.WorkspaceDir = root
	sc.WorkspaceDir = root

	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	executor := replay.NewReplayExecutor(sc)
	eng, err := runtime.NewFromConfig(cfg, executor, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	run, err := eng.Execute(ctx, wf, spec.Target, runtime.Options{ScopeConfirmed: true, ExecuteConfirmed: spec.Execute})
	if err != nil {
		return nil, err
	}

	runResult := &RunResult{
		State:          run.State.String(),
		StepResults:    make(map[string][]string),
		UnusedCommands: executor.Remaining(),
	}
	for _, s := range run.Steps {
		runResult.StepResults[s.Name] = append(runResult.StepResults[s.Name], s.Result.Kind.String())
		if s.Spec != nil && s.Result.Kind != providers.GateRejected {
			runResult.Ran = append(runResult.Ran, s.Name)
		}
	}

	runResult.Artifacts, err = readArtifacts(run.Workspace.String())
	if err != nil {
		return nil, err
	}
	return runResult, nil
}

func readArtifacts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	artifacts := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read artifact: %w", err)
		}
		artifacts[e.Name()] = string(data)
	}
	return artifacts, nil
}

// loadValid parses and validates a workflow. Warnings do not block tests.
func loadValid(path string) (*schema.Workflow, error) {
	wf, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, e := range schema.Validate(wf) {
		if e.Severity != schema.SeverityWarning {
			return nil, fmt.Errorf("%w: %s", schema.ErrWorkflowFormat, e.Message)
		}
	}
	return wf, nil
}
