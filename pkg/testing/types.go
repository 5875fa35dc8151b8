package testing

// TestResult captures the outcome of running one scenario against a test spec.
type TestResult struct {
	WorkflowName string            `json:"workflow_name"`
	ScenarioName string            `json:"scenario_name"`
	ScenarioDir  string            `json:"scenario_dir"`
	Status       string            `json:"status"` // passed, failed, skipped, error
	DurationMs   int64             `json:"duration_ms"`
	Assertions   []AssertionResult `json:"assertions"`
	Error        string            `json:"error,omitempty"`
}

// AssertionResult is the outcome of a single assertion check.
type AssertionResult struct {
	Type     string `json:"type"`          // expected_state, expected_result, must_run, must_not_run, expected_artifact, all_commands_used
	Key      string `json:"key,omitempty"` // step name or artifact file
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
}

// TestSummary aggregates results across scenarios.
type TestSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// TestOutput is the top-level JSON structure for hackmate flow test --json.
type TestOutput struct {
	Workflow  string       `json:"workflow"`
	Scenarios []TestResult `json:"scenarios"`
	Summary   TestSummary  `json:"summary"`
}

// RunResult holds the observed execution data collected from a replay run,
// used as input to the assertion evaluator.
type RunResult struct {
	State          string              // final run state
	StepResults    map[string][]string // step name → result kind of each occurrence
	Ran            []string            // step names whose command passed the gate
	Artifacts      map[string]string   // workspace file name → content
	UnusedCommands int                 // scenario entries never matched
}
