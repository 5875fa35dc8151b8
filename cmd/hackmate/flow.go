package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hackmate/hackmate/pkg/debugger"
	"github.com/hackmate/hackmate/pkg/diagram"
	"github.com/hackmate/hackmate/pkg/ecosystem/recorder"
	"github.com/hackmate/hackmate/pkg/extension"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/runtime"
	"github.com/hackmate/hackmate/pkg/schema"
	hmtesting "github.com/hackmate/hackmate/pkg/testing"
	"github.com/hackmate/hackmate/pkg/tui"
	"github.com/hackmate/hackmate/pkg/workspace"
)

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Run, check and plan workflow files",
}

// --- flow run ---

var (
	flowConfirmScope bool
	flowExecute      bool
	flowTUI          bool
	flowStepMode     bool
	flowRecord       string
	flowRaw          bool
)

var flowRunCmd = &cobra.Command{
	Use:   "run [workflow.yaml] [target]",
	Short: "Run every step of a workflow against a target",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlowRun,
}

func runFlowRun(cmd *cobra.Command, args []string) error {
	if !flowConfirmScope {
		return runtime.ErrScopeNotConfirmed
	}
	wf, err := schema.LoadFile(args[0])
	if err != nil {
		return err
	}
	target := args[1]
	eng, err := newEngine()
	if err != nil {
		return err
	}
	opts := runtime.Options{ScopeConfirmed: flowConfirmScope, ExecuteConfirmed: flowExecute}

	var hooks extension.MultiHooks
	var rec *recorder.Recorder
	if flowRecord != "" {
		rec = recorder.New()
		rec.SetSecrets(blockedEnvNames(eng))
		hooks = append(hooks, rec)
	}

	if flowTUI && !isTerminal(cmd.OutOrStdout()) {
		logger.Warn("--tui needs a terminal; printing plain output instead")
		flowTUI = false
	}
	if flowTUI {
		eng.Hooks = hooks
		sess, err := eng.Start(cmd.Context(), wf, target, opts)
		if err != nil {
			return err
		}
		out, err := tui.Run(cmd.Context(), sess, tui.Config{StepMode: flowStepMode, Execute: flowExecute})
		if err != nil {
			return fmt.Errorf("live view: %w", err)
		}
		if !out.Completed {
			fmt.Fprintln(cmd.OutOrStdout(), "Run interrupted before every step was attempted.")
			return nil
		}
		return saveRecord(cmd, rec)
	}

	console := report.NewConsole(cmd.OutOrStdout())
	eng.Hooks = append(hooks, console)
	run, err := eng.Execute(cmd.Context(), wf, target, opts)
	if err != nil {
		return err
	}
	console.Summary(run)
	return saveRecord(cmd, rec)
}

func saveRecord(cmd *cobra.Command, rec *recorder.Recorder) error {
	if rec == nil {
		return nil
	}
	if err := rec.Save(flowRecord); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run log saved to %s\n", flowRecord)
	return nil
}

// blockedEnvNames lists the set environment variables the gate keeps from
// child processes; their values are redacted from recorded logs.
func blockedEnvNames(eng *runtime.Engine) []string {
	ef, ok := eng.Gate.(providers.EnvFilter)
	if !ok {
		return nil
	}
	_, blocked := ef.FilterEnvVars(os.Environ())
	return blocked
}

// --- flow validate ---

var flowValidateCmd = &cobra.Command{
	Use:   "validate [workflow.yaml]",
	Short: "Validate a workflow file against the schema and step registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlowValidate,
}

func runFlowValidate(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	wf, err := schema.LoadFile(args[0])
	var errs []*schema.ValidationError
	switch {
	case errors.Is(err, workspace.ErrFilesystem):
		return err
	case err != nil:
		errs = []*schema.ValidationError{{Phase: "structural", Message: err.Error(), Severity: schema.SeverityError}}
	default:
		errs = schema.Validate(wf)
	}
	var failures []*schema.ValidationError
	for _, e := range errs {
		if e.Severity == schema.SeverityWarning {
			fmt.Fprintf(stderr, "  ⚠ [%s] %s\n", e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(stderr, "    at: %s\n", e.Path)
			}
			continue
		}
		failures = append(failures, e)
	}
	if len(failures) > 0 {
		fmt.Fprintf(stderr, "Validation failed: %d error(s)\n\n", len(failures))
		for i, e := range failures {
			fmt.Fprintf(stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("%w: validation failed with %d error(s)", schema.ErrWorkflowFormat, len(failures))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d steps)\n", wf.DisplayName(), len(wf.Steps))
	return nil
}

// --- flow plan ---

var flowPlanCmd = &cobra.Command{
	Use:   "plan [workflow.yaml] [target]",
	Short: "Show the commands a workflow would run, without running anything",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlowPlan,
}

func runFlowPlan(cmd *cobra.Command, args []string) error {
	wf, err := schema.LoadFile(args[0])
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	opts := runtime.Options{ScopeConfirmed: flowConfirmScope, ExecuteConfirmed: flowExecute}
	planned, err := eng.Plan(wf, args[1], opts)
	if err != nil {
		return err
	}
	md := report.PlanMarkdown(wf.DisplayName(), args[1], planned)
	if flowRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.RenderMarkdown(md, terminalWidth(cmd.OutOrStdout(), 100)))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w when it is a terminal, else fallback.
func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// --- flow diagram ---

var flowDiagramFormat string

var flowDiagramCmd = &cobra.Command{
	Use:   "diagram [workflow.yaml]",
	Short: "Draw a workflow's step chain (ascii or mermaid)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := schema.LoadFile(args[0])
		if err != nil {
			return err
		}
		out, err := diagram.Generate(wf, diagram.Format(flowDiagramFormat))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// --- flow test ---

var (
	flowTestJSON     bool
	flowTestFailFast bool
	flowTestScenario string
)

var flowTestCmd = &cobra.Command{
	Use:   "test [workflow.yaml]",
	Short: "Replay recorded scenarios against a workflow and check expectations",
	Long: "Runs every scenario under scenarios/<workflow-name>/ next to the workflow file.\n" +
		"Each scenario directory holds a scenario.yaml of recorded tool output and a\n" +
		"test.yaml of expectations. No tool process is spawned.",
	Args: cobra.ExactArgs(1),
	RunE: runFlowTest,
}

func runFlowTest(cmd *cobra.Command, args []string) error {
	runner := &hmtesting.Runner{Config: cfg, Logger: logger, Timeout: time.Minute}

	var output *hmtesting.TestOutput
	if flowTestScenario != "" {
		res, err := runner.RunScenario(cmd.Context(), args[0], flowTestScenario)
		if err != nil {
			return err
		}
		output = &hmtesting.TestOutput{Workflow: res.WorkflowName, Scenarios: []hmtesting.TestResult{*res}}
		output.Summary.Total = 1
		switch res.Status {
		case "passed":
			output.Summary.Passed = 1
		case "failed":
			output.Summary.Failed = 1
		case "skipped":
			output.Summary.Skipped = 1
		default:
			output.Summary.Errors = 1
		}
	} else {
		var err error
		output, err = runner.RunAll(cmd.Context(), args[0], flowTestFailFast)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if flowTestJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			return err
		}
	} else {
		printTestOutput(report.NewConsole(out), output)
	}
	if output.Summary.Failed > 0 || output.Summary.Errors > 0 {
		return fmt.Errorf("%d of %d scenario(s) did not pass", output.Summary.Failed+output.Summary.Errors, output.Summary.Total)
	}
	return nil
}

func printTestOutput(c *report.Console, output *hmtesting.TestOutput) {
	if len(output.Scenarios) == 0 {
		c.Printf("No scenarios found for %s.\n", output.Workflow)
		return
	}
	for _, s := range output.Scenarios {
		switch s.Status {
		case "passed":
			c.Printf("%s %s (%dms)\n", c.Styles.Passed.Render(report.GlyphPassed), s.ScenarioName, s.DurationMs)
		case "skipped":
			c.Printf("%s %s (no test.yaml)\n", c.Styles.Dim.Render(report.GlyphPending), s.ScenarioName)
		case "error":
			c.Printf("%s %s: %s\n", c.Styles.Failed.Render(report.GlyphFailed), s.ScenarioName, s.Error)
		default:
			c.Printf("%s %s\n", c.Styles.Failed.Render(report.GlyphFailed), s.ScenarioName)
			for _, a := range s.Assertions {
				if !a.Passed {
					c.Printf("    %s: %s\n", a.Type, a.Message)
				}
			}
		}
	}
	sum := output.Summary
	c.Printf("\n%d scenarios: %d passed, %d failed, %d skipped, %d errors\n",
		sum.Total, sum.Passed, sum.Failed, sum.Skipped, sum.Errors)
}

// --- flow debug ---

var flowDebugCmd = &cobra.Command{
	Use:   "debug [workflow.yaml] [target]",
	Short: "Step through a workflow interactively",
	Args:  cobra.ExactArgs(2),
	RunE:  runFlowDebug,
}

func runFlowDebug(cmd *cobra.Command, args []string) error {
	wf, err := schema.LoadFile(args[0])
	if err != nil {
		return err
	}
	eng, err := newEngine()
	if err != nil {
		return err
	}
	sess, err := eng.Start(cmd.Context(), wf, args[1], runtime.Options{ScopeConfirmed: flowConfirmScope, ExecuteConfirmed: flowExecute})
	if err != nil {
		return err
	}
	return debugger.New(sess, cmd.OutOrStdout()).Run(cmd.Context())
}

// --- flow suggest ---

var flowSuggestCmd = &cobra.Command{
	Use:   "suggest [target]",
	Short: "Suggest the next step for a target from its workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlowSuggest,
}

func runFlowSuggest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	target := args[0]
	eng, err := newEngine()
	if err != nil {
		return err
	}
	ws := eng.Resolver.Path(target)
	suggestions, err := extension.NewAdvisor(cfg).Suggest(cmd.Context(), target, ws)
	if errors.Is(err, extension.ErrAdvisorDisabled) {
		fmt.Fprintln(out, "AI is disabled. Enable it with 'ai.enabled: true' in the config file.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Fprintf(out, "Nothing left to suggest for %s.\n", target)
		return nil
	}
	fmt.Fprintf(out, "Suggested next steps for %s:\n", target)
	for _, s := range suggestions {
		fmt.Fprintf(out, "  - %s: %s\n    %s\n", s.Step, s.Reason, s.Command(target))
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{flowRunCmd, flowPlanCmd, flowDebugCmd} {
		c.Flags().BoolVar(&flowConfirmScope, "confirm-scope", false, "Confirm the target is in scope")
		c.Flags().BoolVar(&flowExecute, "execute", false, "Allow intrusive steps (port scans, brute forcing)")
	}
	flowRunCmd.Flags().BoolVar(&flowTUI, "tui", false, "Show the run in a live terminal view")
	flowRunCmd.Flags().BoolVar(&flowStepMode, "step", false, "With --tui, wait for enter before each step")
	flowRunCmd.Flags().StringVar(&flowRecord, "record", "", "Save a YAML log of the run to this file")
	flowPlanCmd.Flags().BoolVar(&flowRaw, "raw", false, "Print the plan as plain markdown")
	flowTestCmd.Flags().BoolVar(&flowTestJSON, "json", false, "Print results as JSON")
	flowTestCmd.Flags().BoolVar(&flowTestFailFast, "fail-fast", false, "Stop after the first failing scenario")
	flowTestCmd.Flags().StringVar(&flowTestScenario, "scenario", "", "Run only the named scenario")
	flowDiagramCmd.Flags().StringVarP(&flowDiagramFormat, "format", "f", "ascii", "Diagram format: ascii or mermaid")

	flowCmd.AddCommand(flowRunCmd)
	flowCmd.AddCommand(flowValidateCmd)
	flowCmd.AddCommand(flowPlanCmd)
	flowCmd.AddCommand(flowDiagramCmd)
	flowCmd.AddCommand(flowTestCmd)
	flowCmd.AddCommand(flowDebugCmd)
	flowCmd.AddCommand(flowSuggestCmd)
}

