package debugger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hackmate/hackmate/pkg/report"
)

// handleNext runs the next step.
func (d *Debugger) handleNext(ctx context.Context) {
	if d.session.Done() {
		fmt.Fprintf(d.output, "All steps completed.\n")
		return
	}
	pos := d.session.Position()
	name := d.session.Steps()[pos].Name
	fmt.Fprintf(d.output, "Running step %d/%d: %s\n", pos+1, len(d.session.Steps()), name)

	outcome, _ := d.session.Next(ctx)
	if outcome.Spec != nil {
		fmt.Fprintf(d.output, "  $ %s\n", outcome.Spec.CommandLine())
	}
	for _, w := range outcome.Warnings {
		d.console.Warnf("%s", w)
	}
	d.console.PrintResult(outcome.Result)
}

// handleContinue runs every remaining step. Failures do not halt the run.
func (d *Debugger) handleContinue(ctx context.Context) {
	for !d.session.Done() {
		d.handleNext(ctx)
	}
	d.console.Summary(d.session.Run())
}

// handleList shows every step with its status glyph.
func (d *Debugger) handleList() {
	pos := d.session.Position()
	done := d.session.Run().Steps
	for i, s := range d.session.Steps() {
		glyph := report.GlyphPending
		switch {
		case i < len(done) && done[i].Result.OK():
			glyph = report.GlyphPassed
		case i < len(done):
			glyph = report.GlyphFailed
		case i == pos:
			glyph = report.GlyphCurrent
		}
		fmt.Fprintf(d.output, "  %s %d. %s\n", glyph, i+1, s.Name)
	}
}

// handleStatus shows where the run stands.
func (d *Debugger) handleStatus() {
	run := d.session.Run()
	fmt.Fprintf(d.output, "Run:       %s\n", run.ID)
	fmt.Fprintf(d.output, "Workflow:  %s\n", run.Workflow)
	fmt.Fprintf(d.output, "Target:    %s\n", run.Target)
	fmt.Fprintf(d.output, "Workspace: %s\n", run.Workspace)
	fmt.Fprintf(d.output, "State:     %s (%d/%d steps attempted)\n", run.State, len(run.Steps), len(d.session.Steps()))
}

// handleDump prints the run record as JSON.
func (d *Debugger) handleDump() {
	data, err := json.MarshalIndent(d.session.Run(), "", "  ")
	if err != nil {
		fmt.Fprintf(d.output, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(d.output, "%s\n", data)
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	fmt.Fprintf(d.output, `Available commands:
  next, n       Run the next step
  continue, c   Run all remaining steps
  list, l       List steps and their status
  status, s     Show run status
  dump          Print the run record as JSON
  help, ?       Show this help
  quit, q       Exit debugger
`)
}
