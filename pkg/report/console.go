package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/hackmate/hackmate/pkg/extension"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/runtime"
)

// Console prints run progress. It implements extension.Hooks so the engine
// can drive it directly.
type Console struct {
	extension.NopHooks
	Out    io.Writer
	Styles Styles
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{Out: w, Styles: NewStyles(w)}
}

// Printf writes a plain line.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Errorf writes an error line.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintln(c.Out, c.Styles.Error.Render(GlyphFailed+" "+fmt.Sprintf(format, args...)))
}

// Warnf writes a warning line.
func (c *Console) Warnf(format string, args ...any) {
	fmt.Fprintln(c.Out, c.Styles.Warning.Render(GlyphWarning+" "+fmt.Sprintf(format, args...)))
}

// Fatal reports a run-level error.
func (c *Console) Fatal(err error) {
	fmt.Fprintln(c.Out, c.Styles.Error.Render(DescribeError(err)))
}

func (c *Console) RunStarted(_ context.Context, ev extension.RunEvent) {
	fmt.Fprintln(c.Out, c.Styles.Header.Render(fmt.Sprintf("Starting flow %s for %s", ev.Workflow, ev.Target)))
	fmt.Fprintln(c.Out, c.Styles.Dim.Render(fmt.Sprintf("  Run ID: %s  Workspace: %s", ev.RunID, ev.Workspace)))
}

func (c *Console) BeforeStep(_ context.Context, ev extension.StepEvent) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, c.Styles.Step.Render(fmt.Sprintf("%s Step %d/%d: %s", GlyphCurrent, ev.Index+1, ev.Total, ev.Name)))
	if ev.Spec != nil {
		fmt.Fprintln(c.Out, "  "+c.Styles.Command.Render("$ "+ev.Spec.CommandLine()))
	}
	for _, w := range ev.Warnings {
		fmt.Fprintln(c.Out, "  "+c.Styles.Warning.Render(GlyphWarning+" "+w))
	}
}

func (c *Console) AfterStep(_ context.Context, ev extension.StepEvent) {
	if ev.Result == nil {
		return
	}
	c.PrintResult(*ev.Result)
}

// PrintResult writes one result with its notices.
func (c *Console) PrintResult(res providers.Result) {
	for _, n := range res.Notices {
		fmt.Fprintln(c.Out, "  "+c.Styles.Dim.Render(GlyphNotice+" "+n))
	}
	glyph, style := c.glyph(res.Kind)
	fmt.Fprintln(c.Out, "  "+style.Render(glyph+" "+Describe(res)))
	if res.Output != "" {
		for _, line := range strings.Split(res.Output, "\n") {
			fmt.Fprintln(c.Out, "    "+line)
		}
	}
}

func (c *Console) RunCompleted(_ context.Context, ev extension.RunEvent) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, c.Styles.Passed.Render(fmt.Sprintf("%s Flow '%s' completed for %s.", GlyphPassed, ev.Workflow, ev.Target)))
}

func (c *Console) glyph(k providers.ResultKind) (string, lipgloss.Style) {
	switch k {
	case providers.Success:
		return GlyphPassed, c.Styles.Passed
	case providers.GateRejected, providers.UnknownStep:
		return GlyphBlocked, c.Styles.Blocked
	}
	return GlyphFailed, c.Styles.Failed
}

// Summary writes an aligned table of step outcomes.
func (c *Console) Summary(run *runtime.Run) {
	nameWidth := runewidth.StringWidth("STEP")
	for _, s := range run.Steps {
		if w := runewidth.StringWidth(s.Name); w > nameWidth {
			nameWidth = w
		}
	}
	kindWidth := runewidth.StringWidth("non_zero_exit")

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, c.Styles.Header.Render(fmt.Sprintf("Summary: %s (%s)", run.Workflow, run.ID)))
	fmt.Fprintf(c.Out, "  %s  %s  %s\n",
		runewidth.FillRight("#", 3),
		runewidth.FillRight("STEP", nameWidth),
		runewidth.FillRight("RESULT", kindWidth)+"  "+GlyphDuration)
	for _, s := range run.Steps {
		glyph, style := c.glyph(s.Result.Kind)
		fmt.Fprintf(c.Out, "  %s  %s  %s  %s\n",
			runewidth.FillRight(fmt.Sprint(s.Index+1), 3),
			runewidth.FillRight(s.Name, nameWidth),
			style.Render(glyph+" "+runewidth.FillRight(s.Result.Kind.String(), kindWidth-2)),
			s.Result.Duration.Round(time.Millisecond))
	}
	counts := run.Summary()
	fmt.Fprintf(c.Out, "  %d steps: %d succeeded, %d failed, %d blocked or skipped\n",
		len(run.Steps),
		counts[providers.Success],
		counts[providers.ToolNotFound]+counts[providers.NonZeroExit]+counts[providers.Timeout]+counts[providers.ExecError],
		counts[providers.GateRejected]+counts[providers.UnknownStep])
}

var _ extension.Hooks = (*Console)(nil)
