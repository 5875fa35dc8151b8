package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hackmate/hackmate/pkg/runtime"
)

// PlanMarkdown describes a planned run as markdown. Nothing in it is
// executed.
func PlanMarkdown(workflow, target string, planned []runtime.PlannedStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan: %s\n\n", workflow)
	fmt.Fprintf(&b, "Target: `%s`  \n", target)
	fmt.Fprintf(&b, "Steps: %d\n\n", len(planned))
	for _, p := range planned {
		fmt.Fprintf(&b, "## %d. %s\n\n", p.Index+1, p.Name)
		if p.Err != nil {
			fmt.Fprintf(&b, "%s Skipped at run time: %s\n\n", GlyphBlocked, p.Err)
			continue
		}
		fmt.Fprintf(&b, "```sh\n%s\n```\n\n", p.Spec.CommandLine())
		if p.Spec.OutputFile != "" {
			fmt.Fprintf(&b, "- Output: `%s`\n", p.Spec.OutputFile)
		}
		fmt.Fprintf(&b, "- Timeout: %s\n", p.Spec.Timeout)
		if p.Spec.Intrusive {
			b.WriteString("- Intrusive: requires `--execute`\n")
		}
		for _, n := range p.Decision.Notices {
			fmt.Fprintf(&b, "- Note: %s\n", n)
		}
		if p.Decision.Allowed {
			fmt.Fprintf(&b, "- Gate: %s allowed\n\n", GlyphPassed)
		} else {
			fmt.Fprintf(&b, "- Gate: %s blocked (%s)\n\n", GlyphFailed, p.Decision.Reason)
		}
	}
	return b.String()
}

// RenderMarkdown styles md for the terminal. It falls back to the raw input
// if rendering fails.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
