// Package diagram draws a workflow's step chain.
// Supports Mermaid flowchart and ASCII formats.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/hackmate/hackmate/pkg/schema"
	"github.com/hackmate/hackmate/pkg/steps"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram string from a parsed workflow.
func Generate(wf *schema.Workflow, format Format) (string, error) {
	if wf == nil {
		return "", fmt.Errorf("nil workflow")
	}
	nodes := diagramSteps(wf)
	switch format {
	case FormatMermaid:
		return generateMermaid(nodes), nil
	case FormatASCII:
		return generateASCII(wf.DisplayName(), nodes), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// diagramStep is one box in the chain.
type diagramStep struct {
	id        string
	name      string
	tool      string
	artifact  string
	known     bool
	intrusive bool
}

func diagramSteps(wf *schema.Workflow) []diagramStep {
	result := make([]diagramStep, 0, len(wf.Steps))
	for i, s := range wf.Steps {
		ds := diagramStep{id: fmt.Sprintf("s%d_%s", i+1, s.Name), name: s.Name}
		if k, ok := steps.ParseKind(s.Name); ok {
			ds.known = true
			ds.tool = k.Tool()
			ds.artifact = k.Artifact()
			ds.intrusive = k.Intrusive()
		}
		result = append(result, ds)
	}
	return result
}

// --- Mermaid flowchart ---

func generateMermaid(nodes []diagramStep) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if len(nodes) == 0 {
		return b.String()
	}

	b.WriteString("    START([Start]) --> " + safeID(nodes[0].id) + "\n")
	for i, s := range nodes {
		b.WriteString("    " + nodeDefinition(s) + "\n")
		next := "DONE"
		if i < len(nodes)-1 {
			next = safeID(nodes[i+1].id)
		}
		b.WriteString(fmt.Sprintf("    %s --> %s\n", safeID(s.id), next))
	}
	b.WriteString("    DONE([Done])\n")

	for _, s := range nodes {
		switch {
		case !s.known:
			b.WriteString(fmt.Sprintf("    style %s stroke-dasharray: 5 5\n", safeID(s.id)))
		case s.intrusive:
			b.WriteString(fmt.Sprintf("    style %s fill:#4a1a1a,stroke:#e33\n", safeID(s.id)))
		default:
			b.WriteString(fmt.Sprintf("    style %s fill:#1a3a4a,stroke:#0af\n", safeID(s.id)))
		}
	}
	return b.String()
}

func nodeDefinition(s diagramStep) string {
	id := safeID(s.id)
	if !s.known {
		return fmt.Sprintf(`%s["%s %s<br/>unknown step"]`, id, stepIcon(s), escMermaid(s.name))
	}
	label := fmt.Sprintf("%s %s<br/>%s", stepIcon(s), escMermaid(s.name), escMermaid(s.tool))
	if s.artifact != "" {
		label += "<br/>→ " + escMermaid(s.artifact)
	}
	return fmt.Sprintf(`%s["%s"]`, id, label)
}

// --- ASCII ---

func generateASCII(name string, nodes []diagramStep) string {
	var b strings.Builder
	if len(nodes) == 0 {
		b.WriteString(name + " (empty)\n")
		return b.String()
	}

	// Compute uniform box width so every box and connector aligns.
	const indent = 8
	boxWidth := computeUniformBoxWidth(nodes, name)
	connCol := indent + 1 + boxWidth/2 // +1 accounts for the └/┌ border character
	pad := strings.Repeat(" ", indent)
	connPad := strings.Repeat(" ", connCol)

	headerText := centerPad(name, boxWidth)
	mid := boxWidth / 2
	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + headerText + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", mid) + "╤" + strings.Repeat("═", boxWidth-mid-1) + "╝\n")
	b.WriteString(connPad + "│\n")

	for i, s := range nodes {
		writeASCIIStep(&b, s, indent, boxWidth)
		if i < len(nodes)-1 {
			b.WriteString(connPad + "│\n")
		}
	}
	return b.String()
}

// computeUniformBoxWidth returns the widest interior width needed
// across all steps and the header name.
func computeUniformBoxWidth(nodes []diagramStep, name string) int {
	w := 22
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, s := range nodes {
		for _, line := range boxLines(s) {
			if lw := runewidth.StringWidth(line); lw > w {
				w = lw
			}
		}
	}
	return w
}

// boxLines returns the interior lines of a step box.
func boxLines(s diagramStep) []string {
	lines := []string{fmt.Sprintf(" %s %s ", stepIcon(s), s.name)}
	switch {
	case !s.known:
		lines = append(lines, "   unknown step, skipped ")
	default:
		lines = append(lines, "   $ "+s.tool+" ")
		if s.artifact != "" {
			lines = append(lines, "   → "+s.artifact+" ")
		}
	}
	return lines
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}

func writeASCIIStep(b *strings.Builder, s diagramStep, indent, boxWidth int) {
	pad := strings.Repeat(" ", indent)
	mid := boxWidth / 2
	b.WriteString(pad + "┌" + strings.Repeat("─", boxWidth) + "┐\n")
	for _, line := range boxLines(s) {
		b.WriteString(pad + "│" + runewidth.FillRight(line, boxWidth) + "│\n")
	}
	b.WriteString(pad + "└" + strings.Repeat("─", mid) + "┬" + strings.Repeat("─", boxWidth-mid-1) + "┘\n")
}

func stepIcon(s diagramStep) string {
	switch {
	case !s.known:
		return "?"
	case s.intrusive:
		return "⚠"
	default:
		return "⚡"
	}
}

// --- string helpers ---

func safeID(id string) string {
	r := strings.NewReplacer("-", "_", " ", "_", ".", "_")
	return r.Replace(id)
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}
