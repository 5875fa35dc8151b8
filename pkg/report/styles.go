// Package report renders run progress and outcomes for the operator.
package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Step status glyphs. They convey meaning without relying on color alone.
const (
	GlyphPending  = "○"
	GlyphCurrent  = "▶"
	GlyphPassed   = "✓"
	GlyphFailed   = "✗"
	GlyphBlocked  = "⊘"
	GlyphWarning  = "⚠"
	GlyphNotice   = "ℹ"
	GlyphDuration = "⏱"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	ColorGreen   = lipgloss.Color("42")
	ColorRed     = lipgloss.Color("196")
	ColorYellow  = lipgloss.Color("214")
	ColorCyan    = lipgloss.Color("51")
	ColorDim     = lipgloss.Color("240")
	ColorMagenta = lipgloss.Color("201")
)

// Styles is the console style set bound to one output.
type Styles struct {
	Header  lipgloss.Style
	Step    lipgloss.Style
	Passed  lipgloss.Style
	Failed  lipgloss.Style
	Blocked lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style
	Command lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds styles for w. Color is dropped automatically when w is
// not a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header:  r.NewStyle().Bold(true).Foreground(ColorCyan),
		Step:    r.NewStyle().Bold(true).Foreground(ColorMagenta),
		Passed:  r.NewStyle().Foreground(ColorGreen).Bold(true),
		Failed:  r.NewStyle().Foreground(ColorRed).Bold(true),
		Blocked: r.NewStyle().Foreground(ColorYellow).Bold(true),
		Warning: r.NewStyle().Foreground(ColorYellow),
		Dim:     r.NewStyle().Foreground(ColorDim),
		Command: r.NewStyle().Foreground(ColorYellow),
		Error:   r.NewStyle().Foreground(ColorRed).Bold(true),
	}
}
