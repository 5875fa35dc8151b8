// Package tui implements the live terminal view of a workflow run. The
// engine runs in a background Bubble Tea command and the view only receives
// step messages.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hackmate/hackmate/pkg/report"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorWhite = lipgloss.Color("255")
	colorBlue  = lipgloss.Color("39")
)

// --- Header styles ---

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(report.ColorCyan).
	Padding(0, 1)

var modeBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(report.ColorYellow).
	Padding(0, 1)

// --- Step list styles ---

var (
	stepNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	stepSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(report.ColorCyan)

	stepPassed = lipgloss.NewStyle().
			Foreground(report.ColorGreen)

	stepFailed = lipgloss.NewStyle().
			Foreground(report.ColorRed)

	stepBlocked = lipgloss.NewStyle().
			Foreground(report.ColorYellow)
)

// --- Detail panel styles ---

var (
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(report.ColorDim).
			Padding(0, 1)

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorBlue)

	commandStyle = lipgloss.NewStyle().
			Foreground(report.ColorYellow).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(report.ColorDim)
)

// --- Key bar styles ---

var (
	keyStyle = lipgloss.NewStyle().
			Foreground(report.ColorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(report.ColorDim)
)

var summaryStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(report.ColorCyan).
	Foreground(report.ColorCyan).
	Bold(true).
	Padding(0, 2)

var errorStyle = lipgloss.NewStyle().
	Foreground(report.ColorRed).
	Bold(true)

var spinnerStyle = lipgloss.NewStyle().
	Foreground(report.ColorYellow)
