package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/runtime"
)

// outputTail is how many lines of captured output the detail panel shows.
const outputTail = 12

// StepState tracks one step in the view.
type StepState struct {
	Name     string
	Command  string
	Warnings []string
	Result   *providers.Result
}

// --- Messages ---

// stepDoneMsg delivers one attempted step from the background command.
type stepDoneMsg struct {
	outcome runtime.StepOutcome
}

// Model is the Bubble Tea model for a live run.
type Model struct {
	session *runtime.Session
	ctx     context.Context
	cancel  context.CancelFunc

	workflow string
	target   string
	runID    string
	execute  bool

	steps    []StepState
	done     int
	selected int
	spinner  spinner.Model

	stepMode  bool
	running   bool
	completed bool
	startTime time.Time
	elapsed   time.Duration

	width  int
	height int
}

// Config holds the parameters needed to launch the view.
type Config struct {
	// StepMode waits for enter before each step instead of running through.
	StepMode bool
	// Execute marks the run as confirmed for intrusive steps; display only.
	Execute bool
}

// NewModel creates a model for a started session that has not run any step.
func NewModel(ctx context.Context, sess *runtime.Session, cfg Config) Model {
	ctx, cancel := context.WithCancel(ctx)
	steps := make([]StepState, 0, len(sess.Steps()))
	for _, s := range sess.Steps() {
		steps = append(steps, StepState{Name: s.Name})
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	run := sess.Run()
	return Model{
		session:   sess,
		ctx:       ctx,
		cancel:    cancel,
		workflow:  run.Workflow,
		target:    run.Target,
		runID:     run.ID,
		execute:   cfg.Execute,
		steps:     steps,
		spinner:   sp,
		stepMode:  cfg.StepMode,
		running:   !cfg.StepMode,
		startTime: time.Now(),
	}
}

// Outcome is what the view observed when it exited.
type Outcome struct {
	Steps     []StepState
	Completed bool
}

// Run starts the view and blocks until the operator quits. Quitting before
// the run completes cancels the step in flight.
func Run(ctx context.Context, sess *runtime.Session, cfg Config) (Outcome, error) {
	m := NewModel(ctx, sess, cfg)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Outcome{}, err
	}
	fm := final.(Model)
	return Outcome{Steps: fm.steps, Completed: fm.completed}, nil
}

// Init starts the spinner and, unless in step mode, the first step.
func (m Model) Init() tea.Cmd {
	if m.stepMode {
		return m.spinner.Tick
	}
	return tea.Batch(m.spinner.Tick, m.advanceStep())
}

// advanceStep runs the next step off the UI goroutine. Only one step is in
// flight at a time, so the session is never used concurrently.
func (m Model) advanceStep() tea.Cmd {
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		outcome, _ := sess.Next(ctx)
		return stepDoneMsg{outcome: outcome}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepDoneMsg:
		m.applyOutcome(msg.outcome)
		if m.completed {
			m.running = false
			m.elapsed = time.Since(m.startTime)
			return m, nil
		}
		if m.stepMode {
			m.running = false
			return m, nil
		}
		return m, m.advanceStep()
	}
	return m, nil
}

// applyOutcome records a finished step and moves the cursor along with the run.
func (m *Model) applyOutcome(o runtime.StepOutcome) {
	if o.Index < 0 || o.Index >= len(m.steps) {
		return
	}
	s := &m.steps[o.Index]
	if o.Spec != nil {
		s.Command = o.Spec.CommandLine()
	}
	s.Warnings = o.Warnings
	res := o.Result
	s.Result = &res

	m.done = o.Index + 1
	if m.selected == o.Index && m.done < len(m.steps) {
		m.selected = m.done
	}
	if m.done == len(m.steps) {
		m.completed = true
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matchKey(msg, keys.Quit):
		m.cancel()
		return m, tea.Quit
	case matchKey(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case matchKey(msg, keys.Down):
		if m.selected < len(m.steps)-1 {
			m.selected++
		}
	case matchKey(msg, keys.Advance):
		if m.stepMode && !m.running && !m.completed {
			m.running = true
			return m, m.advanceStep()
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := headerStyle.Render(fmt.Sprintf("hackmate: %s → %s", m.workflow, m.target))
	if m.execute {
		header += " " + modeBadgeStyle.Render("EXECUTE")
	}
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  run " + m.runID))
	b.WriteString("\n\n")

	for i, s := range m.steps {
		line := fmt.Sprintf("%s %d. %s", m.stepGlyph(i), i+1, s.Name)
		if s.Result != nil && s.Result.Duration > 0 {
			line += dimStyle.Render("  " + s.Result.Duration.Truncate(time.Millisecond).String())
		}
		cursor := "  "
		style := m.stepStyle(i)
		if i == m.selected {
			cursor = "▸ "
			style = stepSelected
		}
		b.WriteString(cursor + style.Render(line) + "\n")
	}

	b.WriteString("\n")
	if d := m.detail(); d != "" {
		b.WriteString(panelBorder.Render(d))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")
	b.WriteString(keyBarText(m.running, m.completed, m.stepMode))
	return b.String()
}

func (m Model) stepGlyph(i int) string {
	s := m.steps[i]
	switch {
	case s.Result != nil && s.Result.OK():
		return report.GlyphPassed
	case s.Result != nil && (s.Result.Kind == providers.GateRejected || s.Result.Kind == providers.UnknownStep):
		return report.GlyphBlocked
	case s.Result != nil:
		return report.GlyphFailed
	case m.running && i == m.done:
		return m.spinner.View()
	}
	return report.GlyphPending
}

func (m Model) stepStyle(i int) lipgloss.Style {
	s := m.steps[i]
	switch {
	case s.Result == nil:
		return stepNormal
	case s.Result.OK():
		return stepPassed
	case s.Result.Kind == providers.GateRejected || s.Result.Kind == providers.UnknownStep:
		return stepBlocked
	}
	return stepFailed
}

// detail renders the selected step's command and result.
func (m Model) detail() string {
	if m.selected >= len(m.steps) {
		return ""
	}
	s := m.steps[m.selected]
	var b strings.Builder
	b.WriteString(detailLabelStyle.Render(s.Name))
	if s.Command != "" {
		b.WriteString("\n" + commandStyle.Render("$ "+s.Command))
	}
	for _, w := range s.Warnings {
		b.WriteString("\n" + stepBlocked.Render(report.GlyphWarning+" "+w))
	}
	if s.Result == nil {
		b.WriteString("\n" + dimStyle.Render("not run yet"))
		return b.String()
	}
	for _, n := range s.Result.Notices {
		b.WriteString("\n" + dimStyle.Render(report.GlyphNotice+" "+n))
	}
	msg := report.Describe(*s.Result)
	if s.Result.OK() {
		b.WriteString("\n" + stepPassed.Render(msg))
	} else {
		b.WriteString("\n" + errorStyle.Render(msg))
	}
	if out := tail(s.Result.Output, outputTail); out != "" {
		b.WriteString("\n\n" + out)
	}
	return b.String()
}

func (m Model) status() string {
	switch {
	case m.completed:
		passed := 0
		for _, s := range m.steps {
			if s.Result != nil && s.Result.OK() {
				passed++
			}
		}
		return summaryStyle.Render(fmt.Sprintf("%s Flow '%s' completed: %d/%d steps succeeded in %s",
			report.GlyphPassed, m.workflow, passed, len(m.steps), m.elapsed.Truncate(time.Millisecond)))
	case m.running:
		return dimStyle.Render(fmt.Sprintf("  Running step %d/%d...", m.done+1, len(m.steps)))
	}
	return dimStyle.Render(fmt.Sprintf("  Ready: step %d/%d", m.done+1, len(m.steps)))
}

func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
