package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap holds all TUI key bindings.
type keyMap struct {
	Advance key.Binding
	Up      key.Binding
	Down    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Advance: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run next step"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "browse up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "browse down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func matchKey(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}

// keyBarText renders the context-sensitive key hint string.
func keyBarText(running, completed, stepMode bool) string {
	hint := func(k, desc string) string {
		return keyStyle.Render(k) + keyDescStyle.Render(":"+desc)
	}
	browse := hint("↑↓", "browse")
	quit := hint("q", "quit")
	switch {
	case completed || running || !stepMode:
		return browse + "  " + quit
	}
	return hint("enter", "next step") + "  " + browse + "  " + quit
}
