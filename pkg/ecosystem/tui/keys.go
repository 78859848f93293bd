package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds all watch view key bindings.
type keyMap struct {
	Pause   key.Binding
	Step    key.Binding
	Restart key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Vars    key.Binding
	PgUp    key.Binding
	PgDown  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "pause"),
	),
	Step: key.NewBinding(
		key.WithKeys("n", "right"),
		key.WithHelp("n", "tick"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "slower"),
	),
	Vars: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "vars"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "scroll up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// matchKey checks if a key message matches a key.Binding.
func matchKey(msg tea.KeyMsg, binding key.Binding) bool {
	return key.Matches(msg, binding)
}

// keyBarText renders the context-sensitive key hint string.
func keyBarText(paused, done bool) string {
	hint := func(b key.Binding) string {
		h := b.Help()
		return keyStyle.Render(h.Key) + keyDescStyle.Render(":"+h.Desc)
	}
	if done {
		return hint(keys.Restart) + "  " + hint(keys.Vars) + "  " + hint(keys.Quit)
	}
	pause := hint(keys.Pause)
	if paused {
		pause = keyStyle.Render("space") + keyDescStyle.Render(":resume")
	}
	return pause + "  " + hint(keys.Step) + "  " + hint(keys.Faster) + "  " + hint(keys.Slower) + "  " +
		hint(keys.Restart) + "  " + hint(keys.Vars) + "  " + hint(keys.Quit)
}
