package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines the calculator key bindings. Keys not bound here go to the
// focused part of the widget.
type KeyMap struct {
	Up, Down, Left, Right key.Binding

	Press  key.Binding
	Toggle key.Binding
	Close  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "haut")),
		Down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "bas")),
		Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "gauche")),
		Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "droite")),

		Press:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("espace", "appuyer")),
		Toggle: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "concept")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "fermer")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quitter")),
	}
}

// keyName converts a terminal key to the name the widget expects for typed
// keys. Named keys the widget does not know keep their terminal names, which
// it ignores.
func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyEnter:
		return "Enter"
	case tea.KeyBackspace:
		return "Backspace"
	case tea.KeyEsc:
		return "Escape"
	case tea.KeyRunes:
		if msg.Alt {
			return ""
		}
		return string(msg.Runes)
	default:
		return msg.String()
	}
}
