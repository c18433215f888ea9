// Package tui runs the calculator widget in a terminal.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/zephyrtronium/calculette/internal/explain"
	"github.com/zephyrtronium/calculette/internal/widget"
)

// Vertical layout of the calculator view.
const (
	displayTop = 1              // below the title
	keypadTop  = displayTop + 4 // below the bordered display and a blank line
)

// Model is the bubbletea model for the calculator.
type Model struct {
	state widget.State
	keys  KeyMap

	// Selected keypad button.
	row, col int

	width  int
	height int

	input   textinput.Model
	spinner spinner.Model

	provider explain.Provider
	// cancels holds the cancel functions of running explanation requests.
	cancels map[string]context.CancelFunc
	newID   func() string
	log     *slog.Logger
}

// New creates a calculator model that fetches explanations from p and logs
// to log. A nil log discards.
func New(p explain.Provider, log *slog.Logger) Model {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ti := textinput.New()
	ti.Placeholder = "Concept à expliquer..."
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Width = keypadWidth() - len("Concept : ") - 1

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return Model{
		keys:     DefaultKeyMap(),
		input:    ti,
		spinner:  sp,
		provider: p,
		cancels:  make(map[string]context.CancelFunc),
		newID:    uuid.NewString,
		log:      log,
	}
}

// State returns the widget state.
func (m Model) State() widget.State {
	return m.state
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.state.Modal.Loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case explainedMsg:
		if cancel, ok := m.cancels[msg.id]; ok {
			cancel()
			delete(m.cancels, msg.id)
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.log.Warn("explanation failed", "request", msg.id, "error", msg.err)
		}
		return m.dispatch(widget.Explained{RequestID: msg.id, Text: msg.text, Err: msg.err})

	default:
		if m.state.Focus == widget.FocusConcept {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancelAll()
		return m, tea.Quit
	}
	if m.state.Modal.Open {
		if key.Matches(msg, m.keys.Close) {
			return m.dispatch(widget.CloseModal{})
		}
		return m, nil
	}
	if key.Matches(msg, m.keys.Toggle) {
		return m.dispatch(widget.ToggleFocus{})
	}

	if m.state.Focus == widget.FocusConcept {
		if msg.Type == tea.KeyEnter {
			return m.dispatch(widget.Explain{RequestID: m.newID()})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != m.state.Concept {
			m.state, _ = widget.Reduce(m.state, widget.ConceptInput{Text: m.input.Value()})
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.move(-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.move(1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Left):
		m.move(0, -1)
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.move(0, 1)
		return m, nil
	case key.Matches(msg, m.keys.Press):
		return m.dispatch(widget.Press{Value: keypad[m.row][m.col].value})
	case msg.Type == tea.KeyRunes && !msg.Alt:
		// Fast typing and pastes arrive as several runes in one message.
		var cmds []tea.Cmd
		for _, r := range msg.Runes {
			nm, cmd := m.dispatch(widget.Key{Name: string(r)})
			m = nm.(Model)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m.dispatch(widget.Key{Name: keyName(msg)})
}

// handleMouse presses the button under a left click or closes the modal when
// the click lands on its close line or outside it.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.state.Modal.Open {
		left, top, w, h := m.modalRect()
		switch {
		case msg.X < left || msg.X >= left+w || msg.Y < top || msg.Y >= top+h:
			return m.dispatch(widget.Backdrop{})
		case msg.Y == top+h-1-closeLineOffset:
			return m.dispatch(widget.CloseModal{})
		}
		return m, nil
	}
	row, col, ok := buttonAt(msg.X, msg.Y-keypadTop)
	if !ok {
		return m, nil
	}
	m.row, m.col = row, col
	return m.dispatch(widget.Press{Value: keypad[row][col].value})
}

// move changes the selected button, clamping to the keypad.
func (m *Model) move(dr, dc int) {
	m.row = min(max(m.row+dr, 0), len(keypad)-1)
	m.col = min(max(m.col+dc, 0), len(keypad[m.row])-1)
}

// dispatch sends ev to the widget and runs the resulting effect.
func (m Model) dispatch(ev widget.Event) (tea.Model, tea.Cmd) {
	var eff widget.Effect
	m.state, eff = widget.Reduce(m.state, ev)
	var cmds []tea.Cmd
	if m.state.Focus == widget.FocusConcept && !m.input.Focused() {
		cmds = append(cmds, m.input.Focus())
	} else if m.state.Focus == widget.FocusKeypad && m.input.Focused() {
		m.input.Blur()
	}
	if m.input.Value() != m.state.Concept {
		m.input.SetValue(m.state.Concept)
	}
	cmds = append(cmds, m.run(eff))
	return m, tea.Batch(cmds...)
}

// run performs an effect requested by the widget.
func (m Model) run(eff widget.Effect) tea.Cmd {
	switch eff := eff.(type) {
	case nil:
		return nil
	case widget.Fetch:
		ctx, cancel := context.WithCancel(context.Background())
		m.cancels[eff.RequestID] = cancel
		m.log.Debug("explaining", "request", eff.RequestID, "concept", eff.Concept)
		p := m.provider
		fetch := func() tea.Msg {
			text, err := p.Explain(ctx, eff.Concept)
			return explainedMsg{id: eff.RequestID, text: text, err: err}
		}
		return tea.Batch(fetch, m.spinner.Tick)
	case widget.Cancel:
		if cancel, ok := m.cancels[eff.RequestID]; ok {
			m.log.Debug("cancelling explanation", "request", eff.RequestID)
			cancel()
			delete(m.cancels, eff.RequestID)
		}
		return nil
	case widget.EvalFailed:
		m.log.Debug("evaluation failed", "input", eff.Input, "error", eff.Err)
		return nil
	case widget.Batch:
		cmds := make([]tea.Cmd, 0, len(eff))
		for _, e := range eff {
			cmds = append(cmds, m.run(e))
		}
		return tea.Batch(cmds...)
	default:
		m.log.Error("unknown widget effect", "effect", eff)
		return nil
	}
}

func (m Model) cancelAll() {
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
}

// View renders the model
func (m Model) View() string {
	if m.state.Modal.Open {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.modalView(),
			lipgloss.WithWhitespaceChars("░"),
			lipgloss.WithWhitespaceForeground(colorBackdrop),
		)
	}
	return m.calculatorView()
}

func (m Model) calculatorView() string {
	var s strings.Builder
	s.WriteString(TitleStyle.Render("Calculette"))
	s.WriteString("\n")
	s.WriteString(DisplayStyle.Render(fitDisplay(m.state.Display(), keypadWidth()-2)))
	s.WriteString("\n\n")
	for r, row := range keypad {
		cells := make([]string, len(row))
		for c, b := range row {
			st := ButtonStyle
			switch {
			case m.state.Focus == widget.FocusKeypad && r == m.row && c == m.col:
				st = SelectedButtonStyle
			case b.op:
				st = OperatorButtonStyle
			}
			cells[c] = st.Render(b.label)
		}
		s.WriteString(strings.Join(cells, strings.Repeat(" ", buttonGap)))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	label := InputLabelStyle
	if m.state.Focus == widget.FocusConcept {
		label = FocusedInputLabelStyle
	}
	s.WriteString(label.Render("Concept : "))
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render(m.helpLine()))
	return s.String()
}

// fitDisplay keeps the end of text so that it fits on one line of n columns.
func fitDisplay(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return "…" + string(r[len(r)-n+1:])
}

func (m Model) helpLine() string {
	if m.state.Focus == widget.FocusConcept {
		return "entrée: expliquer • tab: clavier • ctrl+c: quitter"
	}
	return "flèches: choisir • espace: appuyer • entrée: = • tab: concept • ctrl+c: quitter"
}

// closeLineOffset is the distance of the close line from the bottom edge of
// the modal box: the border and the bottom padding.
const closeLineOffset = 2

func (m Model) modalView() string {
	md := m.state.Modal
	var s strings.Builder
	s.WriteString(ModalTitleStyle.Render("Explication : " + md.Concept))
	s.WriteString("\n\n")
	switch {
	case md.Loading:
		s.WriteString(m.spinner.View() + " Chargement...")
	case md.Failed:
		s.WriteString(ModalErrorStyle.Render(md.Text))
	default:
		s.WriteString(md.Text)
	}
	s.WriteString("\n\n")
	s.WriteString(CloseButtonStyle.Render("[×] Fermer (esc)"))
	return ModalStyle.Render(s.String())
}

// modalRect is the position and size of the modal box as placed by View.
func (m Model) modalRect() (left, top, width, height int) {
	box := m.modalView()
	width, height = lipgloss.Width(box), lipgloss.Height(box)
	left = max(m.width-width, 0) / 2
	top = max(m.height-height, 0) / 2
	return left, top, width, height
}

// Run starts the calculator TUI
func Run(p explain.Provider, log *slog.Logger) error {
	prog := tea.NewProgram(New(p, log), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	return err
}
