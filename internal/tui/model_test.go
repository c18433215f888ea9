package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zephyrtronium/calculette/internal/widget"
)

type stubProvider struct {
	text  string
	err   error
	block bool
}

func (p *stubProvider) Explain(ctx context.Context, concept string) (string, error) {
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if p.err != nil {
		return "", p.err
	}
	return p.text + " " + concept, nil
}

func newTestModel(p *stubProvider) Model {
	m := New(p, nil)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func click(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	left  = tea.KeyMsg{Type: tea.KeyLeft}
	right = tea.KeyMsg{Type: tea.KeyRight}
)

// send applies msgs in order and returns the last command.
func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var nm tea.Model
		nm, cmd = m.Update(msg)
		m = nm.(Model)
	}
	return m, cmd
}

// messages runs cmd and any commands it batches, returning what they produce.
func messages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if b, ok := msg.(tea.BatchMsg); ok {
		var all []tea.Msg
		for _, c := range b {
			all = append(all, messages(c)...)
		}
		return all
	}
	return []tea.Msg{msg}
}

func explained(msgs []tea.Msg) []explainedMsg {
	var r []explainedMsg
	for _, msg := range msgs {
		if e, ok := msg.(explainedMsg); ok {
			r = append(r, e)
		}
	}
	return r
}

func TestTypeAndEvaluate(t *testing.T) {
	cases := []struct {
		name    string
		keys    []tea.Msg
		display string
	}{
		{"empty", nil, "0"},
		{"sum", []tea.Msg{runes("1"), runes("+"), runes("2"), enter}, "3"},
		{"backspace", []tea.Msg{runes("1"), runes("2"), tea.KeyMsg{Type: tea.KeyBackspace}}, "1"},
		{"escape", []tea.Msg{runes("1"), runes("2"), esc}, "0"},
		{"error", []tea.Msg{runes("("), enter}, "Erreur"},
		{"ignored", []tea.Msg{runes("1"), runes("a"), runes("^"), tea.KeyMsg{Type: tea.KeyF1}}, "1"},
		{"alt", []tea.Msg{runes("1"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2"), Alt: true}}, "1"},
		{"burst", []tea.Msg{runes("12+3")}, "12+3"},
		{"burst-eval", []tea.Msg{runes("6*7"), enter}, "42"},
		{"burst-filtered", []tea.Msg{runes("1a2^3")}, "123"},
		{"paste", []tea.Msg{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("(1+2)"), Paste: true}}, "(1+2)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, _ := send(t, newTestModel(&stubProvider{}), c.keys...)
			if got := m.State().Display(); got != c.display {
				t.Errorf("want %q, got %q", c.display, got)
			}
		})
	}
}

func TestKeypadNavigation(t *testing.T) {
	m := newTestModel(&stubProvider{})
	steps := []struct {
		msg      tea.Msg
		row, col int
	}{
		{down, 1, 0},
		{down, 2, 0},
		{left, 2, 0},
		{right, 2, 1},
		{right, 2, 2},
		{right, 2, 3},
		{right, 2, 3},
		{up, 1, 3},
		{right, 1, 4},
		{down, 2, 3},
		{up, 1, 3},
		{up, 0, 3},
		{up, 0, 3},
	}
	for i, s := range steps {
		m, _ = send(t, m, s.msg)
		if m.row != s.row || m.col != s.col {
			t.Fatalf("step %d: want (%d, %d), got (%d, %d)", i, s.row, s.col, m.row, m.col)
		}
	}
	for i := 0; i < 10; i++ {
		m, _ = send(t, m, down)
	}
	if m.row != len(keypad)-1 {
		t.Errorf("down past the end gave row %d", m.row)
	}
}

func TestKeypadPress(t *testing.T) {
	m := newTestModel(&stubProvider{})
	// sqrt( 9 ) =
	m, _ = send(t, m, down, right, right, right, space)
	if got := m.State().Display(); got != "sqrt(" {
		t.Fatalf("want sqrt(, got %q", got)
	}
	m, _ = send(t, m, down, left, space)
	m, _ = send(t, m, up, up, right, space)
	if got := m.State().Display(); got != "sqrt(9)" {
		t.Fatalf("want sqrt(9), got %q", got)
	}
	m, _ = send(t, m, down, down, down, down, down, left, space)
	if got := m.State().Display(); got != "3" {
		t.Errorf("want 3, got %q", got)
	}
}

func TestMouseClick(t *testing.T) {
	cell := buttonWidth + buttonGap
	m := newTestModel(&stubProvider{})
	m, _ = send(t, m,
		click(0, keypadTop+2),         // 7
		click(3*cell+2, keypadTop+5),  // +
		click(cell, keypadTop+2),      // 8
		click(buttonWidth, keypadTop), // gap after AC
		click(0, 0),                   // title
		tea.MouseMsg{X: 0, Y: keypadTop, Action: tea.MouseActionPress, Button: tea.MouseButtonRight},
		tea.MouseMsg{X: 0, Y: keypadTop, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
	)
	if got := m.State().Display(); got != "7+8" {
		t.Fatalf("want 7+8, got %q", got)
	}
	m, _ = send(t, m, click(2*cell+buttonWidth-1, keypadTop+5))
	if got := m.State().Display(); got != "15" {
		t.Errorf("want 15, got %q", got)
	}
	if m.row != 5 || m.col != 2 {
		t.Errorf("click did not select the button: (%d, %d)", m.row, m.col)
	}
}

func TestExplainFlow(t *testing.T) {
	m := newTestModel(&stubProvider{text: "explication de"})
	m, _ = send(t, m, tab)
	if m.State().Focus != widget.FocusConcept || !m.input.Focused() {
		t.Fatalf("tab did not focus the concept input")
	}
	// Keys go to the input instead of the expression now.
	m, _ = send(t, m, runes("p"), runes("i"))
	if m.State().Concept != "pi" || m.State().Display() != "0" {
		t.Fatalf("concept %q, display %q", m.State().Concept, m.State().Display())
	}
	m, cmd := send(t, m, enter)
	md := m.State().Modal
	if !md.Open || !md.Loading || md.Concept != "pi" {
		t.Fatalf("modal not loading: %+v", md)
	}
	if !strings.Contains(m.View(), "Chargement") {
		t.Errorf("loading view lacks spinner text:\n%s", m.View())
	}
	if len(m.cancels) != 1 {
		t.Errorf("%d requests running", len(m.cancels))
	}

	ex := explained(messages(cmd))
	if len(ex) != 1 || ex[0].id != "r1" || ex[0].text != "explication de pi" {
		t.Fatalf("wrong completions %+v", ex)
	}
	m, _ = send(t, m, ex[0])
	md = m.State().Modal
	if md.Loading || md.Text != "explication de pi" {
		t.Errorf("modal after completion: %+v", md)
	}
	if len(m.cancels) != 0 {
		t.Errorf("%d requests still running", len(m.cancels))
	}
	if !strings.Contains(m.View(), "explication de pi") {
		t.Errorf("view lacks explanation:\n%s", m.View())
	}

	// Keys other than esc are ignored while the modal is open.
	m, _ = send(t, m, runes("x"), tab)
	if m.State().Concept != "pi" || !m.State().Modal.Open {
		t.Errorf("modal stole keys: %+v", m.State())
	}
	m, _ = send(t, m, esc)
	if m.State().Modal.Open || m.State().Concept != "" || m.input.Value() != "" {
		t.Errorf("esc did not close and reset: %+v, input %q", m.State(), m.input.Value())
	}
}

func TestExplainError(t *testing.T) {
	m := newTestModel(&stubProvider{err: errors.New("hors ligne")})
	m, _ = send(t, m, tab, runes("x"))
	m, cmd := send(t, m, enter)
	for _, ex := range explained(messages(cmd)) {
		m, _ = send(t, m, ex)
	}
	md := m.State().Modal
	if !md.Failed || !strings.Contains(md.Text, "hors ligne") {
		t.Errorf("modal after failure: %+v", md)
	}
}

func TestExplainCancelOnClose(t *testing.T) {
	m := newTestModel(&stubProvider{block: true})
	m, _ = send(t, m, tab, runes("x"))
	m, cmd := send(t, m, enter)
	done := make(chan []tea.Msg, 1)
	go func() { done <- messages(cmd) }()

	m, _ = send(t, m, esc)
	if len(m.cancels) != 0 {
		t.Errorf("%d requests still running after close", len(m.cancels))
	}
	var msgs []tea.Msg
	select {
	case msgs = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("request was not cancelled")
	}
	ex := explained(msgs)
	if len(ex) != 1 || !errors.Is(ex[0].err, context.Canceled) {
		t.Fatalf("wrong completions %+v", ex)
	}
	before := m.State()
	m, _ = send(t, m, ex[0])
	if m.State() != before {
		t.Errorf("cancelled completion changed state to %+v", m.State())
	}
}

func TestRunCancel(t *testing.T) {
	m := newTestModel(&stubProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancels["old"] = cancel
	cmd := m.run(widget.Batch{widget.Cancel{RequestID: "old"}, widget.Cancel{RequestID: "unknown"}})
	if cmd != nil {
		t.Errorf("cancel gave command")
	}
	if ctx.Err() == nil {
		t.Errorf("request not cancelled")
	}
	if _, ok := m.cancels["old"]; ok {
		t.Errorf("cancelled request still tracked")
	}
}

func TestModalMouse(t *testing.T) {
	open := func() Model {
		m := newTestModel(&stubProvider{})
		m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40}, tab, runes("x"), enter)
		return m
	}

	m := open()
	left, top, w, h := m.modalRect()
	if w != lipgloss.Width(m.modalView()) || left != (100-w)/2 || top != (40-h)/2 {
		t.Fatalf("modal rect (%d, %d, %d, %d)", left, top, w, h)
	}
	m, _ = send(t, m, click(left+w/2, top+1))
	if !m.State().Modal.Open {
		t.Errorf("click inside closed the modal")
	}
	m, _ = send(t, m, click(left+w/2, top+h-1-closeLineOffset))
	if m.State().Modal.Open {
		t.Errorf("click on close line left the modal open")
	}

	for _, pt := range [][2]int{{0, 0}, {left - 1, top}, {left + w, top}, {left, top + h}, {99, 39}} {
		m := open()
		m, _ = send(t, m, click(pt[0], pt[1]))
		if m.State().Modal.Open {
			t.Errorf("backdrop click at %v left the modal open", pt)
		}
	}
}

func TestEvalFailedLogged(t *testing.T) {
	var buf bytes.Buffer
	m := New(&stubProvider{}, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	send(t, m, runes("("), enter)
	if !strings.Contains(buf.String(), "evaluation failed") {
		t.Errorf("no log for failed evaluation: %q", buf.String())
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(&stubProvider{block: true})
	m, _ = send(t, m, tab, runes("x"), enter)
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c gave no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("ctrl+c did not quit")
	}
	if len(m.cancels) != 0 {
		t.Errorf("%d requests left running", len(m.cancels))
	}
}

func TestView(t *testing.T) {
	m := newTestModel(&stubProvider{})
	m, _ = send(t, m, runes("4"), runes("2"))
	v := m.View()
	for _, want := range []string{"Calculette", "42", "sqrt", "Concept", "tab: concept"} {
		if !strings.Contains(v, want) {
			t.Errorf("view lacks %q:\n%s", want, v)
		}
	}
	lines := strings.Split(v, "\n")
	if !strings.Contains(lines[keypadTop], "AC") || !strings.Contains(lines[keypadTop+len(keypad)-1], "ln") {
		t.Errorf("keypad not at rows %d to %d:\n%s", keypadTop, keypadTop+len(keypad)-1, v)
	}
	m, _ = send(t, m, tab)
	if !strings.Contains(m.View(), "entrée: expliquer") {
		t.Errorf("concept focus help missing:\n%s", m.View())
	}
}

func TestFitDisplay(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"0", 5, "0"},
		{"12345", 5, "12345"},
		{"123456", 5, "…3456"},
		{"ππππππ", 3, "…ππ"},
	}
	for _, c := range cases {
		if got := fitDisplay(c.in, c.n); got != c.want {
			t.Errorf("fitDisplay(%q, %d): want %q, got %q", c.in, c.n, c.want, got)
		}
	}
}
