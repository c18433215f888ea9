package widget

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/zephyrtronium/calculette/internal/buffer"
)

// run applies events in order and returns the final state and every effect.
func run(s State, evs ...Event) (State, []Effect) {
	var effs []Effect
	for _, ev := range evs {
		var eff Effect
		s, eff = Reduce(s, ev)
		if eff != nil {
			effs = append(effs, eff)
		}
	}
	return s, effs
}

func presses(vals ...string) []Event {
	evs := make([]Event, len(vals))
	for i, v := range vals {
		evs[i] = Press{Value: v}
	}
	return evs
}

func keys(names ...string) []Event {
	evs := make([]Event, len(names))
	for i, v := range names {
		evs[i] = Key{Name: v}
	}
	return evs
}

func TestPress(t *testing.T) {
	cases := []struct {
		name    string
		start   string
		press   []string
		display string
	}{
		{"empty", "", nil, "0"},
		{"digits", "", []string{"1", "2"}, "12"},
		{"ops", "", []string{"1", "+", "2"}, "1+2"},
		{"func", "", []string{"sqrt(", "1", "6", ")"}, "sqrt(16)"},
		{"ac", "123", []string{"AC"}, "0"},
		{"del", "123", []string{"DEL"}, "12"},
		{"del-empty", "", []string{"DEL"}, "0"},
		{"eq", "", []string{"2", "+", "2", "="}, "4"},
		{"eq-pow", "", []string{"2", "^", "1", "0", "="}, "1024"},
		{"eq-log", "log(100)", []string{"="}, "2"},
		{"eq-ln", "ln(1)", []string{"="}, "0"},
		{"eq-err", "(", []string{"="}, "Erreur"},
		{"eq-empty", "", []string{"="}, "Erreur"},
		{"eq-continue", "", []string{"6", "*", "7", "=", "+", "1", "="}, "43"},
		{"eq-err-continue", "", []string{"(", "=", "1"}, "Erreur1"},
		{"eq-infinity", "", []string{"1", "/", "0", "=", "="}, "Infinity"},
		{"eq-nan", "0/0", []string{"="}, "NaN"},
		{"eq-pi", "", []string{"2", "*", "PI", "="}, "6.283185307179586"},
		{"eq-float", "0.1+0.2", []string{"="}, "0.30000000000000004"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := State{Expr: buffer.Of(c.start)}
			s, _ = run(s, presses(c.press...)...)
			if got := s.Display(); got != c.display {
				t.Errorf("want %q, got %q", c.display, got)
			}
		})
	}
}

func TestKey(t *testing.T) {
	cases := []struct {
		name    string
		start   string
		keys    []string
		display string
	}{
		{"digits", "", []string{"4", "2"}, "42"},
		{"ops", "", []string{"1", "+", "2", "-", "3", "*", "4", "/", "5", "%", "6"}, "1+2-3*4/5%6"},
		{"parens", "", []string{"(", "1", ".", "5", ")"}, "(1.5)"},
		{"enter", "", []string{"7", "*", "6", "Enter"}, "42"},
		{"backspace", "123", []string{"Backspace"}, "12"},
		{"escape", "123", []string{"Escape"}, "0"},
		{"ignored-letter", "1", []string{"a", "x", "^"}, "1"},
		{"ignored-named", "1", []string{"Shift", "F1", "ArrowUp", "Tab"}, "1"},
		{"ignored-empty", "1", []string{""}, "1"},
		{"enter-err", "1+", []string{"Enter"}, "Erreur"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := State{Expr: buffer.Of(c.start)}
			s, _ = run(s, keys(c.keys...)...)
			if got := s.Display(); got != c.display {
				t.Errorf("want %q, got %q", c.display, got)
			}
		})
	}
}

func TestEvalFailedEffect(t *testing.T) {
	s := State{Expr: buffer.Of("2*(3")}
	s, eff := Reduce(s, Press{Value: "="})
	ef, ok := eff.(EvalFailed)
	if !ok {
		t.Fatalf("want EvalFailed, got %#v", eff)
	}
	if ef.Input != "2*(3" || ef.Err == nil {
		t.Errorf("wrong effect: %#v", ef)
	}
	if s.Expr.Text() != "Erreur" {
		t.Errorf("wrong expression: %q", s.Expr.Text())
	}
	// NaN is a result rather than an error.
	_, eff = Reduce(State{Expr: buffer.Of("0/0")}, Key{Name: "Enter"})
	if eff != nil {
		t.Errorf("NaN gave effect %#v", eff)
	}
}

func TestReduceDoesNotModifyInput(t *testing.T) {
	s := State{Expr: buffer.Of("12"), Concept: "x"}
	before := s
	run(s, Press{Value: "3"}, Press{Value: "="}, ConceptInput{Text: "y"}, Explain{RequestID: "a"})
	if !reflect.DeepEqual(s, before) {
		t.Errorf("state changed from %+v to %+v", before, s)
	}
}

func TestToggleFocus(t *testing.T) {
	var s State
	if s.Focus != FocusKeypad {
		t.Fatalf("zero state focus is %v", s.Focus)
	}
	s, _ = Reduce(s, ToggleFocus{})
	if s.Focus != FocusConcept {
		t.Errorf("after one toggle focus is %v", s.Focus)
	}
	s, _ = Reduce(s, ToggleFocus{})
	if s.Focus != FocusKeypad {
		t.Errorf("after two toggles focus is %v", s.Focus)
	}
}

func TestExplain(t *testing.T) {
	s, effs := run(State{}, ConceptInput{Text: "  dérivée  "}, Explain{RequestID: "r1"})
	if !s.Modal.Open || !s.Modal.Loading {
		t.Errorf("modal not open and loading: %+v", s.Modal)
	}
	if s.Modal.Concept != "dérivée" {
		t.Errorf("concept not trimmed: %q", s.Modal.Concept)
	}
	if s.Pending != "r1" {
		t.Errorf("wrong pending request %q", s.Pending)
	}
	want := []Effect{Fetch{RequestID: "r1", Concept: "dérivée"}}
	if !reflect.DeepEqual(effs, want) {
		t.Errorf("wrong effects: want %#v, got %#v", want, effs)
	}

	s, effs = run(s, Explained{RequestID: "r1", Text: "une explication"})
	if s.Modal.Loading || !s.Modal.Open || s.Modal.Failed {
		t.Errorf("wrong modal after completion: %+v", s.Modal)
	}
	if s.Modal.Text != "une explication" {
		t.Errorf("wrong text %q", s.Modal.Text)
	}
	if s.Pending != "" || len(effs) != 0 {
		t.Errorf("pending %q with effects %#v after completion", s.Pending, effs)
	}
}

func TestExplainEmpty(t *testing.T) {
	for _, concept := range []string{"", " ", "\t\n"} {
		s, effs := run(State{}, ConceptInput{Text: concept}, Explain{RequestID: "r"})
		if s.Modal.Open || s.Pending != "" || len(effs) != 0 {
			t.Errorf("%q opened modal %+v, pending %q, effects %#v", concept, s.Modal, s.Pending, effs)
		}
	}
}

func TestExplainFailure(t *testing.T) {
	s, _ := run(State{}, ConceptInput{Text: "intégrale"}, Explain{RequestID: "r"})
	s, _ = Reduce(s, Explained{RequestID: "r", Err: errors.New("connection refused")})
	if s.Modal.Loading || !s.Modal.Failed {
		t.Errorf("wrong modal after failure: %+v", s.Modal)
	}
	if !strings.Contains(s.Modal.Text, "connection refused") {
		t.Errorf("error not shown: %q", s.Modal.Text)
	}
}

func TestExplainedStale(t *testing.T) {
	s, _ := run(State{}, ConceptInput{Text: "a"}, Explain{RequestID: "r1"})
	s, effs := run(s, ConceptInput{Text: "b"}, Explain{RequestID: "r2"})
	want := []Effect{Batch{Cancel{RequestID: "r1"}, Fetch{RequestID: "r2", Concept: "b"}}}
	if !reflect.DeepEqual(effs, want) {
		t.Errorf("wrong effects: want %#v, got %#v", want, effs)
	}
	before := s
	for _, ev := range []Event{
		Explained{RequestID: "r1", Text: "old"},
		Explained{RequestID: "", Text: "none"},
		Explained{RequestID: "other", Err: errors.New("no")},
	} {
		got, eff := Reduce(s, ev)
		if !reflect.DeepEqual(got, before) || eff != nil {
			t.Errorf("stale %#v changed state to %+v with effect %#v", ev, got, eff)
		}
	}
	s, _ = Reduce(s, Explained{RequestID: "r2", Text: "new"})
	if s.Modal.Text != "new" || s.Modal.Concept != "b" {
		t.Errorf("wrong modal %+v", s.Modal)
	}
}

func TestCloseModal(t *testing.T) {
	for _, ev := range []Event{CloseModal{}, Backdrop{}} {
		s, _ := run(State{Expr: buffer.Of("1+1")}, ConceptInput{Text: "pi"}, Explain{RequestID: "r"})
		s, eff := Reduce(s, ev)
		if s.Modal != (Modal{}) {
			t.Errorf("%T left modal %+v", ev, s.Modal)
		}
		if s.Concept != "" || s.Pending != "" {
			t.Errorf("%T left concept %q, pending %q", ev, s.Concept, s.Pending)
		}
		if eff != (Cancel{RequestID: "r"}) {
			t.Errorf("%T gave effect %#v", ev, eff)
		}
		if s.Expr.Text() != "1+1" {
			t.Errorf("%T changed expression to %q", ev, s.Expr.Text())
		}
		// The completion arriving after the modal closed is dropped.
		after, eff := Reduce(s, Explained{RequestID: "r", Text: "late"})
		if !reflect.DeepEqual(after, s) || eff != nil {
			t.Errorf("late completion changed state to %+v", after)
		}
	}
}

func TestCloseModalAfterLoad(t *testing.T) {
	s, _ := run(State{}, ConceptInput{Text: "pi"}, Explain{RequestID: "r"}, Explained{RequestID: "r", Text: "t"})
	s, eff := Reduce(s, CloseModal{})
	if eff != nil {
		t.Errorf("close after load gave effect %#v", eff)
	}
	if s.Modal.Open || s.Modal.Text != "" || s.Concept != "" {
		t.Errorf("bad state after close: %+v", s)
	}
}

func TestCloseModalClosed(t *testing.T) {
	s := State{Concept: "typing"}
	got, eff := Reduce(s, Backdrop{})
	if !reflect.DeepEqual(got, s) || eff != nil {
		t.Errorf("backdrop on closed modal changed state to %+v", got)
	}
}
