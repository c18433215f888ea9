// Package widget is the calculator and explanation modal as a pure state
// machine. Reduce takes the current State and an Event and returns the next
// State plus an Effect for the caller to run. Nothing in this package blocks
// or performs I/O.
package widget

import (
	"strings"
	"unicode/utf8"

	"github.com/zephyrtronium/calculette"
	"github.com/zephyrtronium/calculette/internal/buffer"
)

// Focus is the part of the widget that receives typed keys.
type Focus int

const (
	// FocusKeypad sends keys to the expression.
	FocusKeypad Focus = iota
	// FocusConcept sends keys to the concept input.
	FocusConcept
)

func (f Focus) String() string {
	switch f {
	case FocusKeypad:
		return "keypad"
	case FocusConcept:
		return "concept"
	default:
		return "Focus(?)"
	}
}

// Modal is the explanation dialog.
type Modal struct {
	// Open is whether the dialog is visible.
	Open bool
	// Loading is whether an explanation is pending.
	Loading bool
	// Concept is the trimmed concept being explained.
	Concept string
	// Text is the explanation, or an error line if the fetch failed.
	Text string
	// Failed is whether Text describes a failure.
	Failed bool
}

// State is the whole widget state. The zero value is a fresh widget with an
// empty expression.
type State struct {
	// Expr is the expression being edited.
	Expr buffer.Buffer
	// Concept is the contents of the concept input.
	Concept string
	// Focus is where typed keys go.
	Focus Focus
	// Modal is the explanation dialog.
	Modal Modal
	// Pending is the ID of the explanation request whose completion is
	// awaited, or empty if there is none.
	Pending string
}

// Display is the text on the calculator screen.
func (s State) Display() string {
	return s.Expr.Display()
}

// Event is an input to Reduce.
type Event interface {
	event()
}

type (
	// Press is a click on a calculator button. Value is the button's data
	// value: "AC", "DEL", "=", or text to append.
	Press struct{ Value string }
	// Key is a key typed while the keypad has focus, named as in a browser
	// KeyboardEvent.key: "7", "+", "Enter", "Backspace", "Escape", and so on.
	Key struct{ Name string }
	// ConceptInput replaces the contents of the concept input.
	ConceptInput struct{ Text string }
	// ToggleFocus moves focus between the keypad and the concept input.
	ToggleFocus struct{}
	// Explain asks for an explanation of the current concept. RequestID
	// identifies the request so that its completion can be matched.
	Explain struct{ RequestID string }
	// Explained is the completion of an explanation request.
	Explained struct {
		RequestID string
		Text      string
		Err       error
	}
	// CloseModal is a click on the dialog's close button.
	CloseModal struct{}
	// Backdrop is a click outside the dialog.
	Backdrop struct{}
)

func (Press) event()        {}
func (Key) event()          {}
func (ConceptInput) event() {}
func (ToggleFocus) event()  {}
func (Explain) event()      {}
func (Explained) event()    {}
func (CloseModal) event()   {}
func (Backdrop) event()     {}

// Effect is work that Reduce asks its caller to perform. A nil Effect means
// there is nothing to do.
type Effect interface {
	effect()
}

type (
	// Fetch starts an explanation request. Its completion must be delivered
	// as an Explained event with the same RequestID.
	Fetch struct {
		RequestID string
		Concept   string
	}
	// Cancel abandons an explanation request. Any completion for it is
	// ignored.
	Cancel struct{ RequestID string }
	// EvalFailed reports an expression that evaluated to the error marker.
	EvalFailed struct {
		Input string
		Err   error
	}
	// Batch is several effects to run in order.
	Batch []Effect
)

func (Fetch) effect()      {}
func (Cancel) effect()     {}
func (EvalFailed) effect() {}
func (Batch) effect()      {}

// keyAppends are the non-digit keys that type into the expression.
const keyAppends = "+-*/.()%"

// Reduce applies ev to s.
func Reduce(s State, ev Event) (State, Effect) {
	switch ev := ev.(type) {
	case Press:
		switch ev.Value {
		case "AC":
			s.Expr.Clear()
		case "DEL":
			s.Expr.DeleteLast()
		case "=":
			return evaluate(s)
		default:
			s.Expr.Append(ev.Value)
		}
	case Key:
		switch ev.Name {
		case "Enter":
			return evaluate(s)
		case "Backspace":
			s.Expr.DeleteLast()
		case "Escape":
			s.Expr.Clear()
		default:
			if typesIntoExpr(ev.Name) {
				s.Expr.Append(ev.Name)
			}
		}
	case ConceptInput:
		s.Concept = ev.Text
	case ToggleFocus:
		if s.Focus == FocusKeypad {
			s.Focus = FocusConcept
		} else {
			s.Focus = FocusKeypad
		}
	case Explain:
		concept := strings.TrimSpace(s.Concept)
		if concept == "" {
			return s, nil
		}
		var eff Effect = Fetch{RequestID: ev.RequestID, Concept: concept}
		if s.Pending != "" {
			// The new request replaces the old one, which the caller can stop.
			eff = Batch{Cancel{RequestID: s.Pending}, eff}
		}
		s.Modal = Modal{Open: true, Loading: true, Concept: concept}
		s.Pending = ev.RequestID
		return s, eff
	case Explained:
		if ev.RequestID == "" || ev.RequestID != s.Pending {
			return s, nil
		}
		s.Pending = ""
		s.Modal.Loading = false
		if ev.Err != nil {
			s.Modal.Text = "Impossible d'obtenir une explication : " + ev.Err.Error()
			s.Modal.Failed = true
		} else {
			s.Modal.Text = ev.Text
			s.Modal.Failed = false
		}
	case CloseModal, Backdrop:
		if !s.Modal.Open {
			return s, nil
		}
		var eff Effect
		if s.Pending != "" {
			eff = Cancel{RequestID: s.Pending}
		}
		s.Modal = Modal{}
		s.Concept = ""
		s.Pending = ""
		return s, eff
	}
	return s, nil
}

// evaluate replaces the expression with its value.
func evaluate(s State) (State, Effect) {
	in := s.Expr.Text()
	r := calculette.Evaluate(in)
	s.Expr.Set(r.String())
	if r.Err != nil {
		return s, EvalFailed{Input: in, Err: r.Err}
	}
	return s, nil
}

// typesIntoExpr reports whether a key types its name into the expression.
func typesIntoExpr(name string) bool {
	r, sz := utf8.DecodeRuneInString(name)
	if sz == 0 || sz != len(name) {
		return false
	}
	return '0' <= r && r <= '9' || strings.ContainsRune(keyAppends, r)
}
