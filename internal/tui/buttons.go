package tui

// button is one key of the calculator keypad.
type button struct {
	// label is the text drawn on the button.
	label string
	// value is the button's data value sent to the widget.
	value string
	// op is whether the button is drawn as an operator.
	op bool
}

func digit(d string) button { return button{label: d, value: d} }
func op(o string) button { return button{label: o, value: o, op: true} }
func fn(name string) button { return button{label: name, value: name + "(", op: true} }

var keypad = [][]button{
	{op("AC"), op("DEL"), op("("), op(")"), op("%")},
	{fn("sin"), fn("cos"), fn("tan"), fn("sqrt"), op("^")},
	{digit("7"), digit("8"), digit("9"), op("/")},
	{digit("4"), digit("5"), digit("6"), op("*")},
	{digit("1"), digit("2"), digit("3"), op("-")},
	{digit("0"), digit("."), op("="), op("+")},
	{fn("log"), fn("ln"), op("PI"), op("E")},
}

// buttonAt returns the keypad cell at column x of keypad row y.
func buttonAt(x, y int) (row, col int, ok bool) {
	if y < 0 || y >= len(keypad) || x < 0 {
		return 0, 0, false
	}
	col = x / (buttonWidth + buttonGap)
	if col >= len(keypad[y]) || x%(buttonWidth+buttonGap) >= buttonWidth {
		return 0, 0, false
	}
	return y, col, true
}
