package calculette

import (
	"strconv"
	"unicode"
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	funcopt struct {
		name string
		fn   Func
	}
	funcsopt map[string]Func
	eofopt   struct {
		comma bool
		ws    string
	}
)

// parsectx holds general data for parsing.
type parsectx struct {
	// names is the set of variable names that have been seen this parse.
	names map[string]bool
	// funcs is the set of function names that trigger special parsing for ids.
	funcs map[string]Func
	// resv is a reserved parsed node. parsearglist sets this when it parses a
	// single parenthesized term so that the parser can back it out to an
	// implicit multiplication if the function is niladic.
	resv *node
	// wseof is a string containing the whitespace characters that trigger an
	// EOF token from the lexer.
	wseof string
	// ceof indicates whether a comma is allowed to end an expression.
	ceof bool
}

// ParseFunc sets a function for parsing. To disable parsing a function, pass
// nil for fn.
func ParseFunc(name string, fn Func) ParseOption {
	return &funcopt{name, fn}
}

func (o *funcopt) parseOption(p parsectx) parsectx {
	p.funcs = p.ownfuncs()
	p.funcs[o.name] = o.fn
	return p
}

// ParseFuncs sets a group of functions for parsing. To disable parsing any
// function, set it to nil.
func ParseFuncs(fns map[string]Func) ParseOption {
	return funcsopt(fns)
}

func (o funcsopt) parseOption(p parsectx) parsectx {
	p.funcs = p.ownfuncs()
	for k, v := range o {
		p.funcs[k] = v
	}
	return p
}

// DisableDefaultFuncs disables all default functions and constants during
// parsing. Their names will be parsed as variables instead.
func DisableDefaultFuncs() ParseOption {
	fns := make(funcsopt, len(globalfuncs))
	for k := range globalfuncs {
		fns[k] = nil
	}
	return fns
}

// ownfuncs returns a copy of the function set that the parse context may
// modify. A nil set copies the defaults.
func (p *parsectx) ownfuncs() map[string]Func {
	if p.funcs != nil {
		return p.funcs
	}
	m := make(map[string]Func, len(globalfuncs))
	for k, v := range globalfuncs {
		m[k] = v
	}
	return m
}

// StopOn tells the parser to treat a list of characters as ending the
// expression. Each rune must be a comma or whitespace codepoint. Whitespace
// does not end an expression where a term is expected, e.g. at the beginning
// of an expression or following an operator or bracket. Commas do not end
// expressions inside bracketed function argument lists.
//
// StopOn overrides the effect of any previous StopOn in the parsing options.
// With no arguments, StopOn produces the default termination behavior, which
// is to parse to EOF.
func StopOn(chars ...rune) ParseOption {
	var o eofopt
	v := make([]rune, 0, len(chars))
	have := func(r rune) bool {
		for _, c := range v {
			if r == c {
				return true
			}
		}
		return false
	}
	for _, r := range chars {
		switch {
		case r == ',':
			o.comma = true
		case unicode.IsSpace(r):
			if !have(r) {
				v = append(v, r)
			}
		default:
			panic("calculette: cannot stop on " + strconv.QuoteRune(r))
		}
	}
	o.ws = string(v)
	return &o
}

func (o *eofopt) parseOption(p parsectx) parsectx {
	p.ceof = o.comma
	p.wseof = o.ws
	return p
}
