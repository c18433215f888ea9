package calculette

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ErrorMarker is the display text of a result that could not be evaluated.
const ErrorMarker = "Erreur"

// Result is the outcome of evaluating calculator input: a number, NaN, or an
// error. Results come from Evaluate or Context.Evaluate; the zero Result
// displays as ErrorMarker.
type Result struct {
	// Value is the numeric result. It is nil if NaN is set or Err is non-nil.
	// Infinite values are valid results.
	Value *big.Float
	// NaN indicates that the expression evaluated to not-a-number.
	NaN bool
	// Err is the parse or evaluation error, if any.
	Err error
}

// Evaluate parses and evaluates calculator input as IEEE-754 doubles using
// the default functions. It never panics on any input.
func Evaluate(text string) Result {
	a, err := ParseString(text)
	if err != nil {
		return Result{Err: err}
	}
	return NewContext(Prec(DefaultPrec), Float64Range()).Evaluate(a)
}

// Evaluate evaluates a parsed expression and wraps the outcome in a Result.
// The Value of the Result is not modified by later evaluations with ctx.
func (ctx *Context) Evaluate(e *Expr) Result {
	r := ctx.Eval(e)
	switch {
	case ctx.Err() != nil:
		return Result{Err: ctx.Err()}
	case ctx.IsNaN():
		return Result{NaN: true}
	default:
		return Result{Value: r}
	}
}

// OK reports whether the result is a number, including NaN and infinities.
func (r Result) OK() bool {
	return r.Err == nil
}

// Float64 returns the result as a float64. Errors are NaN.
func (r Result) Float64() float64 {
	if r.Err != nil || r.NaN || r.Value == nil {
		return math.NaN()
	}
	f, _ := r.Value.Float64()
	return f
}

// String returns the text a calculator display shows for the result: the
// number formatted by FormatFloat64, or ErrorMarker.
func (r Result) String() string {
	switch {
	case r.Err != nil:
		return ErrorMarker
	case r.NaN:
		return "NaN"
	case r.Value == nil:
		return ErrorMarker
	default:
		return FormatNumber(r.Value)
	}
}

// FormatNumber formats x as a double the way a JavaScript engine prints
// numbers. Values outside the range of float64 become infinities or zero.
func FormatNumber(x *big.Float) string {
	f, _ := x.Float64()
	return FormatFloat64(f)
}

// FormatFloat64 formats f with the shortest decimal that reads back as f.
// Magnitudes in [1e-6, 1e21) use plain decimal notation and everything else
// uses an exponent, as in 1e+21 or 1.5e-7. Negative zero prints as 0.
func FormatFloat64(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if a := math.Abs(f); a >= 1e-6 && a < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// strconv writes at least two exponent digits.
	k := strings.IndexByte(s, 'e')
	mant, sign, digits := s[:k], s[k+1], strings.TrimLeft(s[k+2:], "0")
	return mant + "e" + string(sign) + digits
}
