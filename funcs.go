package calculette

import (
	"math"
	"math/big"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function from reals to reals. The function should set r to its
// result and should not use the value of r otherwise.
type Func interface {
	// Call evaluates the function. The function arguments are passed in
	// invoc, which has a length for which CanCall returned true. Call may
	// modify the elements of invoc. Arguments outside the function's domain
	// should call ctx.MarkNaN rather than return an error; errors abort the
	// whole evaluation.
	Call(ctx *Context, invoc []*big.Float, r *big.Float) error

	// CanCall returns whether the function can be called with n arguments.
	// This controls how the expression parser handles instances of this
	// function:
	//
	// 	1.	If a bracketed list of n > 0 expressions follows a function, the
	//		parser treats it as an argument list if CanCall(n). (If n is 1 and
	//		!CanCall(1) and CanCall(0), then the list is a multiplication;
	//		otherwise, it is rejected.)
	//
	// 	2.	If a bare term follows a function and CanCall(1), then the parser
	//		treats the term as an argument to the function. E.g., "sqrt 16" is
	//		parsed as "sqrt(16)". (If !CanCall(1), then it is a multiplication.)
	CanCall(n int) bool
}

var globalfuncs = map[string]Func{
	"sqrt": Monadic(sqrt),
	"exp":  Monadic(exp),
	"ln":   Monadic(ln),
	"log":  logfunc{},
	"abs":  Monadic((*big.Float).Abs),

	// double precision only; bigfloat has no trigonometry
	"sin": Float64(math.Sin),
	"cos": Float64(math.Cos),
	"tan": Float64(math.Tan),

	// constants
	"PI":      Niladic(pi),
	"pi":      Niladic(pi),
	"π":       Niladic(pi),
	"Math.PI": Niladic(pi),
	"E":       Niladic(euler),
	"e":       Niladic(euler),
	"Math.E":  Niladic(euler),
	"NaN":     nan{},
}

// widen returns a copy of x carrying guardBits more precision than prec.
func widen(x *big.Float, prec uint) *big.Float {
	return new(big.Float).SetPrec(prec + guardBits).Set(x)
}

func sqrt(out, in *big.Float) *big.Float {
	switch {
	case in.Sign() < 0:
		panic(big.ErrNaN{})
	case in.Sign() == 0, in.IsInf():
		return out.Set(in)
	}
	w := widen(in, out.Prec())
	return out.Set(new(big.Float).SetPrec(w.Prec()).Sqrt(w))
}

func exp(out, in *big.Float) *big.Float {
	switch {
	case in.Cmp(expOverflow) > 0:
		return out.SetInf(false)
	case in.Cmp(expUnderflow) < 0:
		return out.SetInt64(0)
	}
	w := widen(in, out.Prec())
	return out.Set(bigfloat.Exp(w, w))
}

// Beyond these arguments, exp leaves the exponent range of big.Float.
var (
	expOverflow  = big.NewFloat(1e9)
	expUnderflow = big.NewFloat(-1e9)
)

func ln(out, in *big.Float) *big.Float {
	if !lnto(out, in) {
		panic(big.ErrNaN{})
	}
	return out
}

// lnto sets out to the natural logarithm of x at out's precision. It reports
// false without modifying out when x is negative.
func lnto(out, x *big.Float) bool {
	switch {
	case x.Sign() < 0:
		return false
	case x.Sign() == 0:
		out.SetInf(true)
	case x.IsInf():
		out.SetInf(false)
	case x.Cmp(one) == 0:
		out.SetInt64(0)
	default:
		w := widen(x, out.Prec())
		out.Set(bigfloat.Log(w, w))
	}
	return true
}

var ten = big.NewFloat(10)

// logfunc is log(x), the base-10 logarithm, or log(x, b), the base-b
// logarithm.
type logfunc struct{}

func (logfunc) CanCall(n int) bool {
	return n == 1 || n == 2
}

func (logfunc) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	base := ten
	if len(invoc) == 2 {
		base = invoc[1]
	}
	prec := ctx.Prec() + guardBits
	lx := new(big.Float).SetPrec(prec)
	lb := new(big.Float).SetPrec(prec)
	if !lnto(lx, invoc[0]) || !lnto(lb, base) {
		ctx.MarkNaN()
		r.SetInt64(0)
		return nil
	}
	r.SetPrec(ctx.Prec())
	ctx.binary(nodeDiv, lx, lb)
	r.Set(lx)
	return nil
}

func pi(out *big.Float) *big.Float {
	w := new(big.Float).SetPrec(out.Prec() + guardBits)
	return out.Set(bigfloat.Pi(w))
}

func euler(out *big.Float) *big.Float {
	w := new(big.Float).SetPrec(out.Prec() + guardBits).SetInt64(1)
	return out.Set(bigfloat.Exp(w, w))
}

// nan is the constant NaN.
type nan struct{}

func (nan) CanCall(n int) bool {
	return n == 0
}

func (nan) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	ctx.MarkNaN()
	r.SetInt64(0)
	return nil
}

type monadic struct {
	f func(out, in *big.Float) *big.Float
}

func (m monadic) Call(ctx *Context, invoc []*big.Float, r *big.Float) (err error) {
	in := invoc[0]
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if _, ok := x.(big.ErrNaN); !ok {
			panic(x)
		}
		ctx.MarkNaN()
		r.SetInt64(0)
	}()
	r.SetPrec(ctx.Prec())
	m.f(r, in)
	return nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result, to the precision of out; its return value is always ignored. If f
// is called on an argument outside its domain, it should panic with a
// big.ErrNaN, which makes the expression evaluate to NaN.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return monadic{f}
}

type niladic struct {
	f func(out *big.Float) *big.Float
}

func (n niladic) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	r.SetPrec(ctx.Prec())
	n.f(r)
	return nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func. f must set out to its result; its return
// value is always ignored. Unlike Monadic, the wrapped function is expected
// never to panic.
func Niladic(f func(out *big.Float) *big.Float) Func {
	return niladic{f}
}

type float64func struct {
	f func(float64) float64
}

func (m float64func) Call(ctx *Context, invoc []*big.Float, r *big.Float) error {
	x, _ := invoc[0].Float64()
	r.SetPrec(ctx.Prec())
	setFloat64(ctx, r, m.f(x))
	return nil
}

func (m float64func) CanCall(n int) bool {
	return n == 1
}

// Float64 wraps a function of one float64 variable into a Func. The argument
// is rounded to double precision, and a NaN result makes the expression NaN.
func Float64(f func(float64) float64) Func {
	return float64func{f}
}
