package calculette

import (
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zephyrtronium/bigfloat"
)

// DefaultPrec is the precision of a context created without the Prec option.
// It matches the significand of an IEEE-754 double.
const DefaultPrec = 53

// guardBits is the extra precision used inside transcendental functions so
// that results round correctly to the context precision.
const guardBits = 64

// maxIntPow is the magnitude beyond which integer exponents are no longer
// computed by repeated squaring.
const maxIntPow = 1 << 40

var one = big.NewFloat(1)

// Context is a context for evaluating expressions. It is not safe to use a
// Context concurrently.
type Context struct {
	stack []*big.Float
	nums  map[string]*big.Float
	names map[string]*big.Float
	prec  uint
	err   error
	nan   bool

	// double limits every value to the range of a float64.
	double bool
}

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	varopt struct {
		name string
		val  *big.Float
	}
	varsopt   map[string]*big.Float
	precopt   uint
	doubleopt struct{}
)

func (varopt) ctxOption()    {}
func (varsopt) ctxOption()   {}
func (precopt) ctxOption()   {}
func (doubleopt) ctxOption() {}

// SetVar sets the value of a variable in the context.
func SetVar(name string, val *big.Float) ContextOption {
	return varopt{name, val}
}

// SetVars sets the values of any number of variables in the context.
func SetVars(vars map[string]*big.Float) ContextOption {
	return varsopt(vars)
}

// Prec sets the precision of calculations in bits.
func Prec(prec uint) ContextOption {
	return precopt(prec)
}

// Float64Range limits every number in the context, including literals and
// intermediate results, to the exponent range of a float64. Values beyond it
// overflow to an infinity or underflow to zero, and values near zero lose
// precision as subnormals do. Combined with Prec(53), arithmetic behaves as
// IEEE-754 doubles.
func Float64Range() ContextOption {
	return doubleopt{}
}

// NewContext creates a new evaluation context. If no precision is given, the
// default is DefaultPrec.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{prec: DefaultPrec}
	return ctx.Clone(opts...)
}

// Eval evaluates an expression and returns the result. If an error occurs,
// e.g. a missing variable definition, then the result is nil and ctx.Err
// returns the error. If the result is not a number, as for 0/0, then the
// result is nil, ctx.Err returns nil, and ctx.IsNaN reports true.
func (ctx *Context) Eval(e *Expr) *big.Float {
	switch len(ctx.stack) {
	case 0: // do nothing
	case 1:
		// Leave the previous result to the caller.
		ctx.stack[0] = new(big.Float).SetPrec(ctx.prec)
		ctx.stack = ctx.stack[:0]
	default:
		panic("calculette: Eval during Eval")
	}
	ctx.nan = false
	ctx.err = e.n.eval(ctx)
	if ctx.err != nil {
		ctx.stack = ctx.stack[:0]
		return nil
	}
	return ctx.Result()
}

// Eval is a shortcut for ctx.Eval(e).
func (e *Expr) Eval(ctx *Context) *big.Float {
	return ctx.Eval(e)
}

// Result returns the result obtained after evaluating an expression. Returns
// nil if an error occurred during evaluation or the result is NaN. Panics if
// ctx has not been used to evaluate an expression.
func (ctx *Context) Result() *big.Float {
	if ctx.err != nil || ctx.nan {
		return nil
	}
	switch len(ctx.stack) {
	case 0:
		panic("calculette: Context.Result called before evaluating any expression")
	case 1:
		return ctx.stack[0]
	default:
		panic("calculette: inconsistent stack: " + strconv.Itoa(len(ctx.stack)) + " items (bad AST?)")
	}
}

// Err returns the error that occurred while evaluating the last expression
// with ctx, if any.
func (ctx *Context) Err() error {
	return ctx.err
}

// IsNaN reports whether the last expression evaluated with ctx produced NaN.
func (ctx *Context) IsNaN() bool {
	return ctx.err == nil && ctx.nan
}

// MarkNaN records that the expression being evaluated has no numeric value.
// NaN absorbs every later operation, so the whole expression evaluates to
// NaN. Funcs call this when they are applied outside their domain.
func (ctx *Context) MarkNaN() {
	ctx.nan = true
}

// Set sets the value of a variable. Returns ctx for chaining. Calling Set
// while the context is being used to evaluate an expression panics.
func (ctx *Context) Set(name string, value *big.Float) *Context {
	if len(ctx.stack) > 1 {
		panic("calculette: Set on in-use context")
	}
	if ctx.names == nil {
		ctx.names = make(map[string]*big.Float)
	}
	ctx.names[name] = new(big.Float).SetPrec(ctx.prec).Set(value)
	return ctx
}

// Lookup returns a copy of the value of a variable. If there is no such
// variable in the context, then the result is nil.
func (ctx *Context) Lookup(name string) *big.Float {
	v := ctx.names[name]
	if v == nil {
		return nil
	}
	return new(big.Float).Copy(v)
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Clone creates a copy of a context and applies options to it. The returned
// context has no Result and is safe to use to evaluate an expression.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		stack:  make([]*big.Float, 0, cap(ctx.stack)),
		nums:   make(map[string]*big.Float, len(ctx.nums)),
		names:  make(map[string]*big.Float, len(ctx.names)),
		prec:   ctx.prec,
		double: ctx.double,
	}
	// The last precision option wins, and it decides the precision of every
	// copied value.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(precopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Cached numbers are only reusable if they were parsed with at least the
	// precision we need.
	if n.prec <= ctx.prec {
		for k, v := range ctx.nums {
			n.nums[k] = new(big.Float).SetPrec(n.prec).Set(v)
		}
	}
	for name, val := range ctx.names {
		if n.prec == ctx.prec {
			// Set always replaces, so sharing is safe.
			n.names[name] = val
			continue
		}
		n.names[name] = new(big.Float).SetPrec(n.prec).Set(val)
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case nil, precopt:
			// Nothing to do.
		case doubleopt:
			n.double = true
		case varopt:
			n.names[opt.name] = new(big.Float).SetPrec(n.prec).Set(opt.val)
		case varsopt:
			for k, v := range opt {
				n.names[k] = new(big.Float).SetPrec(n.prec).Set(v)
			}
		default:
			panic("calculette: unknown option type")
		}
	}
	return &n
}

// push ensures a settable value on the stack.
func (ctx *Context) push() *big.Float {
	if len(ctx.stack) < cap(ctx.stack) {
		ctx.stack = ctx.stack[:len(ctx.stack)+1]
		if ctx.stack[len(ctx.stack)-1] == nil {
			ctx.stack[len(ctx.stack)-1] = new(big.Float).SetPrec(ctx.prec)
		}
	} else {
		ctx.stack = append(ctx.stack, new(big.Float).SetPrec(ctx.prec))
	}
	return ctx.stack[len(ctx.stack)-1]
}

// pop removes the top from the stack and returns it. The returned value may be
// modified by future node evaluations.
func (ctx *Context) pop() *big.Float {
	r := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return r
}

func (ctx *Context) top() *big.Float {
	return ctx.stack[len(ctx.stack)-1]
}

// num gets a possibly cached number from its text.
func (ctx *Context) num(s string) *big.Float {
	if r := ctx.nums[s]; r != nil {
		return r
	}
	src := s
	switch s {
	case "∞", "Infinity":
		src = "inf"
	}
	r, _, err := new(big.Float).SetPrec(ctx.prec).Parse(src, 10)
	switch {
	case err == nil: // do nothing
	case err.Error() == "exponent overflow",
		strings.HasSuffix(err.Error(), ": value out of range"):
		// There isn't realistically any better way to detect this error.
		// The lexer never produces signs outside the exponent, so the
		// exponent's sign decides between overflow and underflow.
		r = new(big.Float).SetPrec(ctx.prec)
		if !strings.Contains(s, "-") {
			r.SetInf(false)
		}
	default:
		panic("calculette: invalid number: " + s + " (" + err.Error() + ")")
	}
	ctx.nums[s] = r
	return r
}

// eval pushes the node's value to the context's stack.
func (n *node) eval(ctx *Context) error {
	switch n.kind {
	case nodeNum:
		ctx.clamp(ctx.push().Set(ctx.num(n.name)))
	case nodeName:
		v := ctx.names[n.name]
		if v == nil {
			return &NameError{Name: n.name}
		}
		ctx.clamp(ctx.push().Set(v))
	case nodeCall:
		r := ctx.push()
		k := len(ctx.stack)
		for a := n.right; a != nil; a = a.right {
			if err := a.left.eval(ctx); err != nil {
				return err
			}
		}
		invoc := ctx.stack[k:len(ctx.stack):len(ctx.stack)]
		if err := n.fn.Call(ctx, invoc, r); err != nil {
			return err
		}
		ctx.clamp(r)
		ctx.stack = ctx.stack[:k]
	case nodeArg:
		panic("calculette: eval on nodeArg")
	case nodeNeg:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		v := ctx.top()
		v.Neg(v)
	case nodeNop:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodeMod, nodePow:
		if err := n.left.eval(ctx); err != nil {
			return err
		}
		if err := n.right.eval(ctx); err != nil {
			return err
		}
		r := ctx.pop()
		l := ctx.top()
		ctx.binary(n.kind, l, r)
		ctx.clamp(l)
	default:
		panic("calculette: invalid AST node " + n.kind.String())
	}
	return nil
}

// binary sets l to the result of the binary operation kind on l and r.
// Operations that have no numeric value under IEEE rules, like 0/0 or
// Inf-Inf, mark the context NaN.
func (ctx *Context) binary(kind nodeKind, l, r *big.Float) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if _, ok := x.(big.ErrNaN); !ok {
			panic(x)
		}
		ctx.MarkNaN()
		l.SetInt64(0)
	}()
	switch kind {
	case nodeAdd:
		l.Add(l, r)
	case nodeSub:
		l.Sub(l, r)
	case nodeMul:
		l.Mul(l, r)
	case nodeDiv:
		l.Quo(l, r)
	case nodeMod:
		// Remainder truncates toward zero like JavaScript's %. Computing it
		// in float64 limits it to double precision.
		x, _ := l.Float64()
		y, _ := r.Float64()
		setFloat64(ctx, l, math.Mod(x, y))
	case nodePow:
		ctx.pow(l, l, r)
	default:
		panic("calculette: not a binary operator: " + kind.String())
	}
}

// clamp rounds x into the range of a float64 if the context requires it.
func (ctx *Context) clamp(x *big.Float) {
	if !ctx.double || x.IsInf() || x.Sign() == 0 {
		return
	}
	f, _ := x.Float64()
	x.SetFloat64(f)
}

// setFloat64 sets z to x, or marks ctx NaN if x is NaN.
func setFloat64(ctx *Context, z *big.Float, x float64) {
	if math.IsNaN(x) {
		ctx.MarkNaN()
		z.SetInt64(0)
		return
	}
	z.SetFloat64(x)
}

// pow sets z to x^y following the rules of IEEE pow. z may alias x.
func (ctx *Context) pow(z, x, y *big.Float) {
	if y.Sign() == 0 {
		z.SetInt64(1)
		return
	}
	neg := x.Sign() < 0
	// The sign of the result follows x for odd y, including for -0.
	signed := x.Signbit()
	if neg && !y.IsInt() && !y.IsInf() {
		ctx.MarkNaN()
		z.SetInt64(0)
		return
	}
	odd := isOddInt(y)
	ax := new(big.Float).Abs(x)
	switch {
	case y.IsInf() || y.MantExp(nil) > 40:
		// The magnitude of y decides everything except |x| = 1.
		switch c := ax.Cmp(one); {
		case c == 0 && y.IsInf():
			ctx.MarkNaN()
			z.SetInt64(0)
			return
		case c == 0:
			z.SetInt64(1)
		case (c > 0) == (y.Sign() > 0):
			z.SetInf(false)
		default:
			z.SetInt64(0)
		}
	case ax.IsInf():
		if y.Sign() > 0 {
			z.SetInf(false)
		} else {
			z.SetInt64(0)
		}
	case ax.Sign() == 0:
		if y.Sign() > 0 {
			z.SetInt64(0)
		} else {
			z.SetInf(false)
		}
	default:
		w := new(big.Float).SetPrec(z.Prec() + guardBits)
		if k, acc := y.Int64(); acc == big.Exact && -maxIntPow <= k && k <= maxIntPow {
			powint(w, ax, k)
		} else {
			w.Set(ax)
			bigfloat.Pow(w, w, new(big.Float).SetPrec(w.Prec()).Set(y))
		}
		z.Set(w)
	}
	if signed && odd {
		z.Neg(z)
	}
}

// powint sets z to x^k by repeated squaring at z's precision. x must be
// finite and nonzero.
func powint(z, x *big.Float, k int64) {
	inv := k < 0
	if inv {
		k = -k
	}
	b := new(big.Float).SetPrec(z.Prec()).Set(x)
	z.SetInt64(1)
	for k > 0 {
		if k&1 != 0 {
			z.Mul(z, b)
		}
		k >>= 1
		if k > 0 {
			b.Mul(b, b)
		}
	}
	if inv {
		z.Quo(one, z)
	}
}

// isOddInt reports whether y is an odd integer.
func isOddInt(y *big.Float) bool {
	if !y.IsInt() {
		return false
	}
	h := new(big.Float).SetMantExp(y, -1)
	return !h.IsInt()
}

// Eval is a shortcut to parse an expression and return its result using the
// default functions. A NaN result is nil with a nil error.
func Eval(src io.RuneScanner, opts ...ContextOption) (*big.Float, error) {
	ctx := NewContext(opts...)
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	r := ctx.Eval(a)
	return r, ctx.Err()
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	return Eval(strings.NewReader(src), opts...)
}

// NameError is an error from a lookup for a variable that is missing from the
// evaluation context.
type NameError struct {
	// Name is the name that was missing.
	Name string
}

func (err *NameError) Error() string {
	return "undefined variable: " + strconv.Quote(err.Name)
}
