package calculette_test

import (
	"math/big"
	"testing"

	"github.com/zephyrtronium/calculette"
)

func FuzzEval(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("1×2")
	f.Add("sin^2 x + cos^2 x")
	f.Add("log(8, 2)")
	f.Add("0/0")
	f.Fuzz(func(t *testing.T, s string) {
		calculette.EvalString(s, calculette.SetVar("x", new(big.Float)))
	})
}

func FuzzEvaluate(f *testing.F) {
	f.Add("2+2")
	f.Add("(")
	f.Add("PI(2)")
	f.Add("Infinity")
	f.Fuzz(func(t *testing.T, s string) {
		r := calculette.Evaluate(s)
		if r.String() == "" {
			t.Errorf("%q displays as empty", s)
		}
	})
}
