package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/calculette"
)

var (
	evalIn    string
	evalFmt   string
	evalGiven []string
	evalPrec  uint
	evalLines bool
	evalEcho  bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [expr...]",
	Short: "Evaluate expressions",
	Long: `Evaluate expressions given as arguments, read from a file, or read from
standard input when there are no arguments.

Results are formatted with --fmt, a fmt verb applied to *big.Float, or "js"
to format them the way the calculator displays them. An expression that fails
prints its error, and evaluation continues with the next one.`,
	Example: `  calculette eval '2^10' 'sqrt(2)'
  calculette eval --fmt js '0.1+0.2'
  calculette eval --given r=2 'PI r^2'
  calculette eval -n --in exprs.txt`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalIn, "in", "", "Input file, - for stdin (default stdin if no args given)")
	evalCmd.Flags().StringVar(&evalFmt, "fmt", "", `Result format: fmt verb or "js" (default from config, %g)`)
	evalCmd.Flags().StringArrayVar(&evalGiven, "given", nil, "name=value variable definition (any number of times)")
	evalCmd.Flags().UintVarP(&evalPrec, "prec", "p", 0, "Precision of calculations in bits (default from config, 53)")
	evalCmd.Flags().BoolVarP(&evalLines, "lines", "n", false, "Parse separate input lines as separate expressions")
	evalCmd.Flags().BoolVar(&evalEcho, "echo", false, "Print parse trees")
}

// evalOptions controls an evaluation batch.
type evalOptions struct {
	format string
	prec   uint
	given  []string
	lines  bool
	echo   bool
}

func runEval(cmd *cobra.Command, args []string) error {
	opts := evalOptions{
		format: cfg.Evaluator.Format,
		prec:   cfg.Evaluator.Prec,
		given:  evalGiven,
		lines:  evalLines,
		echo:   evalEcho,
	}
	if cmd.Flags().Changed("fmt") {
		opts.format = evalFmt
	}
	if cmd.Flags().Changed("prec") {
		opts.prec = evalPrec
	}

	var ins []io.Reader
	switch {
	case evalIn == "-", evalIn == "" && len(args) == 0:
		ins = append(ins, cmd.InOrStdin())
	case evalIn != "":
		f, err := os.Open(evalIn)
		if err != nil {
			return err
		}
		defer f.Close()
		ins = append(ins, f)
	}
	for _, arg := range args {
		ins = append(ins, strings.NewReader(arg))
	}

	log := newLogger(cmd.ErrOrStderr())
	n, failed, err := evalAll(cmd.OutOrStdout(), ins, opts)
	if err != nil {
		return err
	}
	log.Debug("evaluated", "expressions", n, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d expressions failed", failed, n)
	}
	return nil
}

// evalAll evaluates every expression in ins, writing one result per line to
// out. It returns the number of expressions and how many of them failed. The
// error is non-nil only for problems with the options or reading the input.
func evalAll(out io.Writer, ins []io.Reader, opts evalOptions) (n, failed int, err error) {
	if opts.prec == 0 {
		return 0, 0, errors.New("precision must be positive")
	}
	ctx := calculette.NewContext(calculette.Prec(opts.prec))
	for _, d := range opts.given {
		nm, vl, ok := strings.Cut(d, "=")
		if !ok {
			return 0, 0, fmt.Errorf(`variable definitions must be "name=value", not %q`, d)
		}
		nm, vl = strings.TrimSpace(nm), strings.TrimSpace(vl)
		r, err := calculette.EvalString(vl, calculette.Prec(opts.prec))
		if err != nil {
			return 0, 0, fmt.Errorf("setting %s: %w", nm, err)
		}
		if r == nil {
			return 0, 0, fmt.Errorf("setting %s: value is NaN", nm)
		}
		ctx.Set(nm, r)
	}

	emit := func(e *calculette.Expr, perr error) {
		n++
		if perr != nil {
			failed++
			fmt.Fprintln(out, perr)
			return
		}
		if opts.echo {
			fmt.Fprintf(out, "%v : ", e)
		}
		r := ctx.Evaluate(e)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintln(out, r.Err)
		case opts.format == "js" || r.NaN:
			fmt.Fprintln(out, r)
		default:
			fmt.Fprintf(out, opts.format+"\n", r.Value)
		}
	}

	for _, in := range ins {
		if opts.lines {
			sc := bufio.NewScanner(in)
			for sc.Scan() {
				line := sc.Text()
				if strings.TrimSpace(line) == "" {
					continue
				}
				e, err := calculette.ParseString(line)
				emit(e, err)
			}
			if err := sc.Err(); err != nil {
				return n, failed, err
			}
			continue
		}
		r := bufio.NewReader(in)
		// An empty input has no expressions.
		if _, err := r.Peek(1); errors.Is(err, io.EOF) {
			continue
		}
		e, err := calculette.Parse(r)
		emit(e, err)
	}
	return n, failed, nil
}
