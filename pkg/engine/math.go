package engine

import (
	"fmt"
	"math"

	zygo "github.com/glycerine/zygomys/zygo"
)

// mathPrelude is prepended to every script on the same line, so line
// numbers in errors are unchanged.
const mathPrelude = "(def pi 3.141592653589793) "

var unaryMath = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"sqrt":  math.Sqrt,
	"abs":   math.Abs,
	"floor": math.Floor,
	"exp":   math.Exp,
}

// registerMath installs float math functions. zygomys arithmetic covers
// + - * / but not these.
func registerMath(env *zygo.Zlisp) {
	for name, fn := range unaryMath {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
			}
			x, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpFloat{Val: fn(x)}, nil
		})
	}

	env.AddFunction("pow", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("pow requires exactly 2 arguments, got %d", len(args))
		}
		xs, err := toFloats(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pow: %w", err)
		}
		return &zygo.SexpFloat{Val: math.Pow(xs[0], xs[1])}, nil
	})

	extreme := func(pick func(a, b float64) float64) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) == 0 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 1 argument", name)
			}
			xs, err := toFloats(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			m := xs[0]
			for _, x := range xs[1:] {
				m = pick(m, x)
			}
			return &zygo.SexpFloat{Val: m}, nil
		}
	}
	env.AddFunction("min", extreme(math.Min))
	env.AddFunction("max", extreme(math.Max))
}

func toFloats(args []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
