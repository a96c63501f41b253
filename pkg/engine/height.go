package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/kerf/pkg/toolpath"
	zygo "github.com/glycerine/zygomys/zygo"
)

// heightRecycle bounds how many calls share one sandbox. zygomys appends
// the code of every load to the environment's main function.
const heightRecycle = 2048

// heightExpr evaluates z = f(x, y, l) for one expression.
type heightExpr struct {
	mu    sync.Mutex
	expr  string
	env   *zygo.Zlisp
	calls int
}

// NewHeightFunc compiles a height expression over x, y and l (length
// along the curve), for example "(* 0.5 (sin l))". The math builtins and
// pi are available. The expression is checked by evaluating it once at
// the origin.
//
// The returned function serializes calls and is safe for concurrent use.
func NewHeightFunc(expr string) (toolpath.HeightFunc, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty height expression")
	}
	h := &heightExpr{expr: preprocessSource(expr)}
	if err := h.reset(); err != nil {
		return nil, err
	}
	if _, err := h.eval(0, 0, 0); err != nil {
		return nil, err
	}
	return h.eval, nil
}

func (h *heightExpr) reset() error {
	if h.env != nil {
		h.env.Stop()
	}
	h.env = zygo.NewZlispSandbox()
	h.calls = 0
	registerMath(h.env)

	def := mathPrelude + "(defn kerf_height [x y l] " + h.expr + "\n)"
	if err := h.env.LoadString(def); err != nil {
		return parseZygomysError(err)[0]
	}
	if _, err := h.env.Run(); err != nil {
		return parseZygomysError(err)[0]
	}
	return nil
}

func (h *heightExpr) eval(x, y, l float64) (float64, error) {
	if !finite(x) || !finite(y) || !finite(l) {
		return 0, fmt.Errorf("height expression: non-finite input (%g, %g, %g)", x, y, l)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.calls >= heightRecycle {
		if err := h.reset(); err != nil {
			return 0, err
		}
	}
	h.calls++

	call := "(kerf_height " + literal(x) + " " + literal(y) + " " + literal(l) + ")"
	if err := h.env.LoadString(call); err != nil {
		return 0, parseZygomysError(err)[0]
	}
	res, err := h.env.Run()
	if err != nil {
		return 0, parseZygomysError(err)[0]
	}

	z, err := toFloat64(res)
	if err != nil {
		return 0, fmt.Errorf("height expression: %w", err)
	}
	if !finite(z) {
		return 0, fmt.Errorf("height expression returned %v at (%g, %g, %g)", z, x, y, l)
	}
	return z, nil
}

// literal renders v as a zygomys float expression.
func literal(v float64) string {
	if v < 0 {
		return "(- 0.0 " + literal(-v) + ")"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
