package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/kernel/bezpath"
	"github.com/chazu/kerf/pkg/toolpath"
	zygo "github.com/glycerine/zygomys/zygo"
	"honnef.co/go/curve"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms job source code before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: move-to -> move_to
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator).
//
//  3. ; line comments become // comments.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; a
		// minus operator is left alone.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a planar point.
type sexpVec2 struct {
	vec toolpath.Point
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpGeom wraps a geometry so it can be returned from `line`, `arc`, ...
// and consumed by `cut`, `travel` and `chain`.
type sexpGeom struct {
	geom toolpath.Geometry
}

func (g *sexpGeom) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", g.geom.Kind())
}
func (g *sexpGeom) Type() *zygo.RegisteredType { return nil }

type pathOp int

const (
	opMoveTo pathOp = iota
	opLineTo
	opQuadTo
	opCubicTo
	opClose
)

var pathOpNames = [...]string{"move-to", "line-to", "quad-to", "cubic-to", "close"}

// sexpPathElem is one element of a `path` form.
type sexpPathElem struct {
	op  pathOp
	pts []toolpath.Point
}

func (e *sexpPathElem) SexpString(ps *zygo.PrintState) string {
	return "(" + pathOpNames[e.op] + ")"
}
func (e *sexpPathElem) Type() *zygo.RegisteredType { return nil }

// sexpSegment is what `cut` and `travel` return.
type sexpSegment struct {
	seg toolpath.Segment
}

func (s *sexpSegment) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(segment %s %s)", s.seg.Kind(), s.seg.ID().Short())
}
func (s *sexpSegment) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: a flag.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// point returns the keyword argument kw, or else positional argument pos.
func (a kwArgs) point(kw string, pos int) (toolpath.Point, error) {
	if v, ok := a.kw[kw]; ok {
		return toVec2(v)
	}
	if pos < len(a.positional) {
		return toVec2(a.positional[pos])
	}
	return toolpath.Point{}, fmt.Errorf("missing %s", kw)
}

// float returns keyword argument kw, or def when absent.
func (a kwArgs) float(kw string, def float64) (float64, error) {
	if v, ok := a.kw[kw]; ok {
		return toFloat64(v)
	}
	return def, nil
}

// flag reports a boolean keyword argument; a bare trailing keyword is true.
func (a kwArgs) flag(kw string) (bool, error) {
	v, ok := a.kw[kw]
	if !ok {
		return false, nil
	}
	if v == zygo.SexpNull {
		return true, nil
	}
	if b, ok := v.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", v, v.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) (toolpath.Point, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return toolpath.Point{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

func toGeom(s zygo.Sexp) (toolpath.Geometry, error) {
	if g, ok := s.(*sexpGeom); ok {
		return g.geom, nil
	}
	return nil, fmt.Errorf("expected geometry, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Job state
// ---------------------------------------------------------------------------

// Motion defaults for forms that omit :feed, :power or :travel-feed.
const (
	DefaultFeed       = 1000.0
	DefaultPower      = 100.0
	DefaultTravelFeed = 3000.0
)

// jobBuilder collects the segments created during one evaluation.
type jobBuilder struct {
	segments   []toolpath.Segment
	feed       float64
	power      float64
	travelFeed float64
	layer      string
}

func newJobBuilder() *jobBuilder {
	return &jobBuilder{feed: DefaultFeed, power: DefaultPower, travelFeed: DefaultTravelFeed}
}

// segmentOptions reads :layer and :z.
func (b *jobBuilder) segmentOptions(pa kwArgs) ([]toolpath.Option, error) {
	layer := b.layer
	if v, ok := pa.kw["layer"]; ok {
		s, err := toString(v)
		if err != nil {
			return nil, fmt.Errorf("layer: %w", err)
		}
		layer = s
	}
	opts := []toolpath.Option{toolpath.WithLayer(layer)}
	if v, ok := pa.kw["z"]; ok {
		z, err := toFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("z: %w", err)
		}
		opts = append(opts, toolpath.WithHeight(z))
	}
	return opts, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the job DSL builtins into a zygomys
// environment. Segments are appended to b as `cut`, `travel` and `chain`
// run.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *jobBuilder) {

	// -----------------------------------------------------------------------
	// (vec2 1 2)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: toolpath.Point{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (line :from (vec2 0 0) :to (vec2 10 0))   or   (line a b)
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		from, err := pa.point("from", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		to, err := pa.point("to", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		return &sexpGeom{geom: toolpath.Line{Start: from, End: to}}, nil
	})

	// -----------------------------------------------------------------------
	// (arc :from a :to b :center c :cw true)
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		from, err := pa.point("from", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		to, err := pa.point("to", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		center, err := pa.point("center", 2)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		cw, err := pa.flag("cw")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: cw: %w", err)
		}
		return &sexpGeom{geom: toolpath.Arc{Start: from, End: to, Center: center, Clockwise: cw}}, nil
	})

	// -----------------------------------------------------------------------
	// (circle :center (vec2 50 50) :radius 10)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		center, err := pa.point("center", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		v, ok := pa.kw["radius"]
		if !ok && len(pa.positional) > 1 {
			v, ok = pa.positional[1], true
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("circle: missing radius")
		}
		r, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		return &sexpGeom{geom: toolpath.Circle{Center: center, Radius: r}}, nil
	})

	// -----------------------------------------------------------------------
	// (polyline p1 p2 p3 ...)   or   (polyline (list p1 p2 ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		items := args
		if len(args) == 1 {
			l, err := sexpListToSlice(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: %w", err)
			}
			items = l
		}
		pts := make([]toolpath.Point, 0, len(items))
		for i, item := range items {
			p, err := toVec2(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: point %d: %w", i, err)
			}
			pts = append(pts, p)
		}
		return &sexpGeom{geom: toolpath.Polyline{Points: pts}}, nil
	})

	// -----------------------------------------------------------------------
	// Path elements: (move-to p) (line-to p) (quad-to c p) (cubic-to c1 c2 p) (close)
	//
	// Registered with underscores; the preprocessor converts move-to to
	// move_to in the source.
	// -----------------------------------------------------------------------
	for op, want := range map[pathOp]int{opMoveTo: 1, opLineTo: 1, opQuadTo: 2, opCubicTo: 3, opClose: 0} {
		label := pathOpNames[op]
		env.AddFunction(strings.ReplaceAll(label, "-", "_"), func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != want {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly %d arguments, got %d", label, want, len(args))
			}
			e := &sexpPathElem{op: op}
			for i, a := range args {
				p, err := toVec2(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: point %d: %w", label, i, err)
				}
				e.pts = append(e.pts, p)
			}
			return e, nil
		})
	}

	// -----------------------------------------------------------------------
	// (path (move-to a) (line-to b) (cubic-to c1 c2 d) (close))
	// -----------------------------------------------------------------------
	env.AddFunction("path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var p curve.BezPath
		for i, a := range args {
			e, ok := a.(*sexpPathElem)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("path: element %d: expected path element, got %T (%s)",
					i, a, a.SexpString(nil))
			}
			cp := make([]curve.Point, len(e.pts))
			for k, q := range e.pts {
				cp[k] = curve.Pt(q.X, q.Y)
			}
			switch e.op {
			case opMoveTo:
				p.MoveTo(cp[0])
			case opLineTo:
				p.LineTo(cp[0])
			case opQuadTo:
				p.QuadTo(cp[0], cp[1])
			case opCubicTo:
				p.CubicTo(cp[0], cp[1], cp[2])
			case opClose:
				p.ClosePath()
			}
		}
		c := bezpath.New(p)
		if !c.Valid() {
			return zygo.SexpNull, fmt.Errorf("path: expected one move-to followed by at least one drawing element")
		}
		return &sexpGeom{geom: toolpath.Freeform{Curve: c}}, nil
	})

	// -----------------------------------------------------------------------
	// (defaults :feed 1200 :power 60 :travel-feed 3000 :layer "cut")
	// -----------------------------------------------------------------------
	env.AddFunction("defaults", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var err error
		if b.feed, err = pa.float("feed", b.feed); err != nil {
			return zygo.SexpNull, fmt.Errorf("defaults: feed: %w", err)
		}
		if b.power, err = pa.float("power", b.power); err != nil {
			return zygo.SexpNull, fmt.Errorf("defaults: power: %w", err)
		}
		if b.travelFeed, err = pa.float("travel-feed", b.travelFeed); err != nil {
			return zygo.SexpNull, fmt.Errorf("defaults: travel-feed: %w", err)
		}
		if v, ok := pa.kw["layer"]; ok {
			if b.layer, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("defaults: layer: %w", err)
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (cut geom :feed 100 :power 50 :layer "outline" :z 1.5)
	// (travel geom :feed 3000)
	// -----------------------------------------------------------------------
	segment := func(label string, travel bool) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires one geometry argument", label)
			}
			g, err := toGeom(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			feed, power := b.feed, b.power
			if travel {
				feed, power = b.travelFeed, 0
			}
			if feed, err = pa.float("feed", feed); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: feed: %w", label, err)
			}
			if !travel {
				if power, err = pa.float("power", power); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: power: %w", label, err)
				}
			}
			opts, err := b.segmentOptions(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			if travel {
				opts = append(opts, toolpath.AsTravel())
			}

			s, err := toolpath.NewSegment(g, feed, power, opts...)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			b.segments = append(b.segments, s)
			return &sexpSegment{seg: s}, nil
		}
	}
	env.AddFunction("cut", segment("cut", false))
	env.AddFunction("travel", segment("travel", true))

	// -----------------------------------------------------------------------
	// (chain (list g1 g2 ...) :feed 100 :power 50 :travel-feed 3000 :gap 0.1)
	// -----------------------------------------------------------------------
	env.AddFunction("chain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("chain requires a list of geometries")
		}
		items, err := sexpListToSlice(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("chain: %w", err)
		}
		geoms := make([]toolpath.Geometry, 0, len(items))
		for i, item := range items {
			g, err := toGeom(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: element %d: %w", i, err)
			}
			geoms = append(geoms, g)
		}

		p := toolpath.ChainParams{Layer: b.layer}
		for _, f := range []struct {
			kw  string
			dst *float64
			def float64
		}{
			{"feed", &p.Feed, b.feed},
			{"power", &p.Power, b.power},
			{"travel-feed", &p.TravelFeed, b.travelFeed},
			{"gap", &p.Gap, toolpath.ChainGap},
		} {
			if *f.dst, err = pa.float(f.kw, f.def); err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: %s: %w", f.kw, err)
			}
		}
		if v, ok := pa.kw["layer"]; ok {
			if p.Layer, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("chain: layer: %w", err)
			}
		}

		segs, err := toolpath.Chain(geoms, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("chain: %w", err)
		}
		b.segments = append(b.segments, segs...)
		return &zygo.SexpInt{Val: int64(len(segs))}, nil
	})
}
