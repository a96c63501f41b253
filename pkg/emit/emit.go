// Package emit converts toolpath segments into machine instruction lines.
//
// Each segment is expressed with the first representation that works, in
// this order: native line, native arc, native full circle, polyline
// simplification, uniform sampling. Cutting segments are bracketed with
// the profile's tool-on and tool-off commands.
package emit

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/machine"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/units"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrFallbackExhausted is returned when no representation produced a
	// usable point sequence for a segment.
	ErrFallbackExhausted = errors.New("no representation produced any point")

	// ErrHeight is returned when the height function fails.
	ErrHeight = errors.New("height function failed")
)

// positionTolerance is the distance under which the tool already sits at
// a segment's start and no positioning move is needed.
const positionTolerance = 1e-9

// DefaultTolerance is the simplification and sampling tolerance used when
// Config.Tolerance is not a positive finite number.
const DefaultTolerance = 0.1

// Method records which representation expressed a segment.
type Method int

const (
	MethodLine Method = iota
	MethodArc
	MethodCircle
	MethodSimplified
	MethodSampled
)

func (m Method) String() string {
	switch m {
	case MethodLine:
		return "line"
	case MethodArc:
		return "arc"
	case MethodCircle:
		return "circle"
	case MethodSimplified:
		return "simplified"
	case MethodSampled:
		return "sampled"
	default:
		return "unknown"
	}
}

// Config holds everything an Emitter needs. Mode is threaded into every
// formatted number; there is no other source of unit state.
type Config struct {
	Profile   machine.Profile
	Kernel    kernel.Kernel // required for freeform segments
	Mode      units.Mode
	Tolerance float64

	// IncludeZ emits a height-set move at the start of each segment.
	IncludeZ bool
	DefaultZ float64

	// Height supplies the start height of segments without an explicit
	// one. With DynamicHeight, polyline and sampled moves also carry
	// z = Height(x, y, l) through the profile's LinearMoveZ template.
	Height        toolpath.HeightFunc
	DynamicHeight bool
}

// Block is the output for one segment.
type Block struct {
	Lines  []string
	Points []v3.Vec // millimeters, in traversal order
	Method Method
}

// Emitter writes instruction lines for a sequence of segments. It tracks
// the tool position so positioning moves are only emitted when needed.
// An Emitter is not safe for concurrent use.
type Emitter struct {
	cfg Config
	tol float64
	pos toolpath.Point
}

// New returns an Emitter positioned at the origin.
func New(cfg Config) *Emitter {
	tol := cfg.Tolerance
	if !(tol > 0) || math.IsInf(tol, 1) {
		tol = DefaultTolerance
	}
	return &Emitter{cfg: cfg, tol: tol}
}

// Position returns the current tool position in millimeters.
func (e *Emitter) Position() toolpath.Point { return e.pos }

// Header returns the unit selection, absolute positioning and profile
// header lines.
func (e *Emitter) Header() []string {
	lines := []string{e.cfg.Mode.Code(), "G90"}
	return append(lines, machine.Lines(e.cfg.Profile.Header)...)
}

// Footer returns the optional return-to-origin move, the end-of-program
// marker and the profile footer lines.
func (e *Emitter) Footer(returnToOrigin bool) []string {
	var lines []string
	if returnToOrigin {
		if l := e.rapid(toolpath.Point{}); l != "" {
			lines = append(lines, l)
		}
		e.pos = toolpath.Point{}
	}
	lines = append(lines, "M2")
	return append(lines, machine.Lines(e.cfg.Profile.Footer)...)
}

// Segment emits one segment. On error nothing is emitted and the tool
// position is unchanged.
func (e *Emitter) Segment(s toolpath.Segment) (Block, error) {
	z, err := e.startHeight(s)
	if err != nil {
		return Block{}, err
	}

	b := &builder{e: e, seg: s, z: z, pos: e.pos}
	if e.cfg.IncludeZ {
		b.emit(machine.Render(e.cfg.Profile.HeightMove,
			machine.Values{"z": coord(z, e.cfg.Mode)}, coord(z, e.cfg.Mode)))
	}

	switch s.Kind() {
	case toolpath.KindLine:
		err = b.polyline(MethodLine, s.Vertices(), false)

	case toolpath.KindArc:
		if e.cfg.Profile.SupportsArcs && s.Native() {
			b.arc(MethodArc)
		} else {
			err = b.polyline(MethodSampled, s.ArcPoints(e.tol), true)
		}

	case toolpath.KindCircle:
		if e.cfg.Profile.SupportsArcs {
			b.arc(MethodCircle)
		} else {
			err = b.polyline(MethodSampled, s.ArcPoints(e.tol), true)
		}

	case toolpath.KindPolyline:
		err = b.polyline(MethodSimplified, s.Vertices(), true)

	case toolpath.KindFreeform:
		var pts []toolpath.Point
		var method Method
		pts, method, err = e.freeform(s)
		if err == nil {
			err = b.polyline(method, pts, true)
		}

	default:
		err = fmt.Errorf("%w: segment kind %v", ErrFallbackExhausted, s.Kind())
	}
	if err != nil {
		return Block{}, err
	}

	e.pos = b.pos
	return Block{Lines: b.lines, Points: b.points, Method: b.method}, nil
}

// freeform runs the simplification then sampling steps of the chain.
func (e *Emitter) freeform(s toolpath.Segment) ([]toolpath.Point, Method, error) {
	ff, ok := s.Geometry().(toolpath.Freeform)
	if !ok || e.cfg.Kernel == nil {
		return nil, 0, fmt.Errorf("%w: no curve kernel configured", ErrFallbackExhausted)
	}
	method := MethodSimplified
	pts, err := e.cfg.Kernel.Simplify(ff.Curve, e.tol)
	if err != nil || len(pts) < 2 {
		method = MethodSampled
		pts, err = e.cfg.Kernel.Sample(ff.Curve, e.tol)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrFallbackExhausted, err)
		}
	}
	if s.Reversed() {
		pts = slices.Clone(pts)
		slices.Reverse(pts)
	}
	return pts, method, nil
}

// startHeight resolves the Z of a segment's height-set move.
func (e *Emitter) startHeight(s toolpath.Segment) (float64, error) {
	if z, ok := s.Height(); ok {
		return z, nil
	}
	if e.cfg.Height != nil {
		p := s.Start()
		z, err := e.cfg.Height(p.X, p.Y, 0)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrHeight, err)
		}
		return z, nil
	}
	return e.cfg.DefaultZ, nil
}

func (e *Emitter) rapid(p toolpath.Point) string {
	x, y := coord(p.X, e.cfg.Mode), coord(p.Y, e.cfg.Mode)
	return machine.Render(e.cfg.Profile.RapidMove, machine.Values{"x": x, "y": y}, x, y)
}
