// Package bezpath implements the kernel.Kernel interface using the
// honnef.co/go/curve Bézier path library.
package bezpath

import (
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"honnef.co/go/curve"
)

// Compile-time interface checks.
var (
	_ kernel.Kernel = (*Kernel)(nil)
	_ kernel.Curve  = (*Curve)(nil)
)

// DefaultAccuracy is the arc-length accuracy used when none is configured.
const DefaultAccuracy = 1e-6

// Curve wraps a curve.BezPath to implement kernel.Curve.
// The path is copied on construction and never modified afterwards.
type Curve struct {
	path     curve.BezPath
	segments []curve.PathSegment
	lengths  []float64
	length   float64
}

// New returns a Curve for p.
func New(p curve.BezPath) *Curve {
	c := &Curve{path: slices.Clone(p)}
	if !validPath(c.path) {
		return c
	}
	c.segments = slices.Collect(c.path.Segments())
	c.lengths = make([]float64, len(c.segments))
	for i, seg := range c.segments {
		c.lengths[i] = seg.Arclen(DefaultAccuracy)
		c.length += c.lengths[i]
	}
	return c
}

// Path returns a copy of the underlying path.
func (c *Curve) Path() curve.BezPath {
	return slices.Clone(c.path)
}

// Start returns the first point of the curve.
func (c *Curve) Start() v2.Vec {
	if len(c.segments) == 0 {
		if len(c.path) > 0 {
			return fromPoint(c.path[0].P0)
		}
		return v2.Vec{}
	}
	return fromPoint(c.segments[0].Start())
}

// End returns the last point of the curve.
func (c *Curve) End() v2.Vec {
	if len(c.segments) == 0 {
		return c.Start()
	}
	return fromPoint(c.segments[len(c.segments)-1].End())
}

// Bounds returns the tight bounding box of the curve.
func (c *Curve) Bounds() sdf.Box2 {
	if len(c.segments) == 0 {
		p := c.Start()
		return sdf.Box2{Min: p, Max: p}
	}
	r := curve.SegmentsBoundingBox(slices.Values(c.segments))
	return sdf.Box2{
		Min: v2.Vec{X: r.MinX(), Y: r.MinY()},
		Max: v2.Vec{X: r.MaxX(), Y: r.MaxY()},
	}
}

// Length returns the arc length of the curve.
func (c *Curve) Length() float64 {
	return c.length
}

// Valid reports whether the curve is a single finite subpath with at least
// one segment of non-zero length.
func (c *Curve) Valid() bool {
	return len(c.segments) > 0 && c.length > 0 && !math.IsInf(c.length, 0) && !math.IsNaN(c.length)
}

// validPath reports whether p starts with its only MoveTo and holds no
// NaN or Inf coordinates.
func validPath(p curve.BezPath) bool {
	if len(p) == 0 || p[0].Kind != curve.MoveToKind {
		return false
	}
	if p.IsNaN() || p.IsInf() || !p.HasSegments() {
		return false
	}
	for _, el := range p[1:] {
		if el.Kind == curve.MoveToKind {
			return false
		}
	}
	return true
}

func fromPoint(p curve.Point) v2.Vec {
	return v2.Vec{X: p.X, Y: p.Y}
}

// Kernel implements kernel.Kernel for *Curve handles.
type Kernel struct {
	// Accuracy bounds the arc-length error when sampling.
	Accuracy float64
}

// NewKernel returns a Kernel using DefaultAccuracy.
func NewKernel() *Kernel {
	return &Kernel{Accuracy: DefaultAccuracy}
}

func (k *Kernel) accuracy() float64 {
	if k.Accuracy > 0 {
		return k.Accuracy
	}
	return DefaultAccuracy
}

// unwrap extracts the *Curve from a kernel.Curve.
func unwrap(c kernel.Curve) (*Curve, error) {
	bc, ok := c.(*Curve)
	if !ok || bc == nil {
		return nil, kernel.ErrUnsupportedCurve
	}
	return bc, nil
}

// Simplify succeeds only for paths built entirely from straight lines.
// Collinear vertices within tol of the chord are dropped.
func (k *Kernel) Simplify(c kernel.Curve, tol float64) ([]v2.Vec, error) {
	if !(tol > 0) {
		return nil, kernel.ErrBadTolerance
	}
	bc, err := unwrap(c)
	if err != nil {
		return nil, err
	}
	if !bc.Valid() {
		return nil, kernel.ErrNotPolyline
	}
	pts := make([]v2.Vec, 0, len(bc.segments)+1)
	pts = append(pts, bc.Start())
	for _, seg := range bc.segments {
		if seg.Kind != curve.LineKind {
			return nil, kernel.ErrNotPolyline
		}
		pts = append(pts, fromPoint(seg.End()))
	}
	return reduce(pts, tol), nil
}

// Sample walks the curve by arc length. The spacing is adjusted so the
// samples divide the total length evenly.
func (k *Kernel) Sample(c kernel.Curve, spacing float64) ([]v2.Vec, error) {
	if !(spacing > 0) {
		return nil, kernel.ErrBadTolerance
	}
	bc, err := unwrap(c)
	if err != nil {
		return nil, err
	}
	if !bc.Valid() {
		return nil, nil
	}

	n := kernel.SampleCount(bc.length, spacing)
	step := bc.length / float64(n)
	acc := k.accuracy()

	pts := make([]v2.Vec, 0, n+1)
	pts = append(pts, bc.Start())
	seg, offset := 0, 0.0
	for i := 1; i < n; i++ {
		target := step * float64(i)
		for seg < len(bc.segments)-1 && offset+bc.lengths[seg] < target {
			offset += bc.lengths[seg]
			seg++
		}
		s := bc.segments[seg]
		t := s.SolveForArclen(target-offset, acc)
		pts = append(pts, fromPoint(s.Eval(t)))
	}
	pts = append(pts, bc.End())
	return pts, nil
}

// reduce applies Ramer-Douglas-Peucker to pts, keeping both ends.
func reduce(pts []v2.Vec, tol float64) []v2.Vec {
	if len(pts) < 3 {
		return pts
	}
	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true
	rdp(pts, 0, len(pts)-1, tol, keep)

	out := make([]v2.Vec, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func rdp(pts []v2.Vec, first, last int, tol float64, keep []bool) {
	if last-first < 2 {
		return
	}
	idx, dmax := -1, 0.0
	for i := first + 1; i < last; i++ {
		if d := chordDistance(pts[i], pts[first], pts[last]); d > dmax {
			idx, dmax = i, d
		}
	}
	if idx < 0 || dmax <= tol {
		return
	}
	keep[idx] = true
	rdp(pts, first, idx, tol, keep)
	rdp(pts, idx, last, tol, keep)
}

// chordDistance is the distance from p to the segment a-b.
func chordDistance(p, a, b v2.Vec) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.MulScalar(t))).Length()
}
