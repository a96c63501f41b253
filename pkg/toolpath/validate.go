package toolpath

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
)

var (
	// ErrInvalidGeometry is returned for degenerate or non-finite geometry.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidParameter is returned for out-of-range feed, power or height.
	ErrInvalidParameter = errors.New("invalid segment parameter")
)

const (
	// DegenerateTolerance is the length below which lines, radii and
	// polylines count as zero.
	DegenerateTolerance = 1e-9

	// RadiusTolerance is the relative mismatch allowed between an arc's
	// start and end radii.
	RadiusTolerance = 1e-6

	// MaxPower is the upper bound of the power scale.
	MaxPower = 100.0
)

func invalidGeometry(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, msg)
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// boxOf returns the smallest box holding pts.
func boxOf(pts ...Point) sdf.Box2 {
	b := sdf.Box2{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// arcBounds adds to the endpoint box every axis extreme the arc passes.
func arcBounds(center Point, r float64, start, end Point, sw float64) sdf.Box2 {
	pts := []Point{start, end}
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	for q := 0; q < 4; q++ {
		theta := float64(q) * math.Pi / 2
		var delta float64
		if sw >= 0 {
			delta = math.Mod(theta-a0+4*math.Pi, 2*math.Pi)
		} else {
			delta = math.Mod(a0-theta+4*math.Pi, 2*math.Pi)
		}
		if delta <= math.Abs(sw) {
			pts = append(pts, Point{X: center.X + r*math.Cos(theta), Y: center.Y + r*math.Sin(theta)})
		}
	}
	return boxOf(pts...)
}

// CircleStart returns the start and end point of a full circle: the point
// at angle π.
func CircleStart(c Circle) Point {
	return Point{X: c.Center.X - c.Radius, Y: c.Center.Y}
}

// ArcPoints samples an arc or circle in traversal order with chords of at
// most spacing along the curve, and at least one point per quarter turn.
// Other kinds return nil.
func (s Segment) ArcPoints(spacing float64) []Point {
	if s.Kind() != KindArc && s.Kind() != KindCircle {
		return nil
	}
	n := kernel.SampleCount(s.length, spacing)
	if q := int(math.Ceil(math.Abs(s.sweep) / (math.Pi / 2))); n < q {
		n = q
	}
	a0 := math.Atan2(s.start.Y-s.center.Y, s.start.X-s.center.X)
	pts := make([]Point, n+1)
	pts[0] = s.start
	for i := 1; i < n; i++ {
		a := a0 + s.sweep*float64(i)/float64(n)
		pts[i] = Point{X: s.center.X + s.radius*math.Cos(a), Y: s.center.Y + s.radius*math.Sin(a)}
	}
	pts[n] = s.end
	return pts
}
