package toolpath

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"
)

// SegmentID is a content-addressed identifier for a segment. Two segments
// with identical geometry and parameters share an ID. Reversal keeps it.
type SegmentID uuid.UUID

func (id SegmentID) String() string { return uuid.UUID(id).String() }

// Short returns the first eight hex digits, for messages.
func (id SegmentID) Short() string { return id.String()[:8] }

var segmentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/kerf/segment"))

// Segment is one cut or travel move. Construct it with NewSegment; the
// zero value is an invalid segment.
type Segment struct {
	geom       Geometry
	feed       float64
	power      float64
	layer      string
	height     float64
	hasHeight  bool
	toolActive bool
	reversed   bool

	// Derived from geom, recomputed by derive.
	id        SegmentID
	start     Point
	end       Point
	center    Point
	radius    float64
	direction Direction
	sweep     float64
	native    bool
	length    float64
	bounds    sdf.Box2
}

// Option configures optional Segment fields.
type Option func(*Segment)

// WithLayer tags the segment with a layer name.
func WithLayer(name string) Option {
	return func(s *Segment) { s.layer = name }
}

// WithHeight sets an explicit Z height for the segment.
func WithHeight(z float64) Option {
	return func(s *Segment) {
		s.height = z
		s.hasHeight = true
	}
}

// AsTravel marks the segment as a non-cutting move.
func AsTravel() Option {
	return func(s *Segment) { s.toolActive = false }
}

// NewSegment validates g and the motion parameters and returns a segment
// with its derived fields computed. Errors wrap ErrInvalidGeometry or
// ErrInvalidParameter.
func NewSegment(g Geometry, feed, power float64, opts ...Option) (Segment, error) {
	s := Segment{geom: g, feed: feed, power: power, toolActive: true}
	for _, opt := range opts {
		opt(&s)
	}
	if err := s.derive(); err != nil {
		return Segment{}, err
	}
	return s, nil
}

// Validate re-checks the segment. It fails for the zero value.
func (s Segment) Validate() error {
	return s.derive()
}

func (s Segment) Geometry() Geometry { return s.geom }
func (s Segment) Feed() float64      { return s.feed }
func (s Segment) Power() float64     { return s.power }
func (s Segment) Layer() string      { return s.layer }
func (s Segment) ToolActive() bool   { return s.toolActive }
func (s Segment) Reversed() bool     { return s.reversed }
func (s Segment) ID() SegmentID      { return s.id }

// Height returns the explicit Z override, if any.
func (s Segment) Height() (float64, bool) { return s.height, s.hasHeight }

// Kind returns the geometry kind.
func (s Segment) Kind() Kind {
	if s.geom == nil {
		return Kind(-1)
	}
	return s.geom.Kind()
}

// Start and End are the endpoints in traversal order.
func (s Segment) Start() Point { return s.start }
func (s Segment) End() Point   { return s.end }

// Center returns the center of an arc or circle.
func (s Segment) Center() Point { return s.center }

// Radius returns the radius of an arc or circle.
func (s Segment) Radius() float64 { return s.radius }

// Direction returns the rotation sense of an arc or circle in traversal
// order. Other kinds report Undetermined.
func (s Segment) Direction() Direction { return s.direction }

// Sweep returns the signed angle swept by an arc or circle, positive
// counterclockwise.
func (s Segment) Sweep() float64 { return s.sweep }

// Offset returns the I/J vector from the traversal start to the center.
func (s Segment) Offset() Point { return s.center.Sub(s.start) }

// Native reports whether an arc or circle can be emitted as a single arc
// move in the direction returned by ResolveDirection.
func (s Segment) Native() bool { return s.native }

// Length returns the path length of the geometry.
func (s Segment) Length() float64 { return s.length }

// Bounds returns the extent of the geometry.
func (s Segment) Bounds() sdf.Box2 { return s.bounds }

// Vertices returns the points of a line or polyline in traversal order.
// Other kinds return nil.
func (s Segment) Vertices() []Point {
	var pts []Point
	switch g := s.geom.(type) {
	case Line:
		pts = []Point{g.Start, g.End}
	case Polyline:
		pts = slices.Clone(g.Points)
	default:
		return nil
	}
	if s.reversed {
		slices.Reverse(pts)
	}
	return pts
}

// Reverse returns a copy of s that is traversed end to start. The
// geometry value is shared with s; only the derived fields change.
func (s Segment) Reverse() Segment {
	r := s
	r.reversed = !s.reversed
	if err := r.derive(); err != nil {
		// derive already succeeded for s and reversal does not change
		// validity.
		panic(fmt.Sprintf("toolpath: reverse of valid segment failed: %v", err))
	}
	return r
}

// derive validates the segment and recomputes every derived field.
func (s *Segment) derive() error {
	if err := s.checkParameters(); err != nil {
		return err
	}

	s.center, s.radius, s.direction, s.sweep, s.native = Point{}, 0, Undetermined, 0, false

	switch g := s.geom.(type) {
	case nil:
		return invalidGeometry("segment has no geometry")

	case Line:
		if !finite(g.Start) || !finite(g.End) {
			return invalidGeometry("line has non-finite coordinates")
		}
		if g.End.Sub(g.Start).Length() <= DegenerateTolerance {
			return invalidGeometry("line start equals end")
		}
		s.start, s.end = g.Start, g.End
		if s.reversed {
			s.start, s.end = g.End, g.Start
		}
		s.length = g.End.Sub(g.Start).Length()
		s.bounds = boxOf(g.Start, g.End)

	case Arc:
		if !finite(g.Start) || !finite(g.End) || !finite(g.Center) {
			return invalidGeometry("arc has non-finite coordinates")
		}
		r := g.Start.Sub(g.Center).Length()
		if r <= DegenerateTolerance {
			return invalidGeometry("arc radius must be positive")
		}
		if math.Abs(g.End.Sub(g.Center).Length()-r) > RadiusTolerance*math.Max(1, r) {
			return invalidGeometry("arc endpoints are not equidistant from the center")
		}
		if g.End.Sub(g.Start).Length() <= DegenerateTolerance {
			return invalidGeometry("arc start equals end, use a circle")
		}
		declared := CounterClockwise
		if g.Clockwise {
			declared = Clockwise
		}
		resolved := ResolveDirection(g.Center, g.Start, g.End)
		s.center, s.radius = g.Center, r
		s.direction = declared
		s.native = resolved == Undetermined || resolved == declared
		s.sweep = sweep(g.Center, g.Start, g.End, declared)
		s.start, s.end = g.Start, g.End
		if s.reversed {
			s.start, s.end = g.End, g.Start
			s.direction = declared.Opposite()
			s.sweep = -s.sweep
		}
		s.length = r * math.Abs(s.sweep)
		s.bounds = arcBounds(g.Center, r, g.Start, g.End, sweep(g.Center, g.Start, g.End, declared))

	case Circle:
		if !finite(g.Center) || math.IsNaN(g.Radius) || math.IsInf(g.Radius, 0) {
			return invalidGeometry("circle has non-finite coordinates")
		}
		if g.Radius <= DegenerateTolerance {
			return invalidGeometry("circle radius must be positive")
		}
		p := CircleStart(g)
		s.start, s.end = p, p
		s.center, s.radius = g.Center, g.Radius
		s.direction = Clockwise
		s.sweep = -2 * math.Pi
		s.native = true
		s.length = 2 * math.Pi * g.Radius
		d := Point{X: g.Radius, Y: g.Radius}
		s.bounds = sdf.Box2{Min: g.Center.Sub(d), Max: g.Center.Add(d)}

	case Polyline:
		if len(g.Points) < 2 {
			return invalidGeometry("polyline needs at least two points")
		}
		length := 0.0
		for i, p := range g.Points {
			if !finite(p) {
				return invalidGeometry("polyline has non-finite coordinates")
			}
			if i > 0 {
				length += p.Sub(g.Points[i-1]).Length()
			}
		}
		if length <= DegenerateTolerance {
			return invalidGeometry("polyline has zero length")
		}
		s.start, s.end = g.Points[0], g.Points[len(g.Points)-1]
		if s.reversed {
			s.start, s.end = s.end, s.start
		}
		s.length = length
		s.bounds = boxOf(g.Points...)

	case Freeform:
		if g.Curve == nil || !g.Curve.Valid() {
			return invalidGeometry("freeform curve is empty or non-finite")
		}
		s.start, s.end = g.Curve.Start(), g.Curve.End()
		if s.reversed {
			s.start, s.end = s.end, s.start
		}
		s.length = g.Curve.Length()
		s.bounds = g.Curve.Bounds()

	default:
		return invalidGeometry(fmt.Sprintf("unknown geometry %T", g))
	}
	if math.IsInf(s.length, 0) || math.IsNaN(s.length) {
		return invalidGeometry("length overflows")
	}

	s.id = s.contentID()
	return nil
}

func (s *Segment) checkParameters() error {
	if math.IsNaN(s.feed) || math.IsInf(s.feed, 0) || s.feed <= 0 {
		return fmt.Errorf("%w: feed rate %v must be positive", ErrInvalidParameter, s.feed)
	}
	if math.IsNaN(s.power) || s.power < 0 || s.power > MaxPower {
		return fmt.Errorf("%w: power %v outside [0, %v]", ErrInvalidParameter, s.power, MaxPower)
	}
	if s.hasHeight && (math.IsNaN(s.height) || math.IsInf(s.height, 0)) {
		return fmt.Errorf("%w: height %v is not finite", ErrInvalidParameter, s.height)
	}
	return nil
}

// contentID hashes the geometry and parameters. The traversal direction
// is excluded.
func (s *Segment) contentID() SegmentID {
	var b strings.Builder
	b.WriteString(s.geom.Kind().String())
	writePoint := func(p Point) {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	switch g := s.geom.(type) {
	case Line:
		writePoint(g.Start)
		writePoint(g.End)
	case Arc:
		writePoint(g.Start)
		writePoint(g.End)
		writePoint(g.Center)
		b.WriteString("|" + strconv.FormatBool(g.Clockwise))
	case Circle:
		writePoint(g.Center)
		b.WriteString("|" + strconv.FormatFloat(g.Radius, 'g', -1, 64))
	case Polyline:
		for _, p := range g.Points {
			writePoint(p)
		}
	case Freeform:
		writePoint(g.Curve.Start())
		writePoint(g.Curve.End())
		writePoint(s.bounds.Min)
		writePoint(s.bounds.Max)
		b.WriteString("|" + strconv.FormatFloat(g.Curve.Length(), 'g', -1, 64))
	}
	fmt.Fprintf(&b, "|f=%g|p=%g|l=%s|t=%t", s.feed, s.power, s.layer, s.toolActive)
	if s.hasHeight {
		fmt.Fprintf(&b, "|z=%g", s.height)
	}
	return SegmentID(uuid.NewSHA1(segmentNamespace, []byte(b.String())))
}
