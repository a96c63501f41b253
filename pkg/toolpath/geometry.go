package toolpath

import (
	"github.com/chazu/kerf/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Point is a planar coordinate in millimeters.
type Point = v2.Vec

// Kind enumerates the structural kinds of segment geometry.
type Kind int

const (
	KindLine     Kind = iota // straight line between two points
	KindArc                  // circular arc less than a full turn
	KindCircle               // full circle
	KindPolyline             // connected straight pieces
	KindFreeform             // opaque curve handled by a kernel.Kernel
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindArc:
		return "arc"
	case KindCircle:
		return "circle"
	case KindPolyline:
		return "polyline"
	case KindFreeform:
		return "freeform"
	default:
		return "unknown"
	}
}

// Geometry is the closed set of shapes a segment can carry.
type Geometry interface {
	Kind() Kind
	geometry() // marker method restricting implementations to this package
}

// Line is a straight move from Start to End.
type Line struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

func (Line) Kind() Kind { return KindLine }
func (Line) geometry()  {}

// Arc is a circular arc around Center. Clockwise is the declared sense of
// travel. It decides semicircles, where the endpoints alone do not.
type Arc struct {
	Start     Point `json:"start"`
	End       Point `json:"end"`
	Center    Point `json:"center"`
	Clockwise bool  `json:"clockwise"`
}

func (Arc) Kind() Kind { return KindArc }
func (Arc) geometry()  {}

// Circle is a full circle. It starts and ends at angle π.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

func (Circle) Kind() Kind { return KindCircle }
func (Circle) geometry()  {}

// Polyline visits Points in order.
type Polyline struct {
	Points []Point `json:"points"`
}

func (Polyline) Kind() Kind { return KindPolyline }
func (Polyline) geometry()  {}

// Freeform wraps an opaque curve handle.
type Freeform struct {
	Curve kernel.Curve `json:"-"`
}

func (Freeform) Kind() Kind { return KindFreeform }
func (Freeform) geometry()  {}
