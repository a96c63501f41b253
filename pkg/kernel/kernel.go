// Package kernel defines the curve-processing interface used for freeform
// toolpath geometry. Implementations (bezpath) reduce an opaque curve to
// points behind this interface, so the compiler never depends on a
// particular curve representation.
package kernel

import (
	"errors"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

var (
	// ErrNotPolyline is returned by Simplify when the curve has curved
	// pieces that a polyline cannot reproduce within tolerance.
	ErrNotPolyline = errors.New("kernel: curve is not piecewise linear")

	// ErrUnsupportedCurve is returned when a Curve handle belongs to a
	// different kernel implementation.
	ErrUnsupportedCurve = errors.New("kernel: unsupported curve")

	// ErrBadTolerance is returned for a non-positive tolerance or spacing.
	ErrBadTolerance = errors.New("kernel: tolerance must be positive")
)

// Curve is an opaque handle to a freeform planar curve.
// Implementations wrap their internal representation.
type Curve interface {
	Start() v2.Vec
	End() v2.Vec

	// Bounds returns the axis-aligned extent of the curve.
	Bounds() sdf.Box2

	// Length returns the arc length.
	Length() float64

	// Valid reports whether the curve is finite, contiguous and non-empty.
	Valid() bool
}

// Kernel reduces curves to points.
type Kernel interface {
	// Simplify reduces c to a polyline whose vertices stay within tol of
	// the curve. It returns ErrNotPolyline when that is not possible.
	Simplify(c Curve, tol float64) ([]v2.Vec, error)

	// Sample returns points along c at approximately even arc-length
	// spacing, including both endpoints.
	Sample(c Curve, spacing float64) ([]v2.Vec, error)
}

// MaxSamples bounds the number of points one curve is reduced to. Finer
// spacing is widened to length/MaxSamples.
const MaxSamples = 100000

// SampleCount returns how many equal steps cover length at no more than
// spacing each, clamped to [1, MaxSamples]. A non-positive or NaN spacing
// yields a single step.
func SampleCount(length, spacing float64) int {
	if !(spacing > 0) || !(length > 0) {
		return 1
	}
	n := math.Ceil(length / spacing)
	if !(n <= MaxSamples) {
		return MaxSamples
	}
	return max(int(n), 1)
}
