package toolpath

import "math"

// Direction is the rotation sense of an arc or circle.
type Direction int

const (
	Undetermined Direction = iota
	Clockwise
	CounterClockwise
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	default:
		return "undetermined"
	}
}

// Opposite returns the complementary direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Clockwise:
		return CounterClockwise
	case CounterClockwise:
		return Clockwise
	default:
		return Undetermined
	}
}

// collinearTolerance is the relative cross-product magnitude below which
// the start-to-end chord is treated as passing through the center.
const collinearTolerance = 1e-9

// ResolveDirection is the single direction rule used throughout kerf.
// It takes the z component of cross(start-center, end-start): negative
// is Clockwise, positive is CounterClockwise. When the chord passes
// through the center (a semicircle) the result is Undetermined.
//
// The rule describes the minor arc from start to end.
func ResolveDirection(center, start, end Point) Direction {
	r := start.Sub(center)
	chord := end.Sub(start)
	z := r.X*chord.Y - r.Y*chord.X
	scale := r.Length() * chord.Length()
	if scale == 0 || math.Abs(z) <= collinearTolerance*scale {
		return Undetermined
	}
	if z < 0 {
		return Clockwise
	}
	return CounterClockwise
}

// sweep returns the signed angle from start to end around center,
// travelling in dir. Counterclockwise is positive. A zero angular gap
// is a full turn.
func sweep(center, start, end Point, dir Direction) float64 {
	a0 := math.Atan2(start.Y-center.Y, start.X-center.X)
	a1 := math.Atan2(end.Y-center.Y, end.X-center.X)
	ccw := math.Mod(a1-a0, 2*math.Pi)
	if ccw <= 0 {
		ccw += 2 * math.Pi
	}
	if dir == Clockwise {
		return ccw - 2*math.Pi
	}
	return ccw
}
