// Package units converts lengths from millimeters into machine units.
//
// Every function takes the unit mode as an argument. There is no package
// level state, so concurrent compilations in different modes never
// interfere with each other.
package units

import (
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// MillimetersPerInch is the exact inch definition.
const MillimetersPerInch = 25.4

// Mode selects the unit system of the emitted program.
type Mode int

const (
	Metric Mode = iota
	Imperial
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return "unknown"
	}
}

// Code returns the unit-selection command for the mode.
func (m Mode) Code() string {
	if m == Imperial {
		return "G20"
	}
	return "G21"
}

// Length converts a millimeter length (coordinate, offset, radius or
// feed distance) to machine units.
func Length(mm float64, m Mode) float64 {
	if m == Imperial {
		return mm / MillimetersPerInch
	}
	return mm
}

// Point converts both coordinates of p.
func Point(p v2.Vec, m Mode) v2.Vec {
	return v2.Vec{X: Length(p.X, m), Y: Length(p.Y, m)}
}

// Vec3 converts all three coordinates of p.
func Vec3(p v3.Vec, m Mode) v3.Vec {
	return v3.Vec{X: Length(p.X, m), Y: Length(p.Y, m), Z: Length(p.Z, m)}
}
