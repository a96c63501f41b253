package emit

import (
	"strconv"

	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/units"
)

// coord formats a length in machine units with three decimals.
// Negative zero prints as 0.000.
func coord(mm float64, m units.Mode) string {
	s := strconv.FormatFloat(units.Length(mm, m), 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// feed formats a feed rate in machine units per minute with one decimal.
func feed(mmPerMin float64, m units.Mode) string {
	s := strconv.FormatFloat(units.Length(mmPerMin, m), 'f', 1, 64)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

// power formats a power level in its shortest exact form.
func power(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// directionCode maps an arc direction to its motion command.
func directionCode(d toolpath.Direction) string {
	if d == toolpath.CounterClockwise {
		return "G3"
	}
	return "G2"
}
