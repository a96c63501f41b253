package machine

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// ErrInvalidEnvelope is returned for an envelope without a positive
// working area.
var ErrInvalidEnvelope = errors.New("invalid work envelope")

// boundsTolerance absorbs rounding at the envelope edges.
const boundsTolerance = 1e-9

// Envelope is the machine's travel range and rate limits. It is used for
// advisory validation only. Zero MaxFeed or MaxPower disables that check.
type Envelope struct {
	Width    float64 `json:"width"`
	Depth    float64 `json:"depth"`
	Height   float64 `json:"height"`
	MaxFeed  float64 `json:"max_feed"`
	MaxPower float64 `json:"max_power"`
}

// Validate checks that the working area is positive.
func (e Envelope) Validate() error {
	if e.Width <= 0 || e.Depth <= 0 {
		return fmt.Errorf("%w: width %v and depth %v must be positive", ErrInvalidEnvelope, e.Width, e.Depth)
	}
	if e.Height < 0 || e.MaxFeed < 0 || e.MaxPower < 0 {
		return fmt.Errorf("%w: height and limits must not be negative", ErrInvalidEnvelope)
	}
	return nil
}

// Box returns the working area, with the origin at the minimum corner.
func (e Envelope) Box() sdf.Box2 {
	return sdf.Box2{Min: v2.Vec{}, Max: v2.Vec{X: e.Width, Y: e.Depth}}
}

// Contains reports whether b lies inside the working area.
func (e Envelope) Contains(b sdf.Box2) bool {
	area := e.Box()
	return b.Min.X >= area.Min.X-boundsTolerance &&
		b.Min.Y >= area.Min.Y-boundsTolerance &&
		b.Max.X <= area.Max.X+boundsTolerance &&
		b.Max.Y <= area.Max.Y+boundsTolerance
}

// ContainsHeight reports whether z is reachable. A zero Height disables
// the check.
func (e Envelope) ContainsHeight(z float64) bool {
	if e.Height == 0 {
		return true
	}
	return z >= -boundsTolerance && z <= e.Height+boundsTolerance
}
