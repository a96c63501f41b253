package compiler

import (
	"fmt"

	"github.com/chazu/kerf/pkg/toolpath"
)

// Code classifies a non-fatal compilation problem.
type Code int

const (
	InvalidGeometry   Code = iota // segment failed validation and was skipped
	OutOfBounds                   // segment extent exceeds the envelope and was skipped
	FallbackExhausted             // no representation produced points; skipped
	HeightFailed                  // the height function failed; skipped
	Advisory                      // segment compiled but exceeds a machine limit
)

func (c Code) String() string {
	switch c {
	case InvalidGeometry:
		return "invalid-geometry"
	case OutOfBounds:
		return "out-of-bounds"
	case FallbackExhausted:
		return "fallback-exhausted"
	case HeightFailed:
		return "height-failed"
	case Advisory:
		return "advisory"
	default:
		return "unknown"
	}
}

// Skipped reports whether a warning of this code drops the segment.
func (c Code) Skipped() bool {
	return c != Advisory
}

// Warning is a non-fatal problem with one segment.
type Warning struct {
	Code      Code               `json:"code"`
	Index     int                `json:"index"` // position in the input collection
	SegmentID toolpath.SegmentID `json:"segment_id"`
	Message   string             `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("segment %d: %s: %s", w.Index, w.Code, w.Message)
}
