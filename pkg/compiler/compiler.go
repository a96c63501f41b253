// Package compiler turns an ordered segment collection into a complete
// machine program.
//
// Compilation never aborts on a bad segment: the segment is skipped and a
// Warning recorded, so the caller always gets the best partial program.
// Only missing inputs (no profile, no segments) fail the whole call.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/emit"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bezpath"
	"github.com/chazu/kerf/pkg/machine"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/units"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

var (
	// ErrNoProfile is returned when Compile is called without a profile.
	ErrNoProfile = errors.New("compiler: no machine profile")

	// ErrNoSegments is returned when Compile is called with no segments.
	ErrNoSegments = errors.New("compiler: no segments")
)

// Options control a compilation.
type Options struct {
	Mode      units.Mode
	Tolerance float64 // simplification and sampling tolerance in mm

	IncludeZ       bool
	DefaultZ       float64
	Height         toolpath.HeightFunc
	DynamicHeight  bool
	ReturnToOrigin bool

	// Banner prefixes the program with a "; kerf job <id>" comment.
	Banner bool

	// Kernel handles freeform segments; a bezpath kernel when nil.
	Kernel kernel.Kernel
}

// Result is the output of Compile.
type Result struct {
	Program string `json:"program"`

	// Points holds every point touched, in millimeters.
	Points []v3.Vec `json:"points"`

	Warnings []Warning `json:"warnings"`

	// Compiled counts the segments present in the program.
	Compiled int       `json:"compiled"`
	JobID    uuid.UUID `json:"job_id"`
}

// Compile emits segments in input order. envelope may be nil to skip
// bounds checks. The input collection is never modified.
func Compile(segments []toolpath.Segment, profile *machine.Profile, envelope *machine.Envelope, opts Options) (Result, error) {
	if profile == nil {
		return Result{}, ErrNoProfile
	}
	if len(segments) == 0 {
		return Result{}, ErrNoSegments
	}
	if err := profile.Validate(); err != nil {
		return Result{}, fmt.Errorf("compiler: %w", err)
	}

	k := opts.Kernel
	if k == nil {
		k = bezpath.NewKernel()
	}
	em := emit.New(emit.Config{
		Profile:       *profile,
		Kernel:        k,
		Mode:          opts.Mode,
		Tolerance:     opts.Tolerance,
		IncludeZ:      opts.IncludeZ,
		DefaultZ:      opts.DefaultZ,
		Height:        opts.Height,
		DynamicHeight: opts.DynamicHeight,
	})

	res := Result{JobID: JobID(segments)}
	var lines []string
	if opts.Banner {
		lines = append(lines, "; kerf job "+res.JobID.String())
	}
	lines = append(lines, em.Header()...)

	for i, s := range segments {
		warn := func(code Code, msg string) {
			res.Warnings = append(res.Warnings, Warning{Code: code, Index: i, SegmentID: s.ID(), Message: msg})
		}

		if err := s.Validate(); err != nil {
			warn(InvalidGeometry, err.Error())
			continue
		}
		if envelope != nil && !envelope.Contains(s.Bounds()) {
			b := s.Bounds()
			warn(OutOfBounds, fmt.Sprintf("extent (%.3f, %.3f)-(%.3f, %.3f) outside %.3f x %.3f envelope",
				b.Min.X, b.Min.Y, b.Max.X, b.Max.Y, envelope.Width, envelope.Depth))
			continue
		}

		block, err := em.Segment(s)
		switch {
		case errors.Is(err, emit.ErrHeight):
			warn(HeightFailed, err.Error())
			continue
		case err != nil:
			warn(FallbackExhausted, err.Error())
			continue
		}

		if envelope != nil {
			for _, msg := range advisories(s, block, *envelope) {
				warn(Advisory, msg)
			}
		}
		lines = append(lines, block.Lines...)
		res.Points = append(res.Points, block.Points...)
		res.Compiled++
	}

	lines = append(lines, em.Footer(opts.ReturnToOrigin)...)
	res.Program = strings.Join(lines, "\n") + "\n"
	return res, nil
}

// advisories checks the machine limits that do not skip a segment.
func advisories(s toolpath.Segment, b emit.Block, env machine.Envelope) []string {
	var out []string
	if env.MaxFeed > 0 && s.Feed() > env.MaxFeed {
		out = append(out, fmt.Sprintf("feed %.1f exceeds machine maximum %.1f", s.Feed(), env.MaxFeed))
	}
	if env.MaxPower > 0 && s.ToolActive() && s.Power() > env.MaxPower {
		out = append(out, fmt.Sprintf("power %g exceeds machine maximum %g", s.Power(), env.MaxPower))
	}
	for _, p := range b.Points {
		if !env.ContainsHeight(p.Z) {
			out = append(out, fmt.Sprintf("height %.3f outside envelope height %.3f", p.Z, env.Height))
			break
		}
	}
	return out
}

var jobNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/kerf/job"))

// JobID derives a deterministic identifier from the segment IDs and their
// traversal directions.
func JobID(segments []toolpath.Segment) uuid.UUID {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.ID().String())
		if s.Reversed() {
			b.WriteByte('r')
		}
		b.WriteByte(';')
	}
	return uuid.NewSHA1(jobNamespace, []byte(b.String()))
}
