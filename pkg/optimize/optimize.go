// Package optimize reorders segments to reduce non-cutting travel.
//
// The search is a greedy nearest neighbor: from the current position, the
// closest endpoint of any remaining segment is visited next, and the
// segment is reversed when its end is the closer endpoint. Only travel
// between segments is measured; segment lengths are fixed by the job.
package optimize

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/samber/lo"
)

var (
	// ErrNoSegments is returned for an empty input collection.
	ErrNoSegments = errors.New("optimize: no segments")

	// ErrIterations is returned when the iteration count is not positive.
	ErrIterations = errors.New("optimize: iteration count must be positive")

	// ErrInvalidStart is returned for a NaN or infinite start position.
	ErrInvalidStart = errors.New("optimize: start position must be finite")
)

// Result is an optimized ordering. The input collection is not modified.
type Result struct {
	// Segments in visiting order; entries with Reversed[k] set are the
	// Reverse of the corresponding input segment.
	Segments []toolpath.Segment

	// Order maps each output position to its index in the input.
	Order    []int
	Reversed []bool

	// TotalDistance is the summed travel from the start point through
	// every segment in order.
	TotalDistance float64

	// EffectiveIterations counts the greedy passes that ran. Without a
	// seed every pass is identical, so only one runs.
	EffectiveIterations int

	// Baseline is set when the input order itself was shorter than every
	// greedy pass and was returned unchanged.
	Baseline bool
}

type config struct {
	seeded  bool
	seed    uint64
	indexed bool
}

// Option configures Optimize.
type Option func(*config)

// WithSeed enables randomized restarts: every pass after the first scans
// the segments in an order shuffled by a PCG generator seeded with seed.
// Results are deterministic for a given seed.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seeded = true
		c.seed = seed
	}
}

// WithSpatialIndex finds nearest endpoints through an R-tree instead of a
// linear scan. The chosen order is identical to the scan.
func WithSpatialIndex() Option {
	return func(c *config) { c.indexed = true }
}

// Optimize runs up to iterations greedy passes from start and returns the
// shortest ordering found. Ties between passes keep the earlier one. The
// input order is also measured and returned when strictly shorter, so the
// result never travels further than the input.
//
// Each pass costs O(n²) without the spatial index.
func Optimize(segments []toolpath.Segment, start toolpath.Point, iterations int, opts ...Option) (Result, error) {
	if len(segments) == 0 {
		return Result{}, ErrNoSegments
	}
	if iterations < 1 {
		return Result{}, ErrIterations
	}
	if math.IsNaN(start.X) || math.IsNaN(start.Y) || math.IsInf(start.X, 0) || math.IsInf(start.Y, 0) {
		return Result{}, ErrInvalidStart
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	passes := iterations
	if !cfg.seeded {
		passes = 1
	}
	var rng *rand.Rand
	if cfg.seeded {
		rng = rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))
	}

	scan := lo.Range(len(segments))
	best := tour{distance: math.Inf(1)}
	for it := 0; it < passes; it++ {
		if it > 0 {
			scan = rng.Perm(len(segments))
		}
		t := greedy(segments, scan, start, cfg.indexed)
		if t.distance < best.distance {
			best = t
		}
	}

	res := Result{EffectiveIterations: passes}
	if base := baseline(segments, start); base.distance < best.distance {
		best = base
		res.Baseline = true
	}

	res.Order = best.order
	res.Reversed = best.reversed
	res.TotalDistance = best.distance
	res.Segments = lo.Map(best.order, func(i int, k int) toolpath.Segment {
		if best.reversed[k] {
			return segments[i].Reverse()
		}
		return segments[i]
	})
	return res, nil
}

// TravelDistance measures the travel of visiting segments in the given
// order, each in its own traversal direction.
func TravelDistance(segments []toolpath.Segment, start toolpath.Point) float64 {
	return baseline(segments, start).distance
}

// tour is one candidate ordering.
type tour struct {
	order    []int
	reversed []bool
	distance float64
}

func baseline(segments []toolpath.Segment, start toolpath.Point) tour {
	t := tour{
		order:    lo.Range(len(segments)),
		reversed: make([]bool, len(segments)),
	}
	pos := start
	for _, s := range segments {
		t.distance += dist(pos, s.Start())
		pos = s.End()
	}
	return t
}

// greedy runs one nearest-neighbor pass. scan[r] is the input index of
// the segment with scan rank r; ties go to the lowest rank and then to the
// segment's start.
func greedy(segments []toolpath.Segment, scan []int, start toolpath.Point, indexed bool) tour {
	ends := make([]endpoints, len(scan))
	for r, i := range scan {
		ends[r] = endpoints{start: segments[i].Start(), end: segments[i].End()}
	}

	var f finder
	if indexed {
		f = newIndexFinder(ends)
	} else {
		f = newScanFinder(ends)
	}

	t := tour{
		order:    make([]int, 0, len(scan)),
		reversed: make([]bool, 0, len(scan)),
	}
	pos := start
	for range scan {
		r, useEnd, d := f.nearest(pos)
		f.remove(r)
		t.order = append(t.order, scan[r])
		t.reversed = append(t.reversed, useEnd)
		t.distance += d
		if useEnd {
			pos = ends[r].start
		} else {
			pos = ends[r].end
		}
	}
	return t
}

func dist(a, b toolpath.Point) float64 { return b.Sub(a).Length() }
