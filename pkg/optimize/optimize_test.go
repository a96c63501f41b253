package optimize

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pt = toolpath.Point

func line(t *testing.T, x0, y0, x1, y1 float64) toolpath.Segment {
	t.Helper()
	s, err := toolpath.NewSegment(toolpath.Line{Start: pt{X: x0, Y: y0}, End: pt{X: x1, Y: y1}}, 100, 50)
	require.NoError(t, err)
	return s
}

// randomLines scatters n lines. With grid set, coordinates are small
// integers so many endpoints tie.
func randomLines(t *testing.T, seed uint64, n int, grid bool) []toolpath.Segment {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	coord := func() float64 {
		if grid {
			return float64(rng.IntN(8))
		}
		return rng.Float64() * 200
	}
	out := make([]toolpath.Segment, 0, n)
	for len(out) < n {
		x0, y0, x1, y1 := coord(), coord(), coord(), coord()
		if x0 == x1 && y0 == y1 {
			continue
		}
		out = append(out, line(t, x0, y0, x1, y1))
	}
	return out
}

func TestOptimize_Preconditions(t *testing.T) {
	_, err := Optimize(nil, pt{}, 1)
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = Optimize([]toolpath.Segment{line(t, 0, 0, 1, 0)}, pt{}, 0)
	assert.ErrorIs(t, err, ErrIterations)

	for _, start := range []pt{{X: math.Inf(1)}, {Y: math.Inf(-1)}, {X: math.NaN()}} {
		_, err = Optimize([]toolpath.Segment{line(t, 0, 0, 1, 0)}, start, 1)
		assert.ErrorIs(t, err, ErrInvalidStart, "start %v", start)
	}
}

func TestOptimize_OverflowingTravel(t *testing.T) {
	// Each segment is short, but the hop between the far ones overflows.
	segs := []toolpath.Segment{
		line(t, -1e308, 0, -1e308, 1),
		line(t, 1e308, 0, 1e308, 1),
		line(t, 0, 0, 1, 0),
	}
	for _, opts := range [][]Option{nil, {WithSpatialIndex()}} {
		res, err := Optimize(segs, pt{}, 1, opts...)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{0, 1, 2}, res.Order)
		assert.Equal(t, 2, res.Order[0], "the nearby segment goes first")
		assert.Len(t, res.Segments, 3)
		assert.True(t, math.IsInf(res.TotalDistance, 1))
	}
}

func TestOptimize_ReversesWhenEndIsCloser(t *testing.T) {
	segs := []toolpath.Segment{line(t, 10, 0, 0, 0)}

	res, err := Optimize(segs, pt{}, 1)
	require.NoError(t, err)

	require.Len(t, res.Segments, 1)
	assert.Equal(t, []int{0}, res.Order)
	assert.Equal(t, []bool{true}, res.Reversed)
	assert.True(t, res.Segments[0].Reversed())
	assert.Equal(t, pt{}, res.Segments[0].Start())
	assert.Equal(t, pt{X: 10}, res.Segments[0].End())
	assert.InDelta(t, 0.0, res.TotalDistance, 1e-12)

	assert.False(t, segs[0].Reversed(), "input must not change")
}

func TestOptimize_DistanceIsTravelOnly(t *testing.T) {
	segs := []toolpath.Segment{
		line(t, 0, 0, 100, 0),
		line(t, 100, 5, 0, 5),
	}
	res, err := Optimize(segs, pt{}, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Order)
	assert.Equal(t, []bool{false, false}, res.Reversed)
	assert.InDelta(t, 5.0, res.TotalDistance, 1e-12)
}

func TestOptimize_TiesPreferEarliestSegment(t *testing.T) {
	segs := []toolpath.Segment{
		line(t, 0, 1, 0, 2),
		line(t, 1, 0, 2, 0),
	}
	res, err := Optimize(segs, pt{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Order)

	segs[0], segs[1] = segs[1], segs[0]
	res, err = Optimize(segs, pt{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Order)
}

func TestOptimize_TiesPreferStartEndpoint(t *testing.T) {
	for _, s := range []toolpath.Segment{line(t, 1, 0, -1, 0), line(t, -1, 0, 1, 0)} {
		res, err := Optimize([]toolpath.Segment{s}, pt{}, 1)
		require.NoError(t, err)
		assert.Equal(t, []bool{false}, res.Reversed)
		assert.Equal(t, s.Start(), res.Segments[0].Start())
	}
}

func TestOptimize_FallsBackToInputOrder(t *testing.T) {
	// Greedy visits x=1 first and then has to double back.
	segs := []toolpath.Segment{
		line(t, -2.5, 0, -2.5, 0.01),
		line(t, 1, 0, 1, 0.01),
		line(t, 3.5, 0, 3.5, 0.01),
	}
	res, err := Optimize(segs, pt{}, 1)
	require.NoError(t, err)

	assert.True(t, res.Baseline)
	assert.Equal(t, []int{0, 1, 2}, res.Order)
	assert.Equal(t, []bool{false, false, false}, res.Reversed)
	assert.InDelta(t, TravelDistance(segs, pt{}), res.TotalDistance, 1e-12)
}

func TestOptimize_NeverWorseThanInputOrder(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		segs := randomLines(t, seed, 40, seed%2 == 0)
		start := pt{X: float64(seed), Y: 3}

		res, err := Optimize(segs, start, 3)
		require.NoError(t, err)

		assert.LessOrEqual(t, res.TotalDistance, TravelDistance(segs, start), "seed %d", seed)
		assert.InDelta(t, TravelDistance(res.Segments, start), res.TotalDistance, 1e-9, "seed %d", seed)
		assert.ElementsMatch(t, rangeOf(len(segs)), res.Order, "every segment exactly once")
	}
}

func rangeOf(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestOptimize_Deterministic(t *testing.T) {
	segs := randomLines(t, 99, 60, false)

	a, err := Optimize(segs, pt{}, 4)
	require.NoError(t, err)
	b, err := Optimize(segs, pt{}, 4)
	require.NoError(t, err)

	assert.Equal(t, a.Order, b.Order)
	assert.Equal(t, a.Reversed, b.Reversed)
	assert.Equal(t, a.TotalDistance, b.TotalDistance)
	assert.Equal(t, 1, a.EffectiveIterations, "unseeded passes are identical")
}

func TestOptimize_DoesNotMutateInput(t *testing.T) {
	segs := randomLines(t, 3, 30, false)
	before := make([]toolpath.SegmentID, len(segs))
	for i, s := range segs {
		before[i] = s.ID()
	}

	_, err := Optimize(segs, pt{}, 2, WithSeed(5))
	require.NoError(t, err)

	for i, s := range segs {
		assert.Equal(t, before[i], s.ID())
		assert.False(t, s.Reversed())
	}
}

func TestOptimize_SeededRestarts(t *testing.T) {
	segs := randomLines(t, 11, 50, false)

	plain, err := Optimize(segs, pt{}, 1)
	require.NoError(t, err)

	a, err := Optimize(segs, pt{}, 12, WithSeed(42))
	require.NoError(t, err)
	b, err := Optimize(segs, pt{}, 12, WithSeed(42))
	require.NoError(t, err)

	assert.Equal(t, 12, a.EffectiveIterations)
	assert.LessOrEqual(t, a.TotalDistance, plain.TotalDistance, "first pass matches the unseeded run")
	assert.Equal(t, a.Order, b.Order, "same seed, same result")
	assert.Equal(t, a.TotalDistance, b.TotalDistance)
}

func TestOptimize_SpatialIndexMatchesScan(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		grid := seed%2 == 1
		segs := randomLines(t, seed, 150, grid)
		start := pt{X: 4, Y: 4}

		scan, err := Optimize(segs, start, 3, WithSeed(seed))
		require.NoError(t, err)
		indexed, err := Optimize(segs, start, 3, WithSeed(seed), WithSpatialIndex())
		require.NoError(t, err)

		assert.Equal(t, scan.Order, indexed.Order, "seed %d grid %v", seed, grid)
		assert.Equal(t, scan.Reversed, indexed.Reversed, "seed %d grid %v", seed, grid)
		assert.Equal(t, scan.TotalDistance, indexed.TotalDistance, "seed %d grid %v", seed, grid)
	}
}
