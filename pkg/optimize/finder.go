package optimize

import (
	"math"

	"github.com/chazu/kerf/pkg/toolpath"
)

// endpoints of one segment in its current traversal direction.
type endpoints struct {
	start, end toolpath.Point
}

// finder locates the closest endpoint among the segments not yet visited.
type finder interface {
	// nearest returns the scan rank of the winning segment, whether its end
	// was the closer endpoint and the travel distance to it.
	nearest(p toolpath.Point) (rank int, useEnd bool, d float64)
	remove(rank int)
}

// better reports whether candidate (d, rank, useEnd) beats the current
// best under the scan order tie rule.
func better(d float64, rank int, useEnd bool, bestD float64, bestRank int, bestEnd bool) bool {
	switch {
	case bestRank < 0 || d < bestD:
		return true
	case d > bestD:
		return false
	case rank != bestRank:
		return rank < bestRank
	default:
		return !useEnd && bestEnd
	}
}

// scanFinder checks every remaining segment.
type scanFinder struct {
	ends    []endpoints
	visited []bool
}

func newScanFinder(ends []endpoints) *scanFinder {
	return &scanFinder{ends: ends, visited: make([]bool, len(ends))}
}

func (f *scanFinder) nearest(p toolpath.Point) (int, bool, float64) {
	best, bestEnd, bestD := -1, false, math.Inf(1)
	for r, e := range f.ends {
		if f.visited[r] {
			continue
		}
		if d := dist(p, e.start); better(d, r, false, bestD, best, bestEnd) {
			best, bestEnd, bestD = r, false, d
		}
		if d := dist(p, e.end); better(d, r, true, bestD, best, bestEnd) {
			best, bestEnd, bestD = r, true, d
		}
	}
	return best, bestEnd, bestD
}

func (f *scanFinder) remove(rank int) { f.visited[rank] = true }
