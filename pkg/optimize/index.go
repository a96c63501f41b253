package optimize

import (
	"math"

	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/dhconnelly/rtreego"
)

// R-tree branching factors.
const (
	minChildren = 25
	maxChildren = 50
)

// endpoint is one R-tree entry. Entries are stored as pointers so Delete
// can match them by identity.
type endpoint struct {
	rank  int
	isEnd bool
	p     toolpath.Point
}

func (e *endpoint) Bounds() rtreego.Rect {
	return rtreego.Point{e.p.X, e.p.Y}.ToRect(0)
}

// indexFinder answers nearest-endpoint queries from an R-tree holding
// both endpoints of every remaining segment.
type indexFinder struct {
	tree    *rtreego.Rtree
	entries [][2]*endpoint
	removed []bool
}

func newIndexFinder(ends []endpoints) *indexFinder {
	f := &indexFinder{
		entries: make([][2]*endpoint, len(ends)),
		removed: make([]bool, len(ends)),
	}
	objs := make([]rtreego.Spatial, 0, 2*len(ends))
	for r, e := range ends {
		s := &endpoint{rank: r, p: e.start}
		t := &endpoint{rank: r, isEnd: true, p: e.end}
		f.entries[r] = [2]*endpoint{s, t}
		objs = append(objs, s, t)
	}
	f.tree = rtreego.NewTree(2, minChildren, maxChildren, objs...)
	return f
}

// nearest asks the tree for the distance to the closest endpoint, then
// collects every endpoint within that distance and applies the tie rule,
// which the tree alone does not honor.
func (f *indexFinder) nearest(p toolpath.Point) (int, bool, float64) {
	q := rtreego.Point{p.X, p.Y}
	nn := f.tree.NearestNeighbors(1, q)
	if len(nn) == 0 || nn[0] == nil {
		return f.scan(p)
	}
	d := dist(p, nn[0].(*endpoint).p)
	if math.IsInf(d, 0) {
		return f.scan(p)
	}
	pad := 1e-9 * math.Max(1, d)

	best, bestEnd, bestD := -1, false, math.Inf(1)
	for _, obj := range f.tree.SearchIntersect(q.ToRect(d + pad)) {
		e := obj.(*endpoint)
		if ed := dist(p, e.p); better(ed, e.rank, e.isEnd, bestD, best, bestEnd) {
			best, bestEnd, bestD = e.rank, e.isEnd, ed
		}
	}
	return best, bestEnd, bestD
}

// scan checks every remaining endpoint. It covers distances the tree
// cannot rank because they overflow.
func (f *indexFinder) scan(p toolpath.Point) (int, bool, float64) {
	best, bestEnd, bestD := -1, false, math.Inf(1)
	for r, pair := range f.entries {
		if f.removed[r] {
			continue
		}
		for _, e := range pair {
			if ed := dist(p, e.p); better(ed, r, e.isEnd, bestD, best, bestEnd) {
				best, bestEnd, bestD = r, e.isEnd, ed
			}
		}
	}
	return best, bestEnd, bestD
}

func (f *indexFinder) remove(rank int) {
	f.removed[rank] = true
	for _, e := range f.entries[rank] {
		f.tree.Delete(e)
	}
}
