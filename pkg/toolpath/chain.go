package toolpath

import (
	"fmt"
)

// ChainGap is the endpoint distance above which Chain inserts a travel
// move between consecutive geometries.
const ChainGap = 0.1

// ChainParams are the motion parameters shared by a chain of cuts.
type ChainParams struct {
	Feed       float64
	Power      float64
	TravelFeed float64 // feed for inserted travel moves; Feed when zero
	Layer      string
	Gap        float64 // ChainGap when zero
}

// Chain turns an ordered list of geometries into cut segments, inserting a
// non-cutting line wherever one geometry ends more than Gap away from
// where the next begins.
func Chain(geoms []Geometry, p ChainParams) ([]Segment, error) {
	gap := p.Gap
	if gap <= 0 {
		gap = ChainGap
	}
	travelFeed := p.TravelFeed
	if travelFeed <= 0 {
		travelFeed = p.Feed
	}

	var out []Segment
	for i, g := range geoms {
		seg, err := NewSegment(g, p.Feed, p.Power, WithLayer(p.Layer))
		if err != nil {
			return nil, fmt.Errorf("chain element %d: %w", i, err)
		}
		if len(out) > 0 {
			prev := out[len(out)-1].End()
			if prev.Sub(seg.Start()).Length() > gap {
				link, err := NewSegment(Line{Start: prev, End: seg.Start()}, travelFeed, 0,
					WithLayer(p.Layer), AsTravel())
				if err != nil {
					return nil, fmt.Errorf("chain link before element %d: %w", i, err)
				}
				out = append(out, link)
			}
		}
		out = append(out, seg)
	}
	return out, nil
}
