package toolpath

import (
	"github.com/samber/lo"
)

// Stats summarizes the motion of a segment sequence. Lengths are in
// millimeters and times in minutes, since feed rates are per minute.
type Stats struct {
	CutLength    float64 `json:"cut_length"`
	TravelLength float64 `json:"travel_length"`
	CutTime      float64 `json:"cut_time"`
	TravelTime   float64 `json:"travel_time"`
	TotalTime    float64 `json:"total_time"`
	Segments     int     `json:"segments"`
}

// Analyze measures segments traversed in order from start. Gaps between
// one segment's end and the next one's start count as travel at
// rapidFeed; when rapidFeed is not positive their time is not counted.
// Segments without a positive feed are ignored.
func Analyze(segments []Segment, start Point, rapidFeed float64) Stats {
	segments = lo.Filter(segments, func(s Segment, _ int) bool { return s.Feed() > 0 })
	cuts := lo.Filter(segments, func(s Segment, _ int) bool { return s.ToolActive() })
	moves := lo.Filter(segments, func(s Segment, _ int) bool { return !s.ToolActive() })

	st := Stats{Segments: len(segments)}
	st.CutLength = lo.SumBy(cuts, func(s Segment) float64 { return s.Length() })
	st.CutTime = lo.SumBy(cuts, func(s Segment) float64 { return s.Length() / s.Feed() })
	st.TravelLength = lo.SumBy(moves, func(s Segment) float64 { return s.Length() })
	st.TravelTime = lo.SumBy(moves, func(s Segment) float64 { return s.Length() / s.Feed() })

	pos := start
	for _, s := range segments {
		gap := s.Start().Sub(pos).Length()
		st.TravelLength += gap
		if rapidFeed > 0 {
			st.TravelTime += gap / rapidFeed
		}
		pos = s.End()
	}
	st.TotalTime = st.CutTime + st.TravelTime
	return st
}
