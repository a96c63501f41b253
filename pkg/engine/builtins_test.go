package engine

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/toolpath"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(cut g :feed 100)`, `(cut g "__kw_feed" 100)`},
		{"multiple keywords", `(circle :center c :radius 5)`, `(circle "__kw_center" c "__kw_radius" 5)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(move-to p)`, `(move_to p)`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative literal preserved", `(vec2 -1 -2.5)`, `(vec2 -1 -2.5)`},
		{"comment converted to // style", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
		{"hyphen in keyword preserved", `:travel-feed`, `"__kw_travel-feed"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evalJob evaluates source and fails the test on any error.
func evalJob(t *testing.T, source string) *Job {
	t.Helper()
	job, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return job
}

func near(a, b toolpath.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

// ---------------------------------------------------------------------------
// Cuts
// ---------------------------------------------------------------------------

func TestCutLine(t *testing.T) {
	job := evalJob(t, `
(cut (line :from (vec2 0 0) :to (vec2 10 0))
     :feed 100 :power 50 :layer "outline" :z 1.5)
`)
	if len(job.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(job.Segments))
	}
	s := job.Segments[0]
	if s.Kind() != toolpath.KindLine {
		t.Errorf("kind = %s, want line", s.Kind())
	}
	if s.Feed() != 100 || s.Power() != 50 {
		t.Errorf("feed/power = %v/%v", s.Feed(), s.Power())
	}
	if s.Layer() != "outline" {
		t.Errorf("layer = %q", s.Layer())
	}
	if z, ok := s.Height(); !ok || z != 1.5 {
		t.Errorf("height = %v, %v", z, ok)
	}
	if !s.ToolActive() {
		t.Error("cut should be tool-active")
	}
	if !near(s.End(), toolpath.Point{X: 10}) {
		t.Errorf("end = %v", s.End())
	}
}

func TestDefaultsAndTravel(t *testing.T) {
	job := evalJob(t, `
(defaults :feed 500 :power 30 :travel-feed 2500 :layer "engrave")
(cut (circle :center (vec2 5 5) :radius 2))
(travel (line (vec2 0 0) (vec2 1 1)))
`)
	if len(job.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(job.Segments))
	}
	c, tr := job.Segments[0], job.Segments[1]
	if c.Kind() != toolpath.KindCircle || c.Feed() != 500 || c.Power() != 30 || c.Layer() != "engrave" {
		t.Errorf("circle = %s feed %v power %v layer %q", c.Kind(), c.Feed(), c.Power(), c.Layer())
	}
	if tr.ToolActive() || tr.Feed() != 2500 || tr.Power() != 0 {
		t.Errorf("travel = active %v feed %v power %v", tr.ToolActive(), tr.Feed(), tr.Power())
	}
	if got := job.Cuts(); len(got) != 1 {
		t.Errorf("Cuts() = %d segments, want 1", len(got))
	}
}

func TestBuiltinDefaults(t *testing.T) {
	job := evalJob(t, `(cut (line (vec2 0 0) (vec2 1 0)))`)
	s := job.Segments[0]
	if s.Feed() != DefaultFeed || s.Power() != DefaultPower {
		t.Errorf("feed/power = %v/%v", s.Feed(), s.Power())
	}
}

func TestArcDirection(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   toolpath.Direction
	}{
		{"counterclockwise by default", `(cut (arc :from (vec2 10 0) :to (vec2 0 10) :center (vec2 0 0)))`, toolpath.CounterClockwise},
		{"explicit cw", `(cut (arc :from (vec2 10 0) :to (vec2 0 -10) :center (vec2 0 0) :cw true))`, toolpath.Clockwise},
		{"bare cw flag", `(cut (arc :from (vec2 10 0) :to (vec2 0 -10) :center (vec2 0 0) :cw))`, toolpath.Clockwise},
		{"positional", `(cut (arc (vec2 10 0) (vec2 0 10) (vec2 0 0)))`, toolpath.CounterClockwise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := evalJob(t, tt.source)
			s := job.Segments[0]
			if s.Kind() != toolpath.KindArc {
				t.Fatalf("kind = %s", s.Kind())
			}
			if s.Direction() != tt.want {
				t.Errorf("direction = %s, want %s", s.Direction(), tt.want)
			}
			if !s.Native() {
				t.Error("quarter arc should be native")
			}
		})
	}
}

func TestPolylineForms(t *testing.T) {
	job := evalJob(t, `
(cut (polyline (vec2 0 0) (vec2 1 0) (vec2 1 1)))
(cut (polyline (list (vec2 0 0) (vec2 2 0) (vec2 2 2) (vec2 0 2))))
`)
	if len(job.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(job.Segments))
	}
	if n := len(job.Segments[0].Vertices()); n != 3 {
		t.Errorf("first polyline has %d points", n)
	}
	if n := len(job.Segments[1].Vertices()); n != 4 {
		t.Errorf("second polyline has %d points", n)
	}
}

func TestPath(t *testing.T) {
	job := evalJob(t, `
(cut (path (move-to (vec2 0 0))
           (line-to (vec2 5 0))
           (quad-to (vec2 7 0) (vec2 7 2))
           (cubic-to (vec2 7 4) (vec2 5 6) (vec2 3 6))
           (close)))
`)
	s := job.Segments[0]
	if s.Kind() != toolpath.KindFreeform {
		t.Fatalf("kind = %s, want freeform", s.Kind())
	}
	if !near(s.Start(), toolpath.Point{}) {
		t.Errorf("start = %v", s.Start())
	}
	if s.Length() <= 15 {
		t.Errorf("length = %v", s.Length())
	}
}

func TestChain(t *testing.T) {
	job := evalJob(t, `
(chain (list (line (vec2 0 0) (vec2 10 0))
             (line (vec2 10 0) (vec2 10 10))
             (line (vec2 20 10) (vec2 30 10)))
       :feed 200 :power 40 :travel-feed 4000 :layer "frame")
`)
	if len(job.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(job.Segments))
	}
	link := job.Segments[2]
	if link.ToolActive() || link.Feed() != 4000 {
		t.Errorf("link = active %v feed %v", link.ToolActive(), link.Feed())
	}
	if !near(link.Start(), toolpath.Point{X: 10, Y: 10}) || !near(link.End(), toolpath.Point{X: 20, Y: 10}) {
		t.Errorf("link = %v -> %v", link.Start(), link.End())
	}
	for i, s := range job.Segments {
		if s.Layer() != "frame" {
			t.Errorf("segment %d layer = %q", i, s.Layer())
		}
	}
	if got := job.Layers(); len(got) != 1 || got[0] != "frame" {
		t.Errorf("Layers() = %v", got)
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestVariablesAndMath(t *testing.T) {
	job := evalJob(t, `
(def w 40)
(cut (line (vec2 0 0) (vec2 w (* 0.5 w))))
(cut (line (vec2 0 0) (vec2 (sqrt 16) (cos 0))))
(cut (line (vec2 0 0) (vec2 pi (max 1 2 3))))
`)
	want := []toolpath.Point{{X: 40, Y: 20}, {X: 4, Y: 1}, {X: math.Pi, Y: 3}}
	for i, w := range want {
		if got := job.Segments[i].End(); !near(got, w) {
			t.Errorf("segment %d end = %v, want %v", i, got, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"degenerate line", `(cut (line (vec2 0 0) (vec2 0 0)))`},
		{"negative feed", `(cut (line (vec2 0 0) (vec2 1 0)) :feed -1)`},
		{"power above range", `(cut (line (vec2 0 0) (vec2 1 0)) :power 150)`},
		{"not a geometry", `(cut 5)`},
		{"vec2 arity", `(vec2 1)`},
		{"vec2 type", `(vec2 "a" 1)`},
		{"missing radius", `(circle :center (vec2 0 0))`},
		{"path without move-to", `(path (line-to (vec2 1 0)))`},
		{"path element type", `(path (vec2 1 0))`},
		{"unequal arc radii", `(cut (arc (vec2 10 0) (vec2 0 5) (vec2 0 0)))`},
		{"chain element type", `(chain (list (line (vec2 0 0) (vec2 1 0)) 7))`},
	}

	eng := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if job != nil {
				t.Error("expected nil job")
			}
			if len(evalErrs) == 0 {
				t.Error("expected eval errors")
			}
		})
	}
}
