package main

import (
	"log"

	"github.com/chazu/kerf/pkg/compiler"
	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/machine"
	"github.com/chazu/kerf/pkg/optimize"
	"github.com/chazu/kerf/pkg/toolpath"
	"github.com/chazu/kerf/pkg/units"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// App is the compiler backend. It turns job scripts into machine programs
// for one machine profile and work envelope.
type App struct {
	engine   *engine.Engine
	profile  machine.Profile
	envelope *machine.Envelope
}

// Settings are the per-run options of Compile.
type Settings struct {
	Imperial       bool
	IncludeZ       bool
	DefaultZ       float64
	HeightExpr     string // zygomys expression over x, y, l
	DynamicZ       bool
	ReturnToOrigin bool
	Tolerance      float64
	Banner         bool

	Optimize     bool
	Iterations   int
	Seed         uint64
	Seeded       bool
	SpatialIndex bool

	// Start is the tool position before the first segment.
	StartX, StartY float64

	// RapidFeed prices positioning moves in the statistics.
	RapidFeed float64
}

// ErrorData is a JSON-serializable script or pipeline error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// WarningData is a JSON-serializable compiler warning.
type WarningData struct {
	Code    string `json:"code"`
	Index   int    `json:"index"`
	Segment string `json:"segment"`
	Message string `json:"message"`
}

// CompileResult is the full result of one run.
type CompileResult struct {
	Program  string         `json:"program"`
	JobID    string         `json:"jobId"`
	Layers   []string       `json:"layers"`
	Segments int            `json:"segments"`
	Compiled int            `json:"compiled"`
	Errors   []ErrorData    `json:"errors"`
	Warnings []WarningData  `json:"warnings"`
	Points   [][3]float64   `json:"points"`
	Stats    toolpath.Stats `json:"stats"`

	// Travel distances before and after optimization; equal when the
	// optimizer did not run.
	TravelBefore float64 `json:"travelBefore"`
	TravelAfter  float64 `json:"travelAfter"`
}

// NewApp creates an App for the default laser profile with no envelope.
func NewApp() *App {
	return NewAppWithMachine(machine.DefaultProfile(), nil)
}

// NewAppWithMachine creates an App for the given profile. envelope may be
// nil to disable bounds checks.
func NewAppWithMachine(profile machine.Profile, envelope *machine.Envelope) *App {
	return &App{
		engine:   engine.NewEngine(),
		profile:  profile,
		envelope: envelope,
	}
}

// Compile evaluates a job script and compiles the segments it produces.
func (a *App) Compile(source string, s Settings) CompileResult {
	result := CompileResult{
		Errors:   []ErrorData{},
		Warnings: []WarningData{},
		Points:   [][3]float64{},
	}
	fail := func(msg string) CompileResult {
		result.Errors = append(result.Errors, ErrorData{Message: msg})
		return result
	}

	// Step 1: Evaluate the script into segments.
	job, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		return fail(err.Error())
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}
	segments := job.Segments
	result.Segments = len(segments)
	result.Layers = job.Layers()

	// Step 2: Reorder to cut down travel.
	start := toolpath.Point{X: s.StartX, Y: s.StartY}
	if len(segments) > 0 {
		result.TravelBefore = optimize.TravelDistance(segments, start)
		result.TravelAfter = result.TravelBefore
	}
	if s.Optimize && len(segments) > 0 {
		var opts []optimize.Option
		if s.Seeded {
			opts = append(opts, optimize.WithSeed(s.Seed))
		}
		if s.SpatialIndex {
			opts = append(opts, optimize.WithSpatialIndex())
		}
		res, err := optimize.Optimize(segments, start, max(s.Iterations, 1), opts...)
		if err != nil {
			log.Printf("Optimize error: %v", err)
			return fail("optimization failed: " + err.Error())
		}
		segments = res.Segments
		result.TravelAfter = res.TotalDistance
	}

	// Step 3: Build the compiler options.
	opts := compiler.Options{
		Mode:           units.Metric,
		Tolerance:      s.Tolerance,
		IncludeZ:       s.IncludeZ,
		DefaultZ:       s.DefaultZ,
		DynamicHeight:  s.DynamicZ,
		ReturnToOrigin: s.ReturnToOrigin,
		Banner:         s.Banner,
	}
	if s.Imperial {
		opts.Mode = units.Imperial
	}
	if s.HeightExpr != "" {
		h, err := engine.NewHeightFunc(s.HeightExpr)
		if err != nil {
			return fail("height expression: " + err.Error())
		}
		opts.Height = h
	}

	// Step 4: Compile.
	res, err := compiler.Compile(segments, &a.profile, a.envelope, opts)
	if err != nil {
		log.Printf("Compile error: %v", err)
		return fail(err.Error())
	}

	result.Program = res.Program
	result.JobID = res.JobID.String()
	result.Compiled = res.Compiled
	result.Points = lo.Map(res.Points, func(p v3.Vec, _ int) [3]float64 { return [3]float64{p.X, p.Y, p.Z} })
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, WarningData{
			Code:    w.Code.String(),
			Index:   w.Index,
			Segment: w.SegmentID.Short(),
			Message: w.Message,
		})
	}

	// Step 5: Measure only the segments that made it into the program.
	skipped := lo.Associate(
		lo.Filter(res.Warnings, func(w compiler.Warning, _ int) bool { return w.Code.Skipped() }),
		func(w compiler.Warning) (int, bool) { return w.Index, true },
	)
	emitted := lo.Filter(segments, func(_ toolpath.Segment, i int) bool { return !skipped[i] })
	result.Stats = toolpath.Analyze(emitted, start, s.RapidFeed)
	return result
}
