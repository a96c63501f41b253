// Command kerf compiles laser and CNC job scripts into G-code.
//
//	kerf -in part.kerf -out part.nc -optimize -iterations 20 -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chazu/kerf/pkg/engine"
	"github.com/chazu/kerf/pkg/machine"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process exit. It returns 0 on success, 1 when
// the job failed and 2 for usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "kerf: ", 0)

	fs := flag.NewFlagSet("kerf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		inPath       = fs.String("in", "", "job script (default: stdin)")
		outPath      = fs.String("out", "", "output G-code file (default: stdout)")
		profilePath  = fs.String("profile", "", "machine profile JSON (default: GRBL laser)")
		envelopePath = fs.String("envelope", "", "work envelope JSON (default: no bounds checks)")
		inches       = fs.Bool("inches", false, "emit inch units (G20)")
		includeZ     = fs.Bool("z", false, "emit a height move before every segment")
		defaultZ     = fs.Float64("default-z", 0, "height for segments without :z (mm)")
		heightExpr   = fs.String("height", "", "height expression over x, y, l, e.g. \"(* 0.5 (sin l))\"")
		dynamicZ     = fs.Bool("dynamic-z", false, "apply -height along polyline and sampled moves")
		returnHome   = fs.Bool("return", false, "rapid back to the origin at the end")
		tolerance    = fs.Float64("tol", 0.1, "simplification and sampling tolerance (mm)")
		banner       = fs.Bool("banner", false, "prefix the program with a job ID comment")
		optimizeJob  = fs.Bool("optimize", false, "reorder segments to reduce travel")
		iterations   = fs.Int("iterations", 1, "optimizer passes")
		seed         = fs.Uint64("seed", 0, "seed for randomized optimizer restarts")
		index        = fs.Bool("index", false, "use an R-tree for nearest-endpoint search")
		startX       = fs.Float64("start-x", 0, "tool X before the first segment (mm)")
		startY       = fs.Float64("start-y", 0, "tool Y before the first segment (mm)")
		rapidFeed    = fs.Float64("rapid-feed", engine.DefaultTravelFeed, "rapid rate for time estimates (mm/min)")
		stats        = fs.Bool("stats", false, "print length and time estimates to stderr")
		asJSON       = fs.Bool("json", false, "write the full result as JSON instead of G-code")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	seeded := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seeded = true
		}
	})

	profile := machine.DefaultProfile()
	if *profilePath != "" {
		p, err := machine.LoadProfile(*profilePath)
		if err != nil {
			logger.Printf("%v", err)
			return 1
		}
		profile = p
	}
	var envelope *machine.Envelope
	if *envelopePath != "" {
		e, err := machine.LoadEnvelope(*envelopePath)
		if err != nil {
			logger.Printf("%v", err)
			return 1
		}
		envelope = &e
	}

	source, err := readSource(*inPath, stdin)
	if err != nil {
		logger.Printf("read job: %v", err)
		return 1
	}

	app := NewAppWithMachine(profile, envelope)
	res := app.Compile(source, Settings{
		Imperial:       *inches,
		IncludeZ:       *includeZ,
		DefaultZ:       *defaultZ,
		HeightExpr:     *heightExpr,
		DynamicZ:       *dynamicZ,
		ReturnToOrigin: *returnHome,
		Tolerance:      *tolerance,
		Banner:         *banner,
		Optimize:       *optimizeJob,
		Iterations:     *iterations,
		Seed:           *seed,
		Seeded:         seeded,
		SpatialIndex:   *index,
		StartX:         *startX,
		StartY:         *startY,
		RapidFeed:      *rapidFeed,
	})

	for _, e := range res.Errors {
		if e.Line > 0 {
			logger.Printf("error: line %d: %s", e.Line, e.Message)
		} else {
			logger.Printf("error: %s", e.Message)
		}
	}
	for _, w := range res.Warnings {
		logger.Printf("warning: segment %d (%s): %s: %s", w.Index, w.Segment, w.Code, w.Message)
	}
	if len(res.Errors) > 0 {
		return 1
	}

	if *stats {
		st := res.Stats
		logger.Printf("segments %d compiled %d", res.Segments, res.Compiled)
		logger.Printf("cut %.1f mm in %.2f min, travel %.1f mm in %.2f min, total %.2f min",
			st.CutLength, st.CutTime, st.TravelLength, st.TravelTime, st.TotalTime)
		if *optimizeJob {
			logger.Printf("travel %.1f mm -> %.1f mm", res.TravelBefore, res.TravelAfter)
		}
	}

	write := func(w io.Writer) error {
		if *asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		_, err := io.WriteString(w, res.Program)
		return err
	}
	if err := writeOutput(*outPath, stdout, write); err != nil {
		logger.Printf("write output: %v", err)
		return 1
	}
	return 0
}

// createFile opens an output file. Tests replace it.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writeOutput runs write against stdout, or against the file at path when
// one is given. Close errors are returned.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return string(b), nil
}
