package emit

import (
	"fmt"

	"github.com/chazu/kerf/pkg/machine"
	"github.com/chazu/kerf/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// builder accumulates the lines of one segment before they are committed.
type builder struct {
	e      *Emitter
	seg    toolpath.Segment
	z      float64
	pos    toolpath.Point
	lines  []string
	points []v3.Vec
	method Method
}

func (b *builder) emit(line string) {
	if line != "" {
		b.lines = append(b.lines, line)
	}
}

func (b *builder) touch(p toolpath.Point, z float64) {
	b.points = append(b.points, v3.Vec{X: p.X, Y: p.Y, Z: z})
}

// position moves the tool to p unless it is already there.
func (b *builder) position(p toolpath.Point) {
	if p.Sub(b.pos).Length() > positionTolerance {
		b.emit(b.e.rapid(p))
	}
	b.pos = p
}

func (b *builder) toolOn() {
	if b.seg.ToolActive() {
		p := power(b.seg.Power())
		b.emit(machine.Render(b.e.cfg.Profile.ToolOn, machine.Values{"s": p}, p))
	}
}

func (b *builder) toolOff() {
	if b.seg.ToolActive() {
		b.emit(machine.Render(b.e.cfg.Profile.ToolOff, nil))
	}
}

// arc emits a single native arc or full-circle move.
func (b *builder) arc(method Method) {
	cfg := b.e.cfg
	b.method = method
	b.position(b.seg.Start())
	b.toolOn()

	end, off := b.seg.End(), b.seg.Offset()
	x, y := coord(end.X, cfg.Mode), coord(end.Y, cfg.Mode)
	i, j := coord(off.X, cfg.Mode), coord(off.Y, cfg.Mode)
	f := feed(b.seg.Feed(), cfg.Mode)
	v := machine.Values{"dir": directionCode(b.seg.Direction()), "x": x, "y": y, "i": i, "j": j, "f": f}
	b.emit(machine.Render(cfg.Profile.ArcMove, v, x, y, i, j, f))

	for _, p := range b.seg.ArcPoints(b.e.tol) {
		b.touch(p, b.z)
	}
	b.toolOff()
	b.pos = end
}

// polyline emits a positioning move to pts[0] and one linear move per
// remaining point. dynamic allows per-vertex heights.
func (b *builder) polyline(method Method, pts []toolpath.Point, dynamic bool) error {
	if len(pts) < 2 {
		return fmt.Errorf("%w: %s produced %d points", ErrFallbackExhausted, method, len(pts))
	}
	cfg := b.e.cfg
	dynamic = dynamic && cfg.DynamicHeight && cfg.Height != nil && cfg.IncludeZ
	b.method = method

	b.position(pts[0])
	b.toolOn()
	b.touch(pts[0], b.z)

	f := feed(b.seg.Feed(), cfg.Mode)
	l := 0.0
	for k := 1; k < len(pts); k++ {
		p := pts[k]
		l += p.Sub(pts[k-1]).Length()
		x, y := coord(p.X, cfg.Mode), coord(p.Y, cfg.Mode)
		z := b.z
		if dynamic {
			var err error
			if z, err = cfg.Height(p.X, p.Y, l); err != nil {
				return fmt.Errorf("%w: %v", ErrHeight, err)
			}
			zs := coord(z, cfg.Mode)
			b.emit(machine.Render(cfg.Profile.LinearMoveZ,
				machine.Values{"x": x, "y": y, "z": zs, "f": f}, x, y, zs, f))
		} else {
			b.emit(machine.Render(cfg.Profile.LinearMove,
				machine.Values{"x": x, "y": y, "f": f}, x, y, f))
		}
		b.touch(p, z)
	}
	b.toolOff()
	b.pos = pts[len(pts)-1]
	return nil
}
