package machine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name       string
		tmpl       string
		values     Values
		positional []string
		want       string
	}{
		{"named", "G1 X{x} Y{y} F{f}", Values{"x": "1.000", "y": "2.000", "f": "100.0"}, nil, "G1 X1.000 Y2.000 F100.0"},
		{"positional", "G0 X{0} Y{1}", nil, []string{"3.000", "4.000"}, "G0 X3.000 Y4.000"},
		{"mixed", "{dir} X{0} Y{1} I{i}", Values{"dir": "G2", "i": "5.000"}, []string{"1.000", "0.000"}, "G2 X1.000 Y0.000 I5.000"},
		{"unknown placeholder", "M3 S{power}", Values{"s": "50"}, nil, "M3 S"},
		{"empty template", "", Values{"x": "1"}, nil, ""},
		{"whitespace result", "  {s}  ", Values{"s": ""}, nil, ""},
		{"no placeholders", "M5", nil, nil, "M5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.tmpl, tt.values, tt.positional...); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	got := Lines("  G17\n\n; hello  \n")
	if len(got) != 2 || got[0] != "G17" || got[1] != "; hello" {
		t.Errorf("Lines = %q", got)
	}
	if Lines("") != nil {
		t.Error("Lines(\"\") should be nil")
	}
}

func TestDefaultProfileValid(t *testing.T) {
	if err := DefaultProfile().Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
}

func TestProfileValidate(t *testing.T) {
	p := DefaultProfile()
	p.ArcMove = ""
	if err := p.Validate(); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
	p.SupportsArcs = false
	if err := p.Validate(); err != nil {
		t.Errorf("arcless profile without arc template: %v", err)
	}
	p.LinearMove = " "
	if err := p.Validate(); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("err = %v, want ErrInvalidProfile", err)
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func TestDecodeProfileMergesDefaults(t *testing.T) {
	p, err := DecodeProfile(strings.NewReader(`{"name": "diode", "supports_arcs": false, "tool_on": "M4 S{s}"}`))
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if p.Name != "diode" || p.SupportsArcs || p.ToolOn != "M4 S{s}" {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.RapidMove != DefaultProfile().RapidMove {
		t.Errorf("default rapid template lost: %q", p.RapidMove)
	}
}

func TestDecodeProfileRejectsUnknownFields(t *testing.T) {
	if _, err := DecodeProfile(strings.NewReader(`{"rapid": "G0"}`)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadProfileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	if err := os.WriteFile(path, []byte(`{"linear_move": ""}`), 0o644); err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	_, err := LoadProfile(path)
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("err = %v, want ErrInvalidProfile", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name the file", err)
	}

	if _, err := LoadProfile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "envelope.json")
	doc := `{"width": 400, "depth": 300, "height": 50, "max_feed": 6000, "max_power": 100}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	e, err := LoadEnvelope(path)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	want := Envelope{Width: 400, Depth: 300, Height: 50, MaxFeed: 6000, MaxPower: 100}
	if e != want {
		t.Errorf("LoadEnvelope = %+v, want %+v", e, want)
	}

	if _, err := DecodeEnvelope(strings.NewReader(`{"width": 0, "depth": 10}`)); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("err = %v, want ErrInvalidEnvelope", err)
	}
}

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

func TestEnvelopeContains(t *testing.T) {
	e := Envelope{Width: 100, Depth: 50}
	box := func(x0, y0, x1, y1 float64) sdf.Box2 {
		return sdf.Box2{Min: v2.Vec{X: x0, Y: y0}, Max: v2.Vec{X: x1, Y: y1}}
	}
	tests := []struct {
		name string
		b    sdf.Box2
		want bool
	}{
		{"inside", box(10, 10, 20, 20), true},
		{"touching edges", box(0, 0, 100, 50), true},
		{"past width", box(90, 0, 100.5, 10), false},
		{"past depth", box(0, 0, 10, 50.1), false},
		{"negative", box(-1, 0, 10, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Contains(tt.b); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}

func TestEnvelopeContainsHeight(t *testing.T) {
	if !(Envelope{}).ContainsHeight(1000) {
		t.Error("zero height should disable the check")
	}
	e := Envelope{Width: 1, Depth: 1, Height: 10}
	if !e.ContainsHeight(10) || e.ContainsHeight(10.5) || e.ContainsHeight(-1) {
		t.Error("height check wrong")
	}
}
