// Package machine describes the target machine: its command templates and
// capabilities (Profile) and its physical travel bounds (Envelope).
package machine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valyala/fasttemplate"
)

// ErrInvalidProfile is returned when a profile lacks a required template.
var ErrInvalidProfile = errors.New("invalid machine profile")

// Profile holds the command templates and capability flags of a machine.
// It is treated as immutable input to a compilation.
//
// Templates use {name} placeholders: {x} {y} {z} {i} {j} {f} {s} {dir}.
// The positional forms {0}..{4} follow the argument order of each
// command: rapid (x, y), linear (x, y, f), linear with Z (x, y, z, f),
// arc (x, y, i, j, f), height (z), tool-on (s).
type Profile struct {
	Name         string `json:"name"`
	RapidMove    string `json:"rapid_move"`
	LinearMove   string `json:"linear_move"`
	LinearMoveZ  string `json:"linear_move_z"`
	ArcMove      string `json:"arc_move"`
	HeightMove   string `json:"height_move"`
	ToolOn       string `json:"tool_on"`
	ToolOff      string `json:"tool_off"`
	Header       string `json:"header"`
	Footer       string `json:"footer"`
	SupportsArcs bool   `json:"supports_arcs"`
}

// DefaultProfile returns a GRBL-style laser profile.
func DefaultProfile() Profile {
	return Profile{
		Name:         "grbl-laser",
		RapidMove:    "G0 X{x} Y{y}",
		LinearMove:   "G1 X{x} Y{y} F{f}",
		LinearMoveZ:  "G1 X{x} Y{y} Z{z} F{f}",
		ArcMove:      "{dir} X{x} Y{y} I{i} J{j} F{f}",
		HeightMove:   "G1 Z{z}",
		ToolOn:       "M3 S{s}",
		ToolOff:      "M5",
		SupportsArcs: true,
	}
}

// Validate checks that the motion templates a compilation always needs
// are present.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.RapidMove) == "" {
		return fmt.Errorf("%w: rapid_move is empty", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.LinearMove) == "" {
		return fmt.Errorf("%w: linear_move is empty", ErrInvalidProfile)
	}
	if p.SupportsArcs && strings.TrimSpace(p.ArcMove) == "" {
		return fmt.Errorf("%w: supports_arcs is set but arc_move is empty", ErrInvalidProfile)
	}
	return nil
}

// Values are the formatted placeholder values of one command.
type Values map[string]string

// Render substitutes v and the positional arguments into tmpl. Unknown
// placeholders render as empty. The result is trimmed, so a template that
// resolves to whitespace yields "".
func Render(tmpl string, v Values, positional ...string) string {
	if tmpl == "" {
		return ""
	}
	m := make(map[string]interface{}, len(v)+len(positional))
	for k, s := range v {
		m[k] = s
	}
	for i, s := range positional {
		m[fmt.Sprint(i)] = s
	}
	return strings.TrimSpace(fasttemplate.ExecuteString(tmpl, "{", "}", m))
}

// Lines splits a header or footer block into non-empty trimmed lines.
func Lines(block string) []string {
	var out []string
	for _, l := range strings.Split(block, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
