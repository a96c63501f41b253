// Package toolpath defines the segment model for kerf: cutting and travel
// moves over a closed set of planar geometry kinds, the shared arc
// direction resolver, and helpers that build and measure segment
// collections.
//
// Segments are immutable values. Derived data (kind, endpoints, arc
// direction and offsets) is computed once at construction and recomputed
// only by Reverse.
package toolpath
