// Package rbox defines oriented boxes and the conversions between the
// 5-parameter (cx, cy, w, h, angle) and 8-coordinate polygon forms.
package rbox

import (
	"math"

	"github.com/MeKo-Tech/rboxdist/internal/geometry"
)

// Box is an oriented rectangle centred at (CX, CY). W runs along the
// direction (cos Angle, sin Angle) and H along its perpendicular. Angle is in
// degrees.
type Box struct {
	CX    float64 `json:"cx" yaml:"cx"`
	CY    float64 `json:"cy" yaml:"cy"`
	W     float64 `json:"w" yaml:"w"`
	H     float64 `json:"h" yaml:"h"`
	Angle float64 `json:"angle" yaml:"angle"`
}

// LabeledBox carries the trailing class column some callers keep next to a box.
type LabeledBox struct {
	Box
	Label int `json:"label" yaml:"label"`
}

// Polygon holds four corners as x1, y1, ..., x4, y4.
type Polygon [8]float64

// LabeledPolygon is a Polygon with its class column.
type LabeledPolygon struct {
	Polygon
	Label int `json:"label" yaml:"label"`
}

// Radians returns the box angle in radians.
func (b Box) Radians() float64 { return b.Angle * math.Pi / 180 }

// Area returns w*h.
func (b Box) Area() float64 { return b.W * b.H }

// Center returns the box centre.
func (b Box) Center() geometry.Point { return geometry.Point{X: b.CX, Y: b.CY} }

// Rect returns the geometric rectangle described by b.
func (b Box) Rect() geometry.Rect {
	s, c := math.Sincos(b.Radians())
	return geometry.Rect{
		Center: b.Center(),
		Axis:   geometry.Point{X: c, Y: s},
		Width:  b.W,
		Height: b.H,
	}
}

// Corners returns the TL, TR, BR, BL corners (in the box's local frame).
func (b Box) Corners() [4]geometry.Point { return b.Rect().Corners() }

// Grow returns b with d added to both sides.
func (b Box) Grow(d float64) Box {
	b.W += d
	b.H += d
	return b
}

// Row returns the box as a [cx, cy, w, h, angle] slice.
func (b Box) Row() []float64 { return []float64{b.CX, b.CY, b.W, b.H, b.Angle} }

// Points returns the four polygon corners.
func (p Polygon) Points() [4]geometry.Point {
	var out [4]geometry.Point
	for i := range out {
		out[i] = geometry.Point{X: p[2*i], Y: p[2*i+1]}
	}
	return out
}

// Row returns the polygon as a flat slice.
func (p Polygon) Row() []float64 { return append([]float64(nil), p[:]...) }

// WrapAngle maps deg into the half-open range [lo, lo+180). A rectangle is
// unchanged by a half turn, so this never alters the shape.
func WrapAngle(deg, lo float64) float64 {
	return deg - 180*math.Floor((deg-lo)/180)
}

// CountDegenerate returns how many boxes have zero area.
func CountDegenerate(boxes []Box) int {
	n := 0
	for _, b := range boxes {
		if b.W <= 0 || b.H <= 0 {
			n++
		}
	}
	return n
}
