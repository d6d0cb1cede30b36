package rbox

import (
	"fmt"

	"github.com/MeKo-Tech/rboxdist/internal/geometry"
)

// Convention selects one of the two angle representations used downstream.
type Convention int

const (
	// LongSide keeps w >= h with the angle in [-90, 90).
	LongSide Convention = -1
	// OpenCV keeps the angle in [-90, 0), letting w and h fall where they may.
	OpenCV Convention = 1
)

// String implements fmt.Stringer.
func (c Convention) String() string {
	switch c {
	case LongSide:
		return "longside"
	case OpenCV:
		return "opencv"
	default:
		return fmt.Sprintf("Convention(%d)", int(c))
	}
}

// ParseConvention maps a name to a Convention.
func ParseConvention(s string) (Convention, error) {
	switch s {
	case "longside", "long-side", "-1":
		return LongSide, nil
	case "opencv", "1":
		return OpenCV, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// ForwardConvert turns boxes into their corner polygons.
func ForwardConvert(boxes []Box) []Polygon {
	out := make([]Polygon, len(boxes))
	for i, b := range boxes {
		out[i] = polygonOf(b)
	}
	return out
}

// ForwardConvertLabeled is ForwardConvert keeping the label column.
func ForwardConvertLabeled(boxes []LabeledBox) []LabeledPolygon {
	out := make([]LabeledPolygon, len(boxes))
	for i, b := range boxes {
		out[i] = LabeledPolygon{Polygon: polygonOf(b.Box), Label: b.Label}
	}
	return out
}

func polygonOf(b Box) Polygon {
	var p Polygon
	for i, c := range b.Corners() {
		p[2*i], p[2*i+1] = c.X, c.Y
	}
	return p
}

// BackwardConvert fits the minimum-area rectangle to each polygon. Of the
// equivalent (w, h, angle) and (h, w, angle±90) readings the one with the
// smaller |angle| wins, so angles land in [-45, 45).
func BackwardConvert(polys []Polygon) []Box {
	out := make([]Box, len(polys))
	for i, p := range polys {
		out[i] = boxOf(p)
	}
	return out
}

// BackwardConvertLabeled is BackwardConvert keeping the label column.
func BackwardConvertLabeled(polys []LabeledPolygon) []LabeledBox {
	out := make([]LabeledBox, len(polys))
	for i, p := range polys {
		out[i] = LabeledBox{Box: boxOf(p.Polygon), Label: p.Label}
	}
	return out
}

func boxOf(p Polygon) Box {
	pts := p.Points()
	r, ok := geometry.MinimumAreaRectangle(pts[:])
	if !ok {
		return Box{}
	}
	return Canonical(Box{CX: r.Center.X, CY: r.Center.Y, W: r.Width, H: r.Height, Angle: r.AngleDeg()})
}

// Canonical rewrites b so that its angle is the smallest-magnitude one
// describing the same rectangle, in [-45, 45).
func Canonical(b Box) Box {
	b.Angle = WrapAngle(b.Angle, -90)
	switch {
	case b.Angle >= 45:
		b.Angle -= 90
		b.W, b.H = b.H, b.W
	case b.Angle < -45:
		b.Angle += 90
		b.W, b.H = b.H, b.W
	}
	return b
}

// CoordinatePresentConvert moves boxes between the two angle conventions.
// OpenCV maps into [-90, 0); LongSide maps into w >= h with angle in
// [-90, 90). For w != h the two are inverse:
// convert(convert(x, OpenCV), LongSide) == x for any long-side x. Square
// boxes are symmetric under a quarter turn and keep whichever branch the
// first transform picked.
func CoordinatePresentConvert(boxes []Box, mode Convention) ([]Box, error) {
	var f func(Box) Box
	switch mode {
	case LongSide:
		f = ToLongSide
	case OpenCV:
		f = ToOpenCV
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		out[i] = f(b)
	}
	return out, nil
}

// ToLongSide converts one box to the long-side convention.
func ToLongSide(b Box) Box {
	b.Angle = WrapAngle(b.Angle, -90)
	if b.W < b.H {
		b.W, b.H = b.H, b.W
		b.Angle = WrapAngle(b.Angle+90, -90)
	}
	return b
}

// ToOpenCV converts one box to the [-90, 0) convention.
func ToOpenCV(b Box) Box {
	b.Angle = WrapAngle(b.Angle, -90)
	if b.Angle >= 0 {
		b.W, b.H = b.H, b.W
		b.Angle -= 90
	}
	return b
}
