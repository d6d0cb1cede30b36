package iou

import (
	"math"

	"github.com/MeKo-Tech/rboxdist/internal/geometry"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// DefaultStabilizer is added to the paired IoU denominator.
const DefaultStabilizer = 1e-4

// minEnclosing guards the DIoU normaliser when both boxes collapse to a
// point.
const minEnclosing = 1e-12

// overlap returns the intersection area and both box areas after growing
// each side by offset.
func overlap(a, b rbox.Box, offset float64) (inter, areaA, areaB float64) {
	a, b = a.Grow(offset), b.Grow(offset)
	areaA, areaB = a.Area(), b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0, math.Max(areaA, 0), math.Max(areaB, 0)
	}
	return geometry.IntersectionArea(a.Corners(), b.Corners()), areaA, areaB
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// PairIoU is the element-wise IoU: inter / (area1 + area2 - inter +
// stabilizer), clamped to [0, 1].
func PairIoU(a, b rbox.Box, stabilizer, offset float64) float64 {
	inter, areaA, areaB := overlap(a, b, offset)
	if inter <= 0 {
		return 0
	}
	return clamp01(inter / (areaA + areaB - inter + stabilizer))
}

// CrossIoU is the cross-product IoU of one pair. It has no stabilizer; a
// non-positive union yields 0.
func CrossIoU(a, b rbox.Box) float64 {
	inter, areaA, areaB := overlap(a, b, 0)
	union := areaA + areaB - inter
	if inter <= 0 || union <= 0 {
		return 0
	}
	return clamp01(inter / union)
}

// EnclosingDiagonal2 returns the squared diagonal of the axis-aligned box
// enclosing the corners of a and b.
func EnclosingDiagonal2(a, b rbox.Box) float64 {
	ca, cb := a.Corners(), b.Corners()
	pts := append(ca[:], cb[:]...)
	lo, hi, _ := geometry.Bounds(pts)
	d := hi.Sub(lo)
	return d.Dot(d)
}

// DIoUPair returns IoU - d²/c², d being the centre distance and c the
// enclosing diagonal of this pair.
func DIoUPair(a, b rbox.Box) float64 {
	d := a.Center().Sub(b.Center())
	c2 := math.Max(EnclosingDiagonal2(a, b), minEnclosing)
	return CrossIoU(a, b) - d.Dot(d)/c2
}

// ADIoUPair discounts DIoUPair by |cos(θ1-θ2)|.
func ADIoUPair(a, b rbox.Box) float64 {
	return DIoUPair(a, b) * math.Abs(math.Cos(a.Radians()-b.Radians()))
}
