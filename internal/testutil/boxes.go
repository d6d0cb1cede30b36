package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// ScenarioBoxes1 and ScenarioBoxes2 are the reference pair batches used
// across the IoU tests.
var (
	ScenarioBoxes1 = []rbox.Box{
		{CX: 50, CY: 50, W: 10, H: 70, Angle: -30},
		{CX: 50, CY: 50, W: 100, H: 700, Angle: -30},
	}
	ScenarioBoxes2 = []rbox.Box{
		{CX: 10, CY: 40, W: 10, H: 70, Angle: -30},
		{CX: 10, CY: 40, W: 100, H: 700, Angle: -40},
	}
)

// EquivalentPredictions and EquivalentTargets describe the same rectangles
// in different (w, h, angle) readings: a w/h swap with a 90 degree shift, an
// angle crossing -90, and a square.
var (
	EquivalentPredictions = []rbox.Box{
		{CX: 50, CY: 50, W: 10, H: 70, Angle: -35},
		{CX: 50, CY: 50, W: 70, H: 10, Angle: -90.5},
		{CX: 50, CY: 50, W: 70, H: 10, Angle: -90.5},
		{CX: 50, CY: 50, W: 40, H: 40, Angle: -35},
	}
	EquivalentTargets = []rbox.Box{
		{CX: 50, CY: 50, W: 70, H: 10, Angle: 55},
		{CX: 50, CY: 50, W: 10, H: 70, Angle: -0.5},
		{CX: 50, CY: 50, W: 70, H: 10, Angle: 89.5},
		{CX: 50, CY: 50, W: 40, H: 40, Angle: 55},
	}
)

// RandomBoxes returns n boxes with sizes in [minSide, maxSide) drawn from rng.
func RandomBoxes(rng *rand.Rand, n int, minSide, maxSide float64) []rbox.Box {
	out := make([]rbox.Box, n)
	for i := range out {
		out[i] = rbox.Box{
			CX:    rng.Float64() * 200,
			CY:    rng.Float64() * 200,
			W:     minSide + rng.Float64()*(maxSide-minSide),
			H:     minSide + rng.Float64()*(maxSide-minSide),
			Angle: rng.Float64()*180 - 90,
		}
	}
	return out
}

// Jitter returns a copy of boxes nudged by up to scale in every parameter.
func Jitter(rng *rand.Rand, boxes []rbox.Box, scale float64) []rbox.Box {
	out := make([]rbox.Box, len(boxes))
	for i, b := range boxes {
		d := func() float64 { return (rng.Float64()*2 - 1) * scale }
		out[i] = rbox.Box{
			CX:    b.CX + d(),
			CY:    b.CY + d(),
			W:     math.Max(0.5, b.W+d()),
			H:     math.Max(0.5, b.H+d()),
			Angle: b.Angle + d(),
		}
	}
	return out
}

// GenBox generates a non-degenerate box.
func GenBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.Float64Range(1, 80),
		gen.Float64Range(1, 80),
		gen.Float64Range(-180, 180),
	).Map(func(vals []interface{}) rbox.Box {
		return rbox.Box{
			CX:    vals[0].(float64),
			CY:    vals[1].(float64),
			W:     vals[2].(float64),
			H:     vals[3].(float64),
			Angle: vals[4].(float64),
		}
	})
}

// GenLongSideBox generates a box already in the long-side convention with
// w strictly greater than h.
func GenLongSideBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
		gen.Float64Range(1, 40),
		gen.Float64Range(1.1, 3),
		gen.Float64Range(-90, 89.999),
	).Map(func(vals []interface{}) rbox.Box {
		h := vals[2].(float64)
		return rbox.Box{
			CX:    vals[0].(float64),
			CY:    vals[1].(float64),
			W:     h * vals[3].(float64),
			H:     h,
			Angle: vals[4].(float64),
		}
	})
}

// SameRectangle reports whether a and b cover the same rectangle, ignoring
// the (w, h, angle) reading used.
func SameRectangle(a, b rbox.Box, tol float64) bool {
	ca, cb := a.Corners(), b.Corners()
	for _, p := range ca {
		found := false
		for _, q := range cb {
			if p.Dist(q) <= tol {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AssertSameRectangles checks SameRectangle pairwise.
func AssertSameRectangles(t *testing.T, want, got []rbox.Box, tol float64) bool {
	t.Helper()

	if !assert.Len(t, got, len(want)) {
		return false
	}
	ok := true
	for i := range want {
		ok = assert.Truef(t, SameRectangle(want[i], got[i], tol),
			"box %d: want %+v, got %+v", i, want[i], got[i]) && ok
	}
	return ok
}
