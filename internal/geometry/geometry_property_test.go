package geometry

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRect generates a rotated rectangle with positive extent.
func genRect() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-50, 50),
		gen.Float64Range(-50, 50),
		gen.Float64Range(1, 60),
		gen.Float64Range(1, 60),
		gen.Float64Range(-math.Pi, math.Pi),
	).Map(func(vals []interface{}) Rect {
		a := vals[4].(float64)
		return Rect{
			Center: Point{X: vals[0].(float64), Y: vals[1].(float64)},
			Axis:   Point{X: math.Cos(a), Y: math.Sin(a)},
			Width:  vals[2].(float64),
			Height: vals[3].(float64),
		}
	})
}

// TestIntersectionArea_Bounded verifies 0 <= inter <= min(area1, area2).
func TestIntersectionArea_Bounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("intersection area is bounded by both areas", prop.ForAll(
		func(a, b Rect) bool {
			inter := IntersectionArea(a.Corners(), b.Corners())
			limit := math.Min(a.Width*a.Height, b.Width*b.Height)
			return inter >= 0 && inter <= limit*(1+1e-6)+1e-6
		},
		genRect(),
		genRect(),
	))

	properties.TestingRun(t)
}

// TestIntersectionArea_Symmetric verifies the area does not depend on order.
func TestIntersectionArea_Symmetric(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("intersection area is symmetric", prop.ForAll(
		func(a, b Rect) bool {
			ab := IntersectionArea(a.Corners(), b.Corners())
			ba := IntersectionArea(b.Corners(), a.Corners())
			return math.Abs(ab-ba) <= 1e-7*math.Max(1, ab)
		},
		genRect(),
		genRect(),
	))

	properties.TestingRun(t)
}

// TestIntersectionArea_Self verifies a rectangle fully overlaps itself.
func TestIntersectionArea_Self(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("self intersection equals area", prop.ForAll(
		func(a Rect) bool {
			c := a.Corners()
			area := a.Width * a.Height
			return math.Abs(IntersectionArea(c, c)-area) <= 1e-7*area
		},
		genRect(),
	))

	properties.TestingRun(t)
}

// TestMinimumAreaRectangle_RecoversArea verifies calipers on exact corners.
func TestMinimumAreaRectangle_RecoversArea(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("min area rect of a rectangle is itself", prop.ForAll(
		func(a Rect) bool {
			c := a.Corners()
			r, ok := MinimumAreaRectangle(c[:])
			if !ok {
				return false
			}
			area := a.Width * a.Height
			return math.Abs(r.Width*r.Height-area) <= 1e-6*area &&
				r.Center.Dist(a.Center) <= 1e-6
		},
		genRect(),
	))

	properties.TestingRun(t)
}
