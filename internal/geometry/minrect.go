package geometry

import "math"

// Rect is a rotated rectangle: Width runs along the unit Axis, Height along
// its perpendicular (-Axis.Y, Axis.X).
type Rect struct {
	Center Point
	Axis   Point
	Width  float64
	Height float64
}

// AngleDeg returns the direction of Axis in degrees, in (-180, 180].
func (r Rect) AngleDeg() float64 {
	return math.Atan2(r.Axis.Y, r.Axis.X) * 180 / math.Pi
}

// Corners returns the rectangle corners starting at the (-w/2, -h/2) local
// corner and walking along Axis first.
func (r Rect) Corners() [4]Point {
	u := r.Axis
	v := Point{X: -u.Y, Y: u.X}
	hw, hh := r.Width/2, r.Height/2
	local := [4][2]float64{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
	var out [4]Point
	for i, l := range local {
		out[i] = r.Center.Add(u.Scale(l[0])).Add(v.Scale(l[1]))
	}
	return out
}

// MinimumAreaRectangle computes the minimum-area enclosing rectangle using a
// rotating calipers approach over the convex hull. Degenerate inputs give
// zero-sized or zero-height rectangles rather than failing; ok is false only
// for an empty point set.
func MinimumAreaRectangle(pts []Point) (Rect, bool) {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return Rect{}, false
	case 1:
		return Rect{Center: hull[0], Axis: Point{X: 1}}, true
	case 2:
		d := hull[1].Sub(hull[0])
		l := math.Hypot(d.X, d.Y)
		return Rect{
			Center: hull[0].Add(hull[1]).Scale(0.5),
			Axis:   d.Scale(1 / l),
			Width:  l,
		}, true
	}
	return calipers(hull), true
}

// calipers tries every hull edge as the rectangle orientation and keeps the
// smallest projected box.
func calipers(hull []Point) Rect {
	bestArea := math.Inf(1)
	var best Rect
	for i := range hull {
		d := hull[(i+1)%len(hull)].Sub(hull[i])
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		u := d.Scale(1 / l)
		v := Point{X: -u.Y, Y: u.X}
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s, t := p.Dot(u), p.Dot(v)
			minS, maxS = math.Min(minS, s), math.Max(maxS, s)
			minT, maxT = math.Min(minT, t), math.Max(maxT, t)
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			cs, ct := (minS+maxS)/2, (minT+maxT)/2
			best = Rect{
				Center: u.Scale(cs).Add(v.Scale(ct)),
				Axis:   u,
				Width:  maxS - minS,
				Height: maxT - minT,
			}
		}
	}
	return best
}
