package geometry

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order (in a y-up frame)
// without duplicating the first point at the end. Collinear points are
// dropped.
func ConvexHull(pts []Point) []Point {
	n := len(pts)
	if n <= 1 {
		return append([]Point(nil), pts...)
	}
	p := make([]Point, n)
	copy(p, pts)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	p = dedupSorted(p)
	if len(p) <= 2 {
		return p
	}
	lower := halfHull(p, 0, len(p), 1)
	upper := halfHull(p, len(p)-1, -1, -1)
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

// halfHull walks p from start towards stop (exclusive) keeping left turns.
func halfHull(p []Point, start, stop, step int) []Point {
	out := make([]Point, 0, len(p))
	for i := start; i != stop; i += step {
		pt := p[i]
		for len(out) >= 2 && cross(out[len(out)-2], out[len(out)-1], pt) <= 0 {
			out = out[:len(out)-1]
		}
		out = append(out, pt)
	}
	return out
}

// dedupSorted drops exact repeats from a sorted slice in place.
func dedupSorted(p []Point) []Point {
	q := p[:1]
	for _, pt := range p[1:] {
		last := q[len(q)-1]
		if pt.X != last.X || pt.Y != last.Y {
			q = append(q, pt)
		}
	}
	return q
}

// PolygonArea returns the unsigned area of a simple polygon using the
// shoelace formula. Fewer than three vertices have zero area.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var twice float64
	for i := range pts {
		j := (i + 1) % len(pts)
		twice += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(twice) / 2
}

// ConvexArea returns the area of the convex hull of pts.
func ConvexArea(pts []Point) float64 {
	return PolygonArea(ConvexHull(pts))
}
