package geometry

import (
	"math"

	"github.com/MeKo-Tech/rboxdist/internal/mempool"
)

// containEps widens the containment test so that shared edges and corners
// survive floating-point noise.
const containEps = 1e-9

// maxIntersectionPoints bounds the candidates of two quadrilaterals:
// 8 contained corners plus 16 edge crossings.
const maxIntersectionPoints = 24

// pointPool holds scratch candidate buffers for IntersectionArea, which
// runs once per pair in the IoU engine.
var pointPool mempool.Pool[Point]

// RectIntersection returns the vertices of the intersection region of two
// convex quadrilaterals given by their corners in walking order: corners of
// one lying inside the other plus every edge/edge crossing. The set is
// unordered and may contain near-duplicates; pass it through ConvexHull
// before measuring. An empty result means the rectangles do not overlap.
func RectIntersection(a, b [4]Point) []Point {
	return appendIntersection(make([]Point, 0, maxIntersectionPoints), a, b)
}

func appendIntersection(pts []Point, a, b [4]Point) []Point {
	for _, p := range a {
		if insideRect(p, b) {
			pts = append(pts, p)
		}
	}
	for _, p := range b {
		if insideRect(p, a) {
			pts = append(pts, p)
		}
	}
	for i := range 4 {
		for j := range 4 {
			if p, ok := segmentIntersection(a[i], a[(i+1)%4], b[j], b[(j+1)%4]); ok {
				pts = append(pts, p)
			}
		}
	}
	return pts
}

// IntersectionArea returns the overlapping area of two rotated rectangles.
func IntersectionArea(a, b [4]Point) float64 {
	buf := pointPool.Get(maxIntersectionPoints)
	defer pointPool.Put(buf)
	pts := appendIntersection(buf[:0], a, b)
	if len(pts) < 3 {
		return 0
	}
	return ConvexArea(pts)
}

// insideRect projects p onto the two edges leaving corner r[0].
func insideRect(p Point, r [4]Point) bool {
	ab := r[1].Sub(r[0])
	ad := r[3].Sub(r[0])
	ap := p.Sub(r[0])
	abab, abap := ab.Dot(ab), ab.Dot(ap)
	adad, adap := ad.Dot(ad), ad.Dot(ap)
	tolAB := containEps * math.Max(1, abab)
	tolAD := containEps * math.Max(1, adad)
	return abap >= -tolAB && abap <= abab+tolAB && adap >= -tolAD && adap <= adad+tolAD
}

// segmentIntersection intersects segments p1p2 and q1q2. Parallel segments
// report no crossing; their overlap is already covered by corner
// containment.
func segmentIntersection(p1, p2, q1, q2 Point) (Point, bool) {
	r := p2.Sub(p1)
	s := q2.Sub(q1)
	denom := r.Cross(s)
	scale := math.Max(1, math.Sqrt(r.Dot(r)*s.Dot(s)))
	if math.Abs(denom) <= 1e-12*scale {
		return Point{}, false
	}
	qp := q1.Sub(p1)
	t := qp.Cross(s) / denom
	u := qp.Cross(r) / denom
	const tol = 1e-12
	if t < -tol || t > 1+tol || u < -tol || u > 1+tol {
		return Point{}, false
	}
	return p1.Add(r.Scale(t)), true
}
