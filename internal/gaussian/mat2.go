package gaussian

import "math"

// Mat2 is a 2x2 matrix [[A, B], [C, D]]. All covariance work here is on
// fixed 2x2 blocks, so closed forms replace a general dense solver.
type Mat2 struct {
	A, B float64
	C, D float64
}

// Identity returns the 2x2 identity.
func Identity() Mat2 { return Mat2{A: 1, D: 1} }

// Diag returns diag(a, d).
func Diag(a, d float64) Mat2 { return Mat2{A: a, D: d} }

// Rotation returns the counter-clockwise rotation by theta radians.
func Rotation(theta float64) Mat2 {
	s, c := math.Sincos(theta)
	return Mat2{A: c, B: -s, C: s, D: c}
}

// Mul returns m·n.
func (m Mat2) Mul(n Mat2) Mat2 {
	return Mat2{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
	}
}

// Add returns m+n.
func (m Mat2) Add(n Mat2) Mat2 { return Mat2{A: m.A + n.A, B: m.B + n.B, C: m.C + n.C, D: m.D + n.D} }

// Sub returns m-n.
func (m Mat2) Sub(n Mat2) Mat2 { return Mat2{A: m.A - n.A, B: m.B - n.B, C: m.C - n.C, D: m.D - n.D} }

// Scale returns s·m.
func (m Mat2) Scale(s float64) Mat2 { return Mat2{A: s * m.A, B: s * m.B, C: s * m.C, D: s * m.D} }

// T returns the transpose.
func (m Mat2) T() Mat2 { return Mat2{A: m.A, B: m.C, C: m.B, D: m.D} }

// Trace returns A+D.
func (m Mat2) Trace() float64 { return m.A + m.D }

// Det returns AD-BC.
func (m Mat2) Det() float64 { return m.A*m.D - m.B*m.C }

// Regularize returns m + eps·I.
func (m Mat2) Regularize(eps float64) Mat2 {
	m.A += eps
	m.D += eps
	return m
}

// Inverse returns the closed-form inverse. A singular m yields ±Inf/NaN
// entries; regularize first when that matters.
func (m Mat2) Inverse() Mat2 {
	det := m.Det()
	return Mat2{A: m.D / det, B: -m.B / det, C: -m.C / det, D: m.A / det}
}

// QuadForm returns [x y]·m·[x y]ᵀ.
func (m Mat2) QuadForm(x, y float64) float64 {
	return x*(m.A*x+m.B*y) + y*(m.C*x+m.D*y)
}

// TraceSqrt returns Tr(√m) for a positive semi-definite m, using
// Tr(√m)² = Tr(m) + 2√det(m). Round-off that pushes det or the sum below
// zero is clamped.
func (m Mat2) TraceSqrt() float64 {
	s := math.Sqrt(math.Max(m.Det(), 0))
	return math.Sqrt(math.Max(m.Trace()+2*s, 0))
}

// Sqrt returns the principal square root of a positive semi-definite m:
// √m = (m + √det·I) / Tr(√m).
func (m Mat2) Sqrt() Mat2 {
	s := math.Sqrt(math.Max(m.Det(), 0))
	t := math.Sqrt(math.Max(m.Trace()+2*s, 0))
	if t == 0 {
		return Mat2{}
	}
	return m.Regularize(s).Scale(1 / t)
}

// IsSymmetric reports whether |B-C| <= tol.
func (m Mat2) IsSymmetric(tol float64) bool { return math.Abs(m.B-m.C) <= tol }
