// Package gaussian models oriented boxes as 2-D Gaussians. A box becomes a
// mean at its centre and a symmetric positive semi-definite Σ whose
// eigenvalues are (w/2, h/2) along the box axes; GWD and KLD are computed
// on Σ² as the covariance.
package gaussian

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/MeKo-Tech/rboxdist/internal/geometry"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// ErrDecompose is returned when Σ cannot be eigen-decomposed.
var ErrDecompose = errors.New("gaussian: eigen decomposition failed")

// Convention selects how a box angle is read before building Σ.
type Convention int

const (
	// Direct uses the box angle as given: the w axis runs along
	// (cos θ, sin θ), matching rbox corner placement.
	Direct Convention = iota
	// LongSideFlipped first moves the box to the long-side convention, then
	// uses -(θ+90)° as the rotation.
	LongSideFlipped
)

// Gaussian is the box model (μ, Σ).
type Gaussian struct {
	Mu    geometry.Point
	Sigma Mat2
}

// Covariance returns Σ·Σ.
func (g Gaussian) Covariance() Mat2 { return g.Sigma.Mul(g.Sigma) }

// FromBox builds the Gaussian of b with the Direct convention.
func FromBox(b rbox.Box) Gaussian {
	return Gaussian{Mu: b.Center(), Sigma: Sigma(b.W, b.H, b.Radians())}
}

// FromBoxLongSide builds the Gaussian of b with the LongSideFlipped
// convention.
func FromBoxLongSide(b rbox.Box) Gaussian {
	ls := rbox.ToLongSide(b)
	theta := -(ls.Angle + 90) * math.Pi / 180
	return Gaussian{Mu: b.Center(), Sigma: Sigma(ls.W, ls.H, theta)}
}

// FromBoxes converts a batch with one convention.
func FromBoxes(boxes []rbox.Box, conv Convention) []Gaussian {
	f := FromBox
	if conv == LongSideFlipped {
		f = FromBoxLongSide
	}
	out := make([]Gaussian, len(boxes))
	for i, b := range boxes {
		out[i] = f(b)
	}
	return out
}

// Sigma returns R(θ)·diag(w/2, h/2)·R(θ)ᵀ written out element-wise.
func Sigma(w, h, theta float64) Mat2 {
	s, c := math.Sincos(theta)
	a, b := w/2, h/2
	off := (a - b) * s * c
	return Mat2{
		A: a*c*c + b*s*s, B: off,
		C: off, D: a*s*s + b*c*c,
	}
}

// Decompose recovers the long-side box (w >= h, angle in [-90, 90)) whose
// Gaussian is g. The angle is undefined for w == h and comes back as
// whatever eigenvector the solver picked.
func Decompose(g Gaussian) (rbox.Box, error) {
	sym := mat.NewSymDense(2, []float64{g.Sigma.A, g.Sigma.B, g.Sigma.B, g.Sigma.D})
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return rbox.Box{}, fmt.Errorf("%w: Σ=%+v", ErrDecompose, g.Sigma)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Values are ascending; the last column belongs to the major axis.
	major, minor := vals[1], vals[0]
	angle := math.Atan2(vecs.At(1, 1), vecs.At(0, 1)) * 180 / math.Pi
	return rbox.Box{
		CX:    g.Mu.X,
		CY:    g.Mu.Y,
		W:     2 * math.Max(major, 0),
		H:     2 * math.Max(minor, 0),
		Angle: rbox.WrapAngle(angle, -90),
	}, nil
}
