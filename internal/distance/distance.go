// Package distance computes Gaussian-Wasserstein distance and KL divergence
// between batches of oriented boxes modelled as 2-D Gaussians.
//
// These are forward float64 evaluations for matching, metrics and tooling.
// The differentiable training path lives in package autodiff and must agree
// with the values produced here.
package distance

import (
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/rboxdist/internal/gaussian"
	"github.com/MeKo-Tech/rboxdist/internal/metrics"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// DefaultEpsilon regularises KLD covariances.
const DefaultEpsilon = 1e-7

// Options controls the numerical guards.
type Options struct {
	// Epsilon is added to the diagonal of both Σ² before KLD inversion.
	// Zero disables the guard; degenerate boxes then produce Inf or NaN.
	Epsilon float64
}

// DefaultOptions returns the default guard settings.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon}
}

// GWDPair returns the squared 2-Wasserstein distance between two Gaussian
// box models, using Σ² as the covariance:
//
//	W² = |μ1-μ2|² + Tr(Σ1²) + Tr(Σ2²) - 2·Tr√(Σ1·Σ2²·Σ1)
//
// The result is clamped at zero.
func GWDPair(g1, g2 gaussian.Gaussian) float64 {
	dx, dy := g1.Mu.X-g2.Mu.X, g1.Mu.Y-g2.Mu.Y
	s1, s2 := g1.Sigma, g2.Sigma
	m := s1.Mul(s2.Mul(s2)).Mul(s1)
	// det(Σ1Σ2²Σ1) = det(Σ1)²·det(Σ2)²; take the root from the factors.
	root := math.Abs(s1.Det() * s2.Det())
	trSqrt := math.Sqrt(math.Max(m.Trace()+2*root, 0))
	w2 := dx*dx + dy*dy + s1.Mul(s1).Trace() + s2.Mul(s2).Trace() - 2*trSqrt
	return math.Max(w2, 0)
}

// FrobeniusPair returns |μ1-μ2|² + ‖Σ1-Σ2‖²_F. It equals GWDPair when Σ1
// and Σ2 commute and bounds it from above otherwise.
func FrobeniusPair(g1, g2 gaussian.Gaussian) float64 {
	dx, dy := g1.Mu.X-g2.Mu.X, g1.Mu.Y-g2.Mu.Y
	d := g1.Sigma.Sub(g2.Sigma)
	return dx*dx + dy*dy + d.A*d.A + d.B*d.B + d.C*d.C + d.D*d.D
}

// KLDPair returns KL(N1 ‖ N2) with covariances Σ1²+εI and Σ2²+εI. It is not
// symmetric; see KLDSymmetricPair.
func KLDPair(g1, g2 gaussian.Gaussian, eps float64) float64 {
	c1 := g1.Covariance().Regularize(eps)
	c2 := g2.Covariance().Regularize(eps)
	inv := c2.Inverse()
	dx, dy := g2.Mu.X-g1.Mu.X, g2.Mu.Y-g1.Mu.Y
	trace := inv.Mul(c1).Trace()
	mahal := inv.QuadForm(dx, dy)
	logDet := math.Log(c2.Det() / c1.Det())
	return (trace + mahal + logDet - 2) / 2
}

// KLDSymmetricPair returns KL(N1‖N2) + KL(N2‖N1).
func KLDSymmetricPair(g1, g2 gaussian.Gaussian, eps float64) float64 {
	return KLDPair(g1, g2, eps) + KLDPair(g2, g1, eps)
}

// GWD evaluates the paired distance between pred[i] and target[i]. Boxes go
// through the long-side convention first; the distance does not depend on
// that choice as long as both sides use the same one.
func GWD(pred, target []rbox.Box) ([]float64, error) {
	return GWDWith(pred, target, gaussian.LongSideFlipped)
}

// GWDWith is GWD with an explicit angle convention.
func GWDWith(pred, target []rbox.Box, conv gaussian.Convention) ([]float64, error) {
	return paired(metrics.OpGWD, pred, target, conv, GWDPair)
}

// GWDFrobenius evaluates FrobeniusPair with the long-side convention.
func GWDFrobenius(pred, target []rbox.Box) ([]float64, error) {
	return paired(metrics.OpGWD, pred, target, gaussian.LongSideFlipped, FrobeniusPair)
}

// KLD evaluates KL(pred[i] ‖ target[i]) with the direct angle convention.
func KLD(pred, target []rbox.Box, opts Options) ([]float64, error) {
	return paired(metrics.OpKLD, pred, target, gaussian.Direct, func(a, b gaussian.Gaussian) float64 {
		return KLDPair(a, b, opts.Epsilon)
	})
}

// KLDSymmetric evaluates KL in both directions and sums them.
func KLDSymmetric(pred, target []rbox.Box, opts Options) ([]float64, error) {
	return paired(metrics.OpKLD, pred, target, gaussian.Direct, func(a, b gaussian.Gaussian) float64 {
		return KLDSymmetricPair(a, b, opts.Epsilon)
	})
}

func paired(op string, pred, target []rbox.Box, conv gaussian.Convention, fn func(a, b gaussian.Gaussian) float64) ([]float64, error) {
	start := time.Now()
	if err := rbox.CheckPaired(len(pred), len(target)); err != nil {
		metrics.ObserveBatch(op, 0, start, err)
		return nil, err
	}
	if len(pred) == 0 {
		return []float64{}, nil
	}

	g1 := gaussian.FromBoxes(pred, conv)
	g2 := gaussian.FromBoxes(target, conv)
	out := make([]float64, len(pred))
	for i := range out {
		out[i] = fn(g1[i], g2[i])
	}

	degenerate := rbox.CountDegenerate(pred) + rbox.CountDegenerate(target)
	metrics.ObserveDegenerate(op, degenerate)
	metrics.ObserveBatch(op, len(out), start, nil)
	slog.Debug("Distance batch evaluated",
		"op", op,
		"pairs", len(out),
		"degenerate", degenerate,
		"duration", time.Since(start))
	return out, nil
}
