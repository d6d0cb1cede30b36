// Package autodiff builds differentiable GWD and KLD losses over box batches
// with gorgonia. Every expression is element-wise over the batch and has no
// value-dependent branches, so gradients flow through all pairs. Degenerate
// inputs are guarded with an epsilon rather than control flow.
package autodiff

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"

	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/metrics"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// Metric selects the distance the graph computes.
type Metric string

const (
	MetricGWD Metric = "gwd"
	MetricKLD Metric = "kld"
)

// Reduction folds per-pair losses into the scalar cost.
type Reduction string

const (
	ReduceMean Reduction = "mean"
	ReduceSum  Reduction = "sum"
)

// Options configures Evaluate.
type Options struct {
	Metric    Metric
	Epsilon   float64
	Loss      distance.LossOptions
	Reduction Reduction
}

// DefaultOptions returns GWD with log1p loss and mean reduction.
func DefaultOptions() Options {
	return Options{
		Metric:    MetricGWD,
		Epsilon:   distance.DefaultEpsilon,
		Loss:      distance.DefaultLossOptions(),
		Reduction: ReduceMean,
	}
}

// BoxGrad is the gradient of the cost with respect to one predicted box.
// DAngle is per degree.
type BoxGrad struct {
	DX     float64 `json:"dx" yaml:"dx"`
	DY     float64 `json:"dy" yaml:"dy"`
	DW     float64 `json:"dw" yaml:"dw"`
	DH     float64 `json:"dh" yaml:"dh"`
	DAngle float64 `json:"dangle" yaml:"dangle"`
}

// Result holds one forward and backward pass.
type Result struct {
	Distances []float64 `json:"distances" yaml:"distances"`
	Losses    []float64 `json:"losses" yaml:"losses"`
	Cost      float64   `json:"cost" yaml:"cost"`
	Grads     []BoxGrad `json:"grads" yaml:"grads"`
}

// params holds the five parameter vectors of a batch.
type params struct {
	x, y, w, h, a *G.Node
}

func (b *builder) boxParams(prefix string, boxes []rbox.Box) params {
	cols := make([][]float64, 5)
	for i := range cols {
		cols[i] = make([]float64, len(boxes))
	}
	for i, bx := range boxes {
		cols[0][i], cols[1][i], cols[2][i], cols[3][i], cols[4][i] = bx.CX, bx.CY, bx.W, bx.H, bx.Angle
	}
	return params{
		x: b.vector(prefix+"_x", cols[0]),
		y: b.vector(prefix+"_y", cols[1]),
		w: b.vector(prefix+"_w", cols[2]),
		h: b.vector(prefix+"_h", cols[3]),
		a: b.vector(prefix+"_angle", cols[4]),
	}
}

// sigma holds the symmetric 2x2 matrix [[s11, s12], [s12, s22]] per pair.
type sigma struct {
	s11, s12, s22 *G.Node
}

// Evaluate computes distances, normalised losses, the reduced cost and the
// gradient of the cost with respect to every predicted box parameter.
func Evaluate(pred, target []rbox.Box, opts Options) (*Result, error) {
	start := time.Now()
	if err := rbox.CheckPaired(len(pred), len(target)); err != nil {
		metrics.ObserveBatch(metrics.OpGradient, 0, start, err)
		return nil, errors.Wrap(err, "autodiff")
	}
	if err := opts.Loss.Validate(); err != nil {
		return nil, errors.Wrap(err, "autodiff")
	}
	if len(pred) == 0 {
		return &Result{Distances: []float64{}, Losses: []float64{}, Grads: []BoxGrad{}}, nil
	}

	res, err := run(pred, target, opts)
	metrics.ObserveBatch(metrics.OpGradient, len(pred), start, err)
	if err != nil {
		return nil, err
	}
	slog.Debug("Gradient batch evaluated",
		"metric", opts.Metric,
		"pairs", len(pred),
		"cost", res.Cost,
		"duration", time.Since(start))
	return res, nil
}

func run(pred, target []rbox.Box, opts Options) (*Result, error) {
	b := newBuilder(len(pred))
	p := b.boxParams("pred", pred)
	t := b.boxParams("target", target)

	var dist *G.Node
	switch opts.Metric {
	case MetricGWD:
		dist = b.gwd(p, t, opts.Epsilon)
	case MetricKLD:
		dist = b.kld(p, t, opts.Epsilon)
	default:
		return nil, errors.Errorf("autodiff: unknown metric %q", opts.Metric)
	}
	loss := b.loss(dist, opts.Loss, opts.Epsilon)

	var cost *G.Node
	if b.err == nil {
		var err error
		if opts.Reduction == ReduceSum {
			cost, err = G.Sum(loss)
		} else {
			cost, err = G.Mean(loss)
		}
		if err != nil {
			return nil, errors.Wrap(err, "autodiff: reduce loss")
		}
	}
	if b.err != nil {
		return nil, errors.Wrap(b.err, "autodiff: build graph")
	}

	wrt := []*G.Node{p.x, p.y, p.w, p.h, p.a}
	grads, err := G.Grad(cost, wrt...)
	if err != nil {
		return nil, errors.Wrap(err, "autodiff: symbolic gradient")
	}

	var distV, lossV, costV G.Value
	b.read(dist, &distV)
	b.read(loss, &lossV)
	b.read(cost, &costV)
	gradV := make([]G.Value, len(grads))
	for i, gn := range grads {
		b.read(gn, &gradV[i])
	}

	vm := G.NewTapeMachine(b.g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "autodiff: run tape machine")
	}

	res := &Result{}
	if res.Distances, err = floats(distV); err != nil {
		return nil, errors.Wrap(err, "autodiff: distances")
	}
	if res.Losses, err = floats(lossV); err != nil {
		return nil, errors.Wrap(err, "autodiff: losses")
	}
	c, err := floats(costV)
	if err != nil {
		return nil, errors.Wrap(err, "autodiff: cost")
	}
	res.Cost = c[0]

	cols := make([][]float64, len(gradV))
	for i, v := range gradV {
		if cols[i], err = floats(v); err != nil {
			return nil, errors.Wrapf(err, "autodiff: gradient %d", i)
		}
		if len(cols[i]) != len(pred) {
			return nil, errors.Errorf("autodiff: gradient %d has %d entries, want %d", i, len(cols[i]), len(pred))
		}
	}
	res.Grads = make([]BoxGrad, len(pred))
	for i := range res.Grads {
		res.Grads[i] = BoxGrad{DX: cols[0][i], DY: cols[1][i], DW: cols[2][i], DH: cols[3][i], DAngle: cols[4][i]}
	}
	return res, nil
}

// sigmaOf builds Σ = R·diag(w/2, h/2)·Rᵀ element-wise, with the angle read
// in degrees along the w axis. Also returns the half sides.
func (b *builder) sigmaOf(p params, half, degToRad *G.Node) (sigma, *G.Node, *G.Node) {
	theta := b.mul(p.a, degToRad)
	c, s := b.cos(theta), b.sin(theta)
	c2, s2 := b.square(c), b.square(s)
	ha, hb := b.mul(p.w, half), b.mul(p.h, half)
	return sigma{
		s11: b.add(b.mul(ha, c2), b.mul(hb, s2)),
		s12: b.mul(b.sub(ha, hb), b.mul(s, c)),
		s22: b.add(b.mul(ha, s2), b.mul(hb, c2)),
	}, ha, hb
}

// squared returns Σ·Σ element-wise.
func (b *builder) squared(s sigma) sigma {
	off2 := b.square(s.s12)
	return sigma{
		s11: b.add(b.square(s.s11), off2),
		s12: b.mul(s.s12, b.add(s.s11, s.s22)),
		s22: b.add(off2, b.square(s.s22)),
	}
}

// traceProduct returns Tr(A·B) for symmetric A and B.
func (b *builder) traceProduct(x, y sigma, two *G.Node) *G.Node {
	return b.sum(
		b.mul(x.s11, y.s11),
		b.mul(two, b.mul(x.s12, y.s12)),
		b.mul(x.s22, y.s22),
	)
}

func (b *builder) centreDistance(p, t params) (dx, dy *G.Node) {
	return b.sub(t.x, p.x), b.sub(t.y, p.y)
}

// gwd builds max(0, |Δμ|² + Tr(Σ1²) + Tr(Σ2²) - 2·√(Tr(Σ1²Σ2²) + 2·detΣ1·detΣ2 + ε)).
// Tr(Σ²) and detΣ come straight from the half sides. The ε keeps the root
// differentiable for zero-size boxes and pushes identical pairs slightly
// below zero, where the clamp returns 0 with a zero gradient.
func (b *builder) gwd(p, t params, eps float64) *G.Node {
	half := b.fill("half", 0.5)
	two := b.fill("two", 2)
	degToRad := b.fill("deg_to_rad", math.Pi/180)
	epsV := b.fill("eps", eps)

	s1, a1, b1 := b.sigmaOf(p, half, degToRad)
	s2, a2, b2 := b.sigmaOf(t, half, degToRad)

	dx, dy := b.centreDistance(p, t)
	centre := b.add(b.square(dx), b.square(dy))
	tr1 := b.add(b.square(a1), b.square(b1))
	tr2 := b.add(b.square(a2), b.square(b2))

	cross := b.traceProduct(b.squared(s1), b.squared(s2), two)
	dets := b.mul(b.mul(a1, b1), b.mul(a2, b2))
	trSqrt := b.sqrt(b.sum(cross, b.mul(two, dets), epsV))

	return b.relu(b.sub(b.sum(centre, tr1, tr2), b.mul(two, trSqrt)), half)
}

// kld builds KL(pred ‖ target) with covariances Σ²+εI, clamped at 0 so
// round-off on identical pairs cannot feed a negative into the loss.
func (b *builder) kld(p, t params, eps float64) *G.Node {
	half := b.fill("half", 0.5)
	two := b.fill("two", 2)
	degToRad := b.fill("deg_to_rad", math.Pi/180)
	epsV := b.fill("eps", eps)

	s1, _, _ := b.sigmaOf(p, half, degToRad)
	s2, _, _ := b.sigmaOf(t, half, degToRad)
	c1, c2 := b.squared(s1), b.squared(s2)
	c1.s11, c1.s22 = b.add(c1.s11, epsV), b.add(c1.s22, epsV)
	c2.s11, c2.s22 = b.add(c2.s11, epsV), b.add(c2.s22, epsV)

	det1 := b.sub(b.mul(c1.s11, c1.s22), b.square(c1.s12))
	det2 := b.sub(b.mul(c2.s11, c2.s22), b.square(c2.s12))

	// adj(C2) = [[c22, -c12], [-c12, c11]]; Tr(adj·C1) by hand.
	trAdj := b.sub(
		b.add(b.mul(c2.s22, c1.s11), b.mul(c2.s11, c1.s22)),
		b.mul(two, b.mul(c2.s12, c1.s12)),
	)
	dx, dy := b.centreDistance(p, t)
	mahalAdj := b.sub(
		b.add(b.mul(c2.s22, b.square(dx)), b.mul(c2.s11, b.square(dy))),
		b.mul(two, b.mul(c2.s12, b.mul(dx, dy))),
	)
	logDet := b.sub(b.log(det2), b.log(det1))

	inner := b.sub(b.add(b.div(b.add(trAdj, mahalAdj), det2), logDet), two)
	return b.relu(b.mul(inner, half), half)
}

// loss builds 1 - 1/(τ + f(d)).
func (b *builder) loss(dist *G.Node, opts distance.LossOptions, eps float64) *G.Node {
	one := b.fill("one", 1)
	tau := b.fill("tau", opts.Tau)

	var shaped *G.Node
	switch opts.Fn {
	case distance.LossSqrt:
		shaped = b.sqrt(b.add(dist, b.fill("loss_eps", eps)))
	case distance.LossNone:
		shaped = dist
	default:
		shaped = b.log1p(dist)
	}
	return b.sub(one, b.div(one, b.add(tau, shaped)))
}

// String implements fmt.Stringer for log output.
func (m Metric) String() string { return string(m) }

// ParseMetric accepts gwd or kld.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricGWD, MetricKLD:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q (want gwd or kld)", s)
	}
}
