package autodiff

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/MeKo-Tech/rboxdist/internal/testutil"
)

func relClose(t *testing.T, want, got, rel float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want, got, rel*math.Max(1, math.Abs(want)), msgAndArgs...)
}

func TestEvaluateGWDMatchesForward(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pred := testutil.RandomBoxes(rng, 16, 2, 60)
	target := testutil.Jitter(rng, pred, 5)

	res, err := Evaluate(pred, target, DefaultOptions())
	require.NoError(t, err)
	want, err := distance.GWD(pred, target)
	require.NoError(t, err)

	require.Len(t, res.Distances, len(want))
	for i := range want {
		relClose(t, want[i], res.Distances[i], 1e-6, "pair %d", i)
	}
}

func TestEvaluateKLDMatchesForward(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	pred := testutil.RandomBoxes(rng, 16, 2, 60)
	target := testutil.Jitter(rng, pred, 5)

	opts := DefaultOptions()
	opts.Metric = MetricKLD
	res, err := Evaluate(pred, target, opts)
	require.NoError(t, err)
	want, err := distance.KLD(pred, target, distance.Options{Epsilon: opts.Epsilon})
	require.NoError(t, err)

	for i := range want {
		relClose(t, want[i], res.Distances[i], 1e-6, "pair %d", i)
	}
}

func TestEvaluateLossMatchesNormalize(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pred := testutil.RandomBoxes(rng, 8, 2, 40)
	target := testutil.Jitter(rng, pred, 3)

	for _, fn := range []distance.LossFn{distance.LossLog1p, distance.LossSqrt, distance.LossNone} {
		t.Run(string(fn), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Loss = distance.LossOptions{Fn: fn, Tau: 2}
			res, err := Evaluate(pred, target, opts)
			require.NoError(t, err)

			mean := 0.0
			for i, d := range res.Distances {
				assert.InDelta(t, opts.Loss.Normalize(d), res.Losses[i], 1e-6)
				mean += res.Losses[i]
			}
			assert.InDelta(t, mean/float64(len(pred)), res.Cost, 1e-12)
		})
	}
}

func TestEvaluateIdenticalBoxes(t *testing.T) {
	boxes := testutil.ScenarioBoxes1
	for _, m := range []Metric{MetricGWD, MetricKLD} {
		t.Run(string(m), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Metric = m
			res, err := Evaluate(boxes, boxes, opts)
			require.NoError(t, err)
			for i, d := range res.Distances {
				assert.InDelta(t, 0.0, d, 1e-3, "pair %d", i)
				g := res.Grads[i]
				assert.InDelta(t, 0.0, g.DX, 1e-6)
				assert.InDelta(t, 0.0, g.DY, 1e-6)
			}
		})
	}
}

func TestEvaluateSmallIdenticalBoxes(t *testing.T) {
	boxes := []rbox.Box{
		{CX: 3, CY: 4, W: 1, H: 0.5, Angle: 10},
		{CX: 0, CY: 0, W: 0.02, H: 0.01, Angle: -30},
		{CX: 7, CY: 7, W: 0, H: 0},
		{CX: 1, CY: 1, W: 0, H: 5, Angle: 45},
	}
	for _, m := range []Metric{MetricGWD, MetricKLD} {
		for _, fn := range []distance.LossFn{distance.LossLog1p, distance.LossSqrt, distance.LossNone} {
			t.Run(string(m)+"/"+string(fn), func(t *testing.T) {
				opts := DefaultOptions()
				opts.Metric = m
				opts.Loss = distance.LossOptions{Fn: fn, Tau: 1}
				res, err := Evaluate(boxes, boxes, opts)
				require.NoError(t, err)

				require.False(t, math.IsNaN(res.Cost), "cost")
				for i, d := range res.Distances {
					assert.GreaterOrEqual(t, d, 0.0, "pair %d", i)
					assert.InDelta(t, 0.0, d, 1e-9, "pair %d", i)
					assert.InDelta(t, opts.Loss.Normalize(0), res.Losses[i], 1e-3, "pair %d", i)

					g := res.Grads[i]
					for _, v := range []float64{g.DX, g.DY, g.DW, g.DH, g.DAngle} {
						assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "pair %d gradient %v", i, g)
					}
				}
			})
		}
	}
}

// TestGradientsFiniteDifference checks the symbolic gradient against central
// differences of the summed loss.
func TestGradientsFiniteDifference(t *testing.T) {
	pred := []rbox.Box{
		{CX: 10, CY: 12, W: 20, H: 8, Angle: 15},
		{CX: -4, CY: 3, W: 6, H: 14, Angle: -40},
	}
	target := []rbox.Box{
		{CX: 13, CY: 10, W: 18, H: 10, Angle: 30},
		{CX: -1, CY: 5, W: 9, H: 12, Angle: -10},
	}
	const h = 1e-5

	for _, m := range []Metric{MetricGWD, MetricKLD} {
		t.Run(string(m), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Metric = m
			opts.Reduction = ReduceSum
			res, err := Evaluate(pred, target, opts)
			require.NoError(t, err)

			cost := func(boxes []rbox.Box) float64 {
				r, err := Evaluate(boxes, target, opts)
				require.NoError(t, err)
				return r.Cost
			}
			setters := []struct {
				name string
				set  func(b *rbox.Box, d float64)
				get  func(g BoxGrad) float64
			}{
				{"x", func(b *rbox.Box, d float64) { b.CX += d }, func(g BoxGrad) float64 { return g.DX }},
				{"y", func(b *rbox.Box, d float64) { b.CY += d }, func(g BoxGrad) float64 { return g.DY }},
				{"w", func(b *rbox.Box, d float64) { b.W += d }, func(g BoxGrad) float64 { return g.DW }},
				{"h", func(b *rbox.Box, d float64) { b.H += d }, func(g BoxGrad) float64 { return g.DH }},
				{"angle", func(b *rbox.Box, d float64) { b.Angle += d }, func(g BoxGrad) float64 { return g.DAngle }},
			}
			for i := range pred {
				for _, s := range setters {
					plus := append([]rbox.Box(nil), pred...)
					minus := append([]rbox.Box(nil), pred...)
					s.set(&plus[i], h)
					s.set(&minus[i], -h)
					numeric := (cost(plus) - cost(minus)) / (2 * h)
					assert.InDelta(t, numeric, s.get(res.Grads[i]), 1e-5+1e-3*math.Abs(numeric),
						"box %d param %s", i, s.name)
				}
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(testutil.ScenarioBoxes1, testutil.ScenarioBoxes2[:1], DefaultOptions())
	assert.ErrorIs(t, err, rbox.ErrShapeMismatch)

	opts := DefaultOptions()
	opts.Metric = "iou"
	_, err = Evaluate(testutil.ScenarioBoxes1, testutil.ScenarioBoxes2, opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Loss.Fn = "cube"
	_, err = Evaluate(testutil.ScenarioBoxes1, testutil.ScenarioBoxes2, opts)
	assert.Error(t, err)
}

func TestEvaluateEmpty(t *testing.T) {
	res, err := Evaluate(nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Distances)
	assert.Empty(t, res.Grads)
	assert.Zero(t, res.Cost)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("kld")
	require.NoError(t, err)
	assert.Equal(t, MetricKLD, m)
	assert.Equal(t, "kld", m.String())
	_, err = ParseMetric("iou")
	assert.Error(t, err)
}
