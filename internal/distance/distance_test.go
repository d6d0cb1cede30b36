package distance_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/gaussian"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/MeKo-Tech/rboxdist/internal/testutil"
)

func TestGWDIdentical(t *testing.T) {
	boxes := append(append([]rbox.Box{}, testutil.ScenarioBoxes1...), testutil.ScenarioBoxes2...)
	got, err := distance.GWD(boxes, boxes)
	require.NoError(t, err)
	for i, d := range got {
		assert.InDelta(t, 0.0, d, 1e-6, "pair %d", i)
	}
}

func TestGWDEquivalentReadings(t *testing.T) {
	got, err := distance.GWD(testutil.EquivalentPredictions, testutil.EquivalentTargets)
	require.NoError(t, err)
	require.Len(t, got, len(testutil.EquivalentTargets))
	for i, d := range got {
		assert.InDelta(t, 0.0, d, 1e-6, "pair %d", i)
	}
}

func TestGWDTranslationOnly(t *testing.T) {
	// First scenario pair: same shape, centres 40 and 10 apart.
	got, err := distance.GWD(testutil.ScenarioBoxes1[:1], testutil.ScenarioBoxes2[:1])
	require.NoError(t, err)
	assert.InDelta(t, 1700.0, got[0], 1e-6)
}

func TestGWDAxisAligned(t *testing.T) {
	a := []rbox.Box{{W: 4, H: 2}}
	b := []rbox.Box{{W: 2, H: 4}}
	got, err := distance.GWD(a, b)
	require.NoError(t, err)
	// Commuting Σ: W² = ‖Σ1-Σ2‖²_F = 2.
	assert.InDelta(t, 2.0, got[0], 1e-12)
}

func TestGWDRotationChangesDistance(t *testing.T) {
	got, err := distance.GWD(testutil.ScenarioBoxes1[1:], testutil.ScenarioBoxes2[1:])
	require.NoError(t, err)
	assert.Greater(t, got[0], 1700.0)
}

func TestKLDIdentical(t *testing.T) {
	boxes := append(append([]rbox.Box{}, testutil.ScenarioBoxes1...), testutil.EquivalentPredictions...)
	got, err := distance.KLD(boxes, boxes, distance.DefaultOptions())
	require.NoError(t, err)
	for i, d := range got {
		assert.InDelta(t, 0.0, d, 1e-9, "pair %d", i)
	}

	got, err = distance.KLD(testutil.EquivalentPredictions, testutil.EquivalentTargets, distance.DefaultOptions())
	require.NoError(t, err)
	for i, d := range got {
		assert.InDelta(t, 0.0, d, 1e-6, "pair %d", i)
	}
}

func TestKLDClosedForm(t *testing.T) {
	a := []rbox.Box{{W: 4, H: 2}}
	b := []rbox.Box{{W: 2, H: 4}}
	got, err := distance.KLD(a, b, distance.Options{})
	require.NoError(t, err)
	assert.InDelta(t, 1.125, got[0], 1e-12)
}

func TestKLDTranslation(t *testing.T) {
	a := []rbox.Box{{CX: 0, CY: 0, W: 4, H: 2}}
	b := []rbox.Box{{CX: 3, CY: 1, W: 4, H: 2}}
	got, err := distance.KLD(a, b, distance.Options{})
	require.NoError(t, err)
	// ½·Δμᵀ·diag(1/4, 1)·Δμ
	assert.InDelta(t, 0.5*(9.0/4+1), got[0], 1e-12)
}

func TestKLDAsymmetric(t *testing.T) {
	a := []rbox.Box{{W: 4, H: 2}}
	b := []rbox.Box{{W: 2, H: 2}}
	opts := distance.Options{}

	ab, err := distance.KLD(a, b, opts)
	require.NoError(t, err)
	ba, err := distance.KLD(b, a, opts)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*(3-math.Log(4)), ab[0], 1e-12)
	assert.InDelta(t, 0.5*(math.Log(4)-0.75), ba[0], 1e-12)

	sym, err := distance.KLDSymmetric(a, b, opts)
	require.NoError(t, err)
	assert.InDelta(t, ab[0]+ba[0], sym[0], 1e-12)
}

func TestDegenerateBoxesStayFinite(t *testing.T) {
	a := []rbox.Box{{CX: 0, CY: 0, W: 0, H: 10, Angle: 30}, {W: 0, H: 0}}
	b := []rbox.Box{{CX: 1, CY: 1, W: 5, H: 10, Angle: 0}, {W: 0, H: 0}}

	gwd, err := distance.GWD(a, b)
	require.NoError(t, err)
	kld, err := distance.KLD(a, b, distance.DefaultOptions())
	require.NoError(t, err)
	for i := range a {
		assert.False(t, math.IsNaN(gwd[i]) || math.IsInf(gwd[i], 0), "gwd %d", i)
		assert.False(t, math.IsNaN(kld[i]) || math.IsInf(kld[i], 0), "kld %d", i)
	}
	assert.Equal(t, 3, rbox.CountDegenerate(append(a, b...)))
}

func TestShapeMismatch(t *testing.T) {
	_, err := distance.GWD(testutil.ScenarioBoxes1, testutil.ScenarioBoxes2[:1])
	assert.ErrorIs(t, err, rbox.ErrShapeMismatch)
	_, err = distance.KLD(testutil.ScenarioBoxes1[:1], nil, distance.DefaultOptions())
	assert.ErrorIs(t, err, rbox.ErrShapeMismatch)
	_, err = distance.KLDSymmetric(nil, testutil.ScenarioBoxes1, distance.DefaultOptions())
	assert.ErrorIs(t, err, rbox.ErrShapeMismatch)
}

func TestEmptyBatch(t *testing.T) {
	got, err := distance.GWD(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = distance.KLD([]rbox.Box{}, []rbox.Box{}, distance.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGWD_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("non-negative", prop.ForAll(
		func(a, b rbox.Box) bool {
			d, err := distance.GWD([]rbox.Box{a}, []rbox.Box{b})
			return err == nil && d[0] >= 0 && !math.IsNaN(d[0])
		},
		testutil.GenBox(), testutil.GenBox(),
	))

	properties.Property("symmetric", prop.ForAll(
		func(a, b rbox.Box) bool {
			ab := distance.GWDPair(gaussian.FromBox(a), gaussian.FromBox(b))
			ba := distance.GWDPair(gaussian.FromBox(b), gaussian.FromBox(a))
			return math.Abs(ab-ba) <= 1e-9*math.Max(1, ab)
		},
		testutil.GenBox(), testutil.GenBox(),
	))

	properties.Property("independent of the angle convention", prop.ForAll(
		func(a, b rbox.Box) bool {
			direct, err1 := distance.GWDWith([]rbox.Box{a}, []rbox.Box{b}, gaussian.Direct)
			flipped, err2 := distance.GWDWith([]rbox.Box{a}, []rbox.Box{b}, gaussian.LongSideFlipped)
			if err1 != nil || err2 != nil {
				return false
			}
			return math.Abs(direct[0]-flipped[0]) <= 1e-6*math.Max(1, direct[0])
		},
		testutil.GenBox(), testutil.GenBox(),
	))

	properties.Property("bounded by the Frobenius form", prop.ForAll(
		func(a, b rbox.Box) bool {
			g1, g2 := gaussian.FromBox(a), gaussian.FromBox(b)
			w := distance.GWDPair(g1, g2)
			return distance.FrobeniusPair(g1, g2) >= w-1e-9*math.Max(1, w)
		},
		testutil.GenBox(), testutil.GenBox(),
	))

	properties.TestingRun(t)
}

func TestGWDFrobeniusCommuting(t *testing.T) {
	a := []rbox.Box{{CX: 1, W: 4, H: 2}}
	b := []rbox.Box{{CX: 3, W: 2, H: 4}}
	exact, err := distance.GWD(a, b)
	require.NoError(t, err)
	approx, err := distance.GWDFrobenius(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, exact[0], 1e-12)
	assert.InDelta(t, exact[0], approx[0], 1e-12)
}

func TestKLD_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("self divergence is zero", prop.ForAll(
		func(a rbox.Box) bool {
			d := distance.KLDPair(gaussian.FromBox(a), gaussian.FromBox(a), distance.DefaultEpsilon)
			return math.Abs(d) <= 1e-9
		},
		testutil.GenBox(),
	))

	properties.Property("non-negative up to round-off", prop.ForAll(
		func(a, b rbox.Box) bool {
			d := distance.KLDPair(gaussian.FromBox(a), gaussian.FromBox(b), distance.DefaultEpsilon)
			return d >= -1e-9 && !math.IsNaN(d)
		},
		testutil.GenBox(), testutil.GenBox(),
	))

	properties.TestingRun(t)
}
