package iou

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/MeKo-Tech/rboxdist/internal/testutil"
)

func TestMatchHungarianVsGreedy(t *testing.T) {
	matrix := [][]float64{
		{0.9, 0.8},
		{0.85, 0.1},
	}

	got := Match(matrix, 2, 0.5, AlgorithmHungarian)
	assert.Equal(t, []Assignment{{Pred: 0, Target: 1, IoU: 0.8}, {Pred: 1, Target: 0, IoU: 0.85}}, got.Matches)
	assert.Empty(t, got.UnmatchedPred)
	assert.Empty(t, got.UnmatchedTarget)

	got = Match(matrix, 2, 0.5, AlgorithmGreedy)
	assert.Equal(t, []Assignment{{Pred: 0, Target: 0, IoU: 0.9}}, got.Matches)
	assert.Equal(t, []int{1}, got.UnmatchedPred)
	assert.Equal(t, []int{1}, got.UnmatchedTarget)
}

func TestMatchRectangular(t *testing.T) {
	matrix := [][]float64{
		{0.1, 0.7},
		{0.6, 0.2},
		{0, 0},
	}
	got := Match(matrix, 2, 0.5, AlgorithmHungarian)
	assert.Equal(t, []Assignment{{Pred: 0, Target: 1, IoU: 0.7}, {Pred: 1, Target: 0, IoU: 0.6}}, got.Matches)
	assert.Equal(t, []int{2}, got.UnmatchedPred)
	assert.Empty(t, got.UnmatchedTarget)

	wide := [][]float64{{0.2, 0.3, 0.95}}
	got = Match(wide, 3, 0.5, AlgorithmHungarian)
	assert.Equal(t, []Assignment{{Pred: 0, Target: 2, IoU: 0.95}}, got.Matches)
	assert.Equal(t, []int{0, 1}, got.UnmatchedTarget)
}

func TestMatchThresholdRejects(t *testing.T) {
	matrix := [][]float64{{0.4}}
	for _, alg := range []Algorithm{AlgorithmHungarian, AlgorithmGreedy} {
		got := Match(matrix, 1, 0.5, alg)
		assert.Empty(t, got.Matches, alg)
		assert.Equal(t, []int{0}, got.UnmatchedPred, alg)
		assert.Equal(t, []int{0}, got.UnmatchedTarget, alg)
	}
}

func TestMatchEmpty(t *testing.T) {
	got := Match(nil, 3, 0.5, AlgorithmHungarian)
	assert.Empty(t, got.Matches)
	assert.Empty(t, got.UnmatchedPred)
	assert.Equal(t, []int{0, 1, 2}, got.UnmatchedTarget)

	got = Match([][]float64{{}, {}}, 0, 0.5, AlgorithmGreedy)
	assert.Equal(t, []int{0, 1}, got.UnmatchedPred)
	assert.Empty(t, got.UnmatchedTarget)
}

func TestMatchBoxesRecoversPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	pred := make([]rbox.Box, 6)
	for i := range pred {
		pred[i] = rbox.Box{CX: float64(i) * 150, CY: 20, W: 40, H: 15, Angle: rng.Float64()*180 - 90}
	}
	perm := []int{3, 0, 5, 1, 4, 2}
	target := make([]rbox.Box, len(pred))
	jittered := testutil.Jitter(rng, pred, 1)
	for i, p := range perm {
		target[p] = jittered[i]
	}

	for _, alg := range []Algorithm{AlgorithmHungarian, AlgorithmGreedy} {
		res, err := newTestEngine(3).MatchBoxes(context.Background(), pred, target, 0.3, alg)
		require.NoError(t, err)
		require.Len(t, res.Matches, len(pred), alg)
		for i, m := range res.Matches {
			assert.Equal(t, i, m.Pred)
			assert.Equal(t, perm[i], m.Target)
			assert.Greater(t, m.IoU, 0.3)
		}
	}
}

// bestAssignmentSum is the maximum summed value over every partial
// permutation of the matrix, found by exhaustive search.
func bestAssignmentSum(matrix [][]float64, cols int) float64 {
	used := make([]bool, cols)
	var walk func(row int) float64
	walk = func(row int) float64 {
		if row == len(matrix) {
			return 0
		}
		best := walk(row + 1)
		for c := 0; c < cols; c++ {
			if used[c] {
				continue
			}
			used[c] = true
			if v := matrix[row][c] + walk(row+1); v > best {
				best = v
			}
			used[c] = false
		}
		return best
	}
	return walk(0)
}

func matchedSum(res MatchResult) float64 {
	sum := 0.0
	for _, m := range res.Matches {
		sum += m.IoU
	}
	return sum
}

func TestMatchHungarianOptimalWithTies(t *testing.T) {
	matrix := [][]float64{
		{0, 0.5, 0},
		{0, 0.75, 0},
		{0, 0.25, 0.25},
	}
	first := Match(matrix, 3, 0, AlgorithmHungarian)
	assert.InDelta(t, 1.0, matchedSum(first), 1e-12)
	assert.Equal(t, []Assignment{{Pred: 1, Target: 1, IoU: 0.75}, {Pred: 2, Target: 2, IoU: 0.25}}, first.Matches)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Match(matrix, 3, 0, AlgorithmHungarian))
	}
}

func TestMatchHungarianAgainstExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	levels := []float64{0, 0, 0, 0.25, 0.5, 0.75}
	for trial := 0; trial < 500; trial++ {
		rows, cols := 1+rng.Intn(5), 1+rng.Intn(5)
		matrix := make([][]float64, rows)
		for r := range matrix {
			matrix[r] = make([]float64, cols)
			for c := range matrix[r] {
				matrix[r][c] = levels[rng.Intn(len(levels))]
			}
		}

		got := Match(matrix, cols, 0, AlgorithmHungarian)
		require.InDelta(t, bestAssignmentSum(matrix, cols), matchedSum(got), 1e-9, "trial %d: %v", trial, matrix)

		seenCol := make(map[int]bool)
		for _, m := range got.Matches {
			require.False(t, seenCol[m.Target], "trial %d: column %d used twice", trial, m.Target)
			seenCol[m.Target] = true
			require.Equal(t, matrix[m.Pred][m.Target], m.IoU)
		}
		require.Len(t, got.UnmatchedPred, rows-len(got.Matches))
		require.Len(t, got.UnmatchedTarget, cols-len(got.Matches))
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("Greedy")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmGreedy, a)
	_, err = ParseAlgorithm("auction")
	assert.Error(t, err)
}
