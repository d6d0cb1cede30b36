package iou

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MeKo-Tech/rboxdist/internal/metrics"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// Algorithm selects how predictions are assigned to targets.
type Algorithm string

const (
	// AlgorithmHungarian maximises the summed IoU of the assignment.
	AlgorithmHungarian Algorithm = "hungarian"
	// AlgorithmGreedy gives each prediction, in order, its best free target.
	AlgorithmGreedy Algorithm = "greedy"
)

// ParseAlgorithm accepts hungarian or greedy.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(s)); a {
	case AlgorithmHungarian, AlgorithmGreedy:
		return a, nil
	default:
		return "", fmt.Errorf("unknown matching algorithm %q (want hungarian or greedy)", s)
	}
}

// Assignment pairs prediction Pred with target Target.
type Assignment struct {
	Pred   int     `json:"pred" yaml:"pred"`
	Target int     `json:"target" yaml:"target"`
	IoU    float64 `json:"iou" yaml:"iou"`
}

// MatchResult lists accepted assignments in prediction order plus the
// indices left without a partner.
type MatchResult struct {
	Matches         []Assignment `json:"matches" yaml:"matches"`
	UnmatchedPred   []int        `json:"unmatched_pred" yaml:"unmatched_pred"`
	UnmatchedTarget []int        `json:"unmatched_target" yaml:"unmatched_target"`
}

// Match assigns rows to columns of an IoU matrix. Pairs below threshold, or
// with zero IoU, are rejected after the assignment.
func Match(matrix [][]float64, cols int, threshold float64, alg Algorithm) MatchResult {
	rows := len(matrix)
	var pairs [][2]int
	if rows > 0 && cols > 0 {
		if alg == AlgorithmGreedy {
			pairs = greedy(matrix, cols, threshold)
		} else {
			pairs = solveHungarian(matrix, rows, cols)
		}
	}

	res := MatchResult{Matches: []Assignment{}, UnmatchedPred: []int{}, UnmatchedTarget: []int{}}
	usedRow := make([]bool, rows)
	usedCol := make([]bool, cols)
	for _, p := range pairs {
		v := matrix[p[0]][p[1]]
		if v <= 0 || v < threshold {
			continue
		}
		usedRow[p[0]], usedCol[p[1]] = true, true
		res.Matches = append(res.Matches, Assignment{Pred: p[0], Target: p[1], IoU: v})
	}
	sort.Slice(res.Matches, func(i, j int) bool { return res.Matches[i].Pred < res.Matches[j].Pred })
	for i, u := range usedRow {
		if !u {
			res.UnmatchedPred = append(res.UnmatchedPred, i)
		}
	}
	for j, u := range usedCol {
		if !u {
			res.UnmatchedTarget = append(res.UnmatchedTarget, j)
		}
	}
	return res
}

// solveHungarian returns a maximum-weight assignment of rows to columns.
// It is the shortest augmenting path form of the Hungarian algorithm with
// row and column potentials, run over the smaller side so every row of the
// reduced problem is assigned. Ties resolve by index order, so equal inputs
// always give equal assignments.
func solveHungarian(matrix [][]float64, rows, cols int) [][2]int {
	transpose := rows > cols
	n, m := rows, cols
	if transpose {
		n, m = cols, rows
	}
	// cost is 1-based; column 0 is the virtual start of each augmentation.
	cost := func(i, j int) float64 {
		if transpose {
			return -matrix[j-1][i-1]
		}
		return -matrix[i-1][j-1]
	}

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1) // p[j] is the row assigned to column j, 0 if none
	way := make([]int, m+1)
	minv := make([]float64, m+1)
	used := make([]bool, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta, j1 := math.Inf(1), 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				if cur := cost(i0, j) - u[i0] - v[j]; cur < minv[j] {
					minv[j], way[j] = cur, j0
				}
				if minv[j] < delta {
					delta, j1 = minv[j], j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	pairs := make([][2]int, 0, n)
	for j := 1; j <= m; j++ {
		if p[j] == 0 {
			continue
		}
		r, c := p[j]-1, j-1
		if transpose {
			r, c = c, r
		}
		pairs = append(pairs, [2]int{r, c})
	}
	return pairs
}

func greedy(matrix [][]float64, cols int, threshold float64) [][2]int {
	taken := make([]bool, cols)
	var pairs [][2]int
	for i, row := range matrix {
		best, bestJ := -1.0, -1
		for j := range cols {
			if !taken[j] && row[j] >= threshold && row[j] > best {
				best, bestJ = row[j], j
			}
		}
		if bestJ >= 0 {
			taken[bestJ] = true
			pairs = append(pairs, [2]int{i, bestJ})
		}
	}
	return pairs
}

// MatchBoxes computes the cross IoU matrix of pred and target and assigns
// them with alg.
func (e *Engine) MatchBoxes(ctx context.Context, pred, target []rbox.Box, threshold float64, alg Algorithm) (MatchResult, error) {
	start := time.Now()
	matrix, err := e.Matrix(ctx, pred, target)
	if err != nil {
		metrics.ObserveBatch(metrics.OpMatch, 0, start, err)
		return MatchResult{}, err
	}
	res := Match(matrix, len(target), threshold, alg)
	metrics.ObserveBatch(metrics.OpMatch, len(pred)*len(target), start, nil)
	return res, nil
}
