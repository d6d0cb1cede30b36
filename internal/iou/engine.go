// Package iou computes exact rotated-rectangle IoU and its distance-aware
// variants over box batches.
package iou

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/rboxdist/internal/metrics"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
)

// Config holds engine settings.
type Config struct {
	Workers     int              // Parallel workers (0 = runtime.NumCPU())
	Stabilizer  float64          // Added to the paired IoU denominator
	PixelOffset float64          // Added to w and h before paired IoU
	Progress    ProgressCallback // Optional progress reporting
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		Stabilizer:  DefaultStabilizer,
		PixelOffset: 0,
	}
}

// Engine evaluates IoU-family metrics. It is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling in a worker count when unset.
func NewEngine(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Paired returns IoU(a[i], b[i]) with the configured stabilizer and pixel
// offset.
func (e *Engine) Paired(ctx context.Context, a, b []rbox.Box) ([]float64, error) {
	stab, off := e.cfg.Stabilizer, e.cfg.PixelOffset
	return e.paired(ctx, metrics.OpIoUPaired, a, b, func(x, y rbox.Box) float64 {
		return PairIoU(x, y, stab, off)
	})
}

// DIoU returns IoU - d²/c² per pair.
func (e *Engine) DIoU(ctx context.Context, a, b []rbox.Box) ([]float64, error) {
	return e.paired(ctx, metrics.OpDIoU, a, b, DIoUPair)
}

// ADIoU returns DIoU·|cos(θ1-θ2)| per pair.
func (e *Engine) ADIoU(ctx context.Context, a, b []rbox.Box) ([]float64, error) {
	return e.paired(ctx, metrics.OpADIoU, a, b, ADIoUPair)
}

func (e *Engine) paired(ctx context.Context, op string, a, b []rbox.Box, fn func(x, y rbox.Box) float64) ([]float64, error) {
	start := time.Now()
	if err := rbox.CheckPaired(len(a), len(b)); err != nil {
		metrics.ObserveBatch(op, 0, start, err)
		return nil, err
	}
	if len(a) == 0 {
		return []float64{}, nil
	}

	out := make([]float64, len(a))
	err := e.forEach(ctx, len(a), func(i int) {
		out[i] = fn(a[i], b[i])
	})
	metrics.ObserveBatch(op, len(a), start, err)
	if err != nil {
		return nil, err
	}
	metrics.ObserveDegenerate(op, rbox.CountDegenerate(a)+rbox.CountDegenerate(b))
	slog.Debug("IoU batch evaluated",
		"op", op,
		"pairs", len(a),
		"workers", min(e.cfg.Workers, len(a)),
		"duration", time.Since(start))
	return out, nil
}

// Matrix returns the len(a) x len(b) cross IoU matrix. Rows are evaluated in
// parallel. Either batch being empty yields an empty matrix.
func (e *Engine) Matrix(ctx context.Context, a, b []rbox.Box) ([][]float64, error) {
	start := time.Now()
	if len(a) == 0 || len(b) == 0 {
		out := make([][]float64, len(a))
		for i := range out {
			out[i] = []float64{}
		}
		return out, nil
	}

	out := make([][]float64, len(a))
	err := e.forEach(ctx, len(a), func(i int) {
		row := make([]float64, len(b))
		for j := range b {
			row[j] = CrossIoU(a[i], b[j])
		}
		out[i] = row
	})
	metrics.ObserveBatch(metrics.OpIoUMatrix, len(a)*len(b), start, err)
	if err != nil {
		return nil, err
	}
	metrics.ObserveDegenerate(metrics.OpIoUMatrix, rbox.CountDegenerate(a)+rbox.CountDegenerate(b))
	slog.Debug("IoU matrix evaluated",
		"rows", len(a),
		"cols", len(b),
		"workers", min(e.cfg.Workers, len(a)),
		"duration", time.Since(start))
	return out, nil
}
