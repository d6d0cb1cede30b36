package distance

import (
	"fmt"
	"math"
	"strings"
)

// LossFn shapes a raw distance before it is squashed into [0, 1).
type LossFn string

const (
	LossLog1p LossFn = "log1p"
	LossSqrt  LossFn = "sqrt"
	LossNone  LossFn = "none"
)

// ParseLossFn accepts log1p, sqrt or none (case-insensitive).
func ParseLossFn(s string) (LossFn, error) {
	switch fn := LossFn(strings.ToLower(strings.TrimSpace(s))); fn {
	case LossLog1p, LossSqrt, LossNone:
		return fn, nil
	default:
		return "", fmt.Errorf("unknown loss function %q (want log1p, sqrt or none)", s)
	}
}

// LossOptions configures Normalize.
type LossOptions struct {
	Fn  LossFn
	Tau float64
}

// DefaultLossOptions returns log1p with τ = 1.
func DefaultLossOptions() LossOptions {
	return LossOptions{Fn: LossLog1p, Tau: 1}
}

// Validate checks that the options produce a finite loss for d >= 0.
func (o LossOptions) Validate() error {
	if _, err := ParseLossFn(string(o.Fn)); err != nil {
		return err
	}
	if o.Tau < 1 {
		return fmt.Errorf("tau must be >= 1, got %v", o.Tau)
	}
	return nil
}

// Shape applies the configured f to a distance; negative inputs are treated
// as zero.
func (o LossOptions) Shape(d float64) float64 {
	d = math.Max(d, 0)
	switch o.Fn {
	case LossSqrt:
		return math.Sqrt(d)
	case LossNone:
		return d
	default:
		return math.Log1p(d)
	}
}

// Normalize maps a distance to 1 - 1/(τ + f(d)). With τ >= 1 the result is
// in [0, 1), 0 only for d = 0 and τ = 1.
func (o LossOptions) Normalize(d float64) float64 {
	return 1 - 1/(o.Tau+o.Shape(d))
}

// Losses normalises every distance.
func (o LossOptions) Losses(ds []float64) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = o.Normalize(d)
	}
	return out
}

// MeanLoss returns the mean normalised loss, or 0 for an empty batch.
func (o LossOptions) MeanLoss(ds []float64) float64 {
	if len(ds) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range ds {
		sum += o.Normalize(d)
	}
	return sum / float64(len(ds))
}
