package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/iou"
)

// Valid enum values.
var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validFormats    = []string{"text", "json", "csv", "yaml"}
	validLossFns    = []string{string(distance.LossLog1p), string(distance.LossSqrt), string(distance.LossNone)}
	validAlgorithms = []string{string(iou.AlgorithmHungarian), string(iou.AlgorithmGreedy)}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		IoU: IoUConfig{
			Workers:        runtime.NumCPU(),
			Stabilizer:     iou.DefaultStabilizer,
			PixelOffset:    0,
			MatchThreshold: 0.5,
			MatchAlgorithm: string(iou.AlgorithmHungarian),
		},
		Distance: DistanceConfig{
			Epsilon: distance.DefaultEpsilon,
			LossFn:  string(distance.LossLog1p),
			Tau:     1.0,
		},
		Output: OutputConfig{
			Format:    "text",
			Precision: 6,
		},
		Bench: BenchConfig{
			Pairs:       1000,
			Iterations:  10,
			Seed:        1,
			MetricsAddr: "",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Output
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Output.Precision < 0 || c.Output.Precision > 17 {
		return fmt.Errorf("invalid output precision: %d (must be between 0 and 17)", c.Output.Precision)
	}

	// IoU engine
	if c.IoU.Workers < 0 {
		return fmt.Errorf("invalid iou workers: %d (must be >= 0, 0 = number of CPUs)", c.IoU.Workers)
	}
	if err := validateNonNegative(c.IoU.Stabilizer, "iou.stabilizer"); err != nil {
		return err
	}
	if err := validateNonNegative(c.IoU.PixelOffset, "iou.pixel_offset"); err != nil {
		return err
	}
	if err := validateThreshold(c.IoU.MatchThreshold, "iou.match_threshold"); err != nil {
		return err
	}
	if !contains(validAlgorithms, c.IoU.MatchAlgorithm) {
		return fmt.Errorf("invalid match algorithm: %s (must be one of: %s)", c.IoU.MatchAlgorithm, strings.Join(validAlgorithms, ", "))
	}

	// Distance engine
	if err := validateNonNegative(c.Distance.Epsilon, "distance.epsilon"); err != nil {
		return err
	}
	if !contains(validLossFns, c.Distance.LossFn) {
		return fmt.Errorf("invalid loss function: %s (must be one of: %s)", c.Distance.LossFn, strings.Join(validLossFns, ", "))
	}
	if c.Distance.Tau < 1 {
		return fmt.Errorf("invalid distance.tau: %.2f (must be >= 1)", c.Distance.Tau)
	}

	// Bench
	if c.Bench.Pairs <= 0 {
		return fmt.Errorf("invalid bench pairs: %d (must be positive)", c.Bench.Pairs)
	}
	if c.Bench.Iterations <= 0 {
		return fmt.Errorf("invalid bench iterations: %d (must be positive)", c.Bench.Iterations)
	}

	return nil
}

// ToIoUConfig converts to iou.Config.
func (c *Config) ToIoUConfig() iou.Config {
	cfg := iou.DefaultConfig()
	if c.IoU.Workers > 0 {
		cfg.Workers = c.IoU.Workers
	}
	cfg.Stabilizer = c.IoU.Stabilizer
	cfg.PixelOffset = c.IoU.PixelOffset
	return cfg
}

// ToDistanceOptions converts to distance.Options.
func (c *Config) ToDistanceOptions() distance.Options {
	return distance.Options{Epsilon: c.Distance.Epsilon}
}

// ToLossOptions converts to distance.LossOptions.
func (c *Config) ToLossOptions() (distance.LossOptions, error) {
	fn, err := distance.ParseLossFn(c.Distance.LossFn)
	if err != nil {
		return distance.LossOptions{}, err
	}
	return distance.LossOptions{Fn: fn, Tau: c.Distance.Tau}, nil
}

// ToMatchAlgorithm converts to iou.Algorithm.
func (c *Config) ToMatchAlgorithm() (iou.Algorithm, error) {
	return iou.ParseAlgorithm(c.IoU.MatchAlgorithm)
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// validateNonNegative rejects negative values.
func validateNonNegative(value float64, name string) error {
	if value < 0 {
		return fmt.Errorf("invalid %s: %g (must be >= 0)", name, value)
	}
	return nil
}
