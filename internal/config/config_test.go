package config

import (
	"runtime"
	"testing"

	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/iou"
)

const infoLevel = "info"

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Global settings
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Verbose {
		t.Error("Expected verbose to be false")
	}

	// IoU defaults
	if cfg.IoU.Workers != runtime.NumCPU() {
		t.Errorf("Expected iou.workers %d, got %d", runtime.NumCPU(), cfg.IoU.Workers)
	}
	if cfg.IoU.Stabilizer != 1e-4 {
		t.Errorf("Expected iou.stabilizer 1e-4, got %g", cfg.IoU.Stabilizer)
	}
	if cfg.IoU.PixelOffset != 0 {
		t.Errorf("Expected iou.pixel_offset 0, got %g", cfg.IoU.PixelOffset)
	}
	if cfg.IoU.MatchThreshold != 0.5 {
		t.Errorf("Expected iou.match_threshold 0.5, got %g", cfg.IoU.MatchThreshold)
	}
	if cfg.IoU.MatchAlgorithm != "hungarian" {
		t.Errorf("Expected iou.match_algorithm 'hungarian', got %s", cfg.IoU.MatchAlgorithm)
	}

	// Distance defaults
	if cfg.Distance.Epsilon != 1e-7 {
		t.Errorf("Expected distance.epsilon 1e-7, got %g", cfg.Distance.Epsilon)
	}
	if cfg.Distance.LossFn != "log1p" {
		t.Errorf("Expected distance.loss_fn 'log1p', got %s", cfg.Distance.LossFn)
	}
	if cfg.Distance.Tau != 1 {
		t.Errorf("Expected distance.tau 1, got %g", cfg.Distance.Tau)
	}

	// Output defaults
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format 'text', got %s", cfg.Output.Format)
	}
	if cfg.Output.Precision != 6 {
		t.Errorf("Expected output precision 6, got %d", cfg.Output.Precision)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestValidate covers every rejected field.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"debug level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"yaml output", func(c *Config) { c.Output.Format = "yaml" }, false},
		{"empty output", func(c *Config) { c.Output.Format = "" }, false},
		{"bad output", func(c *Config) { c.Output.Format = "xml" }, true},
		{"negative precision", func(c *Config) { c.Output.Precision = -1 }, true},
		{"huge precision", func(c *Config) { c.Output.Precision = 18 }, true},
		{"zero workers", func(c *Config) { c.IoU.Workers = 0 }, false},
		{"negative workers", func(c *Config) { c.IoU.Workers = -2 }, true},
		{"negative stabilizer", func(c *Config) { c.IoU.Stabilizer = -1e-4 }, true},
		{"zero stabilizer", func(c *Config) { c.IoU.Stabilizer = 0 }, false},
		{"negative offset", func(c *Config) { c.IoU.PixelOffset = -1 }, true},
		{"pixel offset one", func(c *Config) { c.IoU.PixelOffset = 1 }, false},
		{"threshold above one", func(c *Config) { c.IoU.MatchThreshold = 1.1 }, true},
		{"threshold below zero", func(c *Config) { c.IoU.MatchThreshold = -0.1 }, true},
		{"greedy", func(c *Config) { c.IoU.MatchAlgorithm = "greedy" }, false},
		{"bad algorithm", func(c *Config) { c.IoU.MatchAlgorithm = "auction" }, true},
		{"negative epsilon", func(c *Config) { c.Distance.Epsilon = -1 }, true},
		{"sqrt loss", func(c *Config) { c.Distance.LossFn = "sqrt" }, false},
		{"bad loss", func(c *Config) { c.Distance.LossFn = "exp" }, true},
		{"tau below one", func(c *Config) { c.Distance.Tau = 0.5 }, true},
		{"zero pairs", func(c *Config) { c.Bench.Pairs = 0 }, true},
		{"zero iterations", func(c *Config) { c.Bench.Iterations = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestToIoUConfig checks the engine conversion.
func TestToIoUConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IoU.Workers = 3
	cfg.IoU.Stabilizer = 0
	cfg.IoU.PixelOffset = 1

	got := cfg.ToIoUConfig()
	if got.Workers != 3 {
		t.Errorf("Expected workers 3, got %d", got.Workers)
	}
	if got.Stabilizer != 0 {
		t.Errorf("Expected stabilizer 0, got %g", got.Stabilizer)
	}
	if got.PixelOffset != 1 {
		t.Errorf("Expected pixel offset 1, got %g", got.PixelOffset)
	}

	cfg.IoU.Workers = 0
	if got := cfg.ToIoUConfig(); got.Workers != iou.DefaultConfig().Workers {
		t.Errorf("Expected zero workers to fall back to %d, got %d", iou.DefaultConfig().Workers, got.Workers)
	}
}

// TestToDistanceAndLossOptions checks the distance conversions.
func TestToDistanceAndLossOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Distance.Epsilon = 1e-6
	cfg.Distance.LossFn = "sqrt"
	cfg.Distance.Tau = 3

	if got := cfg.ToDistanceOptions(); got.Epsilon != 1e-6 {
		t.Errorf("Expected epsilon 1e-6, got %g", got.Epsilon)
	}

	loss, err := cfg.ToLossOptions()
	if err != nil {
		t.Fatalf("ToLossOptions() unexpected error: %v", err)
	}
	if loss.Fn != distance.LossSqrt || loss.Tau != 3 {
		t.Errorf("Unexpected loss options %+v", loss)
	}

	cfg.Distance.LossFn = "bogus"
	if _, err := cfg.ToLossOptions(); err == nil {
		t.Error("Expected error for unknown loss function")
	}
}

// TestToMatchAlgorithm checks the matching conversion.
func TestToMatchAlgorithm(t *testing.T) {
	cfg := DefaultConfig()
	alg, err := cfg.ToMatchAlgorithm()
	if err != nil || alg != iou.AlgorithmHungarian {
		t.Errorf("Expected hungarian, got %s (%v)", alg, err)
	}

	cfg.IoU.MatchAlgorithm = "nope"
	if _, err := cfg.ToMatchAlgorithm(); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}

// TestContains tests the contains helper function.
func TestContains(t *testing.T) {
	slice := []string{"apple", "banana", "cherry"}
	if !contains(slice, "banana") {
		t.Error("Expected contains to find 'banana'")
	}
	if contains(slice, "grape") {
		t.Error("Expected contains not to find 'grape'")
	}
	if contains(nil, "apple") {
		t.Error("Expected contains on nil slice to be false")
	}
}

// TestValidateThreshold tests the threshold validation helper.
func TestValidateThreshold(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		if err := validateThreshold(v, "x"); err != nil {
			t.Errorf("validateThreshold(%g) unexpected error: %v", v, err)
		}
	}
	for _, v := range []float64{-0.01, 1.01} {
		if err := validateThreshold(v, "x"); err == nil {
			t.Errorf("validateThreshold(%g) expected error", v)
		}
	}
}
