package config

// Config represents the complete configuration for the rboxdist tool.
// It covers every command (iou, gwd, kld, convert, match, bench) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Geometric IoU engine
	IoU IoUConfig `mapstructure:"iou" yaml:"iou" json:"iou"`

	// Gaussian distance engine
	Distance DistanceConfig `mapstructure:"distance" yaml:"distance" json:"distance"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Benchmark command
	Bench BenchConfig `mapstructure:"bench" yaml:"bench" json:"bench"`
}

// IoUConfig contains IoU engine and matching settings.
type IoUConfig struct {
	Workers        int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	Stabilizer     float64 `mapstructure:"stabilizer" yaml:"stabilizer" json:"stabilizer"`
	PixelOffset    float64 `mapstructure:"pixel_offset" yaml:"pixel_offset" json:"pixel_offset"`
	MatchThreshold float64 `mapstructure:"match_threshold" yaml:"match_threshold" json:"match_threshold"`
	MatchAlgorithm string  `mapstructure:"match_algorithm" yaml:"match_algorithm" json:"match_algorithm"`
}

// DistanceConfig contains GWD/KLD settings.
type DistanceConfig struct {
	Epsilon float64 `mapstructure:"epsilon" yaml:"epsilon" json:"epsilon"`
	LossFn  string  `mapstructure:"loss_fn" yaml:"loss_fn" json:"loss_fn"`
	Tau     float64 `mapstructure:"tau" yaml:"tau" json:"tau"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" json:"format"`
	Precision int    `mapstructure:"precision" yaml:"precision" json:"precision"`
}

// BenchConfig contains benchmark settings.
type BenchConfig struct {
	Pairs       int    `mapstructure:"pairs" yaml:"pairs" json:"pairs"`
	Iterations  int    `mapstructure:"iterations" yaml:"iterations" json:"iterations"`
	Seed        int64  `mapstructure:"seed" yaml:"seed" json:"seed"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr" json:"metrics_addr"`
}
