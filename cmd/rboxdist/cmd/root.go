package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/rboxdist/internal/autodiff"
	"github.com/MeKo-Tech/rboxdist/internal/config"
	"github.com/MeKo-Tech/rboxdist/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by one command tree.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the rboxdist command tree. Each tree owns its viper
// instance so tests can execute commands repeatedly.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoader(a.v)

	rootCmd := &cobra.Command{
		Use:   "rboxdist",
		Short: "Similarity and distance measures for rotated bounding boxes",
		Long: `rboxdist compares rotated (oriented) bounding boxes.

It provides:
- Rotated IoU (paired, cross matrix, DIoU and angle-aware ADIoU)
- Gaussian Wasserstein distance and Kullback-Leibler divergence
- Normalised regression losses and their gradients
- Conversion between box and polygon representations
- Optimal assignment of predictions to targets

Boxes are given as rows "cx,cy,w,h,angle;cx,cy,w,h,angle" with the angle in
degrees, or read from a YAML/JSON file with boxes1/boxes2/polygons arrays.

Examples:
  rboxdist iou -a "50,50,100,40,30" -b "52,48,100,40,28"
  rboxdist gwd --input batch.yaml --loss --grad
  rboxdist match --input batch.yaml --threshold 0.5`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/rboxdist, /etc/rboxdist)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.StringP("format", "f", "text", "output format (text, json, csv, yaml)")
	flags.Int("precision", 6, "decimal places for text and csv output")

	// Bind flags to viper
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("output.format", flags.Lookup("format"))
	_ = a.v.BindPFlag("output.precision", flags.Lookup("precision"))

	rootCmd.AddCommand(
		newIoUCommand(a),
		newDistanceCommand(a, autodiff.MetricGWD),
		newDistanceCommand(a, autodiff.MetricKLD),
		newConvertCommand(a),
		newMatchCommand(a),
		newBenchCommand(a),
		newConfigCommand(a),
	)

	return rootCmd
}

// init loads the configuration and installs the structured logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	// Determine log level from config
	var logLevel slog.Level

	// Check verbose flag first
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	// Results go to stdout, logs to stderr.
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Debug("Configuration loaded", "file", a.loader.GetConfigFileUsed(), "command", cmd.Name())
	return nil
}

// config returns a copy of the loaded configuration that commands may adjust
// with their own flags.
func (a *app) config() config.Config {
	if a.cfg == nil {
		return config.DefaultConfig()
	}
	return *a.cfg
}

// output creates a result writer for cmd from cfg.
func (a *app) output(cmd *cobra.Command, cfg config.Config) *writer {
	return newWriter(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.Precision)
}
