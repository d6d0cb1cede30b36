package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/rboxdist/internal/config"
	"github.com/MeKo-Tech/rboxdist/internal/iou"
	"github.com/spf13/cobra"
)

const (
	modePaired = "paired"
	modeMatrix = "matrix"
	modeDIoU   = "diou"
	modeADIoU  = "adiou"
)

var validModes = []string{modePaired, modeMatrix, modeDIoU, modeADIoU}

func newIoUCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iou",
		Short: "Compute rotated IoU between two box batches",
		Long: `Compute the intersection over union of rotated boxes.

Modes:
  paired  IoU of boxes1[i] and boxes2[i] with the configured stabilizer
  matrix  IoU of every boxes1 row against every boxes2 row
  diou    paired IoU minus normalised squared centre distance
  adiou   diou scaled by |cos| of the angle difference

Examples:
  rboxdist iou -a "50,50,100,40,30" -b "52,48,100,40,28"
  rboxdist iou --mode matrix --input batch.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			applyIoUFlags(cmd, &cfg)

			mode, _ := cmd.Flags().GetString("mode")
			mode = strings.ToLower(mode)
			if !contains(validModes, mode) {
				return fmt.Errorf("invalid mode: %s (must be one of: %s)", mode, strings.Join(validModes, ", "))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			boxes1, boxes2, err := readPairs(cmd)
			if err != nil {
				return err
			}

			engineCfg := cfg.ToIoUConfig()
			engineCfg.Progress = iou.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "iou "+mode)
			engine := iou.NewEngine(engineCfg)
			out := a.output(cmd, cfg)
			ctx := cmd.Context()

			slog.Debug("Computing IoU", "mode", mode, "boxes1", len(boxes1), "boxes2", len(boxes2),
				"workers", engineCfg.Workers)

			var values []float64
			switch mode {
			case modeMatrix:
				m, err := engine.Matrix(ctx, boxes1, boxes2)
				if err != nil {
					return err
				}
				return out.matrix("iou", m)
			case modeDIoU:
				values, err = engine.DIoU(ctx, boxes1, boxes2)
			case modeADIoU:
				values, err = engine.ADIoU(ctx, boxes1, boxes2)
			default:
				values, err = engine.Paired(ctx, boxes1, boxes2)
			}
			if err != nil {
				return err
			}
			return out.column(mode, values)
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().StringP("mode", "m", modePaired, "paired, matrix, diou or adiou")
	addIoUFlags(cmd)
	return cmd
}

// addIoUFlags registers the IoU engine overrides shared by iou and match.
func addIoUFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "parallel workers (0 = config value)")
	cmd.Flags().Float64("stabilizer", 0, "added to the paired IoU denominator")
	cmd.Flags().Float64("pixel-offset", 0, "added to w and h before paired IoU")
}

// applyIoUFlags copies changed IoU flags onto cfg.
func applyIoUFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.IoU.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("stabilizer") {
		cfg.IoU.Stabilizer, _ = cmd.Flags().GetFloat64("stabilizer")
	}
	if cmd.Flags().Changed("pixel-offset") {
		cfg.IoU.PixelOffset, _ = cmd.Flags().GetFloat64("pixel-offset")
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
