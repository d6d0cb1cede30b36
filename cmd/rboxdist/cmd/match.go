package cmd

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MeKo-Tech/rboxdist/internal/iou"
	"github.com/spf13/cobra"
)

func newMatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Assign predicted boxes to target boxes by IoU",
		Long: `Match boxes1 (predictions) to boxes2 (targets) over the rotated IoU
matrix. The hungarian algorithm maximises the summed IoU; greedy gives each
prediction, in order, its best free target. Assignments below --threshold
are rejected.

Examples:
  rboxdist match --input batch.yaml
  rboxdist match --input batch.yaml --threshold 0.3 --algorithm greedy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			applyIoUFlags(cmd, &cfg)
			if cmd.Flags().Changed("threshold") {
				cfg.IoU.MatchThreshold, _ = cmd.Flags().GetFloat64("threshold")
			}
			if cmd.Flags().Changed("algorithm") {
				cfg.IoU.MatchAlgorithm, _ = cmd.Flags().GetString("algorithm")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			alg, err := cfg.ToMatchAlgorithm()
			if err != nil {
				return err
			}

			pred, target, err := readPairs(cmd)
			if err != nil {
				return err
			}

			engine := iou.NewEngine(cfg.ToIoUConfig())
			res, err := engine.MatchBoxes(cmd.Context(), pred, target, cfg.IoU.MatchThreshold, alg)
			if err != nil {
				return err
			}
			slog.Debug("Boxes matched", "algorithm", alg, "matches", len(res.Matches),
				"unmatched_pred", len(res.UnmatchedPred), "unmatched_target", len(res.UnmatchedTarget))

			return writeMatches(a.output(cmd, cfg), res)
		},
	}

	addBatchFlags(cmd)
	addIoUFlags(cmd)
	cmd.Flags().Float64("threshold", 0.5, "minimum IoU for an accepted assignment (0.0-1.0)")
	cmd.Flags().String("algorithm", string(iou.AlgorithmHungarian), "hungarian or greedy")
	return cmd
}

func writeMatches(out *writer, res iou.MatchResult) error {
	if out.structured() {
		return out.document(res)
	}

	if out.format == outputFormatCSV {
		cw := csv.NewWriter(out.out)
		if err := cw.Write([]string{"pred", "target", "iou"}); err != nil {
			return err
		}
		for _, m := range res.Matches {
			if err := cw.Write([]string{strconv.Itoa(m.Pred), strconv.Itoa(m.Target), out.num(m.IoU)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	for _, m := range res.Matches {
		if _, err := fmt.Fprintf(out.out, "%d %d %s\n", m.Pred, m.Target, out.num(m.IoU)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(out.out, "unmatched_pred %v\n", res.UnmatchedPred); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out.out, "unmatched_target %v\n", res.UnmatchedTarget)
	return err
}
