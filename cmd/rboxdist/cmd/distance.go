package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/rboxdist/internal/autodiff"
	"github.com/MeKo-Tech/rboxdist/internal/config"
	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/spf13/cobra"
)

// gradReport is the structured --grad output.
type gradReport struct {
	Metric    string             `json:"metric" yaml:"metric"`
	Reduction string             `json:"reduction" yaml:"reduction"`
	Distances []float64          `json:"distances" yaml:"distances"`
	Losses    []float64          `json:"losses" yaml:"losses"`
	Cost      float64            `json:"cost" yaml:"cost"`
	Grads     []autodiff.BoxGrad `json:"grads" yaml:"grads"`
}

func newDistanceCommand(a *app, metric autodiff.Metric) *cobra.Command {
	name := metric.String()
	long := map[autodiff.Metric]string{
		autodiff.MetricGWD: `Compute the Gaussian Wasserstein distance between paired boxes.

Each box is modelled as a 2-D Gaussian centred on the box with covariance
derived from its sides and angle. The squared 2-Wasserstein distance is
reported per pair.

Examples:
  rboxdist gwd -a "0,0,10,20,0" -b "30,40,10,20,0"
  rboxdist gwd --input batch.yaml --loss --loss-fn sqrt
  rboxdist gwd --input batch.yaml --grad --format json`,
		autodiff.MetricKLD: `Compute the Kullback-Leibler divergence KL(boxes1 || boxes2) between
paired boxes modelled as 2-D Gaussians. The divergence is asymmetric; use
--symmetric for the sum of both directions.

Examples:
  rboxdist kld -a "0,0,10,20,0" -b "1,0,10,20,0"
  rboxdist kld --input batch.yaml --loss --grad`,
	}[metric]

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Compute %s between paired boxes", strings.ToUpper(name)),
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			applyDistanceFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			lossOpts, err := cfg.ToLossOptions()
			if err != nil {
				return err
			}

			pred, target, err := readPairs(cmd)
			if err != nil {
				return err
			}

			withLoss, _ := cmd.Flags().GetBool("loss")
			withGrad, _ := cmd.Flags().GetBool("grad")
			variant := variantFlag(cmd)
			out := a.output(cmd, cfg)

			slog.Debug("Computing distance", "metric", name, "pairs", len(pred),
				"loss_fn", lossOpts.Fn, "tau", lossOpts.Tau, "grad", withGrad)

			if withGrad {
				if variant != "" {
					return fmt.Errorf("--grad cannot be combined with --%s", variant)
				}
				reduction, _ := cmd.Flags().GetString("reduction")
				reduction = strings.ToLower(reduction)
				if reduction != string(autodiff.ReduceMean) && reduction != string(autodiff.ReduceSum) {
					return fmt.Errorf("invalid reduction: %s (must be mean or sum)", reduction)
				}
				return runGradient(out, pred, target, autodiff.Options{
					Metric:    metric,
					Epsilon:   cfg.Distance.Epsilon,
					Loss:      lossOpts,
					Reduction: autodiff.Reduction(reduction),
				})
			}

			ds, err := forwardDistances(metric, variant, pred, target, cfg.ToDistanceOptions())
			if err != nil {
				return err
			}
			if !withLoss {
				return out.column(name, ds)
			}

			losses := lossOpts.Losses(ds)
			rows := make([][]float64, len(ds))
			for i := range ds {
				rows[i] = []float64{ds[i], losses[i]}
			}
			return out.table([]string{name, "loss"}, rows)
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Bool("loss", false, "also print the normalised loss 1 - 1/(tau + f(d))")
	cmd.Flags().Bool("grad", false, "evaluate through the autodiff graph and print gradients for boxes1")
	cmd.Flags().String("reduction", string(autodiff.ReduceMean), "loss reduction for --grad (mean or sum)")
	cmd.Flags().String("loss-fn", "", "loss shaping: log1p, sqrt or none (default from config)")
	cmd.Flags().Float64("tau", 0, "loss offset tau (>= 1, default from config)")
	cmd.Flags().Float64("epsilon", 0, "covariance regularisation (default from config)")
	switch metric {
	case autodiff.MetricGWD:
		cmd.Flags().Bool("frobenius", false, "use the Frobenius approximation of the covariance term")
	case autodiff.MetricKLD:
		cmd.Flags().Bool("symmetric", false, "sum KL in both directions")
	}
	return cmd
}

// applyDistanceFlags copies changed distance flags onto cfg.
func applyDistanceFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("loss-fn") {
		cfg.Distance.LossFn, _ = cmd.Flags().GetString("loss-fn")
	}
	if cmd.Flags().Changed("tau") {
		cfg.Distance.Tau, _ = cmd.Flags().GetFloat64("tau")
	}
	if cmd.Flags().Changed("epsilon") {
		cfg.Distance.Epsilon, _ = cmd.Flags().GetFloat64("epsilon")
	}
}

// variantFlag names the set variant flag, if any.
func variantFlag(cmd *cobra.Command) string {
	for _, name := range []string{"frobenius", "symmetric"} {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		if on, _ := cmd.Flags().GetBool(name); on {
			return name
		}
	}
	return ""
}

func forwardDistances(metric autodiff.Metric, variant string, pred, target []rbox.Box, opts distance.Options) ([]float64, error) {
	switch {
	case metric == autodiff.MetricGWD && variant == "frobenius":
		return distance.GWDFrobenius(pred, target)
	case metric == autodiff.MetricGWD:
		return distance.GWD(pred, target)
	case metric == autodiff.MetricKLD && variant == "symmetric":
		return distance.KLDSymmetric(pred, target, opts)
	case metric == autodiff.MetricKLD:
		return distance.KLD(pred, target, opts)
	default:
		return nil, errors.New("unknown metric")
	}
}

func runGradient(out *writer, pred, target []rbox.Box, opts autodiff.Options) error {
	res, err := autodiff.Evaluate(pred, target, opts)
	if err != nil {
		return err
	}

	if out.structured() {
		return out.document(gradReport{
			Metric:    opts.Metric.String(),
			Reduction: string(opts.Reduction),
			Distances: res.Distances,
			Losses:    res.Losses,
			Cost:      res.Cost,
			Grads:     res.Grads,
		})
	}

	header := []string{opts.Metric.String(), "loss", "dx", "dy", "dw", "dh", "dangle"}
	rows := make([][]float64, len(res.Distances))
	for i, d := range res.Distances {
		g := res.Grads[i]
		rows[i] = []float64{d, res.Losses[i], g.DX, g.DY, g.DW, g.DH, g.DAngle}
	}
	if err := out.table(header, rows); err != nil {
		return err
	}
	if out.format == outputFormatCSV {
		return nil
	}
	_, err = fmt.Fprintf(out.out, "cost %s\n", out.num(res.Cost))
	return err
}
