package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MeKo-Tech/rboxdist/internal/autodiff"
	"github.com/MeKo-Tech/rboxdist/internal/common"
	"github.com/MeKo-Tech/rboxdist/internal/distance"
	"github.com/MeKo-Tech/rboxdist/internal/iou"
	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// maxMatrixSide bounds the cross IoU benchmark to a square of this size.
const maxMatrixSide = 256

// benchResult summarises one benchmarked operation.
type benchResult struct {
	Op          string  `json:"op" yaml:"op"`
	Pairs       int     `json:"pairs" yaml:"pairs"`
	Iterations  int     `json:"iterations" yaml:"iterations"`
	MeanMillis  float64 `json:"mean_ms" yaml:"mean_ms"`
	MinMillis   float64 `json:"min_ms" yaml:"min_ms"`
	MaxMillis   float64 `json:"max_ms" yaml:"max_ms"`
	PairsPerSec float64 `json:"pairs_per_sec" yaml:"pairs_per_sec"`
	BytesPerIt  float64 `json:"bytes_per_iter" yaml:"bytes_per_iter"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func newBenchResult(br common.BenchmarkResult) benchResult {
	return benchResult{
		Op:          br.Name,
		Pairs:       br.Pairs,
		Iterations:  br.Iterations,
		MeanMillis:  millis(br.Mean()),
		MinMillis:   millis(br.Min),
		MaxMillis:   millis(br.Max),
		PairsPerSec: br.PairsPerSecond(),
		BytesPerIt:  br.BytesPerIteration(),
	}
}

func newBenchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the IoU and distance engines on random boxes",
		Long: `Generate random box pairs and time every metric over several iterations.

With --metrics-addr the Prometheus metrics of the run are exposed on
/metrics while it executes; --wait keeps serving until interrupted.

Examples:
  rboxdist bench --pairs 5000 --iterations 20
  rboxdist bench --metrics-addr :9090 --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			applyIoUFlags(cmd, &cfg)
			if cmd.Flags().Changed("pairs") {
				cfg.Bench.Pairs, _ = cmd.Flags().GetInt("pairs")
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Bench.Iterations, _ = cmd.Flags().GetInt("iterations")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Bench.Seed, _ = cmd.Flags().GetInt64("seed")
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Bench.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			lossOpts, err := cfg.ToLossOptions()
			if err != nil {
				return err
			}
			wait, _ := cmd.Flags().GetBool("wait")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var srv *http.Server
			if cfg.Bench.MetricsAddr != "" {
				srv, err = startMetricsServer(cfg.Bench.MetricsAddr, cancel)
				if err != nil {
					return err
				}
				defer shutdownMetricsServer(srv)
			}

			rng := rand.New(rand.NewSource(cfg.Bench.Seed)) //nolint:gosec // benchmark data
			pred := randomBoxes(rng, cfg.Bench.Pairs)
			target := jitterBoxes(rng, pred)

			engineCfg := cfg.ToIoUConfig()
			engineCfg.Progress = iou.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "bench").
				WithInterval(max(1, cfg.Bench.Pairs/10))
			engine := iou.NewEngine(engineCfg)
			side := min(cfg.Bench.Pairs, maxMatrixSide)

			slog.Info("Starting benchmark", "pairs", cfg.Bench.Pairs, "iterations", cfg.Bench.Iterations,
				"workers", engineCfg.Workers, "seed", cfg.Bench.Seed)

			ops := []struct {
				name  string
				pairs int
				run   func() error
			}{
				{"iou_paired", len(pred), func() error { _, err := engine.Paired(ctx, pred, target); return err }},
				{"iou_matrix", side * side, func() error { _, err := engine.Matrix(ctx, pred[:side], target[:side]); return err }},
				{"diou", len(pred), func() error { _, err := engine.DIoU(ctx, pred, target); return err }},
				{"gwd", len(pred), func() error { _, err := distance.GWD(pred, target); return err }},
				{"kld", len(pred), func() error { _, err := distance.KLD(pred, target, cfg.ToDistanceOptions()); return err }},
				{"gwd_grad", len(pred), func() error {
					_, err := autodiff.Evaluate(pred, target, autodiff.Options{
						Metric:    autodiff.MetricGWD,
						Epsilon:   cfg.Distance.Epsilon,
						Loss:      lossOpts,
						Reduction: autodiff.ReduceMean,
					})
					return err
				}},
			}

			results := make([]benchResult, 0, len(ops))
			for _, op := range ops {
				br := common.Run(op.name, op.pairs, cfg.Bench.Iterations, op.run)
				if br.Error != nil {
					return fmt.Errorf("%s: %w", op.name, br.Error)
				}
				slog.Debug("Benchmarked operation", "result", br.String())
				results = append(results, newBenchResult(br))
			}

			if err := writeBench(a.output(cmd, cfg), results); err != nil {
				return err
			}

			if srv != nil && wait {
				slog.Info("Serving metrics until interrupted", "addr", srv.Addr)
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
				defer signal.Stop(sigChan)
				select {
				case sig := <-sigChan:
					slog.Info("Received shutdown signal", "signal", sig.String())
				case <-ctx.Done():
					slog.Info("Context cancelled, initiating shutdown")
				}
			}
			return nil
		},
	}

	addIoUFlags(cmd)
	cmd.Flags().Int("pairs", 1000, "number of random box pairs")
	cmd.Flags().Int("iterations", 10, "iterations per operation")
	cmd.Flags().Int64("seed", 1, "random seed")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool("wait", false, "keep serving metrics after the run until interrupted")
	return cmd
}

// startMetricsServer binds addr and serves /metrics and /health in the
// background. Serve failures cancel the run.
func startMetricsServer(addr string, cancel context.CancelFunc) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Starting metrics server", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
			cancel()
		}
	}()
	return srv, nil
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}
}

// randomBoxes draws boxes with centres in [0, 1000) and sides in [4, 200).
func randomBoxes(rng *rand.Rand, n int) []rbox.Box {
	boxes := make([]rbox.Box, n)
	for i := range boxes {
		boxes[i] = rbox.Box{
			CX:    rng.Float64() * 1000,
			CY:    rng.Float64() * 1000,
			W:     4 + rng.Float64()*196,
			H:     4 + rng.Float64()*196,
			Angle: rng.Float64()*180 - 90,
		}
	}
	return boxes
}

// jitterBoxes perturbs every box slightly so most pairs overlap.
func jitterBoxes(rng *rand.Rand, boxes []rbox.Box) []rbox.Box {
	out := make([]rbox.Box, len(boxes))
	for i, b := range boxes {
		b.CX += rng.NormFloat64() * 0.05 * b.W
		b.CY += rng.NormFloat64() * 0.05 * b.H
		b.W *= 1 + rng.NormFloat64()*0.05
		b.H *= 1 + rng.NormFloat64()*0.05
		b.Angle += rng.NormFloat64() * 5
		out[i] = b
	}
	return out
}

func writeBench(out *writer, results []benchResult) error {
	if out.structured() {
		return out.document(results)
	}

	if out.format == outputFormatCSV {
		cw := csv.NewWriter(out.out)
		if err := cw.Write([]string{"op", "pairs", "iterations", "mean_ms", "min_ms", "max_ms", "pairs_per_sec", "bytes_per_iter"}); err != nil {
			return err
		}
		for _, r := range results {
			row := []string{
				r.Op, strconv.Itoa(r.Pairs), strconv.Itoa(r.Iterations),
				out.num(r.MeanMillis), out.num(r.MinMillis), out.num(r.MaxMillis),
				out.num(r.PairsPerSec), out.num(r.BytesPerIt),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	if _, err := fmt.Fprintf(out.out, "%-12s %8s %10s %14s\n", "op", "pairs", "mean_ms", "pairs/s"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(out.out, "%-12s %8d %10.3f %14.0f\n", r.Op, r.Pairs, r.MeanMillis, r.PairsPerSec); err != nil {
			return err
		}
	}
	return nil
}
