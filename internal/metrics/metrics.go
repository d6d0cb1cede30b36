// Package metrics exposes Prometheus instrumentation for the box similarity
// engines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	OpIoUPaired = "iou_paired"
	OpIoUMatrix = "iou_matrix"
	OpDIoU      = "diou"
	OpADIoU     = "adiou"
	OpGWD       = "gwd"
	OpKLD       = "kld"
	OpGradient  = "gradient"
	OpMatch     = "match"
)

var (
	// Batch metrics
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rboxdist_batches_total",
			Help: "Total number of batches evaluated",
		},
		[]string{"op", "status"},
	)

	pairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rboxdist_pairs_total",
			Help: "Total number of box pairs evaluated",
		},
		[]string{"op"},
	)

	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rboxdist_batch_duration_seconds",
			Help:    "Batch evaluation duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"op"},
	)

	batchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rboxdist_batch_pairs",
			Help:    "Number of pairs per evaluated batch",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
		},
		[]string{"op"},
	)

	// Input quality
	degenerateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rboxdist_degenerate_boxes_total",
			Help: "Total number of zero-area boxes seen",
		},
		[]string{"op"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rboxdist_active_workers",
			Help: "Number of IoU workers currently running",
		},
	)
)

// ObserveBatch records one finished batch of pairs. A non-nil err counts the
// batch as failed and skips the pair counters.
func ObserveBatch(op string, pairs int, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	batchesTotal.WithLabelValues(op, status).Inc()
	if err != nil {
		return
	}
	pairsTotal.WithLabelValues(op).Add(float64(pairs))
	batchSize.WithLabelValues(op).Observe(float64(pairs))
	batchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveDegenerate counts zero-area boxes.
func ObserveDegenerate(op string, n int) {
	if n > 0 {
		degenerateTotal.WithLabelValues(op).Add(float64(n))
	}
}

// WorkerStarted and WorkerDone track the active worker gauge.
func WorkerStarted() { activeWorkers.Inc() }

func WorkerDone() { activeWorkers.Dec() }

// Pairs returns the pair counter for op; used by tests and the bench report.
func Pairs(op string) prometheus.Counter { return pairsTotal.WithLabelValues(op) }

// Batches returns the batch counter for op and status.
func Batches(op, status string) prometheus.Counter { return batchesTotal.WithLabelValues(op, status) }

// Degenerate returns the degenerate box counter for op.
func Degenerate(op string) prometheus.Counter { return degenerateTotal.WithLabelValues(op) }

// ActiveWorkers returns the worker gauge.
func ActiveWorkers() prometheus.Gauge { return activeWorkers }
