// Package metrics instruments the optimizer, estimator, and compression
// gate with Prometheus counters, histograms, and gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amitray007/pare/internal/imaging"
)

// Collector holds every metric the optimization/estimation core emits.
// Construct one with NewCollector and share it across the process.
type Collector struct {
	optimizeTotal       *prometheus.CounterVec
	optimizeDuration    *prometheus.HistogramVec
	optimizeReduction   *prometheus.HistogramVec
	estimateTotal       *prometheus.CounterVec
	estimateDuration    *prometheus.HistogramVec
	candidateTotal      *prometheus.CounterVec
	gateOccupancy       prometheus.Gauge
	gateQueueDepth      prometheus.Gauge
	gateRejectionsTotal prometheus.Counter
}

// NewCollector registers every metric with promauto's default registerer.
func NewCollector() *Collector {
	return &Collector{
		optimizeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pare",
				Subsystem: "optimize",
				Name:      "requests_total",
				Help:      "Total optimize calls, labeled by format and outcome method",
			},
			[]string{"format", "method"},
		),
		optimizeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pare",
				Subsystem: "optimize",
				Name:      "duration_seconds",
				Help:      "Optimize call latency in seconds, labeled by format",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"format"},
		),
		optimizeReduction: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pare",
				Subsystem: "optimize",
				Name:      "reduction_percent",
				Help:      "Reduction percent achieved, labeled by format",
				Buckets:   []float64{0, 5, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"format"},
		),
		estimateTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pare",
				Subsystem: "estimate",
				Name:      "requests_total",
				Help:      "Total estimate calls, labeled by format and confidence",
			},
			[]string{"format", "confidence"},
		),
		estimateDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pare",
				Subsystem: "estimate",
				Name:      "duration_seconds",
				Help:      "Estimate call latency in seconds, labeled by format",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 3, 5},
			},
			[]string{"format"},
		),
		candidateTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pare",
				Subsystem: "optimize",
				Name:      "candidates_total",
				Help:      "Per-candidate-method attempts, labeled by format, method, and whether it won",
			},
			[]string{"format", "method", "won"},
		),
		gateOccupancy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pare",
				Subsystem: "gate",
				Name:      "permits_in_use",
				Help:      "Compression gate permits currently held",
			},
		),
		gateQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pare",
				Subsystem: "gate",
				Name:      "queue_depth",
				Help:      "Callers currently waiting for a compression gate permit",
			},
		),
		gateRejectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pare",
				Subsystem: "gate",
				Name:      "rejections_total",
				Help:      "Optimize calls rejected with Overloaded because the gate queue was full",
			},
		),
	}
}

// ObserveOptimize records one completed optimize call.
func (c *Collector) ObserveOptimize(format imaging.Format, result imaging.OptimizeResult, seconds float64) {
	c.optimizeTotal.WithLabelValues(string(format), result.Method).Inc()
	c.optimizeDuration.WithLabelValues(string(format)).Observe(seconds)
	c.optimizeReduction.WithLabelValues(string(format)).Observe(result.ReductionPercent)
}

// ObserveEstimate records one completed estimate call.
func (c *Collector) ObserveEstimate(format imaging.Format, resp imaging.EstimateResponse, seconds float64) {
	c.estimateTotal.WithLabelValues(string(format), string(resp.Confidence)).Inc()
	c.estimateDuration.WithLabelValues(string(format)).Observe(seconds)
}

// ObserveCandidate records one candidate method's attempt and whether it
// was the one ApplyResultContract/BestCandidate ultimately picked.
func (c *Collector) ObserveCandidate(format imaging.Format, method string, won bool) {
	wonLabel := "false"
	if won {
		wonLabel = "true"
	}
	c.candidateTotal.WithLabelValues(string(format), method, wonLabel).Inc()
}

// SetGateOccupancy reports the compression gate's current permit and
// queue occupancy, meant to be called from a periodic sampler of
// gate.Gate rather than on every Acquire/Release (the gate itself has no
// Prometheus dependency).
func (c *Collector) SetGateOccupancy(permitsInUse, queueDepth int) {
	c.gateOccupancy.Set(float64(permitsInUse))
	c.gateQueueDepth.Set(float64(queueDepth))
}

// IncGateRejection records one Overloaded rejection.
func (c *Collector) IncGateRejection() {
	c.gateRejectionsTotal.Inc()
}
