package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metrics"
)

// NewCollector registers every metric with promauto's default
// registerer; constructing a second Collector in the same test binary
// would panic on duplicate registration, so these tests share one
// instance across subtests rather than building a fresh Collector per
// test the way the other packages' table-driven tests do.
func TestCollector(t *testing.T) {
	c := metrics.NewCollector()

	t.Run("ObserveOptimize records a completed optimize call", func(t *testing.T) {
		result := imaging.OptimizeResult{
			Success:          true,
			OriginalSize:     1000,
			OptimizedSize:    600,
			ReductionPercent: 40,
			Format:           imaging.FormatJPEG,
			Method:           "jpegli",
		}
		require.NotPanics(t, func() {
			c.ObserveOptimize(imaging.FormatJPEG, result, 0.05)
		})
	})

	t.Run("ObserveEstimate records a completed estimate call", func(t *testing.T) {
		resp := imaging.EstimateResponse{
			Format:     imaging.FormatPNG,
			Confidence: imaging.ConfidenceHigh,
		}
		require.NotPanics(t, func() {
			c.ObserveEstimate(imaging.FormatPNG, resp, 0.01)
		})
	})

	t.Run("ObserveCandidate labels won and lost candidates separately", func(t *testing.T) {
		require.NotPanics(t, func() {
			c.ObserveCandidate(imaging.FormatWebP, "in-process", true)
			c.ObserveCandidate(imaging.FormatWebP, "cwebp-cli", false)
		})
	})

	t.Run("gate occupancy and rejection gauges accept updates", func(t *testing.T) {
		require.NotPanics(t, func() {
			c.SetGateOccupancy(3, 7)
			c.SetGateOccupancy(0, 0)
			c.IncGateRejection()
		})
	})
}
