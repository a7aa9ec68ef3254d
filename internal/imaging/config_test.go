package imaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitray007/pare/internal/imaging"
)

func TestNewOptimizationConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		quality int
		wantErr bool
	}{
		{name: "min boundary", quality: 1, wantErr: false},
		{name: "max boundary", quality: 100, wantErr: false},
		{name: "default", quality: 80, wantErr: false},
		{name: "zero rejected", quality: 0, wantErr: true},
		{name: "above max rejected", quality: 101, wantErr: true},
		{name: "negative rejected", quality: -5, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := imaging.NewOptimizationConfig(tt.quality, true, false, true, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := imaging.DefaultConfig()
	assert.Equal(t, imaging.DefaultQuality, cfg.Quality)
	assert.True(t, cfg.StripMetadata)
	assert.False(t, cfg.ProgressiveJPEG)
	assert.True(t, cfg.PNGLossy)
	assert.False(t, cfg.HasMaxReduction())
}

func TestMaxReductionCap(t *testing.T) {
	t.Parallel()

	cap50 := 50
	cfg, err := imaging.NewOptimizationConfig(40, true, false, true, &cap50)
	require.NoError(t, err)
	assert.True(t, cfg.HasMaxReduction())
	assert.Equal(t, 500, cfg.CapLossySize(1000))

	noCap := imaging.DefaultConfig()
	assert.Equal(t, 0, noCap.CapLossySize(1000))
}

func TestMaxReductionOutOfRange(t *testing.T) {
	t.Parallel()

	tooHigh := 150
	_, err := imaging.NewOptimizationConfig(40, true, false, true, &tooHigh)
	require.Error(t, err)
}
