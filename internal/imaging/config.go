package imaging

import "fmt"

const (
	// MinQuality and MaxQuality bound the quality field.
	MinQuality = 1
	MaxQuality = 100

	// DefaultQuality is the quality DefaultConfig uses.
	DefaultQuality = 80
)

// OptimizationConfig is the immutable configuration passed to an
// optimizer. Construct it with NewOptimizationConfig (or DefaultConfig)
// rather than a bare struct literal so quality/max_reduction bounds are
// enforced once, at the boundary.
type OptimizationConfig struct {
	// Quality is in [1, 100]; lower means more aggressive compression.
	Quality int

	// StripMetadata controls whether non-essential metadata (everything
	// but EXIF orientation and ICC profile) is removed.
	StripMetadata bool

	// ProgressiveJPEG requests progressive-scan JPEG output where the
	// chosen JPEG candidate supports it.
	ProgressiveJPEG bool

	// PNGLossy permits palette-quantization candidates for PNG. When
	// false, only lossless recompression runs.
	PNGLossy bool

	// MaxReduction optionally caps how aggressively lossy methods may
	// shrink the output, as a percentage of the original size. Lossless
	// methods are never capped. Zero means "no cap"; use HasMaxReduction
	// to distinguish "0% cap" (effectively: no lossy savings permitted)
	// from "unset".
	MaxReduction    int
	hasMaxReduction bool
}

// DefaultConfig returns the default configuration: quality 80,
// strip_metadata true, progressive_jpeg false, png_lossy true, no
// max_reduction cap.
func DefaultConfig() OptimizationConfig {
	cfg, err := NewOptimizationConfig(DefaultQuality, true, false, true, nil)
	if err != nil {
		// Unreachable: the defaults are always in range.
		panic(fmt.Sprintf("imaging: default config invalid: %v", err))
	}
	return cfg
}

// NewOptimizationConfig validates and constructs an OptimizationConfig.
// maxReduction is a pointer so the zero value and "unset" are
// distinguishable; pass nil for "no cap".
func NewOptimizationConfig(
	quality int,
	stripMetadata bool,
	progressiveJPEG bool,
	pngLossy bool,
	maxReduction *int,
) (OptimizationConfig, error) {
	if quality < MinQuality || quality > MaxQuality {
		return OptimizationConfig{}, fmt.Errorf("%w: quality %d outside [%d, %d]",
			ErrInvalidConfig, quality, MinQuality, MaxQuality)
	}

	cfg := OptimizationConfig{
		Quality:         quality,
		StripMetadata:   stripMetadata,
		ProgressiveJPEG: progressiveJPEG,
		PNGLossy:        pngLossy,
	}

	if maxReduction != nil {
		if *maxReduction < 0 || *maxReduction > 100 {
			return OptimizationConfig{}, fmt.Errorf("%w: max_reduction %d outside [0, 100]",
				ErrInvalidConfig, *maxReduction)
		}
		cfg.MaxReduction = *maxReduction
		cfg.hasMaxReduction = true
	}

	return cfg, nil
}

// HasMaxReduction reports whether a max_reduction cap was supplied.
func (c OptimizationConfig) HasMaxReduction() bool {
	return c.hasMaxReduction
}

// Validate re-checks an already-constructed config; useful when a config
// has been round-tripped through JSON/YAML rather than built via
// NewOptimizationConfig.
func (c OptimizationConfig) Validate() error {
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d outside [%d, %d]", ErrInvalidConfig, c.Quality, MinQuality, MaxQuality)
	}
	if c.hasMaxReduction && (c.MaxReduction < 0 || c.MaxReduction > 100) {
		return fmt.Errorf("%w: max_reduction %d outside [0, 100]", ErrInvalidConfig, c.MaxReduction)
	}
	return nil
}

// CapLossySize applies the max_reduction cap (if any) to a candidate's
// byte length. Lossless candidates must not call this. It returns the
// minimum output size the cap permits; a candidate producing fewer bytes
// than this floor is discarded by the caller (not assembled here, since
// the floor is in bytes and depends on originalSize).
func (c OptimizationConfig) CapLossySize(originalSize int) int {
	if !c.hasMaxReduction {
		return 0
	}
	allowedReduction := 100 - c.MaxReduction
	return (originalSize * allowedReduction) / 100
}
