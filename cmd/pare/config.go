package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amitray007/pare/internal/imaging"
)

// configFlags holds the OptimizationConfig overrides every subcommand
// exposes identically, resolved starting from a preset and then
// layering any explicitly-set flag on top.
type configFlags struct {
	preset          string
	quality         int
	stripMetadata   bool
	progressiveJPEG bool
	pngLossy        bool
	maxReduction    int
}

func addConfigFlags(cmd *cobra.Command, f *configFlags) {
	cmd.Flags().StringVarP(&f.preset, "preset", "p", string(imaging.PresetLow), "preset to start from: high, medium, or low")
	cmd.Flags().IntVarP(&f.quality, "quality", "q", 0, "override the preset's quality (1-100)")
	cmd.Flags().BoolVar(&f.stripMetadata, "strip-metadata", true, "strip non-essential metadata, keeping EXIF orientation and ICC")
	cmd.Flags().BoolVar(&f.progressiveJPEG, "progressive-jpeg", false, "request progressive-scan JPEG output")
	cmd.Flags().BoolVar(&f.pngLossy, "png-lossy", true, "allow palette-quantized PNG candidates")
	cmd.Flags().IntVar(&f.maxReduction, "max-reduction", -1, "cap lossy reduction at this percent of the original size (-1 means no cap)")
}

// resolve builds an OptimizationConfig by starting from f.preset and then
// applying every flag the caller actually set, so an unset flag never
// silently overrides the preset's chosen value.
func (f *configFlags) resolve(cmd *cobra.Command) (imaging.OptimizationConfig, error) {
	cfg, err := imaging.ResolvePreset(f.preset)
	if err != nil {
		return imaging.OptimizationConfig{}, newExitError(codeBadUsage, err)
	}

	quality := cfg.Quality
	if cmd.Flags().Changed("quality") {
		quality = f.quality
	}

	stripMetadata := cfg.StripMetadata
	if cmd.Flags().Changed("strip-metadata") {
		stripMetadata = f.stripMetadata
	}

	progressiveJPEG := cfg.ProgressiveJPEG
	if cmd.Flags().Changed("progressive-jpeg") {
		progressiveJPEG = f.progressiveJPEG
	}

	pngLossy := cfg.PNGLossy
	if cmd.Flags().Changed("png-lossy") {
		pngLossy = f.pngLossy
	}

	var maxReduction *int
	if cmd.Flags().Changed("max-reduction") {
		if f.maxReduction < 0 {
			return imaging.OptimizationConfig{}, newExitError(codeBadUsage,
				fmt.Errorf("--max-reduction must be >= 0"))
		}
		maxReduction = &f.maxReduction
	} else if cfg.HasMaxReduction() {
		maxReduction = &cfg.MaxReduction
	}

	resolved, err := imaging.NewOptimizationConfig(quality, stripMetadata, progressiveJPEG, pngLossy, maxReduction)
	if err != nil {
		return imaging.OptimizationConfig{}, newExitError(codeBadUsage, err)
	}
	return resolved, nil
}
