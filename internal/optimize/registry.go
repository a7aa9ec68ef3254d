// Package optimize implements the per-format optimizers and the
// dispatcher that routes a detected format to its optimizer through the
// compression gate. Every optimizer shares the
// contract Optimize(ctx, data, cfg) -> imaging.OptimizeResult and may run
// candidate methods concurrently, but always finishes by handing its
// chosen candidate to imaging.ApplyResultContract.
package optimize

import (
	"context"
	"fmt"

	"github.com/amitray007/pare/internal/detect"
	"github.com/amitray007/pare/internal/gate"
	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
)

// Optimizer is implemented by each per-format optimizer in this package.
type Optimizer interface {
	Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error)
}

// Registry maps each supported format tag to its optimizer instance,
// built once at process start. APNG shares the PNG optimizer and SVGZ shares the SVG
// optimizer, mirroring how they share a magic-byte family in detect.
type Registry struct {
	optimizers map[imaging.Format]Optimizer
}

// NewRegistry wires every format to its optimizer, using codecStripper
// (typically a bimg-backed adapter) for the formats whose metadata strip
// defers to a codec library, and codec for in-process re-encoding. CLI
// candidates are always attempted; a missing binary makes that candidate
// fail, which is not fatal (with no candidate left the optimizer falls
// back to method "none").
func NewRegistry(codecStripper metadata.Stripper, codec Codec) *Registry {
	png := &PNGOptimizer{codecStripper: codecStripper}
	svg := &SVGOptimizer{}

	return &Registry{
		optimizers: map[imaging.Format]Optimizer{
			imaging.FormatPNG:  png,
			imaging.FormatAPNG: png,
			imaging.FormatJPEG: &JPEGOptimizer{codec: codec},
			imaging.FormatWebP: &WebPOptimizer{codec: codec, codecStripper: codecStripper},
			imaging.FormatGIF:  &GIFOptimizer{},
			imaging.FormatSVG:  svg,
			imaging.FormatSVGZ: svg,
			imaging.FormatAVIF: &NextGenOptimizer{format: imaging.FormatAVIF, codec: codec, codecStripper: codecStripper},
			imaging.FormatHEIC: &NextGenOptimizer{format: imaging.FormatHEIC, codec: codec, codecStripper: codecStripper},
			imaging.FormatJXL:  &NextGenOptimizer{format: imaging.FormatJXL, codec: codec, codecStripper: codecStripper},
			imaging.FormatTIFF: &TIFFOptimizer{codec: codec, codecStripper: codecStripper},
			imaging.FormatBMP:  &BMPOptimizer{},
		},
	}
}

// Dispatch runs the full sequence: detect, acquire
// the gate, invoke the mapped optimizer, release the slot on every exit
// path. A nil g skips the gate; the estimator dispatches that way.
func (r *Registry) Dispatch(ctx context.Context, g *gate.Gate, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	format, err := detect.Detect(data)
	if err != nil {
		return imaging.OptimizeResult{}, err
	}

	if g != nil {
		release, err := g.Acquire(ctx)
		if err != nil {
			return imaging.OptimizeResult{}, err
		}
		defer release()
	}

	optimizer, ok := r.optimizers[format]
	if !ok {
		return imaging.OptimizeResult{}, fmt.Errorf("%w: %s has no registered optimizer", imaging.ErrUnsupportedFormat, format)
	}

	return optimizer.Optimize(ctx, data, cfg)
}
