package optimize

import (
	"context"
	"strconv"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
	"github.com/amitray007/pare/internal/subprocess"
)

// webpCLIFallbackThreshold gates whether the cwebp candidate is worth
// the extra process spawn: only when the in-process encode failed or
// its output is at least 90% of the stripped input's size.
const webpCLIFallbackThreshold = 0.90

// WebPOptimizer re-encodes WebP in process, with a cwebp fallback.
type WebPOptimizer struct {
	codec         Codec
	codecStripper metadata.Stripper
}

func (o *WebPOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	// A strip failure is not fatal: the candidates race over the
	// original bytes instead.
	stripped := data
	if cfg.StripMetadata {
		if out, err := metadata.Strip(imaging.FormatWebP, data, o.codecStripper); err == nil {
			stripped = out
		}
	}

	candidates := map[string][]byte{}

	var inProcessOut []byte
	if o.codec != nil {
		if out, err := o.codec.Reencode(stripped, imaging.FormatWebP, cfg.Quality, false); err == nil {
			inProcessOut = out
			candidates["in-process"] = out
		}
	}

	runCLI := inProcessOut == nil || float64(len(inProcessOut)) >= webpCLIFallbackThreshold*float64(len(stripped))
	if runCLI {
		result, err := subprocess.Run(ctx, subprocess.Spec{
			Tool: "cwebp",
			Args: []string{
				"-q", strconv.Itoa(cfg.Quality),
				"-m", "4",
				"-mt",
				"-o", "-",
				"--",
				"-",
			},
		}, stripped)
		if err == nil {
			candidates["cwebp"] = result.Stdout
		}
	}

	method, best, ok := imaging.BestCandidate(candidates)
	if !ok {
		return imaging.ApplyResultContract(imaging.FormatWebP, data, stripped, imaging.MethodNone), nil
	}
	return imaging.ApplyResultContract(imaging.FormatWebP, data, best, method), nil
}
