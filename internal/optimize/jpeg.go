package optimize

import (
	"context"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
	"github.com/amitray007/pare/internal/subprocess"
)

// JPEGOptimizer runs an in-process re-encode
// candidate and a jpegtran lossless candidate, run concurrently.
type JPEGOptimizer struct {
	codec Codec
}

func (o *JPEGOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	// A strip failure (e.g. a truncated segment table behind a valid SOI
	// marker) is not fatal: the candidates race over the original bytes
	// instead.
	stripped := data
	if cfg.StripMetadata {
		if out, err := metadata.Strip(imaging.FormatJPEG, data, nil); err == nil {
			stripped = out
		}
	}

	type candidateResult struct {
		method string
		data   []byte
	}
	results := make(chan candidateResult, 2)

	go func() {
		if o.codec == nil {
			results <- candidateResult{}
			return
		}
		out, err := o.codec.Reencode(stripped, imaging.FormatJPEG, cfg.Quality, cfg.ProgressiveJPEG)
		if err != nil {
			results <- candidateResult{}
			return
		}
		results <- candidateResult{method: "jpegli", data: out}
	}()

	go func() {
		args := []string{"-copy", "none", "-optimize"}
		if cfg.ProgressiveJPEG {
			args = append(args, "-progressive")
		}
		result, err := subprocess.Run(ctx, subprocess.Spec{
			Tool: "jpegtran",
			Args: args,
		}, stripped)
		if err != nil {
			results <- candidateResult{}
			return
		}
		results <- candidateResult{method: "jpegtran", data: result.Stdout}
	}()

	candidates := map[string][]byte{}
	for i := 0; i < 2; i++ {
		r := <-results
		if r.data != nil {
			candidates[r.method] = r.data
		}
	}

	method, best, ok := imaging.BestCandidate(candidates)
	if !ok {
		return imaging.ApplyResultContract(imaging.FormatJPEG, data, stripped, imaging.MethodNone), nil
	}

	if cfg.HasMaxReduction() && method == "jpegli" {
		floor := cfg.CapLossySize(len(data))
		if len(best) < floor {
			if jpegtranOut, ok := candidates["jpegtran"]; ok {
				return imaging.ApplyResultContract(imaging.FormatJPEG, data, jpegtranOut, "jpegtran"), nil
			}
			return imaging.ApplyResultContract(imaging.FormatJPEG, data, stripped, imaging.MethodNone), nil
		}
	}

	return imaging.ApplyResultContract(imaging.FormatJPEG, data, best, method), nil
}
