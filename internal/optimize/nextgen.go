package optimize

import (
	"context"
	"strconv"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
	"github.com/amitray007/pare/internal/subprocess"
)

// NextGenOptimizer is shared across AVIF, HEIC,
// and JXL: a metadata-strip-only candidate and a re-encode candidate at a
// quality mapped up from the requested one (these codecs compress so
// efficiently that the input quality scale undersells them).
type NextGenOptimizer struct {
	format        imaging.Format
	codec         Codec
	codecStripper metadata.Stripper
}

func clip(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (o *NextGenOptimizer) targetQuality(q int) int {
	return NextGenTargetQuality(o.format, q)
}

// NextGenTargetQuality maps a requested quality to the mapped quality
// AVIF/HEIC/JXL re-encode candidates target.
// Exported so internal/estimate's direct-encode sample path uses the
// exact same mapping rather than risking the two drifting apart.
func NextGenTargetQuality(format imaging.Format, q int) int {
	if format == imaging.FormatJXL {
		return clip(q+10, 30, 95)
	}
	return clip(q+10, 30, 90)
}

func (o *NextGenOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	type candidateResult struct {
		method string
		data   []byte
	}
	results := make(chan candidateResult, 2)

	go func() {
		if o.codecStripper == nil {
			results <- candidateResult{}
			return
		}
		stripOnly, err := o.codecStripper.StripMetadata(data)
		if err != nil {
			results <- candidateResult{}
			return
		}
		results <- candidateResult{method: "metadata-strip", data: stripOnly}
	}()

	go func() {
		reencoded, err := ReencodeNextGen(ctx, data, o.format, o.codec, o.targetQuality(cfg.Quality))
		if err != nil {
			results <- candidateResult{}
			return
		}
		results <- candidateResult{method: "re-encode", data: reencoded}
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
		return imaging.ApplyResultContract(o.format, data, data, imaging.MethodNone), nil
	}
	return imaging.ApplyResultContract(o.format, data, best, method), nil
}

// ReencodeNextGen dispatches to the in-process codec for AVIF/HEIC
// (libvips/libheif via bimg) and to the cjxl CLI
// for JXL, which has no libvips encoder path. Exported so
// internal/estimate's direct-encode sample path can drive the same
// re-encode logic against a downsampled image instead of duplicating it.
func ReencodeNextGen(ctx context.Context, data []byte, format imaging.Format, codec Codec, quality int) ([]byte, error) {
	if format == imaging.FormatJXL {
		result, err := subprocess.Run(ctx, subprocess.Spec{
			Tool: "cjxl",
			Args: []string{"-q", strconv.Itoa(quality), "-", "-"},
		}, data)
		if err != nil {
			return nil, err
		}
		return result.Stdout, nil
	}

	if codec == nil {
		return nil, imaging.ErrOptimizationFailed
	}
	return codec.Reencode(data, format, quality, false)
}
