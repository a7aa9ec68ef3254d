package optimize

import (
	"context"
	"fmt"
	"strconv"

	"github.com/amitray007/pare/internal/detect"
	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
	"github.com/amitray007/pare/internal/subprocess"
)

// pngquantExitQualityFloorNotMet is pngquant's documented exit code for
// "couldn't hit the requested quality floor" — a declined candidate, not
// a crash.
const pngquantExitQualityFloorNotMet = 99

// PNGOptimizer is shared by PNG and APNG.
type PNGOptimizer struct {
	codecStripper metadata.Stripper
}

func (o *PNGOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	detected, err := detect.Detect(data)
	if err != nil {
		return imaging.OptimizeResult{}, err
	}
	format := detected
	isAPNG := detected == imaging.FormatAPNG

	// A strip failure (e.g. a chunk table the signature check couldn't
	// catch) is not fatal: the candidates race over the original bytes
	// instead.
	stripped := data
	if cfg.StripMetadata {
		if out, err := metadata.Strip(format, data, o.codecStripper); err == nil {
			stripped = out
		}
	}

	oxipngTrials := trialsForQuality(cfg.Quality)

	// APNG and explicit lossless mode skip quantization entirely.
	if isAPNG || !cfg.PNGLossy {
		out, err := runOxipng(ctx, stripped, oxipngTrials)
		if err != nil || out == nil {
			return imaging.ApplyResultContract(format, data, stripped, imaging.MethodNone), nil
		}
		return imaging.ApplyResultContract(format, data, out, "oxipng"), nil
	}

	type candidateResult struct {
		method string
		data   []byte
	}
	results := make(chan candidateResult, 2)

	go func() {
		pngquantOut := runPngquant(ctx, stripped, cfg.Quality)
		if pngquantOut == nil {
			results <- candidateResult{}
			return
		}
		// pngquant succeeded: its output is also fed through oxipng.
		refined, err := runOxipng(ctx, pngquantOut, oxipngTrials)
		if err != nil || refined == nil {
			refined = pngquantOut
		}
		results <- candidateResult{method: "pngquant + oxipng", data: refined}
	}()

	go func() {
		losslessOut, err := runOxipng(ctx, stripped, oxipngTrials)
		if err != nil {
			results <- candidateResult{}
			return
		}
		results <- candidateResult{method: "oxipng", data: losslessOut}
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
		return imaging.ApplyResultContract(format, data, stripped, imaging.MethodNone), nil
	}

	if cfg.HasMaxReduction() && method == "pngquant + oxipng" {
		floor := cfg.CapLossySize(len(data))
		if len(best) < floor {
			if losslessOut, ok := candidates["oxipng"]; ok {
				return imaging.ApplyResultContract(format, data, losslessOut, "oxipng"), nil
			}
			return imaging.ApplyResultContract(format, data, stripped, imaging.MethodNone), nil
		}
	}

	return imaging.ApplyResultContract(format, data, best, method), nil
}

// trialsForQuality maps quality to oxipng's trial count:
// more trials at lower quality since latency budget is looser
// when the caller is already asking for aggressive compression.
func trialsForQuality(quality int) int {
	switch {
	case quality >= 70:
		return 8
	case quality >= 50:
		return 16
	default:
		return 24
	}
}

// pngquantSpeed returns 3 (aggressive) below quality 50 and pngquant's
// default thoroughness (1) otherwise.
func pngquantSpeed(quality int) int {
	if quality < 50 {
		return 3
	}
	return 1
}

func runPngquant(ctx context.Context, data []byte, quality int) []byte {
	floor := quality - 15
	if floor < 1 {
		floor = 1
	}

	result, err := subprocess.Run(ctx, subprocess.Spec{
		Tool: "pngquant",
		Args: []string{
			"--quality=" + strconv.Itoa(floor) + "-" + strconv.Itoa(quality),
			"--speed=" + strconv.Itoa(pngquantSpeed(quality)),
			"--force",
			"--output", "-",
			"-",
		},
		AllowedExitCodes: []int{pngquantExitQualityFloorNotMet},
	}, data)
	if err != nil || result.Skipped {
		return nil
	}
	return result.Stdout
}

func runOxipng(ctx context.Context, data []byte, trials int) ([]byte, error) {
	result, err := subprocess.Run(ctx, subprocess.Spec{
		Tool: "oxipng",
		Args: []string{
			"--opt", "max",
			"--trials", strconv.Itoa(trials),
			"--stdout",
			"-",
		},
	}, data)
	if err != nil {
		return nil, fmt.Errorf("oxipng: %w", err)
	}
	return result.Stdout, nil
}
