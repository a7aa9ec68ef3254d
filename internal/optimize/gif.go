package optimize

import (
	"context"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/subprocess"
)

// GIFOptimizer recompresses GIFs: a single gifsicle pipeline,
// quality-tiered lossy settings, frames always preserved.
type GIFOptimizer struct{}

func (o *GIFOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	args := []string{"--optimize=3"}

	switch {
	case cfg.Quality < 50:
		args = append(args, "--lossy=80", "--colors", "128")
	case cfg.Quality < 70:
		args = append(args, "--lossy=30", "--colors", "192")
	}

	result, err := subprocess.Run(ctx, subprocess.Spec{
		Tool: "gifsicle",
		Args: args,
	}, data)
	if err != nil {
		return imaging.ApplyResultContract(imaging.FormatGIF, data, data, imaging.MethodNone), nil
	}

	return imaging.ApplyResultContract(imaging.FormatGIF, data, result.Stdout, "gifsicle"), nil
}
