package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amitray007/pare/internal/detect"
	"github.com/amitray007/pare/internal/estimate"
	"github.com/amitray007/pare/internal/imaging"
)

func newEstimateCmd(verbose *bool) *cobra.Command {
	flags := &configFlags{}

	cmd := &cobra.Command{
		Use:   "estimate <file>...",
		Short: "Estimate optimization potential for one or more images without writing output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			deps := newCoreDeps()
			log := newLogger(*verbose)

			estimator := estimate.New(deps.codec, deps.registry, deps.codec)

			hasErrors := false
			for _, path := range args {
				if err := runEstimateOne(cmd.Context(), estimator, deps, log, path, cfg); err != nil {
					hasErrors = true
					fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("Error:"), path, err)
				}
			}

			if hasErrors {
				return newExitError(codeError, fmt.Errorf("one or more files failed to estimate"))
			}
			return nil
		},
	}

	addConfigFlags(cmd, flags)
	return cmd
}

func runEstimateOne(ctx context.Context, estimator *estimate.Estimator, deps *coreDeps, log zerolog.Logger, path string, cfg imaging.OptimizationConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newExitError(codeBadInput, err)
	}

	format, err := detect.Detect(data)
	if err != nil {
		return newExitError(codeUnsupportedFormat, err)
	}

	start := time.Now()
	resp, err := estimator.Estimate(ctx, data, format, cfg)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	log.Debug().
		Str("file", path).
		Str("format", string(format)).
		Str("method", resp.Method).
		Dur("duration", elapsed).
		Msg("estimated")

	deps.metrics.ObserveEstimate(format, resp, elapsed.Seconds())
	printEstimateResult(path, resp)
	return nil
}

func printEstimateResult(path string, resp imaging.EstimateResponse) {
	if resp.AlreadyOptimized {
		fmt.Printf(
			"%s %s %s\n",
			color.BlueString("estimate:"),
			color.CyanString(path),
			color.YellowString("already optimized"),
		)
		return
	}

	fmt.Printf(
		"%s %s %s %s potential, ~%s (%s -> ~%s, %s confidence, via %s)\n",
		color.BlueString("estimate:"),
		color.CyanString(path),
		color.GreenString("%.1f%%", resp.EstimatedReduction),
		string(resp.Potential),
		formatBytes(resp.OriginalSize-resp.EstimatedSize),
		formatBytes(resp.OriginalSize),
		formatBytes(resp.EstimatedSize),
		string(resp.Confidence),
		resp.Method,
	)
}
