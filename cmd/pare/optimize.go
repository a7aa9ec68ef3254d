package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amitray007/pare/internal/imaging"
)

func newOptimizeCmd(verbose *bool) *cobra.Command {
	flags := &configFlags{}
	var outDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "optimize <file>...",
		Short: "Re-encode one or more images, keeping the smallest result for each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}

			deps := newCoreDeps()
			log := newLogger(*verbose)

			hasErrors := false
			for _, path := range args {
				if err := runOptimizeOne(cmd.Context(), deps, log, path, cfg, outDir, overwrite); err != nil {
					hasErrors = true
					fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("Error:"), path, err)
				}
			}

			if hasErrors {
				return newExitError(codeError, fmt.Errorf("one or more files failed to optimize"))
			}
			return nil
		},
	}

	addConfigFlags(cmd, flags)
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "write optimized files to this directory (without --out-dir or --overwrite nothing is written)")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "O", false, "overwrite the input file in place")

	return cmd
}

func runOptimizeOne(ctx context.Context, deps *coreDeps, log zerolog.Logger, path string, cfg imaging.OptimizationConfig, outDir string, overwrite bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newExitError(codeBadInput, err)
	}

	start := time.Now()
	result, err := deps.registry.Dispatch(ctx, deps.gate, data, cfg)
	elapsed := time.Since(start)
	if err != nil {
		code, ok := imaging.CodeOf(err)
		if ok && code == imaging.CodeUnsupportedMediaType {
			return newExitError(codeUnsupportedFormat, err)
		}
		return err
	}

	log.Debug().
		Str("file", path).
		Str("format", string(result.Format)).
		Str("method", result.Method).
		Dur("duration", elapsed).
		Msg("optimized")

	deps.metrics.ObserveOptimize(result.Format, result, elapsed.Seconds())
	printOptimizeResult(path, result)

	if result.Method == imaging.MethodNone {
		return nil
	}

	destination, err := destinationPath(path, outDir, overwrite)
	if err != nil {
		return err
	}
	if destination == "" {
		return nil
	}
	return os.WriteFile(destination, result.OptimizedBytes, 0o644)
}

func destinationPath(path, outDir string, overwrite bool) (string, error) {
	switch {
	case overwrite:
		return path, nil
	case outDir != "":
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(outDir, filepath.Base(path)), nil
	default:
		return "", nil
	}
}

func printOptimizeResult(path string, result imaging.OptimizeResult) {
	saved := result.OriginalSize - result.OptimizedSize
	fmt.Printf(
		"%s %s %s %s (%s -> %s, saved %s, %s)\n",
		color.BlueString("optimize:"),
		color.CyanString(path),
		color.BlueString("->"),
		color.GreenString("%.1f%%", result.ReductionPercent),
		formatBytes(result.OriginalSize),
		formatBytes(result.OptimizedSize),
		formatBytes(saved),
		result.Method,
	)
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
