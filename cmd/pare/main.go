// Command pare is a small CLI front end over the optimization and
// estimation core, exercising the same Registry/Gate/Estimator wiring an
// HTTP or job-queue transport would.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amitray007/pare/internal/gate"
	"github.com/amitray007/pare/internal/metrics"
	"github.com/amitray007/pare/internal/optimize"
)

var version = "dev"

func main() {
	noColor := false
	verbose := false

	root := &cobra.Command{
		Use:           "pare",
		Short:         "Optimize and estimate image compression from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log tool-level detail to stderr")

	root.AddCommand(newOptimizeCmd(&verbose))
	root.AddCommand(newEstimateCmd(&verbose))
	root.AddCommand(newEnqueueCmd(&verbose))
	root.AddCommand(newWorkerCmd(&verbose))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)

		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			os.Exit(codeInterrupted)
		}
		os.Exit(codeError)
	}
}

// newLogger returns a zerolog.Logger writing a human-readable console
// format to stderr when verbose, or a no-op logger otherwise — the CLI
// equivalent of the job-queue handler's structured logger, scoped down to
// what a single interactive invocation needs.
func newLogger(verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// coreDeps bundles the shared Registry/Gate/Collector/Decoder every
// subcommand wires identically, all backed by the cgo libvips adapter.
type coreDeps struct {
	registry *optimize.Registry
	gate     *gate.Gate
	metrics  *metrics.Collector
	codec    optimize.BimgCodec
}

func newCoreDeps() *coreDeps {
	codec := optimize.BimgCodec{}
	registry := optimize.NewRegistry(codec, codec)

	return &coreDeps{
		registry: registry,
		gate:     gate.NewDefault(),
		metrics:  metrics.NewCollector(),
		codec:    codec,
	}
}
