package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	jobsasynq "github.com/amitray007/pare/internal/jobs/asynq"
	"github.com/amitray007/pare/internal/jobs/tasks"
)

// gateSampleInterval paces the worker's gate-occupancy sampler.
const gateSampleInterval = 5 * time.Second

func newWorkerCmd(verbose *bool) *cobra.Command {
	var redisAddr string
	var dataDir string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a background worker that consumes enqueued optimize tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := newDirStorage(dataDir)
			if err != nil {
				return newExitError(codeBadUsage, err)
			}

			// Unlike the one-shot subcommands, a worker always logs;
			// verbose only lowers the threshold to debug.
			level := zerolog.InfoLevel
			if *verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).With().Timestamp().Logger()

			deps := newCoreDeps()

			cfg := jobsasynq.DefaultServerConfig(redisAddr, log)
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}

			server, err := jobsasynq.NewServer(cfg)
			if err != nil {
				return newExitError(codeError, err)
			}
			server.RegisterOptimizeHandler(
				tasks.NewOptimizeHandler(deps.registry, deps.gate, deps.metrics, storage, log),
			)

			go sampleGateOccupancy(cmd.Context(), deps)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case <-cmd.Context().Done():
				server.Shutdown()
				<-errCh
				return nil
			case err := <-errCh:
				if err != nil {
					return newExitError(codeError, err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis-addr", "127.0.0.1:6379", "Redis broker address (host:port)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory shared with enqueuers for source and result bytes")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum tasks in flight (0 uses the server default)")
	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

// sampleGateOccupancy periodically publishes the compression gate's
// permit and queue occupancy to the metrics collector.
func sampleGateOccupancy(ctx context.Context, deps *coreDeps) {
	ticker := time.NewTicker(gateSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deps.metrics.SetGateOccupancy(deps.gate.InUse(), deps.gate.QueueDepth())
		}
	}
}
