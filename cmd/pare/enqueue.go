package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/amitray007/pare/internal/imaging"
	jobsasynq "github.com/amitray007/pare/internal/jobs/asynq"
	"github.com/amitray007/pare/internal/jobs/tasks"
)

func newEnqueueCmd(verbose *bool) *cobra.Command {
	var redisAddr string
	var dataDir string
	var preset string

	cmd := &cobra.Command{
		Use:   "enqueue <file>...",
		Short: "Queue images for background optimization by a running worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := imaging.ResolvePreset(preset); err != nil {
				return newExitError(codeBadUsage, err)
			}

			storage, err := newDirStorage(dataDir)
			if err != nil {
				return newExitError(codeBadUsage, err)
			}

			client, err := jobsasynq.NewClient(jobsasynq.ClientConfig{
				RedisAddr: redisAddr,
				Logger:    newLogger(*verbose),
			})
			if err != nil {
				return newExitError(codeError, err)
			}
			defer func() { _ = client.Close() }()

			hasErrors := false
			for _, path := range args {
				if err := enqueueOne(cmd, client, storage, path, preset); err != nil {
					hasErrors = true
					fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("Error:"), path, err)
				}
			}

			if hasErrors {
				return newExitError(codeError, fmt.Errorf("one or more files failed to enqueue"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&redisAddr, "redis-addr", "127.0.0.1:6379", "Redis broker address (host:port)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory shared with the worker for source and result bytes")
	cmd.Flags().StringVarP(&preset, "preset", "p", string(imaging.PresetLow), "preset the worker optimizes with: high, medium, or low")
	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

func enqueueOne(cmd *cobra.Command, client *jobsasynq.Client, storage dirStorage, path, preset string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newExitError(codeBadInput, err)
	}

	base := filepath.Base(path)
	sourceKey := filepath.Join("source", base)
	resultKey := filepath.Join("optimized", base)

	if err := storage.Put(cmd.Context(), sourceKey, data); err != nil {
		return err
	}

	if err := client.EnqueueOptimize(cmd.Context(), tasks.OptimizePayload{
		SourceKey: sourceKey,
		ResultKey: resultKey,
		Preset:    preset,
	}); err != nil {
		return err
	}

	fmt.Printf(
		"%s %s %s %s\n",
		color.BlueString("enqueue:"),
		color.CyanString(path),
		color.BlueString("->"),
		resultKey,
	)
	return nil
}
