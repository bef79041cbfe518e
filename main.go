// Package main provides the batch command line for the audio slicer.
// It slices every file of INPUT_DIR at silences and writes the clips to
// OUTPUT_DIR or S3.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/audio-slicer/internal/audio"
	"github.com/maauso/audio-slicer/internal/bootstrap"
	"github.com/maauso/audio-slicer/internal/config"
)

// errFilesFailed is returned when at least one file could not be sliced.
var errFilesFailed = errors.New("some files failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Load configuration from flags and environment
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBatch(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting audio slicer",
		slog.String("input_dir", cfg.InputDir),
		slog.String("output_dir", cfg.OutputDir),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Int("audio_sampling_rate", cfg.AudioSamplingRate),
		slog.Float64("threshold_db", cfg.ThresholdDB),
		slog.Int("min_length_ms", cfg.MinLengthMs),
		slog.Int("min_interval_ms", cfg.MinIntervalMs),
		slog.Int("hop_size_ms", cfg.HopSizeMs),
		slog.Int("max_sil_kept_ms", cfg.MaxSilKeptMs),
		slog.Int("workers", cfg.Workers()),
	)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	paths, err := audio.ListInputs(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no input files found", slog.String("input_dir", cfg.InputDir))
		return nil
	}

	report, err := deps.BatchService.Run(ctx, paths)
	if err != nil {
		return err
	}

	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, report.Failed, report.Total)
	}
	if report.Cancelled > 0 {
		return fmt.Errorf("interrupted: %d of %d files not processed", report.Cancelled, report.Total)
	}
	return nil
}
