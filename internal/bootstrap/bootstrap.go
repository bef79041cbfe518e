// Package bootstrap wires the slicing pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/maauso/audio-slicer/internal/audio"
	"github.com/maauso/audio-slicer/internal/config"
	"github.com/maauso/audio-slicer/internal/job"
	"github.com/maauso/audio-slicer/internal/slicer"
	"github.com/maauso/audio-slicer/internal/storage"
)

// validationSampleRate is used to validate the slicing settings before any file
// is decoded. Real rates are only known per file.
const validationSampleRate = 44100

// Dependencies holds all initialized dependencies for the CLI and the HTTP server.
type Dependencies struct {
	Decoder      audio.Decoder
	Store        storage.Storage
	Splitter     *audio.FileSplitter
	Repo         job.Repository
	BatchService *job.BatchService
}

// NewDependencies creates and initializes all dependencies for the application.
// It fails fast when the slicing settings are invalid.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := validateSlicing(cfg); err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.TempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	decoder := audio.NewDecoder(cfg.FFmpegPath)
	splitter := audio.NewFileSplitter(decoder, store, cfg.SlicerConfig(0),
		audio.WithTargetRate(cfg.AudioSamplingRate),
		audio.WithTempDir(cfg.TempDir),
		audio.WithLogger(logger),
	)

	repo := job.NewMemoryRepository()
	svc := job.NewBatchService(repo, splitter, store, logger,
		job.WithMaxWorkers(cfg.Workers()),
	)

	return &Dependencies{
		Decoder:      decoder,
		Store:        store,
		Splitter:     splitter,
		Repo:         repo,
		BatchService: svc,
	}, nil
}

// validateSlicing checks the slicing settings at the target rate, or at a
// typical rate when files keep their native one.
func validateSlicing(cfg *config.Config) error {
	rate := cfg.AudioSamplingRate
	if rate == 0 {
		rate = validationSampleRate
	}
	if _, err := slicer.New(cfg.SlicerConfig(rate)); err != nil {
		return fmt.Errorf("invalid slicing settings: %w", err)
	}
	return nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(ctx, cfg.S3Config())
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return storage.NewLocalStorage(cfg.OutputDir), nil
}
