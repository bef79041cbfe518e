// Package config provides configuration loading from command-line flags
// and environment variables.
package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/audio-slicer/internal/slicer"
	"github.com/maauso/audio-slicer/internal/storage"
)

// Static errors for configuration validation.
var (
	// ErrInputDirRequired is returned when INPUT_DIR is not set for a batch run.
	ErrInputDirRequired = errors.New("config: INPUT_DIR is required")
	// ErrOutputRequired is returned when neither OUTPUT_DIR nor S3 is configured.
	ErrOutputRequired = errors.New("config: OUTPUT_DIR or S3_BUCKET and S3_REGION are required")
	// ErrInvalidValue is returned when a numeric setting is out of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config holds all configuration for the application.
type Config struct {
	// Batch settings
	InputDir  string `env:"INPUT_DIR" json:"input_dir"`
	OutputDir string `env:"OUTPUT_DIR" json:"output_dir"`

	// Slicing settings
	AudioSamplingRate int     `env:"AUDIO_SAMPLING_RATE, default=0" json:"audio_sampling_rate" validate:"gte=0"`
	ThresholdDB       float64 `env:"THRESHOLD_DB, default=-40" json:"threshold_db"`
	MinLengthMs       int     `env:"MIN_LENGTH_MS, default=5000" json:"min_length_ms" validate:"gte=0"`
	MinIntervalMs     int     `env:"MIN_INTERVAL_MS, default=300" json:"min_interval_ms" validate:"gt=0"`
	HopSizeMs         int     `env:"HOP_SIZE_MS, default=10" json:"hop_size_ms" validate:"gt=0"`
	MaxSilKeptMs      int     `env:"MAX_SIL_KEPT_MS, default=500" json:"max_sil_kept_ms" validate:"gte=0"`

	// Processing settings
	MaxWorkers int    `env:"MAX_WORKERS, default=0" json:"max_workers" validate:"gte=0"`
	TempDir    string `env:"TEMP_DIR, default=/tmp/audio-slicer" json:"temp_dir"`
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"gt=0,lte=65535"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// flagUsage lists the settings that can also be given on the command line.
// Each flag is the lower-cased variable name, e.g. --min_length_ms.
var flagUsage = map[string]string{
	"INPUT_DIR":           "directory with the audio files to slice",
	"OUTPUT_DIR":          "directory the clips are written to",
	"AUDIO_SAMPLING_RATE": "output sample rate in Hz; the default 0 keeps each file's native rate instead of resampling to 44100",
	"THRESHOLD_DB":        "silence threshold in dBFS",
	"MIN_LENGTH_MS":       "minimum clip length in milliseconds",
	"MIN_INTERVAL_MS":     "minimum silence length for a cut in milliseconds",
	"HOP_SIZE_MS":         "analysis hop in milliseconds",
	"MAX_SIL_KEPT_MS":     "maximum silence kept around a cut in milliseconds",
	"MAX_WORKERS":         "files processed in parallel, 0 picks from the CPU count",
	"LOG_LEVEL":           "debug, info, warn or error",
}

var validate = validator.New()

// Load reads configuration from args, then the environment, then defaults.
// A flag that is set wins over its environment variable. It returns
// flag.ErrHelp when -h or -help is given.
func Load(args []string) (*Config, error) {
	return load(args, os.Stderr)
}

func load(args []string, usageOut io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("audio-slicer", flag.ContinueOnError)
	fs.SetOutput(usageOut)
	for key, usage := range flagUsage {
		fs.String(strings.ToLower(key), "", usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		set[strings.ToUpper(f.Name)] = f.Value.String()
	})

	cfg := &Config{}
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.MultiLookuper(envconfig.MapLookuper(set), envconfig.OsLookuper()),
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the settings shared by every entrypoint are usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidValue, err.Error())
	}
	if c.OutputDir == "" && !c.S3Enabled() {
		return ErrOutputRequired
	}
	return nil
}

// ValidateBatch is Validate plus the settings the batch CLI needs.
func (c *Config) ValidateBatch() error {
	if c.InputDir == "" {
		return ErrInputDirRequired
	}
	return c.Validate()
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// S3Config returns the storage settings for the S3 sink.
func (c *Config) S3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:          c.S3Bucket,
		Region:          c.S3Region,
		Prefix:          c.S3Prefix,
		Endpoint:        c.S3Endpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

// Workers returns MaxWorkers, or max(1, NumCPU/1.5) when it is zero.
func (c *Config) Workers() int {
	if c.MaxWorkers > 0 {
		return c.MaxWorkers
	}
	return max(1, int(float64(runtime.NumCPU())/1.5))
}

// SlicerConfig maps the slicing settings to a slicer.Config for sampleRate.
func (c *Config) SlicerConfig(sampleRate int) slicer.Config {
	return slicer.Config{
		SampleRate:    sampleRate,
		ThresholdDB:   c.ThresholdDB,
		MinLengthMs:   c.MinLengthMs,
		MinIntervalMs: c.MinIntervalMs,
		HopSizeMs:     c.HopSizeMs,
		MaxSilKeptMs:  c.MaxSilKeptMs,
	}
}

// NewLogger creates a structured logger writing to stdout.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{InputDir: %s, OutputDir: %s, AudioSamplingRate: %d, ThresholdDB: %g, MinLengthMs: %d, MinIntervalMs: %d, HopSizeMs: %d, MaxSilKeptMs: %d, MaxWorkers: %d, TempDir: %s, Port: %d, S3Bucket: %s, S3Region: %s, S3Prefix: %s, AWSAccessKeyID: %s, LogFormat: %s, LogLevel: %s}",
		c.InputDir,
		c.OutputDir,
		c.AudioSamplingRate,
		c.ThresholdDB,
		c.MinLengthMs,
		c.MinIntervalMs,
		c.HopSizeMs,
		c.MaxSilKeptMs,
		c.MaxWorkers,
		c.TempDir,
		c.Port,
		c.S3Bucket,
		c.S3Region,
		c.S3Prefix,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
