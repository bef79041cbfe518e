// Package slicer splits a waveform into contiguous segments at points of
// extended silence. It holds the pure, deterministic core: a frame-energy
// profiler and a hysteresis segmenter over that profile.
package slicer

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Static errors returned by the slicer.
var (
	// ErrConfiguration is returned when a Config cannot produce a valid Slicer.
	ErrConfiguration = errors.New("slicer: invalid configuration")
	// ErrInput is returned when a Waveform is malformed.
	ErrInput = errors.New("slicer: invalid waveform")
)

// FrameOverlap is the ratio between the analysis frame length and the hop.
const FrameOverlap = 4

// Default tunables.
const (
	DefaultThresholdDB   = -40.0
	DefaultMinLengthMs   = 5000
	DefaultMinIntervalMs = 300
	DefaultHopSizeMs     = 10
	DefaultMaxSilKeptMs  = 500
)

// Config holds the silence-detection parameters for one sample rate.
type Config struct {
	// SampleRate is the rate of the waveforms this config slices, in Hz.
	SampleRate int `validate:"gt=0"`
	// ThresholdDB is the loudness in dBFS below which a frame is silent.
	ThresholdDB float64
	// MinLengthMs is the minimum length of every segment but the last.
	MinLengthMs int `validate:"gte=0"`
	// MinIntervalMs is the shortest silence that may become a cut point.
	MinIntervalMs int `validate:"gtefield=HopSizeMs"`
	// HopSizeMs is the stride between successive energy frames.
	HopSizeMs int `validate:"gt=0"`
	// MaxSilKeptMs caps the silence kept on each side of a cut.
	MaxSilKeptMs int `validate:"gte=0"`
}

// DefaultConfig returns the default tunables for the given sample rate.
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:    sampleRate,
		ThresholdDB:   DefaultThresholdDB,
		MinLengthMs:   DefaultMinLengthMs,
		MinIntervalMs: DefaultMinIntervalMs,
		HopSizeMs:     DefaultHopSizeMs,
		MaxSilKeptMs:  DefaultMaxSilKeptMs,
	}
}

// WithSampleRate returns a copy of c for another sample rate.
func (c Config) WithSampleRate(sampleRate int) Config {
	c.SampleRate = sampleRate
	return c
}

var validate = validator.New()

// Validate checks the invariants of c, including the derived hop length.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrConfiguration, err.Error())
	}
	if msToSamples(c.HopSizeMs, c.SampleRate) < 1 {
		return fmt.Errorf("%w: hop of %dms at %dHz is shorter than one sample",
			ErrConfiguration, c.HopSizeMs, c.SampleRate)
	}
	return nil
}

// msToSamples converts a duration to samples, rounding half away from zero.
// Every ms-to-sample conversion in the package goes through here.
func msToSamples(ms, sampleRate int) int {
	return int(math.Round(float64(sampleRate) * float64(ms) / 1000))
}

// msToFrames converts a duration to a whole number of hops using the same
// rounding rule as msToSamples.
func msToFrames(ms, hopMs int) int {
	return int(math.Round(float64(ms) / float64(hopMs)))
}

// dbToAmplitude converts dBFS to a linear amplitude.
func dbToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}
