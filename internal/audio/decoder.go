// Package audio decodes audio files into waveforms, encodes clips back to
// WAV and splits files at silence boundaries.
package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maauso/audio-slicer/internal/slicer"
)

// Static errors for decoding.
var (
	// ErrUnsupportedFormat is returned when no decoder handles a file.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	// ErrEmptyAudio is returned when a file decodes to zero channels.
	ErrEmptyAudio = errors.New("audio: no audio data")
)

// Decoder turns an audio file into a normalized planar waveform.
type Decoder interface {
	Decode(ctx context.Context, path string) (*slicer.Waveform, error)
}

// Registry dispatches on file extension and falls back to ffmpeg for
// formats the native decoders do not handle.
type Registry struct {
	byExt    map[string]Decoder
	fallback Decoder
}

// NewDecoder returns a Registry with the native WAV, MP3 and FLAC decoders.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewDecoder(ffmpegPath string) *Registry {
	return &Registry{
		byExt: map[string]Decoder{
			".wav":  WAVDecoder{},
			".wave": WAVDecoder{},
			".mp3":  MP3Decoder{},
			".flac": FLACDecoder{},
		},
		fallback: NewFFmpegDecoder(ffmpegPath),
	}
}

// Register sets the decoder used for ext, e.g. ".ogg".
func (r *Registry) Register(ext string, d Decoder) {
	r.byExt[strings.ToLower(ext)] = d
}

// SetFallback replaces the decoder used for unknown extensions. A nil
// fallback makes unknown extensions fail with ErrUnsupportedFormat.
func (r *Registry) SetFallback(d Decoder) {
	r.fallback = d
}

// Decode implements Decoder.
func (r *Registry) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := r.byExt[ext]
	if !ok {
		if r.fallback == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}
		return r.fallback.Decode(ctx, path)
	}

	w, err := d.Decode(ctx, path)
	if errors.Is(err, ErrUnsupportedFormat) && r.fallback != nil {
		return r.fallback.Decode(ctx, path)
	}
	return w, err
}

// planar splits interleaved samples into one slice per channel.
func planar(interleaved []float32, channels int) [][]float32 {
	frames := len(interleaved) / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = interleaved[i*channels+ch]
		}
	}
	return out
}

// Verify interface implementation at compile time.
var _ Decoder = (*Registry)(nil)
