package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/maauso/audio-slicer/internal/slicer"
)

// FLACDecoder decodes FLAC files.
type FLACDecoder struct{}

// Decode implements Decoder.
func (FLACDecoder) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - path comes from the input listing
	if err != nil {
		return nil, fmt.Errorf("open flac: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeFLAC(f)
}

// DecodeFLAC decodes a FLAC stream frame by frame.
func DecodeFLAC(r io.Reader) (*slicer.Waveform, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("decode flac: %w", err)
	}

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, ErrEmptyAudio
	}
	scale := float32(int(1) << (int(stream.Info.BitsPerSample) - 1))

	out := make([][]float32, channels)
	if total := stream.Info.NSamples; total > 0 {
		for ch := range out {
			out[ch] = make([]float32, 0, total)
		}
	}

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse flac frame: %w", err)
		}
		for ch := 0; ch < channels; ch++ {
			for _, sample := range frame.Subframes[ch].Samples[:frame.BlockSize] {
				out[ch] = append(out[ch], float32(sample)/scale)
			}
		}
	}

	return &slicer.Waveform{
		Channels:   out,
		SampleRate: int(stream.Info.SampleRate),
	}, nil
}

var _ Decoder = FLACDecoder{}
