package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/maauso/audio-slicer/internal/slicer"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// MP3Decoder decodes MP3 files.
type MP3Decoder struct{}

// Decode implements Decoder.
func (MP3Decoder) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - path comes from the input listing
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeMP3(f)
}

// DecodeMP3 decodes an MP3 stream into a stereo waveform.
func DecodeMP3(r io.Reader) (*slicer.Waveform, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3 frames: %w", err)
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	numSamples := len(pcm) / mp3BytesPerSample
	interleaved := make([]float32, numSamples)
	for i := range interleaved {
		sample16 := int16(binary.LittleEndian.Uint16(pcm[i*mp3BytesPerSample:]))
		interleaved[i] = float32(sample16) / 32768
	}

	return &slicer.Waveform{
		Channels:   planar(interleaved, mp3Channels),
		SampleRate: dec.SampleRate(),
	}, nil
}

var _ Decoder = MP3Decoder{}
