package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/maauso/audio-slicer/internal/slicer"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	outputBitDepth      = 16
)

// WAVDecoder decodes integer PCM WAV files. Other WAV encodings report
// ErrUnsupportedFormat so the registry can hand them to ffmpeg.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - path comes from the input listing
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeWAV(f)
}

// DecodeWAV decodes a WAV stream into a planar waveform normalized to [-1, 1].
func DecodeWAV(r io.ReadSeeker) (*slicer.Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decode wav: invalid file")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: wav encoding %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	// The extensible sub-format is not exposed, so 32-bit may be float.
	if dec.WavAudioFormat == wavFormatExtensible && dec.BitDepth == 32 {
		return nil, fmt.Errorf("%w: extensible wav at 32 bits", ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	channels := int(dec.NumChans)
	if buf == nil || channels == 0 {
		return nil, ErrEmptyAudio
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	interleaved := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		interleaved[i] = float32(v) / scale
	}

	return &slicer.Waveform{
		Channels:   planar(interleaved, channels),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// EncodeWAV writes w as 16-bit PCM WAV. Samples outside [-1, 1] are clipped.
func EncodeWAV(out io.WriteSeeker, w *slicer.Waveform) error {
	channels := w.NumChannels()
	if channels == 0 {
		return ErrEmptyAudio
	}

	n := w.Len()
	data := make([]int, n*channels)
	for ch, samples := range w.Channels {
		for i, s := range samples {
			data[i*channels+ch] = floatToPCM16(s)
		}
	}

	enc := wav.NewEncoder(out, w.SampleRate, outputBitDepth, channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  w.SampleRate,
		},
		Data:           data,
		SourceBitDepth: outputBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

func floatToPCM16(s float32) int {
	v := math.Round(float64(s) * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int(v)
}

var _ Decoder = WAVDecoder{}
