package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/maauso/audio-slicer/internal/slicer"
)

// FFmpegDecoder decodes any format ffmpeg understands by converting it to
// raw 32-bit float PCM on stdout.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpegDecoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

// Decode implements Decoder.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-hide_banner",
		"-nostdin",
		"-i", path,
		"-vn",
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	sampleRate, channels, err := parseOutputStream(stderr.String())
	if err != nil {
		return nil, err
	}

	raw := stdout.Bytes()
	if len(raw) < 4*channels {
		return nil, ErrEmptyAudio
	}
	interleaved := make([]float32, len(raw)/4)
	for i := range interleaved {
		interleaved[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &slicer.Waveform{
		Channels:   planar(interleaved, channels),
		SampleRate: sampleRate,
	}, nil
}

// outputStreamRe matches the stream ffmpeg reports for the f32le output,
// e.g. "Stream #0:0: Audio: pcm_f32le, 44100 Hz, stereo, flt, 2822 kb/s".
var outputStreamRe = regexp.MustCompile(`Audio: pcm_f32le, (\d+) Hz, ([^,]+),`)

// parseOutputStream extracts the sample rate and channel count of the
// converted stream from ffmpeg's stderr.
func parseOutputStream(output string) (int, int, error) {
	matches := outputStreamRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("could not parse output stream from ffmpeg output: %s", output)
	}
	// The output section follows the input section.
	last := matches[len(matches)-1]

	sampleRate, err := strconv.Atoi(last[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse sample rate %q: %w", last[1], err)
	}
	channels, err := parseChannelLayout(last[2])
	if err != nil {
		return 0, 0, err
	}
	return sampleRate, channels, nil
}

var channelLayouts = map[string]int{
	"mono":   1,
	"stereo": 2,
	"2.1":    3,
	"3.0":    3,
	"quad":   4,
	"4.0":    4,
	"4.1":    5,
	"5.0":    5,
	"5.1":    6,
	"6.0":    6,
	"6.1":    7,
	"7.0":    7,
	"7.1":    8,
}

// parseChannelLayout maps an ffmpeg channel layout name to a channel count.
func parseChannelLayout(layout string) (int, error) {
	layout = strings.TrimSpace(layout)
	if i := strings.Index(layout, "("); i >= 0 {
		layout = layout[:i] // "5.1(side)"
	}
	if n, ok := channelLayouts[layout]; ok {
		return n, nil
	}
	if count, found := strings.CutSuffix(layout, " channels"); found {
		n, err := strconv.Atoi(count)
		if err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: channel layout %q", ErrUnsupportedFormat, layout)
}

var _ Decoder = (*FFmpegDecoder)(nil)
