package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/audio-slicer/internal/slicer"
	"github.com/maauso/audio-slicer/internal/storage"
)

// Clip describes one encoded output segment.
type Clip struct {
	// Index is the ordinal of the clip within its source file.
	Index int `json:"index"`
	// Start and End are sample offsets into the (possibly resampled) source.
	Start      int `json:"start"`
	End        int `json:"end"`
	SampleRate int `json:"sample_rate"`
	// Location is the file path or object URL returned by storage.
	Location string `json:"location"`
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.End-c.Start) * time.Second / time.Duration(c.SampleRate)
}

// Splitter defines the interface for splitting audio files at silence boundaries.
type Splitter interface {
	// Split decodes inputPath, slices it and stores one WAV clip per
	// segment. Clips are returned in order.
	Split(ctx context.Context, inputPath string) ([]Clip, error)
}

// FileSplitter implements Splitter with a Decoder, the slicer and a Storage.
type FileSplitter struct {
	decoder    Decoder
	store      storage.Storage
	cfg        slicer.Config
	targetRate int
	tempDir    string
	logger     *slog.Logger
}

// SplitterOption configures a FileSplitter.
type SplitterOption func(*FileSplitter)

// WithTargetRate resamples decoded audio to rate before slicing.
// Zero keeps the native rate.
func WithTargetRate(rate int) SplitterOption {
	return func(s *FileSplitter) {
		s.targetRate = rate
	}
}

// WithTempDir sets the directory used for intermediate WAV files.
func WithTempDir(dir string) SplitterOption {
	return func(s *FileSplitter) {
		s.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SplitterOption {
	return func(s *FileSplitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSplitter creates a new FileSplitter. The sample rate in cfg is
// ignored; each file is sliced at its own (or the target) rate.
func NewFileSplitter(decoder Decoder, store storage.Storage, cfg slicer.Config, opts ...SplitterOption) *FileSplitter {
	s := &FileSplitter{
		decoder: decoder,
		store:   store,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split implements Splitter.
func (s *FileSplitter) Split(ctx context.Context, inputPath string) ([]Clip, error) {
	w, err := s.decoder.Decode(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(inputPath), err)
	}

	w = ResampleLinear(w, s.targetRate)

	sl, err := slicer.New(s.cfg.WithSampleRate(w.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("create slicer: %w", err)
	}

	segments, err := sl.Slice(w)
	if err != nil {
		return nil, fmt.Errorf("slice %s: %w", filepath.Base(inputPath), err)
	}

	s.logger.Debug("sliced file",
		slog.String("input", inputPath),
		slog.Int("sample_rate", w.SampleRate),
		slog.Int("channels", w.NumChannels()),
		slog.Int("segments", len(segments)),
	)

	stem := Stem(inputPath)
	clips := make([]Clip, 0, len(segments))
	saved := make([]string, 0, len(segments))
	for _, seg := range segments {
		name := ClipName(stem, seg.Index)
		location, err := s.writeClip(ctx, name, w.Extract(seg))
		if err != nil {
			s.cleanup(saved)
			return nil, fmt.Errorf("write clip %s: %w", name, err)
		}
		saved = append(saved, name)
		clips = append(clips, Clip{
			Index:      seg.Index,
			Start:      seg.Start,
			End:        seg.End,
			SampleRate: w.SampleRate,
			Location:   location,
		})
	}

	return clips, nil
}

// writeClip encodes clip into a temporary file and hands it to storage.
func (s *FileSplitter) writeClip(ctx context.Context, name string, clip *slicer.Waveform) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "clip_*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := EncodeWAV(f, clip); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind temp file: %w", err)
	}

	return s.store.Save(ctx, name, f)
}

// cleanup removes clips already stored for a file that failed midway.
func (s *FileSplitter) cleanup(names []string) {
	if len(names) == 0 {
		return
	}
	if err := s.store.Delete(context.Background(), names); err != nil {
		s.logger.Warn("failed to remove partial clips",
			slog.Int("count", len(names)),
			slog.String("error", err.Error()),
		)
	}
}

// Stem returns the file name of path without its last extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ClipName returns the output name of the index-th clip of stem.
func ClipName(stem string, index int) string {
	return fmt.Sprintf("%s_%d.wav", stem, index)
}

// Verify interface implementation at compile time.
var _ Splitter = (*FileSplitter)(nil)
