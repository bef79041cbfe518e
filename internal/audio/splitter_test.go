package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audio-slicer/internal/slicer"
	"github.com/maauso/audio-slicer/internal/storage"
)

// MockStorage is a mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Prepare(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, names []string) error {
	args := m.Called(ctx, names)
	return args.Error(0)
}

const testRate = 16000

// speechWithPause builds 2s of signal, 1s of silence and 2s of signal.
func speechWithPause() *slicer.Waveform {
	samples := make([]float32, 0, 5*testRate)
	for i := 0; i < 2*testRate; i++ {
		samples = append(samples, 0.5)
	}
	samples = append(samples, make([]float32, testRate)...)
	for i := 0; i < 2*testRate; i++ {
		samples = append(samples, 0.5)
	}
	return slicer.NewMono(samples, testRate)
}

func testSlicerConfig() slicer.Config {
	cfg := slicer.DefaultConfig(testRate)
	cfg.MinLengthMs = 1000
	return cfg
}

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileSplitter_Split(t *testing.T) {
	input := writeTestWAV(t, "speech.wav", speechWithPause())
	out := storage.NewLocalStorage(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, out.Prepare(context.Background()))

	s := NewFileSplitter(NewDecoder(""), out, testSlicerConfig(),
		WithTempDir(t.TempDir()),
		WithLogger(newDiscardLogger()),
	)

	clips, err := s.Split(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, clips, 2)

	assert.Equal(t, 0, clips[0].Start)
	assert.Equal(t, clips[0].End, clips[1].Start)
	assert.Equal(t, 5*testRate, clips[1].End)
	assert.GreaterOrEqual(t, clips[0].End, 2*testRate)
	assert.LessOrEqual(t, clips[0].End, 3*testRate)

	for i, clip := range clips {
		assert.Equal(t, i, clip.Index)
		assert.Equal(t, testRate, clip.SampleRate)
		assert.Equal(t, filepath.Join(out.Dir(), ClipName("speech", i)), clip.Location)

		w := readTestWAV(t, clip.Location)
		assert.Equal(t, clip.End-clip.Start, w.Len())
		assert.Equal(t, testRate, w.SampleRate)
	}
}

func TestFileSplitter_SplitResamples(t *testing.T) {
	input := writeTestWAV(t, "speech.wav", speechWithPause())
	out := storage.NewLocalStorage(t.TempDir())

	s := NewFileSplitter(NewDecoder(""), out, testSlicerConfig(),
		WithTargetRate(8000),
		WithLogger(newDiscardLogger()),
	)

	clips, err := s.Split(context.Background(), input)
	require.NoError(t, err)
	require.NotEmpty(t, clips)

	last := clips[len(clips)-1]
	assert.Equal(t, 5*8000, last.End)
	for _, clip := range clips {
		assert.Equal(t, 8000, clip.SampleRate)
	}
}

func TestFileSplitter_DecodeError(t *testing.T) {
	store := new(MockStorage)
	s := NewFileSplitter(NewDecoder(""), store, testSlicerConfig())

	_, err := s.Split(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestFileSplitter_InvalidConfig(t *testing.T) {
	input := writeTestWAV(t, "speech.wav", speechWithPause())
	cfg := testSlicerConfig()
	cfg.HopSizeMs = 0

	s := NewFileSplitter(NewDecoder(""), new(MockStorage), cfg)

	_, err := s.Split(context.Background(), input)
	assert.ErrorIs(t, err, slicer.ErrConfiguration)
}

func TestFileSplitter_RemovesPartialClipsOnSaveError(t *testing.T) {
	input := writeTestWAV(t, "speech.wav", speechWithPause())
	saveErr := errors.New("disk full")

	store := new(MockStorage)
	store.On("Save", mock.Anything, "speech_0.wav", mock.Anything).Return("/out/speech_0.wav", nil)
	store.On("Save", mock.Anything, "speech_1.wav", mock.Anything).Return("", saveErr)
	store.On("Delete", mock.Anything, []string{"speech_0.wav"}).Return(nil)

	s := NewFileSplitter(NewDecoder(""), store, testSlicerConfig(),
		WithLogger(newDiscardLogger()),
	)

	_, err := s.Split(context.Background(), input)
	assert.ErrorIs(t, err, saveErr)
	store.AssertExpectations(t)
}

func TestFileSplitter_RemovesTempFiles(t *testing.T) {
	input := writeTestWAV(t, "speech.wav", speechWithPause())
	tempDir := t.TempDir()

	s := NewFileSplitter(NewDecoder(""), storage.NewLocalStorage(t.TempDir()), testSlicerConfig(),
		WithTempDir(tempDir),
		WithLogger(newDiscardLogger()),
	)

	_, err := s.Split(context.Background(), input)
	require.NoError(t, err)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClip_Duration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Clip{Start: 8000, End: 32000, SampleRate: 16000}.Duration())
	assert.Equal(t, time.Duration(0), Clip{End: 100}.Duration())
}
