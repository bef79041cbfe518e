package audio

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audio-slicer/internal/slicer"
)

// MockDecoder is a mock implementation of Decoder.
type MockDecoder struct {
	mock.Mock
}

func (m *MockDecoder) Decode(ctx context.Context, path string) (*slicer.Waveform, error) {
	args := m.Called(ctx, path)
	if w := args.Get(0); w != nil {
		return w.(*slicer.Waveform), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRegistry_DispatchesOnExtension(t *testing.T) {
	ctx := context.Background()
	want := slicer.NewMono([]float32{0.1}, 8000)

	ogg := new(MockDecoder)
	ogg.On("Decode", ctx, "clip.OGG").Return(want, nil)

	r := NewDecoder("")
	r.Register(".ogg", ogg)

	got, err := r.Decode(ctx, "clip.OGG")
	require.NoError(t, err)
	assert.Same(t, want, got)
	ogg.AssertExpectations(t)
}

func TestRegistry_FallsBackForUnknownExtension(t *testing.T) {
	ctx := context.Background()
	want := slicer.NewMono([]float32{0.1}, 8000)

	fallback := new(MockDecoder)
	fallback.On("Decode", ctx, "clip.m4a").Return(want, nil)

	r := NewDecoder("")
	r.SetFallback(fallback)

	got, err := r.Decode(ctx, "clip.m4a")
	require.NoError(t, err)
	assert.Same(t, want, got)
	fallback.AssertExpectations(t)
}

func TestRegistry_FallsBackOnUnsupportedEncoding(t *testing.T) {
	ctx := context.Background()
	want := slicer.NewMono([]float32{0.1}, 8000)

	native := new(MockDecoder)
	native.On("Decode", ctx, "float.wav").Return(nil, ErrUnsupportedFormat)
	fallback := new(MockDecoder)
	fallback.On("Decode", ctx, "float.wav").Return(want, nil)

	r := NewDecoder("")
	r.Register(".wav", native)
	r.SetFallback(fallback)

	got, err := r.Decode(ctx, "float.wav")
	require.NoError(t, err)
	assert.Same(t, want, got)
	native.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestRegistry_OtherErrorsAreReturned(t *testing.T) {
	ctx := context.Background()
	decodeErr := errors.New("corrupt header")

	native := new(MockDecoder)
	native.On("Decode", ctx, "bad.wav").Return(nil, decodeErr)
	fallback := new(MockDecoder)

	r := NewDecoder("")
	r.Register(".wav", native)
	r.SetFallback(fallback)

	_, err := r.Decode(ctx, "bad.wav")
	assert.ErrorIs(t, err, decodeErr)
	fallback.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestRegistry_NoFallback(t *testing.T) {
	r := NewDecoder("")
	r.SetFallback(nil)

	_, err := r.Decode(context.Background(), "clip.m4a")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_DecodesNativeWAV(t *testing.T) {
	in := slicer.NewMono([]float32{0, 0.5, -0.5}, 16000)
	path := writeTestWAV(t, "native.wav", in)

	w, err := NewDecoder("").Decode(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 16000, w.SampleRate)
	assert.Equal(t, 3, w.Len())
}

func TestWAVDecoder_MissingFile(t *testing.T) {
	_, err := WAVDecoder{}.Decode(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestDecodeMP3_InvalidStream(t *testing.T) {
	_, err := DecodeMP3(bytes.NewReader([]byte("not an mp3 stream")))
	assert.Error(t, err)
}

func TestDecodeFLAC_InvalidStream(t *testing.T) {
	_, err := DecodeFLAC(bytes.NewReader([]byte("not a flac stream")))
	assert.Error(t, err)
}

func TestPlanar(t *testing.T) {
	got := planar([]float32{1, -1, 2, -2, 3, -3}, 2)
	assert.Equal(t, [][]float32{{1, 2, 3}, {-1, -2, -3}}, got)
}
