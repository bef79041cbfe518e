package slicer

import "fmt"

// Waveform is a decoded, planar sample buffer. Samples are normalized to
// [-1, 1] and every channel has the same length.
type Waveform struct {
	Channels   [][]float32
	SampleRate int
}

// NewMono wraps a single channel of samples.
func NewMono(samples []float32, sampleRate int) *Waveform {
	return &Waveform{Channels: [][]float32{samples}, SampleRate: sampleRate}
}

// NumChannels returns the channel count.
func (w *Waveform) NumChannels() int {
	return len(w.Channels)
}

// Len returns the number of samples per channel.
func (w *Waveform) Len() int {
	if len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

// Validate reports ErrInput if w has no channels, ragged channels or a
// non-positive sample rate.
func (w *Waveform) Validate() error {
	if w == nil || len(w.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInput)
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInput, w.SampleRate)
	}
	n := len(w.Channels[0])
	for ch, samples := range w.Channels[1:] {
		if len(samples) != n {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrInput, ch+1, len(samples), n)
		}
	}
	return nil
}

// Extract returns a copy of the samples covered by seg.
func (w *Waveform) Extract(seg Segment) *Waveform {
	out := &Waveform{
		Channels:   make([][]float32, len(w.Channels)),
		SampleRate: w.SampleRate,
	}
	for ch, samples := range w.Channels {
		out.Channels[ch] = append([]float32(nil), samples[seg.Start:seg.End]...)
	}
	return out
}

// Segment is a half-open sample range [Start, End) of a waveform.
type Segment struct {
	// Index is the ordinal of the segment, starting at 0.
	Index int
	Start int
	End   int
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// String returns a human-readable representation for logging.
func (s Segment) String() string {
	return fmt.Sprintf("segment %d: [%d, %d)", s.Index, s.Start, s.End)
}
