package slicer

import "fmt"

// Slicer computes silence-driven segment boundaries. It is immutable after
// New and safe for concurrent use.
type Slicer struct {
	cfg Config

	threshold         float64
	hopSamples        int
	minIntervalFrames int
	maxSilKeptFrames  int
	minLengthSamples  int
}

// New validates cfg and derives the frame- and sample-domain constants.
func New(cfg Config) (*Slicer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Slicer{
		cfg:               cfg,
		threshold:         dbToAmplitude(cfg.ThresholdDB),
		hopSamples:        msToSamples(cfg.HopSizeMs, cfg.SampleRate),
		minIntervalFrames: msToFrames(cfg.MinIntervalMs, cfg.HopSizeMs),
		maxSilKeptFrames:  msToFrames(cfg.MaxSilKeptMs, cfg.HopSizeMs),
		minLengthSamples:  msToSamples(cfg.MinLengthMs, cfg.SampleRate),
	}
	if s.minIntervalFrames < 1 {
		return nil, fmt.Errorf("%w: min interval of %dms is under one frame", ErrConfiguration, cfg.MinIntervalMs)
	}
	return s, nil
}

// Config returns the configuration the slicer was built from.
func (s *Slicer) Config() Config {
	return s.cfg
}

// HopSamples returns the hop length in samples.
func (s *Slicer) HopSamples() int {
	return s.hopSamples
}

// Slice profiles w and returns its segments.
func (s *Slicer) Slice(w *Waveform) ([]Segment, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.SampleRate != s.cfg.SampleRate {
		return nil, fmt.Errorf("%w: waveform is %dHz, slicer is configured for %dHz",
			ErrInput, w.SampleRate, s.cfg.SampleRate)
	}
	profile, err := ComputeProfile(w, s.hopSamples)
	if err != nil {
		return nil, err
	}
	return s.Segments(profile, w.Len()), nil
}

// SliceWaveform is Slice followed by extraction of each segment's samples.
func (s *Slicer) SliceWaveform(w *Waveform) ([]*Waveform, error) {
	segments, err := s.Slice(w)
	if err != nil {
		return nil, err
	}
	clips := make([]*Waveform, len(segments))
	for i, seg := range segments {
		clips[i] = w.Extract(seg)
	}
	return clips, nil
}

// Segments runs the hysteresis pass over profile and returns contiguous
// segments covering [0, totalSamples). It always returns at least one
// segment; the last one is the only one allowed below the minimum length.
func (s *Slicer) Segments(profile []float64, totalSamples int) []Segment {
	var (
		cuts         []int
		lastCut      int
		inSilence    bool
		silenceStart int
	)

	// A profile without a single voiced frame is one segment.
	if !s.hasVoice(profile) {
		return []Segment{{Index: 0, Start: 0, End: totalSamples}}
	}

	commit := func(start, end int) {
		if cut, ok := s.cutPoint(profile, start, end, lastCut, totalSamples); ok {
			cuts = append(cuts, cut)
			lastCut = cut
		}
	}

	for i, loudness := range profile {
		if loudness < s.threshold {
			if !inSilence {
				inSilence = true
				silenceStart = i
			}
			continue
		}
		if inSilence {
			commit(silenceStart, i)
			inSilence = false
		}
	}
	// The stream end closes a trailing silence run.
	if inSilence {
		commit(silenceStart, len(profile))
	}

	segments := make([]Segment, 0, len(cuts)+1)
	start := 0
	for _, cut := range cuts {
		segments = append(segments, Segment{Index: len(segments), Start: start, End: cut})
		start = cut
	}
	return append(segments, Segment{Index: len(segments), Start: start, End: totalSamples})
}

func (s *Slicer) hasVoice(profile []float64) bool {
	for _, loudness := range profile {
		if loudness >= s.threshold {
			return true
		}
	}
	return false
}

// cutPoint decides whether the silence run [start, end) yields a cut and,
// if so, returns its sample offset.
func (s *Slicer) cutPoint(profile []float64, start, end, lastCut, totalSamples int) (int, bool) {
	if end-start < s.minIntervalFrames {
		return 0, false
	}
	if end*s.hopSamples-lastCut < s.minLengthSamples {
		return 0, false
	}

	// Admissible frames: strictly after lastCut, leaving the previous
	// segment at least minLengthSamples long, and strictly before the end.
	minCut := lastCut + max(s.minLengthSamples, 1)
	first := max(start, ceilDiv(minCut, s.hopSamples))
	last := min(end-1, ceilDiv(totalSamples, s.hopSamples)-1)
	if first > last {
		return 0, false
	}

	quiet := first
	for i := first + 1; i <= last; i++ {
		if profile[i] < profile[quiet] {
			quiet = i
		}
	}

	quiet = s.clampToPadding(quiet, start, end)
	quiet = min(max(quiet, first), last)
	return quiet * s.hopSamples, true
}

// clampToPadding keeps the cut within maxSilKeptFrames of the run edges.
// For runs short enough, neither side keeps more than the cap. For longer
// runs a frame deeper than the cap on both sides snaps to the nearer capped
// edge, earlier on ties.
func (s *Slicer) clampToPadding(quiet, start, end int) int {
	lo := max(start, end-s.maxSilKeptFrames)
	hi := min(end-1, start+s.maxSilKeptFrames)
	if lo <= hi {
		return min(max(quiet, lo), hi)
	}
	if quiet > hi && quiet < lo {
		if quiet-hi <= lo-quiet {
			return hi
		}
		return lo
	}
	return quiet
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
