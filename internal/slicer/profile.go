package slicer

import (
	"fmt"
	"math"
)

// ComputeProfile returns the per-frame RMS loudness of w for the given hop.
//
// The buffer is zero-padded by half a frame on each side so that frame i is
// centered on sample i*hopSamples. The frame length is FrameOverlap hops.
// For multi-channel input each frame takes the loudest channel, so a frame
// is silent only if every channel is quiet.
func ComputeProfile(w *Waveform, hopSamples int) ([]float64, error) {
	if hopSamples < 1 {
		return nil, fmt.Errorf("%w: hop of %d samples", ErrConfiguration, hopSamples)
	}
	n := w.Len()
	if n == 0 {
		return []float64{}, nil
	}

	frame := FrameOverlap * hopSamples
	half := frame / 2
	numFrames := n/hopSamples + 1
	profile := make([]float64, numFrames)

	// Prefix sums of squares over the unpadded signal. Padding contributes
	// zero energy, so a padded window reduces to a clipped range.
	prefix := make([]float64, n+1)
	for _, samples := range w.Channels {
		for i, s := range samples {
			v := float64(s)
			prefix[i+1] = prefix[i] + v*v
		}
		for i := range profile {
			lo := i*hopSamples - half
			hi := lo + frame
			if lo < 0 {
				lo = 0
			}
			if hi > n {
				hi = n
			}
			energy := 0.0
			if hi > lo {
				energy = prefix[hi] - prefix[lo]
			}
			if energy < 0 {
				// float cancellation on near-silent windows
				energy = 0
			}
			rms := math.Sqrt(energy / float64(frame))
			if rms > profile[i] {
				profile[i] = rms
			}
		}
	}
	return profile, nil
}
