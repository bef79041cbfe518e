package audio

import "github.com/maauso/audio-slicer/internal/slicer"

// ResampleLinear resamples every channel of w to outRate using linear
// interpolation. It returns w unchanged when the rates already match.
func ResampleLinear(w *slicer.Waveform, outRate int) *slicer.Waveform {
	if outRate <= 0 || w.SampleRate <= 0 || outRate == w.SampleRate {
		return w
	}
	out := &slicer.Waveform{
		Channels:   make([][]float32, len(w.Channels)),
		SampleRate: outRate,
	}
	for ch, samples := range w.Channels {
		out.Channels[ch] = resampleChannel(samples, w.SampleRate, outRate)
	}
	return out
}

func resampleChannel(samples []float32, inRate, outRate int) []float32 {
	if len(samples) == 0 {
		return []float32{}
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		s0 := samples[i0]
		s1 := samples[i0+1]
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}
