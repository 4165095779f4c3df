package gop

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// AudioPreprocessor mixes multi-channel PCM to mono, resamples to
// TargetSampleRate by linear interpolation, and normalizes to zero
// mean / unit variance.
type AudioPreprocessor struct{}

// NewAudioPreprocessor constructs a stateless preprocessor.
func NewAudioPreprocessor() *AudioPreprocessor {
	return &AudioPreprocessor{}
}

// Prepare runs downmix, resample, and normalize in that order.
func (p *AudioPreprocessor) Prepare(samples []float32, srcRate, channels int) ([]float32, error) {
	mono, err := downmix(samples, channels)
	if err != nil {
		return nil, err
	}
	resampled := resample(mono, srcRate, TargetSampleRate)
	return normalize(resampled), nil
}

func downmix(samples []float32, channels int) ([]float32, error) {
	if channels <= 1 {
		if len(samples) == 0 {
			return nil, ErrEmptyAudio
		}
		return samples, nil
	}
	frameCount := len(samples) / channels
	if frameCount == 0 {
		return nil, ErrEmptyAudio
	}
	mono := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += samples[base+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono, nil
}

func resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	nOut := int(math.Floor(float64(len(samples)) / ratio))
	if nOut <= 0 {
		return nil
	}
	out := make([]float32, nOut)
	for i := 0; i < nOut; i++ {
		pos := float64(i) * ratio
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		if lo+1 >= len(samples) {
			out[i] = samples[lo]
			continue
		}
		out[i] = samples[lo] + float32(frac)*(samples[lo+1]-samples[lo])
	}
	return out
}

func normalize(samples []float32) []float32 {
	if len(samples) == 0 {
		return samples
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(samples))
	sigma := math.Sqrt(variance)
	if sigma < 1e-5 {
		sigma = 1e-5
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32((float64(s) - mean) / sigma)
	}
	return out
}

// PrepareWAV decodes a WAV container to float32 PCM plus its native sample
// rate and channel count. No resampling happens here; the caller still
// routes the result through Prepare.
func (p *AudioPreprocessor) PrepareWAV(path string) ([]float32, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("gop: %q is not a valid wav file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return nil, 0, 0, fmt.Errorf("gop: %q has no format information", path)
	}

	bitDepth := decoder.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float32(s) / maxVal
	}

	return samples, buf.Format.SampleRate, buf.Format.NumChannels, nil
}
