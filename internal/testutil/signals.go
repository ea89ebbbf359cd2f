package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave sampled uniformly.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// UniformTimes returns n timestamps in seconds spaced interval apart,
// starting at 0.
func UniformTimes(n int, interval float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * interval
	}
	return out
}

// JitteredTimes returns n strictly increasing timestamps whose spacing is
// interval*(1+u) with u uniform in [-jitter, +jitter]. jitter must be < 1.
func JitteredTimes(seed int64, n int, interval, jitter float64) []float64 {
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(seed))
	for i := 1; i < n; i++ {
		u := (rng.Float64()*2 - 1) * jitter
		out[i] = out[i-1] + interval*(1+u)
	}
	return out
}

// SampledSine evaluates offset + amplitude*sin(2*pi*freqHz*t) at each time.
func SampledSine(times []float64, freqHz, amplitude, offset float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = offset + amplitude*math.Sin(2*math.Pi*freqHz*t)
	}
	return out
}
