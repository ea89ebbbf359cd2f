package design

import (
	"math"

	"github.com/cwbudde/algo-rppg/dsp/filter/biquad"
)

const defaultQ = 1 / math.Sqrt2

// BilinearK returns the pre-warped analog frequency tan(pi*freq/sampleRate)
// used by the bilinear transform. ok is false when freq is outside
// (0, Nyquist) or the sample rate is not positive.
func BilinearK(freq, sampleRate float64) (k float64, ok bool) {
	if _, ok := normalizedW0(freq, sampleRate); !ok {
		return 0, false
	}

	return math.Tan(math.Pi * freq / sampleRate), true
}

// Lowpass designs a second-order lowpass biquad at freq (Hz) with quality
// factor q. Invalid parameters yield zero coefficients.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	return normalizeBiquad((1-cw)/2, 1-cw, (1-cw)/2, 1+alpha, -2*cw, 1-alpha)
}

// Highpass designs a second-order highpass biquad at freq (Hz) with quality
// factor q. Invalid parameters yield zero coefficients.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	return normalizeBiquad((1+cw)/2, -(1 + cw), (1+cw)/2, 1+alpha, -2*cw, 1-alpha)
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, false
	}

	nyquist := sampleRate / 2
	if freq <= 0 || freq >= nyquist || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0, false
	}

	return 2 * math.Pi * freq / sampleRate, true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return defaultQ
	}

	return q
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Coefficients{}
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
