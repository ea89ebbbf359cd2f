package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

// Frequencies around the pulse band at a 10 Hz camera rate.
var responseFreqs = []float64{0.1, 0.7, 1.2, 3.5, 4.9}

const responseRate = 10.0

// transfer evaluates H(e^jw) directly from the coefficients.
func transfer(c Coefficients, freqHz, sampleRate float64) complex128 {
	z1 := cmplx.Exp(complex(0, -2*math.Pi*freqHz/sampleRate))
	z2 := z1 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return num / den
}

func TestMagnitudeSquared_MatchesTransfer(t *testing.T) {
	c := smoother()
	for _, freq := range responseFreqs {
		want := math.Pow(cmplx.Abs(transfer(c, freq, responseRate)), 2)
		if got := c.MagnitudeSquared(freq, responseRate); !almostEqual(got, want, 1e-10) {
			t.Errorf("freq=%v: MagnitudeSquared=%.15f, want %.15f", freq, got, want)
		}
	}
}

func TestMagnitudeSquared_DCMatchesDCGain(t *testing.T) {
	c := smoother()
	if got, want := c.MagnitudeSquared(0, responseRate), c.DCGain()*c.DCGain(); !almostEqual(got, want, 1e-12) {
		t.Fatalf("|H(0)|^2 = %v, want %v", got, want)
	}
}

func TestMagnitudeSquared_Allpass(t *testing.T) {
	a1, a2 := -0.5, 0.3
	c := Coefficients{B0: a2, B1: a1, B2: 1, A1: a1, A2: a2}
	for _, freq := range responseFreqs {
		if got := c.MagnitudeSquared(freq, responseRate); !almostEqual(got, 1, 1e-10) {
			t.Errorf("freq=%v: |H|^2=%.15f, want 1", freq, got)
		}
	}
}

func TestChain_MagnitudeDB(t *testing.T) {
	coeffs := twoSectionCoeffs()
	chain := NewChain(coeffs)

	for _, freq := range responseFreqs {
		h := transfer(coeffs[0], freq, responseRate) * transfer(coeffs[1], freq, responseRate)
		single := 20 * math.Log10(cmplx.Abs(h))

		if got := chain.MagnitudeDB(freq, responseRate); !almostEqual(got, single, 1e-10) {
			t.Errorf("freq=%v: MagnitudeDB=%v, want %v", freq, got, single)
		}
		if got := chain.ZeroPhaseMagnitudeDB(freq, responseRate); !almostEqual(got, 2*single, 1e-10) {
			t.Errorf("freq=%v: ZeroPhaseMagnitudeDB=%v, want %v", freq, got, 2*single)
		}
	}
}

func TestChain_MagnitudeDB_Empty(t *testing.T) {
	if got := NewChain(nil).MagnitudeDB(1, responseRate); got != 0 {
		t.Fatalf("empty chain: %v dB, want 0", got)
	}
}
