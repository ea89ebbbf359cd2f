package biquad

import (
	"math"
	"testing"
)

// unityDCChain normalizes the two test sections to unit DC gain.
func unityDCChain() *Chain {
	coeffs := twoSectionCoeffs()
	for i, c := range coeffs {
		g := c.DCGain()
		coeffs[i].B0, coeffs[i].B1, coeffs[i].B2 = c.B0/g, c.B1/g, c.B2/g
	}

	return NewChain(coeffs)
}

func TestFiltFilt_Empty(t *testing.T) {
	if out := unityDCChain().FiltFilt(nil); out != nil {
		t.Fatalf("got %v, want nil", out)
	}
}

func TestFiltFilt_ConstantPassesUnchanged(t *testing.T) {
	x := make([]float64, 40)
	for i := range x {
		x[i] = 3
	}

	out := unityDCChain().FiltFilt(x)
	for i, y := range out {
		if !almostEqual(y, 3, 1e-9) {
			t.Fatalf("out[%d] = %v, want 3", i, y)
		}
	}
}

func TestFiltFilt_DoesNotModifyInputOrState(t *testing.T) {
	chain := unityDCChain()
	chain.ProcessSample(1)
	before := chain.State()

	x := []float64{1, -2, 3, 0.5, 0, 1, 2}
	orig := append([]float64(nil), x...)
	chain.FiltFilt(x)

	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
	for i, st := range chain.State() {
		if st != before[i] {
			t.Fatalf("section %d state changed: %v -> %v", i, before[i], st)
		}
	}
}

func TestFiltFilt_ZeroPhase(t *testing.T) {
	// A symmetric pulse stays symmetric about its centre after zero-phase
	// filtering, whereas a single forward pass shifts it.
	const n = 101
	x := make([]float64, n)
	for i := range x {
		d := float64(i - n/2)
		x[i] = math.Exp(-d * d / 18)
	}

	out := unityDCChain().FiltFilt(x)

	peak := 0
	for i := range out {
		if out[i] > out[peak] {
			peak = i
		}
	}
	if peak != n/2 {
		t.Fatalf("peak moved to %d, want %d", peak, n/2)
	}
	for k := 1; k < 20; k++ {
		if !almostEqual(out[n/2-k], out[n/2+k], 1e-6) {
			t.Fatalf("asymmetry at offset %d: %v vs %v", k, out[n/2-k], out[n/2+k])
		}
	}
}

func TestFiltFilt_ShortInput(t *testing.T) {
	out := unityDCChain().FiltFilt([]float64{5, 5})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	for i, y := range out {
		if !almostEqual(y, 5, 1e-9) {
			t.Fatalf("out[%d] = %v, want 5", i, y)
		}
	}
}

func TestPadLen(t *testing.T) {
	if got := NewChain(twoSectionCoeffs()).PadLen(); got != 15 {
		t.Fatalf("PadLen = %d, want 15", got)
	}
}
