package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1.2, 10, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoise(t *testing.T) {
	a := DeterministicNoise(42, 1.0, 64)
	b := DeterministicNoise(42, 1.0, 64)
	c := DeterministicNoise(43, 1.0, 64)
	if d, _ := MaxAbsDiff(a, b); d != 0 {
		t.Fatal("noise not deterministic")
	}
	if d, _ := MaxAbsDiff(a, c); d == 0 {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestJitteredTimes(t *testing.T) {
	times := JitteredTimes(7, 500, 0.1, 0.2)
	if times[0] != 0 {
		t.Fatalf("times[0] = %v", times[0])
	}
	for i := 1; i < len(times); i++ {
		d := times[i] - times[i-1]
		if d < 0.08-1e-12 || d > 0.12+1e-12 {
			t.Fatalf("interval %d = %v outside +-20%%", i, d)
		}
	}
}

func TestSampledSineAndRMS(t *testing.T) {
	s := SampledSine(UniformTimes(1000, 0.01), 1, 2, 0)
	if rms := RMS(s); math.Abs(rms-math.Sqrt2) > 1e-9 {
		t.Fatalf("RMS = %v, want sqrt(2)", rms)
	}
	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) != 0")
	}
	if dc := DC(3, 4); dc[3] != 3 {
		t.Fatalf("DC = %v", dc)
	}
	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}
