package biquad

import (
	"math"
	"testing"
)

// twoSectionCoeffs returns two stable low-pass sections for a 4th-order cascade.
func twoSectionCoeffs() []Coefficients {
	return []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.1, B1: 0.2, B2: 0.1, A1: -0.5, A2: 0.1},
	}
}

var chainInput = []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8}

func TestNewChain(t *testing.T) {
	c := NewChain(twoSectionCoeffs())
	if c.NumSections() != 2 {
		t.Fatalf("NumSections: got %d, want 2", c.NumSections())
	}
	if c.Order() != 4 {
		t.Fatalf("Order: got %d, want 4", c.Order())
	}
	for i, st := range c.State() {
		if st != [2]float64{0, 0} {
			t.Fatalf("section %d starts with state %v", i, st)
		}
	}
	if n := NewChain(nil).NumSections(); n != 0 {
		t.Fatalf("empty chain has %d sections", n)
	}
}

func TestChain_MatchesManualCascade(t *testing.T) {
	coeffs := twoSectionCoeffs()
	s1 := newSection(coeffs[0])
	s2 := newSection(coeffs[1])
	chain := NewChain(coeffs)

	for i, x := range chainInput {
		ref := s2.ProcessSample(s1.ProcessSample(x))
		if got := chain.ProcessSample(x); !almostEqual(got, ref, eps) {
			t.Errorf("sample %d: chain=%.15f, ref=%.15f", i, got, ref)
		}
	}
}

func TestChain_ProcessBlock_MatchesSample(t *testing.T) {
	ref := NewChain(twoSectionCoeffs())
	want := make([]float64, len(chainInput))
	for i, x := range chainInput {
		want[i] = ref.ProcessSample(x)
	}

	chain := NewChain(twoSectionCoeffs())
	buf := append([]float64(nil), chainInput...)
	chain.ProcessBlock(buf)

	for i := range buf {
		if !almostEqual(buf[i], want[i], eps) {
			t.Errorf("sample %d: block=%.15f, sample=%.15f", i, buf[i], want[i])
		}
	}
}

func TestChain_PrimeSteadyState(t *testing.T) {
	chain := NewChain(twoSectionCoeffs())
	want := 3.0
	for _, c := range twoSectionCoeffs() {
		want *= c.DCGain()
	}

	chain.PrimeSteadyState(3)
	for i := range 50 {
		if y := chain.ProcessSample(3); !almostEqual(y, want, 1e-12) {
			t.Fatalf("sample %d: got %v, want %v", i, y, want)
		}
	}
}

func TestChain_ResetAndState(t *testing.T) {
	chain := NewChain(twoSectionCoeffs())
	chain.ProcessSample(1)
	chain.ProcessSample(0.5)
	saved := chain.State()

	y3 := chain.ProcessSample(-0.3)
	chain.SetState(saved)
	if y := chain.ProcessSample(-0.3); !almostEqual(y, y3, eps) {
		t.Errorf("after restore: got %v, want %v", y, y3)
	}

	chain.Reset()
	for i, st := range chain.State() {
		if st != [2]float64{0, 0} {
			t.Errorf("section %d state not zero after reset: %v", i, st)
		}
	}
}

func TestChain_StateFinite(t *testing.T) {
	chain := NewChain(twoSectionCoeffs())
	chain.ProcessSample(1)
	if !chain.StateFinite() {
		t.Fatal("finite input produced non-finite state")
	}

	chain.ProcessSample(math.Inf(1))
	if chain.StateFinite() {
		t.Fatal("StateFinite() = true after Inf input")
	}

	chain.Reset()
	if !chain.StateFinite() {
		t.Fatal("StateFinite() = false after Reset")
	}
}

func TestChain_DecaysAfterImpulse(t *testing.T) {
	chain := NewChain(twoSectionCoeffs())
	chain.ProcessSample(1)
	for range 10000 {
		chain.ProcessSample(0)
	}

	for i, st := range chain.State() {
		if math.Abs(st[0]) > 1e-100 || math.Abs(st[1]) > 1e-100 {
			t.Errorf("section %d state did not decay: %v", i, st)
		}
	}
}

func TestChain_Retune(t *testing.T) {
	retuned := []Coefficients{
		{B0: 0.3, B1: 0.4, B2: 0.3, A1: -0.3, A2: 0.05},
		{B0: 0.2, B1: 0.1, B2: 0.2, A1: -0.4, A2: 0.08},
	}

	t.Run("same section count keeps state", func(t *testing.T) {
		c := NewChain(twoSectionCoeffs())
		c.ProcessSample(1)
		c.ProcessSample(0.5)
		before := c.State()

		c.Retune(retuned)

		for i, st := range c.State() {
			if st != before[i] {
				t.Errorf("section %d state changed: %v -> %v", i, before[i], st)
			}
		}

		// The next output follows the new coefficients from the kept state.
		ref := NewChain(retuned)
		ref.SetState(before)
		if got, want := c.ProcessSample(0.2), ref.ProcessSample(0.2); !almostEqual(got, want, eps) {
			t.Errorf("after retune: got %v, want %v", got, want)
		}
	})

	t.Run("different section count resets", func(t *testing.T) {
		c := NewChain(twoSectionCoeffs())
		c.ProcessSample(1)

		c.Retune(retuned[:1])

		if c.NumSections() != 1 {
			t.Fatalf("NumSections: got %d, want 1", c.NumSections())
		}
		if st := c.State()[0]; st != [2]float64{0, 0} {
			t.Errorf("state not zero after section-count change: %v", st)
		}
	})
}

func BenchmarkChain_ProcessBlock(b *testing.B) {
	chain := NewChain(twoSectionCoeffs())
	buf := make([]float64, 300)
	for i := range buf {
		buf[i] = math.Sin(2 * math.Pi * float64(i) / 25)
	}

	b.ResetTimer()
	for range b.N {
		chain.ProcessBlock(buf)
	}
}
