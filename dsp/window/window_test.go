package window

import (
	"errors"
	"math"
	"testing"
)

func TestGenerate_AllTypesFinite(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeTukey} {
		t.Run(Info(typ).Name, func(t *testing.T) {
			w := Generate(typ, 64)
			if len(w) != 64 {
				t.Fatalf("len=%d, want 64", len(w))
			}

			for i, v := range w {
				if math.IsNaN(v) || math.IsInf(v, 0) || v < -1e-12 || v > 1+1e-12 {
					t.Fatalf("coefficient[%d] invalid: %v", i, v)
				}
			}
		})
	}
}

func TestPeriodicDiffersFromSymmetric(t *testing.T) {
	a := Generate(TypeHann, 16)
	b := Generate(TypeHann, 16, WithPeriodic())
	if almostEqual(a[15], b[15], 1e-12) {
		t.Fatal("expected different end coefficient for periodic form")
	}
	if !almostEqual(b[8], 1, 1e-12) {
		t.Fatalf("periodic Hann centre = %v, want 1", b[8])
	}
}

func TestTukeyAlpha(t *testing.T) {
	rect := Generate(TypeTukey, 32, WithAlpha(0))
	for i, v := range rect {
		if v != 1 {
			t.Fatalf("alpha=0 should be rectangular, index %d = %v", i, v)
		}
	}

	checkGolden(t, Generate(TypeTukey, 8, WithAlpha(1)), Generate(TypeHann, 8), 1e-12)

	w := Generate(TypeTukey, 101, WithAlpha(0.5))
	if w[0] != 0 || w[50] != 1 {
		t.Fatalf("tukey edges/centre: %v %v", w[0], w[50])
	}
}

func TestApplyInPlaceByType(t *testing.T) {
	buf := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	Apply(TypeRectangular, buf)
	for i, v := range buf {
		if v != float64(i+1) {
			t.Fatalf("rectangular should be passthrough at %d: %v", i, v)
		}
	}

	Apply(TypeHann, buf)
	if buf[0] != 0 || buf[7] != 0 {
		t.Fatalf("hann edges should be 0, got %v %v", buf[0], buf[7])
	}
}

func TestMetadataMatchesMeasured(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman} {
		m := Info(typ)
		w := Generate(typ, 4096, WithPeriodic())

		enbw, err := EquivalentNoiseBandwidth(w)
		if err != nil {
			t.Fatalf("%s: %v", m.Name, err)
		}
		if !almostEqual(enbw, m.ENBW, 0.01) {
			t.Errorf("%s: ENBW=%v, metadata %v", m.Name, enbw, m.ENBW)
		}

		cg, err := CoherentGain(w)
		if err != nil {
			t.Fatalf("%s: %v", m.Name, err)
		}
		if !almostEqual(cg, m.CoherentGain, 1e-3) {
			t.Errorf("%s: coherent gain=%v, metadata %v", m.Name, cg, m.CoherentGain)
		}
		if m.MainLobeBins <= 0 {
			t.Errorf("%s: main lobe width not set", m.Name)
		}
	}
}

func TestGoldenVectors(t *testing.T) {
	hannExpected := []float64{
		0.0, 0.1882550990706332, 0.6112604669781572, 0.9504844339512095,
		0.9504844339512095, 0.6112604669781573, 0.1882550990706333, 0.0,
	}
	hammingExpected := []float64{
		0.08, 0.25319469114498255, 0.6423596296199047, 0.9544456792351128,
		0.9544456792351128, 0.6423596296199048, 0.25319469114498266, 0.08,
	}

	checkGolden(t, Generate(TypeHann, 8), hannExpected, 1e-10)
	checkGolden(t, Generate(TypeHamming, 8), hammingExpected, 1e-10)
}

func TestValidationAndEdgeCases(t *testing.T) {
	if got := Generate(TypeHann, 0); got != nil {
		t.Fatalf("expected nil for zero length, got %v", got)
	}
	if got := Generate(TypeHamming, -1); got != nil {
		t.Fatalf("expected nil for negative length, got %v", got)
	}
	if _, err := EquivalentNoiseBandwidth(nil); !errors.Is(err, ErrNoCoefficients) {
		t.Fatalf("got %v, want ErrNoCoefficients", err)
	}
	if _, err := EquivalentNoiseBandwidth([]float64{0, 0, 0}); !errors.Is(err, ErrZeroGain) {
		t.Fatalf("got %v, want ErrZeroGain", err)
	}
	if _, err := CoherentGain(nil); !errors.Is(err, ErrNoCoefficients) {
		t.Fatalf("got %v, want ErrNoCoefficients", err)
	}
}

func checkGolden(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len mismatch got=%d want=%d", len(got), len(want))
	}

	for i := range got {
		if !almostEqual(got[i], want[i], tol) {
			t.Fatalf("index %d: got=%.16f want=%.16f", i, got[i], want[i])
		}
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
