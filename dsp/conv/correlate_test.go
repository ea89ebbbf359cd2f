package conv

import (
	"errors"
	"math"
	"testing"
)

func TestAutoCorrelate_MatchesDirect(t *testing.T) {
	a := []float64{0.3, -1, 2, 0.5, -0.7, 1.1, 0, -2, 0.4}
	const maxLag = 6

	got, err := AutoCorrelate(a, maxLag)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != maxLag+1 {
		t.Fatalf("len = %d, want %d", len(got), maxLag+1)
	}

	for lag := 0; lag <= maxLag; lag++ {
		var want float64
		for i := 0; i+lag < len(a); i++ {
			want += a[i] * a[i+lag]
		}
		if math.Abs(got[lag]-want) > 1e-9 {
			t.Errorf("lag %d: got %v, want %v", lag, got[lag], want)
		}
	}
}

func TestAutoCorrelateNormalized_Periodic(t *testing.T) {
	const period = 8
	a := make([]float64, 128)
	for i := range a {
		a[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}

	r, err := AutoCorrelateNormalized(a, 40)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r[0]-1) > 1e-12 {
		t.Fatalf("r[0] = %v, want 1", r[0])
	}

	idx, v := FindPeakInRange(r, 4, 12)
	if idx != period {
		t.Fatalf("peak at lag %d, want %d", idx, period)
	}
	if v < 0.9 {
		t.Fatalf("peak height %v, want > 0.9", v)
	}
}

func TestAutoCorrelate_Errors(t *testing.T) {
	if _, err := AutoCorrelate(nil, 0); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := AutoCorrelate([]float64{1, 2}, 2); !errors.Is(err, ErrInvalidLag) {
		t.Errorf("expected ErrInvalidLag, got %v", err)
	}
	if _, err := AutoCorrelate([]float64{1, 2}, -1); !errors.Is(err, ErrInvalidLag) {
		t.Errorf("expected ErrInvalidLag, got %v", err)
	}

	r, err := AutoCorrelateNormalized([]float64{0, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r[0] != 0 || r[1] != 0 {
		t.Fatalf("zero input: got %v", r)
	}
}

func TestFindPeakInRange(t *testing.T) {
	corr := []float64{1, 0.2, 0.5, 0.3, 0.8, 0.1, 0.9}

	if idx, v := FindPeakInRange(corr, 1, 6); idx != 4 || v != 0.8 {
		t.Fatalf("got (%d, %v), want (4, 0.8)", idx, v)
	}
	if idx, _ := FindPeakInRange(corr, 1, 3); idx != 2 {
		t.Fatalf("got %d, want 2", idx)
	}
	if idx, _ := FindPeakInRange([]float64{3, 2, 1, 0}, 0, 3); idx != -1 {
		t.Fatalf("monotone input: got %d, want -1", idx)
	}
	if idx, _ := FindPeakInRange([]float64{1}, 0, 5); idx != -1 {
		t.Fatalf("single value: got %d, want -1", idx)
	}
}
