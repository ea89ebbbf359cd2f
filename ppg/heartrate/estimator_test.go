package heartrate

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/cwbudde/algo-rppg/internal/testutil"
	"github.com/cwbudde/algo-rppg/ppg/bandpass"
)

var at = time.Date(2026, 5, 1, 8, 0, 12, 0, time.UTC)

func newEstimator(t *testing.T, method Method) *Estimator {
	t.Helper()
	cfg := DefaultConfig(bandpass.DefaultBand(), 10)
	cfg.Method = method
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func filtered(t *testing.T, times, values []float64) bandpass.Result {
	t.Helper()
	res, err := bandpass.ZeroPhase(bandpass.DefaultConfig(10), times, values)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// gridJitter returns n timestamps displaced from a uniform grid by up to
// jitter*interval in either direction.
func gridJitter(seed int64, n int, interval, jitter float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)*interval + (rng.Float64()*2-1)*jitter*interval
	}
	return out
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(bandpass.DefaultBand(), 10)
	if cfg.MinSamples != 29 {
		t.Fatalf("MinSamples = %d, want 29", cfg.MinSamples)
	}
	lowHz := 0.7
	want := time.Duration(2 / lowHz * float64(time.Second))
	if d := cfg.MinSpan - want; d < -time.Millisecond || d > time.Millisecond {
		t.Fatalf("MinSpan = %v, want %v", cfg.MinSpan, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig(bandpass.DefaultBand(), 10)
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"inverted band", func(c *Config) { c.Band = bandpass.Band{LowHz: 3, HighHz: 1} }},
		{"zero low", func(c *Config) { c.Band.LowHz = 0 }},
		{"too few samples", func(c *Config) { c.MinSamples = 2 }},
		{"negative span", func(c *Config) { c.MinSpan = -time.Second }},
		{"unknown method", func(c *Config) { c.Method = 7 }},
		{"fft size", func(c *Config) { c.MinFFTSize = 1000 }},
		{"confidence", func(c *Config) { c.LowConfidence = 1.5 }},
		{"silence", func(c *Config) { c.SilenceRMS = math.NaN() }},
	}
	for _, tt := range tests {
		cfg := base
		tt.edit(&cfg)
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: got %v, want ErrInvalidConfig", tt.name, err)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"", MethodSpectral},
		{"Spectral", MethodSpectral},
		{"autocorrelation", MethodAutocorrelation},
		{" ACF ", MethodAutocorrelation},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMethod(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseMethod("wavelet"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
	if MethodAutocorrelation.String() != "autocorrelation" || StatusNoSignal.String() != "no_signal" {
		t.Fatal("unexpected names")
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range []Status{StatusOK, StatusLowConfidence, StatusInsufficientData, StatusNoSignal} {
		got, err := ParseStatus(st.String())
		if err != nil || got != st {
			t.Errorf("ParseStatus(%q) = %v, %v", st.String(), got, err)
		}
	}
	if _, err := ParseStatus("Status(9)"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEstimate_RecoversPulse(t *testing.T) {
	times := testutil.UniformTimes(120, 0.1)
	x := testutil.SampledSine(times, 1.2, 1, 120)
	res := filtered(t, times, x)

	for _, m := range []Method{MethodSpectral, MethodAutocorrelation} {
		t.Run(m.String(), func(t *testing.T) {
			est := newEstimator(t, m).FromResult(at, res)
			if est.Status != StatusOK || !est.HasBPM {
				t.Fatalf("got %+v", est)
			}
			if math.Abs(est.BPM-72) > 3 {
				t.Fatalf("got %.2f BPM, want 72 +/- 3", est.BPM)
			}
			if est.Confidence <= 0.5 {
				t.Fatalf("confidence %v, want > 0.5", est.Confidence)
			}
			if math.Abs(est.FrequencyHz*60-est.BPM) > 1e-9 {
				t.Fatalf("frequency %v inconsistent with %v BPM", est.FrequencyHz, est.BPM)
			}
			if !est.Timestamp.Equal(at) {
				t.Fatalf("timestamp %v", est.Timestamp)
			}
		})
	}
}

func TestEstimate_TracksBand(t *testing.T) {
	e := newEstimator(t, MethodSpectral)
	times := testutil.UniformTimes(150, 0.1)

	for _, bpm := range []float64{50, 90, 150} {
		x := testutil.SampledSine(times, bpm/60, 1, 0)
		est := e.FromResult(at, filtered(t, times, x))
		if math.Abs(est.BPM-bpm) > 3 {
			t.Errorf("%v BPM: got %.2f", bpm, est.BPM)
		}
	}
}

func TestEstimate_NoiseIsLowConfidence(t *testing.T) {
	times := testutil.UniformTimes(120, 0.1)

	for _, m := range []Method{MethodSpectral, MethodAutocorrelation} {
		e := newEstimator(t, m)
		for seed := int64(1); seed <= 40; seed++ {
			noise := testutil.DeterministicNoise(seed, 1, len(times))
			est := e.FromResult(at, filtered(t, times, noise))
			if est.Confidence >= 0.3 {
				t.Errorf("%v seed %d: confidence %v, want < 0.3", m, seed, est.Confidence)
			}
			if est.Status != StatusLowConfidence || !est.HasBPM {
				t.Errorf("%v seed %d: got %+v, want best-effort low-confidence estimate", m, seed, est)
			}
		}
	}
}

func TestEstimate_AutocorrelationGaussianNoise(t *testing.T) {
	times := testutil.UniformTimes(120, 0.1)
	e := newEstimator(t, MethodAutocorrelation)
	rng := rand.New(rand.NewSource(7))

	for i := range 200 {
		noise := make([]float64, len(times))
		for j := range noise {
			noise[j] = rng.NormFloat64()
		}
		est := e.FromResult(at, filtered(t, times, noise))
		if est.Confidence >= 0.3 || est.Status == StatusOK {
			t.Fatalf("trial %d: got %+v, want low confidence", i, est)
		}
	}
}

func TestEstimate_ConstantIsNoSignal(t *testing.T) {
	times := testutil.UniformTimes(120, 0.1)

	for _, m := range []Method{MethodSpectral, MethodAutocorrelation} {
		e := newEstimator(t, m)
		for _, est := range []Estimate{
			e.Estimate(at, times, testutil.DC(87.25, len(times))),
			e.FromResult(at, filtered(t, times, testutil.DC(87.25, len(times)))),
		} {
			if est.Status != StatusNoSignal || est.HasBPM || est.Confidence != 0 {
				t.Fatalf("%v: got %+v", m, est)
			}
		}
	}
}

func TestEstimate_InsufficientData(t *testing.T) {
	e := newEstimator(t, MethodSpectral)

	times := testutil.UniformTimes(20, 0.1)
	est := e.Estimate(at, times, testutil.SampledSine(times, 1.2, 1, 0))
	if est.Status != StatusInsufficientData || est.HasBPM {
		t.Fatalf("20 samples: got %+v", est)
	}

	// Enough samples but too short a span.
	dense := testutil.UniformTimes(60, 0.02)
	est = e.Estimate(at, dense, testutil.SampledSine(dense, 1.2, 1, 0))
	if est.Status != StatusInsufficientData {
		t.Fatalf("1.2 s span: got %+v", est)
	}

	if est := e.Estimate(at, nil, nil); est.Status != StatusInsufficientData {
		t.Fatalf("empty: got %+v", est)
	}
	if e.Sufficient(28, 3*time.Second) || !e.Sufficient(30, 3*time.Second) {
		t.Fatal("Sufficient disagrees with MinSamples")
	}
}

func TestEstimate_JitteredTimestamps(t *testing.T) {
	times := gridJitter(11, 120, 0.1, 0.2)
	x := testutil.SampledSine(times, 1.2, 1, 60)
	res := filtered(t, times, x)

	for _, m := range []Method{MethodSpectral, MethodAutocorrelation} {
		est := newEstimator(t, m).FromResult(at, res)
		if !est.HasBPM || math.Abs(est.BPM-72) > 5 {
			t.Errorf("%v: got %+v, want 72 +/- 5 BPM", m, est)
		}
	}
}

func TestEstimate_DoesNotMutateInput(t *testing.T) {
	times := testutil.UniformTimes(100, 0.1)
	x := testutil.SampledSine(times, 1.5, 2, 3)
	orig := append([]float64(nil), x...)

	newEstimator(t, MethodSpectral).Estimate(at, times, x)
	newEstimator(t, MethodAutocorrelation).Estimate(at, times, x)

	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("index %d modified: %v -> %v", i, orig[i], x[i])
		}
	}
}

func BenchmarkEstimateSpectral(b *testing.B) {
	times := testutil.UniformTimes(300, 1.0/30)
	x := testutil.SampledSine(times, 1.2, 1, 0)
	e, _ := New(DefaultConfig(bandpass.DefaultBand(), 30))

	b.ReportAllocs()
	for b.Loop() {
		e.Estimate(at, times, x)
	}
}
