package heartrate

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-rppg/dsp/conv"
	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/spectrum"
	"github.com/cwbudde/algo-rppg/dsp/window"
	"github.com/cwbudde/algo-rppg/ppg/bandpass"
)

// Status classifies an Estimate.
type Status int

const (
	StatusOK Status = iota
	// StatusLowConfidence carries a best-effort BPM that should not be
	// trusted.
	StatusLowConfidence
	// StatusInsufficientData means the window was too short; there is no BPM.
	StatusInsufficientData
	// StatusNoSignal means the window was silent; there is no BPM.
	StatusNoSignal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusLowConfidence:
		return "low_confidence"
	case StatusInsufficientData:
		return "insufficient_data"
	case StatusNoSignal:
		return "no_signal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for st := StatusOK; st <= StatusNoSignal; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("heartrate: unknown status %q", s)
}

// Estimate is the result of one estimation.
type Estimate struct {
	// Timestamp is the time of the newest sample of the analysed window.
	Timestamp   time.Time
	BPM         float64
	HasBPM      bool
	FrequencyHz float64
	Confidence  float64
	Status      Status
}

// Estimator turns filtered windows into estimates.
type Estimator struct {
	cfg Config
}

// New validates cfg and returns an Estimator.
func New(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Estimator{cfg: cfg}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config { return e.cfg }

// Sufficient reports whether a window of n samples spanning span is long
// enough to estimate from.
func (e *Estimator) Sufficient(n int, span time.Duration) bool {
	return n >= e.cfg.MinSamples && span >= e.cfg.MinSpan
}

// InsufficientData returns the estimate reported for a window that is too
// short.
func InsufficientData(at time.Time) Estimate {
	return Estimate{Timestamp: at, Status: StatusInsufficientData}
}

// FromResult estimates from the output of [bandpass.ZeroPhase].
func (e *Estimator) FromResult(at time.Time, r bandpass.Result) Estimate {
	return e.Estimate(at, r.Times, r.Values)
}

// Estimate analyses values sampled at times (seconds, uniformly spaced) and
// stamps the result with at. The inputs are not modified.
func (e *Estimator) Estimate(at time.Time, times, values []float64) Estimate {
	n := len(values)
	if n != len(times) || n < minWindow {
		return InsufficientData(at)
	}

	spanSec := times[n-1] - times[0]
	span := time.Duration(spanSec * float64(time.Second))
	if !e.Sufficient(n, span) || !(spanSec > 0) {
		return InsufficientData(at)
	}

	x := append([]float64(nil), values...)
	floats.AddConst(-stat.Mean(x, nil), x)

	if rms := floats.Norm(x, 2) / math.Sqrt(float64(n)); !(rms >= e.cfg.SilenceRMS) || rms == 0 {
		return Estimate{Timestamp: at, Status: StatusNoSignal}
	}

	rate := float64(n-1) / spanSec

	var (
		freq, conf float64
		ok         bool
	)
	switch e.cfg.Method {
	case MethodAutocorrelation:
		freq, conf, ok = e.autocorrelation(x, rate)
	default:
		freq, conf, ok = e.spectral(x, rate)
	}

	if !ok {
		return Estimate{Timestamp: at, Status: StatusLowConfidence}
	}

	est := Estimate{
		Timestamp:   at,
		BPM:         freq * 60,
		HasBPM:      true,
		FrequencyHz: freq,
		Confidence:  core.Clamp(conf, 0, 1),
		Status:      StatusOK,
	}
	if est.Confidence < e.cfg.LowConfidence {
		est.Status = StatusLowConfidence
	}

	return est
}

// spectral returns the refined in-band peak frequency of the Hann-windowed
// power spectrum of x.
//
// Confidence multiplies two terms. The first is the share of in-band power
// inside the main lobe around the peak, rescaled so that a flat spectrum
// scores 0. The second is one minus the ratio of the strongest peak outside
// the lobe to the main peak, both as magnitudes.
func (e *Estimator) spectral(x []float64, rate float64) (freq, conf float64, ok bool) {
	n := len(x)
	window.Apply(window.TypeHann, x)

	fftSize := max(e.cfg.MinFFTSize, core.NextPowerOf2(n))
	p, err := spectrum.PowerSpectrum(x, fftSize)
	if err != nil {
		return 0, 0, false
	}

	kLo := max(1, int(math.Ceil(spectrum.FrequencyBin(e.cfg.Band.LowHz, fftSize, rate))))
	kHi := min(len(p)-2, int(math.Floor(spectrum.FrequencyBin(e.cfg.Band.HighHz, fftSize, rate))))
	if kHi < kLo {
		return 0, 0, false
	}

	band := p[kLo : kHi+1]
	k := kLo + floats.MaxIdx(band)
	if p[k] <= 0 {
		return 0, 0, false
	}

	offset, _ := spectrum.ParabolicPeak(p, k)
	freq = spectrum.BinFrequency(float64(k)+offset, fftSize, rate)

	// Main-lobe half width in padded bins.
	half := int(math.Ceil(window.Info(window.TypeHann).MainLobeBins * float64(fftSize) / float64(n)))
	lo, hi := max(kLo, k-half), min(kHi, k+half)

	total := floats.Sum(band)
	frac := floats.Sum(p[lo:hi+1]) / total
	flat := float64(2*half+1) / float64(len(band))

	lobe := 1.0
	if flat < 1 {
		lobe = (frac - flat) / (1 - flat)
	}

	var side float64
	if i, v := conv.FindPeakInRange(p, kLo, k-half-1); i >= 0 {
		side = v
	}
	if i, v := conv.FindPeakInRange(p, k+half+1, kHi); i >= 0 {
		side = math.Max(side, v)
	}

	conf = core.Clamp(lobe, 0, 1) * (1 - math.Sqrt(side/p[k]))

	return freq, conf, true
}

// autocorrelation returns the frequency of the strongest local maximum of
// the normalised autocorrelation within the lag range of the band. The
// confidence is the raw peak height, capped by the spectral confidence of
// the same window: band-limited noise produces sizeable autocorrelation
// peaks whose energy is still spread across the band. Without an in-band
// peak the spectral peak is returned as a best effort with zero confidence.
func (e *Estimator) autocorrelation(x []float64, rate float64) (freq, conf float64, ok bool) {
	n := len(x)
	lagLo := int(math.Floor(rate / e.cfg.Band.HighHz))
	lagHi := int(math.Ceil(rate / e.cfg.Band.LowHz))

	maxLag := min(lagHi+1, n-1)
	r, err := conv.AutoCorrelateNormalized(x, maxLag)
	if err != nil {
		return 0, 0, false
	}

	specFreq, specConf, specOK := e.spectral(x, rate)

	idx, val := conv.FindPeakInRange(r, max(lagLo, 1), lagHi)
	if idx >= 0 && val > 0 {
		offset, _ := spectrum.ParabolicPeak(r, idx)
		freq = rate / (float64(idx) + offset)
	}
	if idx < 0 || val <= 0 || freq < e.cfg.Band.LowHz || freq > e.cfg.Band.HighHz {
		return specFreq, 0, specOK
	}

	conf = core.Clamp(val, 0, 1)
	if specOK {
		conf = math.Min(conf, specConf)
	} else {
		conf = 0
	}

	return freq, conf, true
}
