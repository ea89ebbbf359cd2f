package bandpass

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/filter/biquad"
	"github.com/cwbudde/algo-rppg/dsp/interp"
)

// Result is the output of [ZeroPhase].
type Result struct {
	// Times are the sample times in seconds; a uniform grid when Resampled.
	Times []float64
	// Values are the filtered, zero-mean samples.
	Values []float64
	// SampleRate is the effective rate the filter was designed for.
	SampleRate float64
	// Jitter is the largest relative deviation of an input interval from
	// the mean interval.
	Jitter float64
	// Resampled reports whether the input was interpolated onto a uniform
	// grid because Jitter exceeded the tolerance.
	Resampled bool
}

// Jitter returns the mean interval of times and the largest relative
// deviation of any interval from it.
func Jitter(times []float64) (mean, jitter float64) {
	if len(times) < 2 {
		return 0, 0
	}

	dts := make([]float64, len(times)-1)
	floats.SubTo(dts, times[1:], times[:len(times)-1])

	mean = stat.Mean(dts, nil)
	if mean <= 0 {
		return mean, math.Inf(1)
	}

	for _, d := range dts {
		jitter = math.Max(jitter, math.Abs(d-mean)/mean)
	}

	return mean, jitter
}

// ZeroPhase band-pass filters a whole window forward and backward.
//
// times are seconds on any origin and must strictly increase. When the
// interval jitter exceeds cfg.JitterTolerance the series is first
// interpolated onto a uniform grid at the mean interval. The band is
// validated against the effective rate rather than the nominal one. The
// mean is removed before filtering and both passes start from the steady
// state of their first input with odd-reflection edge padding.
//
// The inputs are not modified.
func ZeroPhase(cfg Config, times, values []float64) (Result, error) {
	if len(times) != len(values) {
		return Result{}, fmt.Errorf("bandpass: %d times for %d values", len(times), len(values))
	}
	if len(values) < 2 {
		return Result{}, fmt.Errorf("%w: got %d", ErrTooFewSamples, len(values))
	}
	if cfg.Order < 1 || cfg.Order > MaxOrder {
		return Result{}, &ConfigError{Field: "order", Reason: fmt.Sprintf("%d outside [1, %d]", cfg.Order, MaxOrder)}
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return Result{}, fmt.Errorf("%w: index %d", ErrNonMonotonic, i)
		}
	}
	if !core.AllFinite(values) {
		return Result{}, fmt.Errorf("%w: non-finite input", ErrNumericalInstability)
	}

	meanDt, jitter := Jitter(times)
	res := Result{
		Times:      append([]float64(nil), times...),
		Values:     append([]float64(nil), values...),
		SampleRate: 1 / meanDt,
		Jitter:     jitter,
	}

	if jitter > cfg.JitterTolerance {
		grid, vals, err := interp.Resample(times, values, meanDt)
		if err != nil {
			return Result{}, fmt.Errorf("bandpass: resample: %w", err)
		}
		res.Times, res.Values, res.Resampled = grid, vals, true
	}

	coeffs, err := cfg.coefficients(res.SampleRate)
	if err != nil {
		return Result{}, err
	}

	floats.AddConst(-stat.Mean(res.Values, nil), res.Values)
	res.Values = biquad.NewChain(coeffs).FiltFilt(res.Values)

	if !core.AllFinite(res.Values) {
		return Result{}, fmt.Errorf("%w: non-finite output", ErrNumericalInstability)
	}

	return res, nil
}
