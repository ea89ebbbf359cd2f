package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// AutoCorrelate returns the linear auto-correlation of a for lags
// 0..maxLag (inclusive) computed via FFT. maxLag must be in [0, len(a)).
func AutoCorrelate(a []float64, maxLag int) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if maxLag < 0 || maxLag >= len(a) {
		return nil, fmt.Errorf("%w: maxLag=%d len=%d", ErrInvalidLag, maxLag, len(a))
	}

	// Padding to n+maxLag keeps the circular wrap out of the requested lags.
	fftSize := core.NextPowerOf2(len(a) + maxLag)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	buf := make([]complex128, fftSize)
	for i, v := range a {
		buf[i] = complex(v, 0)
	}

	freq := make([]complex128, fftSize)
	if err := plan.Forward(freq, buf); err != nil {
		return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	for i, c := range freq {
		freq[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	if err := plan.Inverse(buf, freq); err != nil {
		return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	out := make([]float64, maxLag+1)
	for i := range out {
		out[i] = real(buf[i])
	}

	return out, nil
}

// AutoCorrelateNormalized is [AutoCorrelate] scaled so that lag 0 equals 1.
// An all-zero input is returned unnormalized (all zeros).
func AutoCorrelateNormalized(a []float64, maxLag int) ([]float64, error) {
	result, err := AutoCorrelate(a, maxLag)
	if err != nil {
		return nil, err
	}

	zeroLag := result[0]
	if zeroLag <= 0 {
		return result, nil
	}

	for i := range result {
		result[i] /= zeroLag
	}

	return result, nil
}

// FindPeakInRange returns the highest local maximum of corr whose index lies
// in [lo, hi]. A local maximum is not lower than either neighbour and has
// both neighbours inside corr. It returns -1 when there is none.
func FindPeakInRange(corr []float64, lo, hi int) (index int, value float64) {
	if lo < 1 {
		lo = 1
	}
	if hi > len(corr)-2 {
		hi = len(corr) - 2
	}

	index = -1
	for i := lo; i <= hi; i++ {
		v := corr[i]
		if v < corr[i-1] || v < corr[i+1] {
			continue
		}
		if index < 0 || v > value {
			index = i
			value = v
		}
	}

	return index, value
}
