package spectrum

import (
	"errors"
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrEmptyInput is returned for an empty frame.
	ErrEmptyInput = errors.New("spectrum: empty input")
	// ErrFFTSize is returned when the FFT size is not a power of two or is
	// shorter than the frame.
	ErrFFTSize = errors.New("spectrum: fft size must be a power of two >= frame length")
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Power returns |X[k]|^2 for each complex spectrum bin.
//
// Scratch buffers are pooled internally, so in steady state this allocates
// only the output slice.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Power(out, re, im)
	putScratch(buf)
	return out
}

// PowerSpectrum zero-pads the real frame x to fftSize samples, transforms it
// and returns the one-sided power |X[k]|^2 for k = 0..fftSize/2.
//
// No scaling is applied; callers comparing bins only need relative power.
func PowerSpectrum(x []float64, fftSize int) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}
	if fftSize < len(x) || fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: size=%d len=%d", ErrFFTSize, fftSize, len(x))
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range x {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return Power(out[:fftSize/2+1]), nil
}

// BinFrequency returns the centre frequency in Hz of bin k.
func BinFrequency(k float64, fftSize int, sampleRate float64) float64 {
	return k * sampleRate / float64(fftSize)
}

// FrequencyBin returns the fractional bin index of freq.
func FrequencyBin(freq float64, fftSize int, sampleRate float64) float64 {
	return freq * float64(fftSize) / sampleRate
}

// ParabolicPeak fits a parabola through bins k-1, k, k+1 of p and returns
// the vertex offset in bins (within [-0.5, 0.5]) and the interpolated height.
// At the edges of p, or on a flat neighbourhood, it returns (0, p[k]).
func ParabolicPeak(p []float64, k int) (offset, height float64) {
	if k <= 0 || k >= len(p)-1 {
		return 0, p[k]
	}

	a, b, c := p[k-1], p[k], p[k+1]
	den := a - 2*b + c
	if den == 0 {
		return 0, b
	}

	offset = 0.5 * (a - c) / den
	if offset > 0.5 {
		offset = 0.5
	} else if offset < -0.5 {
		offset = -0.5
	}

	return offset, b - 0.25*(a-c)*offset
}
