package design

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-rppg/dsp/filter/biquad"
)

var (
	// ErrInvalidOrder is returned when a filter order is below 1.
	ErrInvalidOrder = errors.New("design: filter order must be >= 1")
	// ErrInvalidBand is returned when band edges are not 0 < low < high < Nyquist.
	ErrInvalidBand = errors.New("design: band edges must satisfy 0 < low < high < nyquist")
)

// butterworthQ returns the quality factor for a Butterworth filter section.
// index ranges from 0 to (order/2 - 1) for the biquad sections.
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return defaultQ
	}

	return 1 / (2 * s)
}

// butterworthFirstOrderLP designs the real-pole section of an odd-order
// lowpass.
func butterworthFirstOrderLP(freq, sampleRate float64) biquad.Coefficients {
	k, ok := BilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: k * norm, B1: k * norm, A1: (k - 1) * norm}
}

// butterworthFirstOrderHP designs the real-pole section of an odd-order
// highpass.
func butterworthFirstOrderHP(freq, sampleRate float64) biquad.Coefficients {
	k, ok := BilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: norm, B1: -norm, A1: (k - 1) * norm}
}

// ButterworthLP designs a lowpass Butterworth cascade.
//
// For odd orders, the final section is first-order (B2=A2=0).
func ButterworthLP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, Lowpass(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, butterworthFirstOrderLP(freq, sampleRate))
	}

	return sections
}

// ButterworthHP designs a highpass Butterworth cascade.
//
// For odd orders, the final section is first-order (B2=A2=0).
func ButterworthHP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, Highpass(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, butterworthFirstOrderHP(freq, sampleRate))
	}

	return sections
}

// Bandpass designs a band-pass cascade as an order-N Butterworth highpass at
// lowHz followed by an order-N Butterworth lowpass at highHz. The combined
// filter has order 2N and unity gain in the middle of a wide pass band.
func Bandpass(lowHz, highHz float64, order int, sampleRate float64) ([]biquad.Coefficients, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	if _, ok := normalizedW0(lowHz, sampleRate); !ok || lowHz >= highHz {
		return nil, fmt.Errorf("%w: low=%g high=%g fs=%g", ErrInvalidBand, lowHz, highHz, sampleRate)
	}
	if _, ok := normalizedW0(highHz, sampleRate); !ok {
		return nil, fmt.Errorf("%w: low=%g high=%g fs=%g", ErrInvalidBand, lowHz, highHz, sampleRate)
	}

	hp := ButterworthHP(lowHz, order, sampleRate)
	lp := ButterworthLP(highHz, order, sampleRate)

	return append(hp, lp...), nil
}
