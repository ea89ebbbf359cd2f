package window

import "errors"

var (
	// ErrNoCoefficients is returned when a window measure gets no samples,
	// e.g. an analysis window shorter than one frame interval.
	ErrNoCoefficients = errors.New("window: no coefficients")
	// ErrZeroGain is returned when the coefficients sum to zero, so the
	// noise bandwidth is undefined.
	ErrZeroGain = errors.New("window: coherent gain is zero")
)
