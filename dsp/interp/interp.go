package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmpty is returned for empty or length-mismatched inputs.
	ErrEmpty = errors.New("interp: x and y must be non-empty and of equal length")
	// ErrNotIncreasing is returned when abscissae are not strictly increasing.
	ErrNotIncreasing = errors.New("interp: x must be strictly increasing")
	// ErrInvalidStep is returned for a non-positive or non-finite grid step.
	ErrInvalidStep = errors.New("interp: step must be positive and finite")
)

// Resample evaluates the series (x, y) on the uniform grid x[0], x[0]+step,
// ... up to and including the last point not beyond x[len-1]. It returns the
// grid and the linearly interpolated values. Linear interpolation never
// overshoots, so a jittered pulse trace keeps its amplitude envelope.
func Resample(x, y []float64, step float64) (grid, values []float64, err error) {
	if err := validate(x, y); err != nil {
		return nil, nil, err
	}
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}

	span := x[len(x)-1] - x[0]
	n := int(math.Floor(span/step+1e-9)) + 1

	grid = make([]float64, n)
	values = make([]float64, n)
	for i := range grid {
		q := x[0] + float64(i)*step
		grid[i] = q
		values[i] = linearAt(x, y, q)
	}

	return grid, values, nil
}

func validate(x, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return ErrEmpty
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return fmt.Errorf("%w at index %d", ErrNotIncreasing, i)
		}
	}

	return nil
}

// segment returns j such that x[j-1] < q <= x[j], with q inside the range.
func segment(x []float64, q float64) int {
	return sort.SearchFloat64s(x, q)
}

func linearAt(x, y []float64, q float64) float64 {
	if q <= x[0] {
		return y[0]
	}
	if q >= x[len(x)-1] {
		return y[len(y)-1]
	}

	j := segment(x, q)
	x0, x1 := x[j-1], x[j]
	t := (q - x0) / (x1 - x0)

	return y[j-1] + t*(y[j]-y[j-1])
}
