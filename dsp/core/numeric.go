package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// IsFinite reports whether x is neither NaN nor ±Inf.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite reports whether every element of xs is finite.
// An empty slice is finite.
func AllFinite(xs []float64) bool {
	for _, x := range xs {
		if !IsFinite(x) {
			return false
		}
	}

	return true
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// LinearPowerToDB converts linear power to dB (10*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearPowerToDB(power float64) float64 {
	if power < 0 {
		return math.NaN()
	}

	if power == 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(power)
}

// NextPowerOf2 returns the smallest power of two >= n. Values below 1 yield 1.
func NextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
