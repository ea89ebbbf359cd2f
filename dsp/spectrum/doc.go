// Package spectrum provides FFT-based spectrum utilities: one-sided power
// spectra of real frames, bin/frequency conversion, and sub-bin peak
// refinement by parabolic interpolation.
package spectrum
