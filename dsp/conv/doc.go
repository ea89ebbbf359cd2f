// Package conv provides FFT auto-correlation for periodicity analysis of
// short physiological traces:
//
//	r, err := conv.AutoCorrelateNormalized(x, maxLag)
//	lag, v := conv.FindPeakInRange(r, minLag, maxLag)
package conv
