// Package design provides digital IIR filter coefficient designers.
//
// The functions in this package produce biquad coefficients consumable by
// dsp/filter/biquad for runtime processing. Second-order low-pass and
// high-pass sections follow the RBJ cookbook, which is the bilinear
// transform of the analog prototype with the cutoff pre-warped so that the
// digital -3 dB point lands exactly on the requested frequency.
//
// [ButterworthLP] and [ButterworthHP] cascade those sections with the
// Butterworth pole Qs, and [Bandpass] joins a high-pass at the lower corner
// with a low-pass at the upper corner.
package design
