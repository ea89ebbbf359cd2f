// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. Multiple sections are
// cascaded via [Chain] for the higher-order band-pass filters used by the
// pulse pipeline.
//
// Besides sample and block processing the package offers steady-state
// priming of the delay line ([Chain.PrimeSteadyState]) and zero-phase
// forward-backward filtering ([Chain.FiltFilt]) for finalized windows.
//
// Coefficient design lives in dsp/filter/design.
package biquad
