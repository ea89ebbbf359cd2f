// Package bandpass restricts a pulse signal to the plausible heart-rate band.
//
// Two modes share one configuration. [Streaming] filters one sample at a
// time with persistent state and is used for live display. [ZeroPhase]
// filters a whole window forward and backward, removing phase distortion,
// and is used before heart-rate estimation.
//
// Both modes use an order-N Butterworth high-pass at the lower band edge
// cascaded with an order-N Butterworth low-pass at the upper edge, built
// from biquad sections with the bilinear transform.
package bandpass

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/filter/biquad"
	"github.com/cwbudde/algo-rppg/dsp/filter/design"
)

const (
	// DefaultOrder is the Butterworth prototype order of each half.
	DefaultOrder = 4
	// MaxOrder bounds the prototype order.
	MaxOrder = 8
	// DefaultJitterTolerance is the relative interval deviation above which
	// irregular timestamps are corrected.
	DefaultJitterTolerance = 0.2

	// DefaultLowBPM and DefaultHighBPM bound the default pass band.
	DefaultLowBPM  = 42
	DefaultHighBPM = 198
)

var (
	// ErrFilterConfig matches every *ConfigError.
	ErrFilterConfig = errors.New("bandpass: invalid filter configuration")
	// ErrNumericalInstability is returned when the filter output or state
	// becomes non-finite. The filter has been reset when it is returned.
	ErrNumericalInstability = errors.New("bandpass: numerical instability")
	// ErrTooFewSamples is returned by ZeroPhase for fewer than two samples.
	ErrTooFewSamples = errors.New("bandpass: at least two samples required")
	// ErrNonMonotonic is returned for timestamps that do not strictly increase.
	ErrNonMonotonic = errors.New("bandpass: timestamps must strictly increase")
)

// ConfigError describes why a filter configuration was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bandpass: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrFilterConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrFilterConfig }

// Band is a pass band in Hz.
type Band struct {
	LowHz  float64
	HighHz float64
}

// BandFromBPM converts a beats-per-minute range to a Band.
func BandFromBPM(low, high float64) Band {
	return Band{LowHz: low / 60, HighHz: high / 60}
}

// DefaultBand is 42 to 198 BPM.
func DefaultBand() Band {
	return BandFromBPM(DefaultLowBPM, DefaultHighBPM)
}

// BPM returns the band edges in beats per minute.
func (b Band) BPM() (low, high float64) {
	return b.LowHz * 60, b.HighHz * 60
}

// Config parameterises both filter modes.
type Config struct {
	Band Band
	// Order is the Butterworth prototype order; the band-pass has order 2N.
	Order int
	// SampleRate is the nominal sampling rate in Hz.
	SampleRate float64
	// JitterTolerance is the relative interval deviation tolerated before
	// gaps are bridged (streaming) or the window is resampled (batch).
	JitterTolerance float64
}

// DefaultConfig returns the default band, order and tolerance at the given
// nominal rate.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		Band:            DefaultBand(),
		Order:           DefaultOrder,
		SampleRate:      sampleRate,
		JitterTolerance: DefaultJitterTolerance,
	}
}

// Validate checks the configuration against its nominal sample rate.
func (c Config) Validate() error {
	if c.Order < 1 || c.Order > MaxOrder {
		return &ConfigError{Field: "order", Reason: fmt.Sprintf("%d outside [1, %d]", c.Order, MaxOrder)}
	}
	if !core.IsFinite(c.JitterTolerance) || c.JitterTolerance < 0 || c.JitterTolerance >= 1 {
		return &ConfigError{Field: "jitter tolerance", Reason: fmt.Sprintf("%v outside [0, 1)", c.JitterTolerance)}
	}

	return c.validateAt(c.SampleRate)
}

// validateAt checks the band against an actual sample rate.
func (c Config) validateAt(rate float64) error {
	if !core.IsFinite(rate) || rate <= 0 {
		return &ConfigError{Field: "sample rate", Reason: fmt.Sprintf("%v must be positive and finite", rate)}
	}

	lo, hi := c.Band.LowHz, c.Band.HighHz
	switch {
	case !core.IsFinite(lo) || !core.IsFinite(hi):
		return &ConfigError{Field: "band", Reason: fmt.Sprintf("non-finite edges %v..%v Hz", lo, hi)}
	case lo <= 0:
		return &ConfigError{Field: "band", Reason: fmt.Sprintf("low edge %v Hz must be positive", lo)}
	case lo >= hi:
		return &ConfigError{Field: "band", Reason: fmt.Sprintf("low edge %v Hz not below high edge %v Hz", lo, hi)}
	case hi >= rate/2:
		return &ConfigError{Field: "band", Reason: fmt.Sprintf("high edge %v Hz not below Nyquist %v Hz", hi, rate/2)}
	}

	return nil
}

// coefficients builds the biquad cascade for the band at rate.
func (c Config) coefficients(rate float64) ([]biquad.Coefficients, error) {
	if err := c.validateAt(rate); err != nil {
		return nil, err
	}

	coeffs, err := design.Bandpass(c.Band.LowHz, c.Band.HighHz, c.Order, rate)
	if err != nil {
		return nil, &ConfigError{Field: "design", Reason: err.Error()}
	}
	for i, sec := range coeffs {
		if !sec.Stable() {
			return nil, &ConfigError{
				Field:  "design",
				Reason: fmt.Sprintf("section %d unstable at %.3f Hz sampling", i, rate),
			}
		}
	}

	return coeffs, nil
}

// Chain returns a fresh filter cascade at the nominal rate, mainly for
// response inspection.
func (c Config) Chain() (*biquad.Chain, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	coeffs, err := c.coefficients(c.SampleRate)
	if err != nil {
		return nil, err
	}

	return biquad.NewChain(coeffs), nil
}
