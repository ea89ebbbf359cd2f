// Package pipeline runs an rPPG session: it acquires frames on a fixed tick,
// reduces them to samples, filters them for live display and periodically
// estimates the heart rate from a zero-phase filtered snapshot of the
// signal window.
//
// A [Coordinator] owns at most one session at a time. The session's tick
// loop is the only writer of the signal buffer and the streaming filter;
// estimation runs on a separate goroutine against an immutable snapshot.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/bandpass"
	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// ErrInvalidConfig is returned for timing parameters that cannot work
// together. Filter and estimator problems are reported with the errors of
// their packages.
var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

// Config parameterises a session.
type Config struct {
	// SampleInterval is the tick period.
	SampleInterval time.Duration
	// WindowDuration is the length of signal kept for estimation.
	WindowDuration time.Duration
	BPMLow         float64
	BPMHigh        float64
	// FilterOrder is the Butterworth prototype order of each band edge.
	FilterOrder int
	// EstimationInterval is the number of ticks between estimations.
	EstimationInterval int
	// AcquireTimeout bounds one frame acquisition and must be shorter than
	// SampleInterval.
	AcquireTimeout time.Duration
	// ROI restricts sampling to part of the frame. The zero rectangle
	// selects the whole frame.
	ROI image.Rectangle
	// Extractor maps the mean colour to the pulse feature; nil means green.
	Extractor       sampler.Extractor
	JitterTolerance float64
	Method          heartrate.Method
}

// DefaultConfig samples at 10 Hz over a 12 s window and estimates once a
// second.
func DefaultConfig() Config {
	return Config{
		SampleInterval:     100 * time.Millisecond,
		WindowDuration:     12 * time.Second,
		BPMLow:             bandpass.DefaultLowBPM,
		BPMHigh:            bandpass.DefaultHighBPM,
		FilterOrder:        bandpass.DefaultOrder,
		EstimationInterval: 10,
		AcquireTimeout:     80 * time.Millisecond,
		JitterTolerance:    bandpass.DefaultJitterTolerance,
		Method:             heartrate.MethodSpectral,
	}
}

// SampleRate returns the nominal rate in Hz.
func (c Config) SampleRate() float64 {
	if c.SampleInterval <= 0 {
		return 0
	}
	return 1 / c.SampleInterval.Seconds()
}

// Band returns the pass band.
func (c Config) Band() bandpass.Band {
	return bandpass.BandFromBPM(c.BPMLow, c.BPMHigh)
}

// FilterConfig returns the band-pass configuration at the nominal rate.
func (c Config) FilterConfig() bandpass.Config {
	return bandpass.Config{
		Band:            c.Band(),
		Order:           c.FilterOrder,
		SampleRate:      c.SampleRate(),
		JitterTolerance: c.JitterTolerance,
	}
}

// EstimatorConfig returns the estimator configuration for the band and
// nominal rate.
func (c Config) EstimatorConfig() heartrate.Config {
	cfg := heartrate.DefaultConfig(c.Band(), c.SampleRate())
	cfg.Method = c.Method
	return cfg
}

// Validate checks the timing parameters and then the filter and estimator
// configurations derived from c.
func (c Config) Validate() error {
	switch {
	case c.SampleInterval <= 0:
		return fmt.Errorf("%w: sample interval %v", ErrInvalidConfig, c.SampleInterval)
	case c.AcquireTimeout <= 0 || c.AcquireTimeout >= c.SampleInterval:
		return fmt.Errorf("%w: acquire timeout %v must be in (0, %v)", ErrInvalidConfig, c.AcquireTimeout, c.SampleInterval)
	case c.WindowDuration < c.SampleInterval:
		return fmt.Errorf("%w: window %v shorter than sample interval", ErrInvalidConfig, c.WindowDuration)
	case c.EstimationInterval < 1:
		return fmt.Errorf("%w: estimation interval %d ticks", ErrInvalidConfig, c.EstimationInterval)
	}

	if err := c.FilterConfig().Validate(); err != nil {
		return err
	}

	if err := c.EstimatorConfig().Validate(); err != nil {
		return err
	}

	return nil
}
