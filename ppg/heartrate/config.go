// Package heartrate estimates the dominant pulse frequency of a filtered
// window and reports it in beats per minute with a confidence score.
//
// Estimation is a pure function of the window: the [Estimator] holds only
// its configuration and may be shared between goroutines.
package heartrate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/bandpass"
)

const (
	// DefaultMinFFTSize is the smallest transform used by the spectral
	// method. Short windows are zero padded up to it.
	DefaultMinFFTSize = 2048
	// DefaultLowConfidence is the confidence below which an estimate is
	// reported as unreliable.
	DefaultLowConfidence = 0.3
	// DefaultSilenceRMS is the RMS below which a window carries no signal.
	DefaultSilenceRMS = 1e-9

	// minCycles is the number of periods of the lowest band frequency a
	// window must cover.
	minCycles = 2
	// minWindow is the absolute lower bound on window length.
	minWindow = 4
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("heartrate: invalid configuration")

// Method selects the frequency estimator.
type Method int

const (
	// MethodSpectral picks the in-band peak of a Hann-windowed, zero-padded
	// power spectrum.
	MethodSpectral Method = iota
	// MethodAutocorrelation picks the strongest in-band autocorrelation lag.
	MethodAutocorrelation
)

func (m Method) String() string {
	switch m {
	case MethodSpectral:
		return "spectral"
	case MethodAutocorrelation:
		return "autocorrelation"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "spectral", "autocorrelation" or "acf", ignoring case.
// The empty string selects MethodSpectral.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "spectral", "fft":
		return MethodSpectral, nil
	case "autocorrelation", "acf":
		return MethodAutocorrelation, nil
	default:
		return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, name)
	}
}

// Config parameterises an Estimator.
type Config struct {
	Band bandpass.Band
	// MinSamples is the smallest window accepted for estimation.
	MinSamples int
	// MinSpan is the shortest time span accepted for estimation.
	MinSpan       time.Duration
	Method        Method
	MinFFTSize    int
	LowConfidence float64
	SilenceRMS    float64
}

// DefaultConfig requires two periods of the lowest band frequency at the
// nominal sample rate.
func DefaultConfig(band bandpass.Band, sampleRate float64) Config {
	cfg := Config{
		Band:          band,
		Method:        MethodSpectral,
		MinFFTSize:    DefaultMinFFTSize,
		LowConfidence: DefaultLowConfidence,
		SilenceRMS:    DefaultSilenceRMS,
		MinSamples:    minWindow,
	}

	if band.LowHz > 0 {
		cycles := minCycles / band.LowHz
		cfg.MinSpan = time.Duration(cycles * float64(time.Second))
		if n := int(math.Ceil(cycles * sampleRate)); n > cfg.MinSamples {
			cfg.MinSamples = n
		}
	}

	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.Band.LowHz > 0) || !(c.Band.HighHz > c.Band.LowHz) || math.IsInf(c.Band.HighHz, 0):
		return fmt.Errorf("%w: band %v..%v Hz", ErrInvalidConfig, c.Band.LowHz, c.Band.HighHz)
	case c.MinSamples < minWindow:
		return fmt.Errorf("%w: min samples %d below %d", ErrInvalidConfig, c.MinSamples, minWindow)
	case c.MinSpan < 0:
		return fmt.Errorf("%w: negative min span", ErrInvalidConfig)
	case c.Method != MethodSpectral && c.Method != MethodAutocorrelation:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Method)
	case c.MinFFTSize < 2 || c.MinFFTSize&(c.MinFFTSize-1) != 0:
		return fmt.Errorf("%w: fft size %d is not a power of two", ErrInvalidConfig, c.MinFFTSize)
	case !(c.LowConfidence >= 0 && c.LowConfidence <= 1):
		return fmt.Errorf("%w: low confidence %v outside [0, 1]", ErrInvalidConfig, c.LowConfidence)
	case !(c.SilenceRMS >= 0) || math.IsInf(c.SilenceRMS, 0):
		return fmt.Errorf("%w: silence rms %v", ErrInvalidConfig, c.SilenceRMS)
	}

	return nil
}
