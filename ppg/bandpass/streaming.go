package bandpass

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/filter/biquad"
)

const (
	// rateDrift is the relative difference between the measured and the
	// design sample rate that triggers a coefficient redesign.
	rateDrift = 0.05
	// intervalSmoothing is the EMA weight of each new interval observation.
	intervalSmoothing = 0.1
	// maxBridge is the longest gap filled with interpolated samples. Longer
	// gaps restart the filter from the next sample.
	maxBridge = 2 * time.Second
)

// Streaming is a causal band-pass filter fed one timestamped sample at a
// time. It belongs to a single session and is not safe for concurrent use.
type Streaming struct {
	cfg     Config
	nominal []biquad.Coefficients
	chain   *biquad.Chain

	designRate float64
	interval   float64 // smoothed sampling interval in seconds

	primed bool
	last   time.Time
	lastIn float64

	redesigns int
	bridged   int
}

// NewStreaming validates cfg and returns a filter designed at the nominal
// sample rate.
func NewStreaming(cfg Config) (*Streaming, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	coeffs, err := cfg.coefficients(cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	return &Streaming{
		cfg:        cfg,
		nominal:    coeffs,
		chain:      biquad.NewChain(coeffs),
		designRate: cfg.SampleRate,
		interval:   1 / cfg.SampleRate,
	}, nil
}

// Process filters x observed at ts and returns the filtered value.
//
// The first sample primes the filter to its steady state, so a constant
// input produces no start-up transient. Gaps longer than the jitter
// tolerance allows are bridged with linearly interpolated samples, and the
// coefficients follow the measured sampling rate.
//
// When the output or the internal state stops being finite the filter is
// reset and ErrNumericalInstability is returned; the next call starts
// afresh.
func (s *Streaming) Process(ts time.Time, x float64) (float64, error) {
	if !core.IsFinite(x) {
		s.Reset()
		return 0, fmt.Errorf("%w: input %v", ErrNumericalInstability, x)
	}

	if !s.primed {
		s.prime(ts, x)
		return s.output(s.chain.ProcessSample(x))
	}

	dt := ts.Sub(s.last)
	if dt <= 0 {
		return 0, fmt.Errorf("%w: %v not after %v", ErrNonMonotonic, ts, s.last)
	}

	step := dt.Seconds()
	if step > (1+s.cfg.JitterTolerance)*s.interval {
		if dt > maxBridge {
			s.prime(ts, x)
			return s.output(s.chain.ProcessSample(x))
		}

		missing := int(math.Round(step/s.interval)) - 1
		for j := 1; j <= missing; j++ {
			s.chain.ProcessSample(s.lastIn + (x-s.lastIn)*float64(j)/float64(missing+1))
		}
		if missing > 0 {
			s.bridged += missing
			step /= float64(missing + 1)
		}
	}

	s.interval += intervalSmoothing * (step - s.interval)
	s.followRate()

	s.last, s.lastIn = ts, x

	return s.output(s.chain.ProcessSample(x))
}

func (s *Streaming) prime(ts time.Time, x float64) {
	s.chain.PrimeSteadyState(x)
	s.primed = true
	s.last, s.lastIn = ts, x
}

func (s *Streaming) output(y float64) (float64, error) {
	if !core.IsFinite(y) || !s.chain.StateFinite() {
		s.Reset()
		return 0, fmt.Errorf("%w: output %v", ErrNumericalInstability, y)
	}

	return y, nil
}

// followRate redesigns the coefficients, keeping the delay-line state, when
// the measured rate drifts from the design rate. A rate too low for the
// band keeps the previous design.
func (s *Streaming) followRate() {
	rate := 1 / s.interval
	if math.Abs(rate-s.designRate) <= rateDrift*s.designRate {
		return
	}

	coeffs, err := s.cfg.coefficients(rate)
	if err != nil {
		return
	}

	s.chain.Retune(coeffs)
	s.designRate = rate
	s.redesigns++
}

// Reset clears the filter state and returns to the nominal design. The next
// sample primes the filter again.
func (s *Streaming) Reset() {
	s.chain.Retune(s.nominal)
	s.chain.Reset()
	s.designRate = s.cfg.SampleRate
	s.interval = 1 / s.cfg.SampleRate
	s.primed = false
	s.last = time.Time{}
	s.lastIn = 0
}

// Primed reports whether the filter has state from a previous sample.
func (s *Streaming) Primed() bool { return s.primed }

// SampleRate returns the rate the current coefficients were designed for.
func (s *Streaming) SampleRate() float64 { return s.designRate }

// Interval returns the smoothed sampling interval.
func (s *Streaming) Interval() time.Duration {
	return time.Duration(s.interval * float64(time.Second))
}

// Redesigns returns how often the coefficients followed a rate change.
func (s *Streaming) Redesigns() int { return s.redesigns }

// Bridged returns the number of interpolated samples fed across gaps.
func (s *Streaming) Bridged() int { return s.bridged }

// Config returns the configuration the filter was built with.
func (s *Streaming) Config() Config { return s.cfg }
