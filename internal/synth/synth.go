// Package synth generates RGB frames whose skin-tone intensity pulses at a
// chosen heart rate. It stands in for a camera in tests and demos.
package synth

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// Config describes the generated signal.
type Config struct {
	Width  int
	Height int
	// BPM is the pulse rate. Zero produces a static image.
	BPM float64
	// Amplitude is the green pulse amplitude in 8-bit levels. Red and blue
	// follow at smaller amplitudes.
	Amplitude float64
	// Base is the mean skin colour.
	Base sampler.RGB
	// Noise is the peak per-pixel uniform noise in 8-bit levels.
	Noise float64
	// Interval is the nominal frame spacing.
	Interval time.Duration
	// Jitter displaces each timestamp by up to Jitter*Interval.
	Jitter float64
	Start  time.Time
	Seed   int64
}

// DefaultConfig returns a 32x32, 10 fps, 72 BPM source.
func DefaultConfig() Config {
	return Config{
		Width:     32,
		Height:    32,
		BPM:       72,
		Amplitude: 3,
		Base:      sampler.RGB{R: 180, G: 120, B: 100},
		Noise:     2,
		Interval:  100 * time.Millisecond,
		Start:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:      1,
	}
}

// Source produces frame after frame on demand. It is safe for concurrent
// use; frames are numbered in call order.
type Source struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
	seq int
}

// New returns a Source for cfg.
func New(cfg Config) *Source {
	return &Source{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// AcquireFrame returns the next frame, or ctx.Err() when ctx is done.
func (s *Source) AcquireFrame(ctx context.Context) (sampler.Frame, error) {
	if err := ctx.Err(); err != nil {
		return sampler.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.frame(s.seq)
	s.seq++
	return f, nil
}

// Frames returns the number of frames generated so far.
func (s *Source) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Timestamp returns the capture time of frame i.
func (s *Source) Timestamp(i int) time.Time {
	return s.timestamp(i, 0)
}

// Pulse returns the green pulse offset at t.
func (s *Source) Pulse(t time.Time) float64 {
	sec := t.Sub(s.cfg.Start).Seconds()
	return s.cfg.Amplitude * math.Sin(2*math.Pi*s.cfg.BPM/60*sec)
}

func (s *Source) timestamp(i int, u float64) time.Time {
	offset := (float64(i) + u*s.cfg.Jitter) * float64(s.cfg.Interval)
	return s.cfg.Start.Add(time.Duration(offset))
}

// frame must be called with s.mu held.
func (s *Source) frame(i int) sampler.Frame {
	var u float64
	if s.cfg.Jitter > 0 {
		u = s.rng.Float64()*2 - 1
	}
	ts := s.timestamp(i, u)
	p := s.Pulse(ts)

	base := [3]float64{
		s.cfg.Base.R + 0.3*p,
		s.cfg.Base.G + p,
		s.cfg.Base.B + 0.1*p,
	}

	pix := make([]byte, s.cfg.Width*s.cfg.Height*sampler.BytesPerPixel)
	for j := 0; j < len(pix); j += sampler.BytesPerPixel {
		for c := range 3 {
			v := base[c]
			if s.cfg.Noise > 0 {
				v += (s.rng.Float64()*2 - 1) * s.cfg.Noise
			}
			pix[j+c] = uint8(math.Round(math.Max(0, math.Min(255, v))))
		}
	}

	return sampler.Frame{
		Pixels:    pix,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		Timestamp: ts,
	}
}
