// Package signalbuf holds the rolling, time-ordered window of samples a
// pipeline session analyses.
package signalbuf

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

var (
	// ErrDuplicate is returned for a sample whose timestamp is already held.
	ErrDuplicate = errors.New("signalbuf: duplicate timestamp")
	// ErrTooOld is returned for a sample older than the retention window.
	ErrTooOld = errors.New("signalbuf: sample older than retention window")
	// ErrNonFinite is returned for a sample with a NaN or Inf value.
	ErrNonFinite = errors.New("signalbuf: non-finite sample value")
	// ErrInvalidWindow is returned by New for a non-positive duration.
	ErrInvalidWindow = errors.New("signalbuf: window duration must be positive")
)

// Window is an immutable copy of the buffer contents. Times are seconds
// relative to Start so that downstream numeric code works with small,
// well-conditioned values.
type Window struct {
	Start    time.Time
	Newest   time.Time
	Times    []float64
	Values   []float64
	Channels []sampler.RGB
}

// Len returns the number of samples in the window.
func (w Window) Len() int { return len(w.Values) }

// Span returns the time covered from the oldest to the newest sample.
func (w Window) Span() time.Duration {
	if len(w.Times) == 0 {
		return 0
	}
	return w.Newest.Sub(w.Start)
}

// Buffer keeps samples sorted by timestamp and drops everything older than
// the retention duration measured back from the newest sample.
//
// A Buffer is owned by one session and is not safe for concurrent use;
// readers on other goroutines work from a [Window] snapshot.
type Buffer struct {
	window   time.Duration
	capacity int
	samples  []sampler.Sample
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithCapacity bounds the number of retained samples; the oldest samples are
// evicted first. Zero or negative means unbounded.
func WithCapacity(n int) Option {
	return func(b *Buffer) { b.capacity = n }
}

// New returns an empty Buffer retaining window worth of samples.
func New(window time.Duration, opts ...Option) (*Buffer, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, window)
	}

	b := &Buffer{window: window}
	for _, o := range opts {
		o(b)
	}
	if b.capacity > 0 {
		b.samples = make([]sampler.Sample, 0, b.capacity)
	}

	return b, nil
}

// CapacityFor returns the sample count a window of the given duration holds
// at the minimum expected sampling interval, rounded up, plus one.
func CapacityFor(window, minInterval time.Duration) int {
	if minInterval <= 0 {
		return 0
	}
	return int((window+minInterval-1)/minInterval) + 1
}

// Append inserts s at its time-ordered position and evicts samples older
// than newest - window. The buffer is unchanged when an error is returned.
func (b *Buffer) Append(s sampler.Sample) error {
	if !core.IsFinite(s.Value) {
		return fmt.Errorf("%w: %v", ErrNonFinite, s.Value)
	}

	n := len(b.samples)
	if n > 0 {
		newest := b.samples[n-1].Timestamp
		if s.Timestamp.Before(newest.Add(-b.window)) {
			return fmt.Errorf("%w: %v is more than %v before %v", ErrTooOld, s.Timestamp, b.window, newest)
		}
	}

	// Fast path: in-order arrival.
	if n == 0 || s.Timestamp.After(b.samples[n-1].Timestamp) {
		b.samples = append(b.samples, s)
		b.evict()
		return nil
	}

	i := sort.Search(n, func(i int) bool { return !b.samples[i].Timestamp.Before(s.Timestamp) })
	if i < n && b.samples[i].Timestamp.Equal(s.Timestamp) {
		return fmt.Errorf("%w: %v", ErrDuplicate, s.Timestamp)
	}

	b.samples = append(b.samples, sampler.Sample{})
	copy(b.samples[i+1:], b.samples[i:])
	b.samples[i] = s
	b.evict()

	return nil
}

func (b *Buffer) evict() {
	n := len(b.samples)
	if n == 0 {
		return
	}

	cut := b.samples[n-1].Timestamp.Add(-b.window)
	drop := sort.Search(n, func(i int) bool { return !b.samples[i].Timestamp.Before(cut) })

	if b.capacity > 0 && n-drop > b.capacity {
		drop = n - b.capacity
	}
	if drop == 0 {
		return
	}

	b.samples = append(b.samples[:0], b.samples[drop:]...)
}

// Len returns the number of retained samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Span returns the time between the oldest and newest retained sample.
func (b *Buffer) Span() time.Duration {
	if len(b.samples) == 0 {
		return 0
	}
	return b.samples[len(b.samples)-1].Timestamp.Sub(b.samples[0].Timestamp)
}

// Duration returns the configured retention window.
func (b *Buffer) Duration() time.Duration { return b.window }

// Reset drops all samples.
func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
}

// Snapshot copies the current contents into an independent Window. An empty
// buffer yields the zero Window.
func (b *Buffer) Snapshot() Window {
	n := len(b.samples)
	if n == 0 {
		return Window{}
	}

	start := b.samples[0].Timestamp
	w := Window{
		Start:    start,
		Newest:   b.samples[n-1].Timestamp,
		Times:    make([]float64, n),
		Values:   make([]float64, n),
		Channels: make([]sampler.RGB, n),
	}
	for i, s := range b.samples {
		w.Times[i] = s.Timestamp.Sub(start).Seconds()
		w.Values[i] = s.Value
		w.Channels[i] = s.Channels
	}

	return w
}
