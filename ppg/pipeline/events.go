package pipeline

import (
	"sync"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// Header carries the fields common to every event.
type Header struct {
	SessionID string
	// Timestamp is the sample time for data events and the clock time for
	// lifecycle and diagnostic events.
	Timestamp time.Time
}

// Meta returns the header.
func (h Header) Meta() Header { return h }

// Event is one of LiveUpdate, EstimateUpdate, LifecycleChange, Diagnostic
// or Summary.
type Event interface {
	Meta() Header
}

// LiveUpdate is emitted for every accepted sample.
type LiveUpdate struct {
	Header
	Raw      float64
	Filtered float64
	Channels sampler.RGB
}

// EstimateUpdate is emitted once per estimation cycle.
type EstimateUpdate struct {
	Header
	Estimate heartrate.Estimate
	// Samples is the size of the analysed window.
	Samples int
	// Resampled reports whether the window was interpolated onto a uniform
	// grid before filtering.
	Resampled bool
	// Elapsed is the wall time spent filtering and estimating.
	Elapsed time.Duration
}

// LifecycleChange is emitted on every state transition.
type LifecycleChange struct {
	Header
	From   State
	To     State
	Reason string
}

// DiagnosticKind names a recoverable condition.
type DiagnosticKind string

const (
	DiagTickSkipped      DiagnosticKind = "tick_skipped"
	DiagSampleRejected   DiagnosticKind = "sample_rejected"
	DiagInstability      DiagnosticKind = "numerical_instability"
	DiagEstimationBusy   DiagnosticKind = "estimation_busy"
	DiagEstimationFailed DiagnosticKind = "estimation_failed"
	DiagStaleEstimate    DiagnosticKind = "stale_estimate"
)

// Diagnostic reports a condition the session recovered from.
type Diagnostic struct {
	Header
	Kind DiagnosticKind
	Err  error
}

// Summary is emitted when a session stops.
type Summary struct {
	Header
	Started  time.Time
	Duration time.Duration
	Stats    Stats
	// Last is the most recent accepted estimate, if HasEstimate.
	Last        heartrate.Estimate
	HasEstimate bool
}

// Sink receives events. Emit is called from the session goroutines and from
// Start, Stop and Reset; it must not block for long and must not call back
// into the Coordinator.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans events out to every sink in order. Nil sinks are skipped.
type MultiSink []Sink

// Emit forwards e to every sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LiveUpdates returns the recorded live updates.
func (r *Recorder) LiveUpdates() []LiveUpdate { return eventsOf[LiveUpdate](r) }

// Estimates returns the recorded estimate updates.
func (r *Recorder) Estimates() []EstimateUpdate { return eventsOf[EstimateUpdate](r) }

// Lifecycle returns the recorded state transitions.
func (r *Recorder) Lifecycle() []LifecycleChange { return eventsOf[LifecycleChange](r) }

// Diagnostics returns the recorded diagnostics.
func (r *Recorder) Diagnostics() []Diagnostic { return eventsOf[Diagnostic](r) }

// Summaries returns the recorded session summaries.
func (r *Recorder) Summaries() []Summary { return eventsOf[Summary](r) }

func eventsOf[T Event](r *Recorder) []T {
	var out []T
	for _, e := range r.Events() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
