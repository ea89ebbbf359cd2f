package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-rppg/internal/timeutil"
)

// ErrInvalidTransition is returned by Start, Stop and Reset when the
// current state does not allow the operation.
var ErrInvalidTransition = errors.New("pipeline: invalid state transition")

// State is the coordinator state.
type State int

const (
	StateIdle State = iota
	StateSampling
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c timeutil.Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(co *Coordinator) {
		if l != nil {
			co.log = l
		}
	}
}

// Coordinator owns the session lifecycle. Start, Stop and Reset are
// synchronous and safe for concurrent use.
type Coordinator struct {
	src   Source
	sink  Sink
	clock timeutil.Clock
	log   *zap.Logger

	// op serialises Start, Stop and Reset. The session goroutines never
	// take it.
	op sync.Mutex

	mu     sync.Mutex
	state  State
	reason string
	sess   *session
	failed *session
	last   *session
}

// New returns an idle Coordinator reading from src and emitting to sink.
// A nil sink discards events.
func New(src Source, sink Sink, opts ...Option) *Coordinator {
	if sink == nil {
		sink = discard{}
	}

	c := &Coordinator{
		src:   src,
		sink:  sink,
		clock: timeutil.RealClock{},
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}

	return c
}

// State returns the current state and the reason of the last transition.
func (c *Coordinator) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.reason
}

// SessionID returns the id of the running session, or "".
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

// Stats returns the counters of the running session or, when idle, of the
// most recent one.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	s, state := c.sess, c.state
	if s == nil {
		s = c.last
	}
	c.mu.Unlock()

	if s == nil {
		return Stats{State: state}
	}
	st := s.stats.snapshot(s.id)
	st.State = state
	return st
}

// Start validates cfg and begins sampling. It is only allowed when idle.
// An invalid configuration moves the coordinator to the Error state and is
// returned.
func (c *Coordinator) Start(cfg Config) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: start from %v", ErrInvalidTransition, c.state)
	}
	if c.src == nil {
		c.transition(StateError, "", "no frame source")
		return fmt.Errorf("%w: nil source", ErrSourceUnavailable)
	}

	s, err := newSession(c, cfg)
	if err != nil {
		c.transition(StateError, "", err.Error())
		c.log.Error("session rejected", zap.Error(err))
		return err
	}

	c.sess, c.last = s, s
	c.transition(StateSampling, s.id, "started")
	c.log.Info("session started",
		zap.String("session", s.id),
		zap.Duration("interval", cfg.SampleInterval),
		zap.Duration("window", cfg.WindowDuration),
		zap.Stringer("method", cfg.Method))

	s.start()

	return nil
}

// Stop cancels the running session, waits for its goroutines, emits a
// Summary and returns to idle.
func (c *Coordinator) Stop() error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state != StateSampling || c.sess == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %v", ErrInvalidTransition, state)
	}
	s := c.sess
	s.cancel()
	c.mu.Unlock()

	s.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sess = nil
	c.sink.Emit(s.summary())
	c.transition(StateIdle, s.id, "stopped")
	c.log.Info("session stopped", zap.String("session", s.id), zap.Object("stats", s.stats.snapshot(s.id)))

	return nil
}

// Reset clears the Error state.
func (c *Coordinator) Reset() error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state != StateError {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: reset from %v", ErrInvalidTransition, state)
	}
	s := c.failed
	c.mu.Unlock()

	if s != nil {
		s.wg.Wait()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed = nil
	c.transition(StateIdle, "", "reset")

	return nil
}

// fail moves the coordinator to Error on behalf of session s unless s has
// already been cancelled by Stop. It is called from the tick loop.
func (c *Coordinator) fail(s *session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != s || s.ctx.Err() != nil {
		return
	}

	s.cancel()
	c.sess, c.failed = nil, s
	c.transition(StateError, s.id, err.Error())
	c.log.Error("session failed", zap.String("session", s.id), zap.Error(err))
}

// transition must be called with c.mu held.
func (c *Coordinator) transition(to State, sessionID, reason string) {
	from := c.state
	c.state, c.reason = to, reason

	c.sink.Emit(LifecycleChange{
		Header: Header{SessionID: sessionID, Timestamp: c.clock.Now()},
		From:   from,
		To:     to,
		Reason: reason,
	})
}
