// Package timeutil abstracts the clock so the pipeline tick loop can be
// driven by hand in tests.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the time operations used by the pipeline.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// NewTicker returns a ticker delivering the time every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at intervals. Ticks are dropped, not queued, while
// the receiver is busy.
type Ticker interface {
	// C returns the channel on which the ticks are delivered.
	C() <-chan time.Time

	// Stop turns off the ticker.
	Stop()

	// Reset stops the ticker and resets its period to d.
	Reset(d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewTicker returns a ticker backed by time.Ticker.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time   { return t.ticker.C }
func (t *realTicker) Stop()                 { t.ticker.Stop() }
func (t *realTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

// NewMockClock creates a MockClock set to t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the duration since t on the mocked clock.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set moves the clock to t without firing tickers.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and fires every ticker whose next
// tick is due.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*MockTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.checkAndFire(now)
	}
}

// NewTicker creates a MockTicker driven by Advance.
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		nextTick: c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Tickers returns the number of tickers created and not stopped.
func (c *MockClock) Tickers() int {
	c.mu.Lock()
	tickers := append([]*MockTicker(nil), c.tickers...)
	c.mu.Unlock()

	var n int
	for _, t := range tickers {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// MockTicker is a manually controlled ticker for testing.
type MockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	nextTick time.Time
	stopped  bool
}

// C returns the ticker channel.
func (t *MockTicker) C() <-chan time.Time { return t.ch }

// Stop turns off the ticker.
func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether Stop was called.
func (t *MockTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Reset restarts the ticker with period d.
func (t *MockTicker) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = false
	t.interval = d
}

// Trigger sends a tick unless one is already pending.
func (t *MockTicker) Trigger(now time.Time) {
	select {
	case t.ch <- now:
	default:
	}
}

func (t *MockTicker) checkAndFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.nextTick) {
		return
	}

	select {
	case t.ch <- now:
	default:
	}
	t.nextTick = now.Add(t.interval)
}
