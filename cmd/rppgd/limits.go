package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-rppg/ppg/pipeline"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// stopper turns pipeline events into shutdown signals. It never calls back
// into the coordinator; main does that after receiving from a channel.
type stopper struct {
	max    uint64
	count  atomic.Uint64
	frames chan struct{}
	failed chan struct{}

	framesOnce sync.Once
	failedOnce sync.Once
}

func newStopper(maxFrames int) *stopper {
	s := &stopper{frames: make(chan struct{}), failed: make(chan struct{})}
	if maxFrames > 0 {
		s.max = uint64(maxFrames)
	}
	return s
}

func (s *stopper) Emit(e pipeline.Event) {
	switch ev := e.(type) {
	case pipeline.LiveUpdate:
		if s.max > 0 && s.count.Add(1) == s.max {
			s.framesOnce.Do(func() { close(s.frames) })
		}
	case pipeline.LifecycleChange:
		if ev.To == pipeline.StateError {
			s.failedOnce.Do(func() { close(s.failed) })
		}
	}
}

// dropEvery makes every n-th acquisition report pipeline.ErrNoFrameAvailable.
// n <= 0 returns src unchanged.
func dropEvery(src pipeline.Source, n int) pipeline.Source {
	if n <= 0 {
		return src
	}

	var calls atomic.Uint64
	return pipeline.SourceFunc(func(ctx context.Context) (sampler.Frame, error) {
		if calls.Add(1)%uint64(n) == 0 {
			return sampler.Frame{}, pipeline.ErrNoFrameAvailable
		}
		return src.AcquireFrame(ctx)
	})
}
