package synth

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

func TestSource_FramesFollowPulse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = 0
	cfg.Amplitude = 20
	src := New(cfg)

	s := sampler.New()
	for i := range 20 {
		f, err := src.AcquireFrame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cfg.Start.Add(time.Duration(i)*cfg.Interval), f.Timestamp)

		smp, err := s.Sample(f)
		require.NoError(t, err)
		want := math.Round(cfg.Base.G + src.Pulse(f.Timestamp))
		assert.InDelta(t, want, smp.Value, 1e-9, "frame %d", i)
	}
	assert.Equal(t, 20, src.Frames())
}

func TestSource_JitterStaysOrdered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = 0.3
	src := New(cfg)

	var prev time.Time
	for i := range 100 {
		f, err := src.AcquireFrame(context.Background())
		require.NoError(t, err)
		if i > 0 {
			require.True(t, f.Timestamp.After(prev), "frame %d", i)
		}
		nominal := src.Timestamp(i)
		assert.LessOrEqual(t, absDuration(f.Timestamp.Sub(nominal)), 30*time.Millisecond)
		prev = f.Timestamp
	}
}

func TestSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig()).AcquireFrame(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
