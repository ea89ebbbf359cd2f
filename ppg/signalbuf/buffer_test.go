package signalbuf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int, v float64) sampler.Sample {
	return sampler.Sample{
		Timestamp: t0.Add(time.Duration(ms) * time.Millisecond),
		Value:     v,
		Channels:  sampler.RGB{G: v},
	}
}

func newBuffer(t *testing.T, window time.Duration, opts ...Option) *Buffer {
	t.Helper()
	b, err := New(window, opts...)
	require.NoError(t, err)
	return b
}

func TestNew_InvalidWindow(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestAppend_InOrderAndEviction(t *testing.T) {
	b := newBuffer(t, time.Second)

	for i := 0; i <= 20; i++ {
		require.NoError(t, b.Append(at(i*100, float64(i))))
	}

	// newest = 2000ms, cut = 1000ms, samples 1000..2000 retained.
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, time.Second, b.Span())

	w := b.Snapshot()
	assert.Equal(t, t0.Add(time.Second), w.Start)
	assert.Equal(t, t0.Add(2*time.Second), w.Newest)
	assert.Equal(t, 10.0, w.Values[0])
	assert.InDelta(t, 1.0, w.Times[10], 1e-12)
	assert.Equal(t, time.Second, w.Span())
}

func TestAppend_LateSampleInsertedSorted(t *testing.T) {
	b := newBuffer(t, 5*time.Second)
	require.NoError(t, b.Append(at(0, 0)))
	require.NoError(t, b.Append(at(200, 2)))
	require.NoError(t, b.Append(at(100, 1)))

	w := b.Snapshot()
	assert.Equal(t, []float64{0, 1, 2}, w.Values)
	for i := 1; i < len(w.Times); i++ {
		assert.Greater(t, w.Times[i], w.Times[i-1])
	}
}

func TestAppend_Rejections(t *testing.T) {
	b := newBuffer(t, time.Second)
	require.NoError(t, b.Append(at(0, 1)))
	require.NoError(t, b.Append(at(2000, 2)))
	require.Equal(t, 1, b.Len())

	require.ErrorIs(t, b.Append(at(2000, 3)), ErrDuplicate)
	require.ErrorIs(t, b.Append(at(500, 3)), ErrTooOld)
	require.ErrorIs(t, b.Append(at(2100, math.NaN())), ErrNonFinite)
	require.ErrorIs(t, b.Append(at(2100, math.Inf(-1))), ErrNonFinite)

	// Duplicate of an interior sample.
	require.NoError(t, b.Append(at(1500, 4)))
	require.ErrorIs(t, b.Append(at(1500, 5)), ErrDuplicate)

	assert.Equal(t, []float64{4, 2}, b.Snapshot().Values)
}

func TestAppend_Capacity(t *testing.T) {
	b := newBuffer(t, time.Hour, WithCapacity(3))
	for i := range 10 {
		require.NoError(t, b.Append(at(i*10, float64(i))))
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []float64{7, 8, 9}, b.Snapshot().Values)
}

func TestCapacityFor(t *testing.T) {
	assert.Equal(t, 121, CapacityFor(12*time.Second, 100*time.Millisecond))
	assert.Equal(t, 4, CapacityFor(250*time.Millisecond, 100*time.Millisecond))
	assert.Equal(t, 0, CapacityFor(time.Second, 0))
}

func TestSnapshot_IsIndependent(t *testing.T) {
	b := newBuffer(t, time.Second)
	require.NoError(t, b.Append(at(0, 1)))
	require.NoError(t, b.Append(at(100, 2)))

	w := b.Snapshot()
	require.NoError(t, b.Append(at(200, 3)))
	w.Values[0] = 42

	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []float64{1, 2, 3}, b.Snapshot().Values)
}

func TestSnapshot_EmptyAndReset(t *testing.T) {
	b := newBuffer(t, time.Second)
	w := b.Snapshot()
	assert.Zero(t, w.Len())
	assert.Zero(t, w.Span())

	require.NoError(t, b.Append(at(0, 1)))
	b.Reset()
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Span())
	assert.Equal(t, time.Second, b.Duration())

	// After a reset old timestamps are accepted again.
	require.NoError(t, b.Append(at(0, 1)))
}
