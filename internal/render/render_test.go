package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-rppg/internal/store"
	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

func TestSession(t *testing.T) {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	rec := store.SessionRecord{ID: "abc", Started: start, LastBPM: 72.4, HasBPM: true}

	var samples []store.SampleRecord
	for i := range 20 {
		samples = append(samples, store.SampleRecord{
			Timestamp: start.Add(time.Duration(i) * 100 * time.Millisecond),
			Channels:  sampler.RGB{R: 180, G: 120 + float64(i%3), B: 100},
			Raw:       120 + float64(i%3),
			Filtered:  float64(i%3) - 1,
		})
	}
	ests := []store.EstimateRecord{
		{Estimate: heartrate.InsufficientData(start.Add(time.Second))},
		{Estimate: heartrate.Estimate{Timestamp: start.Add(2 * time.Second), BPM: 72.44, HasBPM: true, Confidence: 0.8123, Status: heartrate.StatusOK}},
	}

	var buf bytes.Buffer
	require.NoError(t, Session(&buf, rec, samples, ests, Options{}))

	html := buf.String()
	assert.Contains(t, html, "rPPG session abc")
	assert.Contains(t, html, "Filtered pulse signal")
	assert.Contains(t, html, "session=abc samples=20 last=72.4 BPM")
	assert.Contains(t, html, "1 estimates")
	assert.Contains(t, html, "72.4")
	assert.Contains(t, html, "1.90")
}

func TestSession_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Session(&buf, store.SessionRecord{ID: "empty"}, nil, nil, Options{AssetsHost: "http://localhost/assets/"}))
	assert.Contains(t, buf.String(), "http://localhost/assets/")
}

func TestRound(t *testing.T) {
	assert.Equal(t, 72.4, round(72.44, 1))
	assert.Equal(t, 0.812, round(0.8123, 3))
}
