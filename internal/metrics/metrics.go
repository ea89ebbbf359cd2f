// Package metrics exports pipeline events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwbudde/algo-rppg/ppg/pipeline"
)

// Metrics is a pipeline.Sink that updates Prometheus collectors.
type Metrics struct {
	samples       prometheus.Counter
	skipped       prometheus.Counter
	rejected      prometheus.Counter
	instabilities prometheus.Counter
	diagnostics   *prometheus.CounterVec
	estimates     *prometheus.CounterVec
	estimation    prometheus.Histogram
	state         prometheus.Gauge
	bpm           prometheus.Gauge
	confidence    prometheus.Gauge
	transitions   *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		samples: f.NewCounter(prometheus.CounterOpts{
			Name: "rppg_samples_total",
			Help: "Samples accepted into the signal window",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "rppg_ticks_skipped_total",
			Help: "Ticks without a frame (timeout or no frame available)",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "rppg_samples_rejected_total",
			Help: "Frames or samples rejected by sampler, filter or buffer",
		}),
		instabilities: f.NewCounter(prometheus.CounterOpts{
			Name: "rppg_filter_instabilities_total",
			Help: "Streaming filter resets after non-finite output",
		}),
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rppg_diagnostics_total",
			Help: "Diagnostic events, by kind",
		}, []string{"kind"}),
		estimates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rppg_estimates_total",
			Help: "Heart-rate estimates, by status",
		}, []string{"status"}),
		estimation: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rppg_estimation_duration_seconds",
			Help:    "Wall time of batch filtering plus estimation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Name: "rppg_state",
			Help: "Coordinator state (0 idle, 1 sampling, 2 error)",
		}),
		bpm: f.NewGauge(prometheus.GaugeOpts{
			Name: "rppg_heart_rate_bpm",
			Help: "Most recent heart-rate estimate",
		}),
		confidence: f.NewGauge(prometheus.GaugeOpts{
			Name: "rppg_heart_rate_confidence",
			Help: "Confidence of the most recent heart-rate estimate",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rppg_state_transitions_total",
			Help: "Coordinator state transitions, by target state",
		}, []string{"to"}),
	}
}

// ObserveTicks exports the tick counter of stats, which is not carried by
// events.
func ObserveTicks(reg prometheus.Registerer, stats func() pipeline.Stats) {
	promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
		Name: "rppg_ticks_total",
		Help: "Ticks handled by the current or most recent session",
	}, func() float64 { return float64(stats().Ticks) })
}

// Emit implements pipeline.Sink.
func (m *Metrics) Emit(e pipeline.Event) {
	switch ev := e.(type) {
	case pipeline.LiveUpdate:
		m.samples.Inc()
	case pipeline.EstimateUpdate:
		m.estimates.WithLabelValues(ev.Estimate.Status.String()).Inc()
		if ev.Elapsed > 0 {
			m.estimation.Observe(ev.Elapsed.Seconds())
		}
		if ev.Estimate.HasBPM {
			m.bpm.Set(ev.Estimate.BPM)
			m.confidence.Set(ev.Estimate.Confidence)
		}
	case pipeline.LifecycleChange:
		m.state.Set(float64(ev.To))
		m.transitions.WithLabelValues(ev.To.String()).Inc()
	case pipeline.Diagnostic:
		m.diagnostics.WithLabelValues(string(ev.Kind)).Inc()
		switch ev.Kind {
		case pipeline.DiagTickSkipped:
			m.skipped.Inc()
		case pipeline.DiagSampleRejected:
			m.rejected.Inc()
		case pipeline.DiagInstability:
			m.instabilities.Inc()
		}
	}
}
