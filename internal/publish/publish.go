// Package publish forwards pipeline events to NATS as JSON messages.
//
// Each event kind goes to its own subject below a common prefix:
// <prefix>.live, <prefix>.estimate, <prefix>.lifecycle, <prefix>.diagnostic
// and <prefix>.summary.
package publish

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-rppg/ppg/pipeline"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials url with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

type LiveMsg struct {
	Session  string  `json:"session"`
	Ts       int64   `json:"ts"`
	Raw      float64 `json:"raw"`
	Filtered float64 `json:"filtered"`
	R        float64 `json:"r"`
	G        float64 `json:"g"`
	B        float64 `json:"b"`
}

type EstimateMsg struct {
	Session    string   `json:"session"`
	Ts         int64    `json:"ts"`
	Status     string   `json:"status"`
	BPM        *float64 `json:"bpm,omitempty"`
	Confidence float64  `json:"confidence"`
	Samples    int      `json:"samples"`
	Resampled  bool     `json:"resampled"`
	ElapsedUs  int64    `json:"elapsed_us"`
}

type LifecycleMsg struct {
	Session string `json:"session,omitempty"`
	Ts      int64  `json:"ts"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
}

type DiagnosticMsg struct {
	Session string `json:"session"`
	Ts      int64  `json:"ts"`
	Kind    string `json:"kind"`
	Error   string `json:"error,omitempty"`
}

type SummaryMsg struct {
	Session       string   `json:"session"`
	Ts            int64    `json:"ts"`
	DurationMs    int64    `json:"duration_ms"`
	Ticks         uint64   `json:"ticks"`
	Skipped       uint64   `json:"skipped"`
	Samples       uint64   `json:"samples"`
	Rejected      uint64   `json:"rejected"`
	Instabilities uint64   `json:"instabilities"`
	Estimates     uint64   `json:"estimates"`
	LastBPM       *float64 `json:"last_bpm,omitempty"`
}

// Publisher is a pipeline.Sink. Publish failures are logged and counted.
type Publisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
	failed atomic.Uint64
}

// New returns a Publisher writing below prefix.
func New(conn Conn, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, log: logger.Named("publish")}
}

// Failed returns the number of messages that could not be published.
func (p *Publisher) Failed() uint64 { return p.failed.Load() }

// Subject returns the subject for kind.
func (p *Publisher) Subject(kind string) string { return p.prefix + "." + kind }

// Emit implements pipeline.Sink.
func (p *Publisher) Emit(e pipeline.Event) {
	kind, msg := Message(e)
	if msg == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err == nil {
		err = p.conn.Publish(p.Subject(kind), data)
	}
	if err != nil {
		p.failed.Add(1)
		p.log.Warn("publish failed", zap.String("kind", kind), zap.Error(err))
	}
}

// Message maps an event to its subject suffix and wire message. Unknown
// events yield a nil message.
func Message(e pipeline.Event) (string, any) {
	switch ev := e.(type) {
	case pipeline.LiveUpdate:
		return "live", LiveMsg{
			Session:  ev.SessionID,
			Ts:       ev.Timestamp.UnixMilli(),
			Raw:      ev.Raw,
			Filtered: ev.Filtered,
			R:        ev.Channels.R,
			G:        ev.Channels.G,
			B:        ev.Channels.B,
		}
	case pipeline.EstimateUpdate:
		m := EstimateMsg{
			Session:    ev.SessionID,
			Ts:         ev.Timestamp.UnixMilli(),
			Status:     ev.Estimate.Status.String(),
			Confidence: ev.Estimate.Confidence,
			Samples:    ev.Samples,
			Resampled:  ev.Resampled,
			ElapsedUs:  ev.Elapsed.Microseconds(),
		}
		if ev.Estimate.HasBPM {
			bpm := ev.Estimate.BPM
			m.BPM = &bpm
		}
		return "estimate", m
	case pipeline.LifecycleChange:
		return "lifecycle", LifecycleMsg{
			Session: ev.SessionID,
			Ts:      ev.Timestamp.UnixMilli(),
			From:    ev.From.String(),
			To:      ev.To.String(),
			Reason:  ev.Reason,
		}
	case pipeline.Diagnostic:
		m := DiagnosticMsg{
			Session: ev.SessionID,
			Ts:      ev.Timestamp.UnixMilli(),
			Kind:    string(ev.Kind),
		}
		if ev.Err != nil {
			m.Error = ev.Err.Error()
		}
		return "diagnostic", m
	case pipeline.Summary:
		st := ev.Stats
		m := SummaryMsg{
			Session:       ev.SessionID,
			Ts:            ev.Timestamp.UnixMilli(),
			DurationMs:    ev.Duration.Milliseconds(),
			Ticks:         st.Ticks,
			Skipped:       st.Skipped,
			Samples:       st.Samples,
			Rejected:      st.Rejected,
			Instabilities: st.Instabilities,
			Estimates:     st.Estimates,
		}
		if ev.HasEstimate && ev.Last.HasBPM {
			bpm := ev.Last.BPM
			m.LastBPM = &bpm
		}
		return "summary", m
	default:
		return "", nil
	}
}
