// Package store records pipeline sessions in SQLite.
//
// A Store is a pipeline.Sink: it keeps one row per session, every live
// sample, every estimate and every diagnostic. Write errors are logged and
// counted; they never reach the pipeline.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cwbudde/algo-rppg/ppg/pipeline"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("store: session not found")

// Store is a SQLite-backed session recorder.
type Store struct {
	db     *sql.DB
	log    *zap.Logger
	errors atomic.Uint64
}

// Open opens or creates the database at path and applies the embedded
// migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serialises writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pragmas: %w", err)
	}

	s := &Store{db: db, log: logger.Named("store")}
	if err := s.MigrateUp(Migrations()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// WriteErrors returns the number of failed writes.
func (s *Store) WriteErrors() uint64 { return s.errors.Load() }

// Emit implements pipeline.Sink.
func (s *Store) Emit(e pipeline.Event) {
	var err error

	switch ev := e.(type) {
	case pipeline.LiveUpdate:
		_, err = s.db.Exec(`INSERT OR IGNORE INTO samples (session_id, ts, r, g, b, raw, filtered)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.SessionID, ev.Timestamp.UnixNano(),
			ev.Channels.R, ev.Channels.G, ev.Channels.B, ev.Raw, ev.Filtered)
	case pipeline.EstimateUpdate:
		est := ev.Estimate
		var bpm sql.NullFloat64
		if est.HasBPM {
			bpm = sql.NullFloat64{Float64: est.BPM, Valid: true}
		}
		_, err = s.db.Exec(`INSERT INTO estimates
			(session_id, ts, status, bpm, frequency_hz, confidence, window_len, resampled, elapsed_us)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.SessionID, ev.Timestamp.UnixNano(), est.Status.String(), bpm,
			est.FrequencyHz, est.Confidence, ev.Samples, ev.Resampled, ev.Elapsed.Microseconds())
	case pipeline.LifecycleChange:
		err = s.lifecycle(ev)
	case pipeline.Diagnostic:
		var msg string
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		_, err = s.db.Exec(`INSERT INTO diagnostics (session_id, ts, kind, message) VALUES (?, ?, ?, ?)`,
			ev.SessionID, ev.Timestamp.UnixNano(), string(ev.Kind), msg)
	case pipeline.Summary:
		err = s.summary(ev)
	}

	if err != nil {
		s.errors.Add(1)
		s.log.Warn("write failed", zap.String("session", e.Meta().SessionID), zap.Error(err))
	}
}

func (s *Store) lifecycle(ev pipeline.LifecycleChange) error {
	if ev.SessionID == "" {
		return nil
	}

	switch ev.To {
	case pipeline.StateSampling:
		_, err := s.db.Exec(`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
			ev.SessionID, ev.Timestamp.UnixNano())
		return err
	case pipeline.StateError:
		_, err := s.db.Exec(`UPDATE sessions SET final_state = ?, reason = ?, stopped_at = ? WHERE id = ?`,
			ev.To.String(), ev.Reason, ev.Timestamp.UnixNano(), ev.SessionID)
		return err
	default:
		return nil
	}
}

func (s *Store) summary(ev pipeline.Summary) error {
	st := ev.Stats
	var bpm, conf sql.NullFloat64
	if ev.HasEstimate && ev.Last.HasBPM {
		bpm = sql.NullFloat64{Float64: ev.Last.BPM, Valid: true}
		conf = sql.NullFloat64{Float64: ev.Last.Confidence, Valid: true}
	}

	_, err := s.db.Exec(`INSERT INTO sessions
		(id, started_at, stopped_at, final_state, reason, ticks, skipped, samples, rejected,
		 instabilities, estimates, last_bpm, last_confidence)
		VALUES (?, ?, ?, 'idle', 'stopped', ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stopped_at = excluded.stopped_at,
			final_state = excluded.final_state,
			reason = excluded.reason,
			ticks = excluded.ticks,
			skipped = excluded.skipped,
			samples = excluded.samples,
			rejected = excluded.rejected,
			instabilities = excluded.instabilities,
			estimates = excluded.estimates,
			last_bpm = excluded.last_bpm,
			last_confidence = excluded.last_confidence`,
		ev.SessionID, ev.Started.UnixNano(), ev.Started.Add(ev.Duration).UnixNano(),
		st.Ticks, st.Skipped, st.Samples, st.Rejected, st.Instabilities, st.Estimates, bpm, conf)

	return err
}

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
