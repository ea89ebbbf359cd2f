package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// SessionRecord is one row of the sessions table.
type SessionRecord struct {
	ID            string
	Started       time.Time
	Stopped       time.Time // zero while running
	FinalState    string
	Reason        string
	Ticks         uint64
	Skipped       uint64
	Samples       uint64
	Rejected      uint64
	Instabilities uint64
	Estimates     uint64
	LastBPM       float64
	HasBPM        bool
	Confidence    float64
}

// SampleRecord is one recorded live sample.
type SampleRecord struct {
	Timestamp time.Time
	Channels  sampler.RGB
	Raw       float64
	Filtered  float64
}

// EstimateRecord is one recorded estimate.
type EstimateRecord struct {
	Estimate  heartrate.Estimate
	Samples   int
	Resampled bool
	Elapsed   time.Duration
}

// DiagnosticCount is the number of diagnostics of one kind.
type DiagnosticCount struct {
	Kind  string
	Count int
}

const sessionColumns = `id, started_at, stopped_at, final_state, reason, ticks, skipped, samples,
	rejected, instabilities, estimates, last_bpm, last_confidence`

// Sessions lists all sessions, most recent first.
func (s *Store) Sessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// Session returns one session. An unknown id yields ErrNotFound.
func (s *Store) Session(id string) (SessionRecord, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	r, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	return r, err
}

// Latest returns the most recently started session.
func (s *Store) Latest() (SessionRecord, error) {
	row := s.db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC LIMIT 1`)
	r, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (SessionRecord, error) {
	var (
		r        SessionRecord
		started  int64
		stopped  sql.NullInt64
		bpm, cnf sql.NullFloat64
	)

	err := sc.Scan(&r.ID, &started, &stopped, &r.FinalState, &r.Reason,
		&r.Ticks, &r.Skipped, &r.Samples, &r.Rejected, &r.Instabilities, &r.Estimates, &bpm, &cnf)
	if err != nil {
		return SessionRecord{}, err
	}

	r.Started = fromNanos(started)
	if stopped.Valid {
		r.Stopped = fromNanos(stopped.Int64)
	}
	r.LastBPM, r.HasBPM = bpm.Float64, bpm.Valid
	r.Confidence = cnf.Float64

	return r, nil
}

// Samples returns the samples of a session in time order.
func (s *Store) Samples(sessionID string) ([]SampleRecord, error) {
	rows, err := s.db.Query(`SELECT ts, r, g, b, raw, filtered FROM samples
		WHERE session_id = ? ORDER BY ts`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SampleRecord
	for rows.Next() {
		var (
			r  SampleRecord
			ts int64
		)
		if err := rows.Scan(&ts, &r.Channels.R, &r.Channels.G, &r.Channels.B, &r.Raw, &r.Filtered); err != nil {
			return nil, err
		}
		r.Timestamp = fromNanos(ts)
		out = append(out, r)
	}

	return out, rows.Err()
}

// Estimates returns the estimates of a session in time order.
func (s *Store) Estimates(sessionID string) ([]EstimateRecord, error) {
	rows, err := s.db.Query(`SELECT ts, status, bpm, frequency_hz, confidence, window_len, resampled, elapsed_us
		FROM estimates WHERE session_id = ? ORDER BY ts, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EstimateRecord
	for rows.Next() {
		var (
			r       EstimateRecord
			ts      int64
			status  string
			bpm     sql.NullFloat64
			elapsed int64
		)
		err := rows.Scan(&ts, &status, &bpm, &r.Estimate.FrequencyHz, &r.Estimate.Confidence,
			&r.Samples, &r.Resampled, &elapsed)
		if err != nil {
			return nil, err
		}

		r.Estimate.Timestamp = fromNanos(ts)
		r.Estimate.Status, err = heartrate.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		r.Estimate.BPM, r.Estimate.HasBPM = bpm.Float64, bpm.Valid
		r.Elapsed = time.Duration(elapsed) * time.Microsecond
		out = append(out, r)
	}

	return out, rows.Err()
}

// Diagnostics counts the diagnostics of a session by kind.
func (s *Store) Diagnostics(sessionID string) ([]DiagnosticCount, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM diagnostics
		WHERE session_id = ? GROUP BY kind ORDER BY kind`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagnosticCount
	for rows.Next() {
		var d DiagnosticCount
		if err := rows.Scan(&d.Kind, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
