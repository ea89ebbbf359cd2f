package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cwbudde/algo-rppg/internal/timeutil"
	"github.com/cwbudde/algo-rppg/ppg/bandpass"
	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
	"github.com/cwbudde/algo-rppg/ppg/signalbuf"
)

// Stats is a snapshot of session counters.
type Stats struct {
	SessionID string
	State     State
	// Ticks counts ticks handled by the loop, including skipped ones.
	Ticks   uint64
	Skipped uint64
	// Samples counts samples accepted into the buffer.
	Samples       uint64
	Rejected      uint64
	Instabilities uint64
	Estimates     uint64
	Stale         uint64
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("ticks", s.Ticks)
	enc.AddUint64("skipped", s.Skipped)
	enc.AddUint64("samples", s.Samples)
	enc.AddUint64("rejected", s.Rejected)
	enc.AddUint64("instabilities", s.Instabilities)
	enc.AddUint64("estimates", s.Estimates)
	enc.AddUint64("stale", s.Stale)
	return nil
}

type counters struct {
	ticks         atomic.Uint64
	skipped       atomic.Uint64
	samples       atomic.Uint64
	rejected      atomic.Uint64
	instabilities atomic.Uint64
	estimates     atomic.Uint64
	stale         atomic.Uint64
}

func (c *counters) snapshot(id string) Stats {
	return Stats{
		SessionID:     id,
		Ticks:         c.ticks.Load(),
		Skipped:       c.skipped.Load(),
		Samples:       c.samples.Load(),
		Rejected:      c.rejected.Load(),
		Instabilities: c.instabilities.Load(),
		Estimates:     c.estimates.Load(),
		Stale:         c.stale.Load(),
	}
}

// estimation is the result of one background estimation task.
type estimation struct {
	// taken is the newest sample time of the analysed snapshot.
	taken     time.Time
	estimate  heartrate.Estimate
	samples   int
	resampled bool
	elapsed   time.Duration
	err       error
}

// session is one sampling run. Everything below the stats field is owned
// by the tick loop goroutine.
type session struct {
	id    string
	cfg   Config
	co    *Coordinator
	log   *zap.Logger
	began time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats counters

	sampler   *sampler.Sampler
	filter    *bandpass.Streaming
	buffer    *signalbuf.Buffer
	estimator *heartrate.Estimator
	results   chan estimation

	every     uint64
	inflight  bool
	accepted  time.Time
	last      heartrate.Estimate
	hasLast   bool
	tickCount uint64
}

func newSession(c *Coordinator, cfg Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	filter, err := bandpass.NewStreaming(cfg.FilterConfig())
	if err != nil {
		return nil, err
	}

	est, err := heartrate.New(cfg.EstimatorConfig())
	if err != nil {
		return nil, err
	}

	buf, err := signalbuf.New(cfg.WindowDuration,
		signalbuf.WithCapacity(signalbuf.CapacityFor(cfg.WindowDuration, cfg.SampleInterval/2)))
	if err != nil {
		return nil, err
	}

	opts := []sampler.Option{sampler.WithROI(cfg.ROI)}
	if cfg.Extractor != nil {
		opts = append(opts, sampler.WithExtractor(cfg.Extractor))
	}

	id := uuid.NewString()
	s := &session{
		id:        id,
		cfg:       cfg,
		co:        c,
		log:       c.log.With(zap.String("session", id)),
		began:     c.clock.Now(),
		sampler:   sampler.New(opts...),
		filter:    filter,
		buffer:    buf,
		estimator: est,
		results:   make(chan estimation),
		every:     uint64(cfg.EstimationInterval),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s, nil
}

func (s *session) start() {
	s.wg.Add(1)
	go s.loop(s.co.clock.NewTicker(s.cfg.SampleInterval))
}

// loop is the single owner of the buffer and the streaming filter.
func (s *session) loop(ticker timeutil.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C():
			ok := s.tick(now)
			s.stats.ticks.Add(1)
			if !ok {
				return
			}
		case r := <-s.results:
			s.deliver(r)
		}
	}
}

// tick handles one tick and reports whether the loop should continue.
func (s *session) tick(now time.Time) bool {
	s.tickCount++

	if s.tickCount%s.every == 0 {
		defer s.estimate(now)
	}

	frame, err := s.acquire()
	switch {
	case err == nil:
	case s.ctx.Err() != nil:
		return false
	case fatal(err):
		var ae *AcquisitionError
		if !errors.As(err, &ae) {
			err = &AcquisitionError{Err: err}
		}
		s.co.fail(s, err)
		return false
	default:
		s.stats.skipped.Add(1)
		s.log.Debug("tick skipped", zap.Error(err))
		s.diagnose(now, DiagTickSkipped, err)
		return true
	}

	if frame.Timestamp.IsZero() {
		frame.Timestamp = now
	}

	smp, err := s.sampler.Sample(frame)
	if err != nil {
		s.reject(now, err)
		return true
	}

	filtered, ferr := s.filter.Process(smp.Timestamp, smp.Value)
	switch {
	case errors.Is(ferr, bandpass.ErrNumericalInstability):
		s.stats.instabilities.Add(1)
		s.log.Warn("filter reset", zap.Error(ferr))
		s.diagnose(smp.Timestamp, DiagInstability, ferr)
		return true
	case ferr != nil && !errors.Is(ferr, bandpass.ErrNonMonotonic):
		s.reject(smp.Timestamp, ferr)
		return true
	}

	if err := s.buffer.Append(smp); err != nil {
		s.reject(smp.Timestamp, err)
		return true
	}
	s.stats.samples.Add(1)

	// Late frames still feed the estimation window but not the live trace.
	if ferr != nil {
		return true
	}

	s.co.sink.Emit(LiveUpdate{
		Header:   Header{SessionID: s.id, Timestamp: smp.Timestamp},
		Raw:      smp.Value,
		Filtered: filtered,
		Channels: smp.Channels,
	})

	return true
}

// acquire runs one bounded acquisition. The source goroutine is tracked by
// the session wait group and reports through a buffered channel, so it
// never blocks after the tick gave up on it.
func (s *session) acquire() (sampler.Frame, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.AcquireTimeout)
	defer cancel()

	type acquired struct {
		frame sampler.Frame
		err   error
	}
	ch := make(chan acquired, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f, err := s.co.src.AcquireFrame(ctx)
		ch <- acquired{f, err}
	}()

	select {
	case a := <-ch:
		return a.frame, a.err
	case <-ctx.Done():
		return sampler.Frame{}, ctx.Err()
	}
}

// estimate reports insufficient data immediately or starts one background
// estimation on a snapshot of the buffer.
func (s *session) estimate(now time.Time) {
	if s.ctx.Err() != nil {
		return
	}

	w := s.buffer.Snapshot()
	if !s.estimator.Sufficient(w.Len(), w.Span()) {
		at := w.Newest
		if at.IsZero() {
			at = now
		}
		s.stats.estimates.Add(1)
		s.co.sink.Emit(EstimateUpdate{
			Header:   Header{SessionID: s.id, Timestamp: at},
			Estimate: heartrate.InsufficientData(at),
			Samples:  w.Len(),
		})
		return
	}

	if s.inflight {
		s.diagnose(now, DiagEstimationBusy, nil)
		return
	}
	s.inflight = true

	fcfg := s.cfg.FilterConfig()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		began := time.Now()
		r := estimation{taken: w.Newest, samples: w.Len()}

		res, err := bandpass.ZeroPhase(fcfg, w.Times, w.Values)
		if err != nil {
			r.err = err
		} else {
			r.estimate = s.estimator.FromResult(w.Newest, res)
			r.resampled = res.Resampled
		}
		r.elapsed = time.Since(began)

		select {
		case s.results <- r:
		case <-s.ctx.Done():
		}
	}()
}

// deliver publishes a finished estimation unless it is stale.
func (s *session) deliver(r estimation) {
	s.inflight = false

	if s.ctx.Err() != nil {
		return
	}
	if r.err != nil {
		s.log.Warn("estimation failed", zap.Error(r.err))
		s.diagnose(r.taken, DiagEstimationFailed, r.err)
		return
	}
	if r.taken.Before(s.accepted) {
		s.stats.stale.Add(1)
		s.diagnose(r.taken, DiagStaleEstimate, nil)
		return
	}

	s.accepted = r.taken
	s.last, s.hasLast = r.estimate, true
	s.stats.estimates.Add(1)

	s.log.Debug("estimate",
		zap.Float64("bpm", r.estimate.BPM),
		zap.Float64("confidence", r.estimate.Confidence),
		zap.Stringer("status", r.estimate.Status))

	s.co.sink.Emit(EstimateUpdate{
		Header:    Header{SessionID: s.id, Timestamp: r.taken},
		Estimate:  r.estimate,
		Samples:   r.samples,
		Resampled: r.resampled,
		Elapsed:   r.elapsed,
	})
}

func (s *session) reject(at time.Time, err error) {
	s.stats.rejected.Add(1)
	s.log.Debug("sample rejected", zap.Error(err))
	s.diagnose(at, DiagSampleRejected, err)
}

func (s *session) diagnose(at time.Time, kind DiagnosticKind, err error) {
	s.co.sink.Emit(Diagnostic{
		Header: Header{SessionID: s.id, Timestamp: at},
		Kind:   kind,
		Err:    err,
	})
}

// summary must only be called after the loop has exited.
func (s *session) summary() Summary {
	now := s.co.clock.Now()
	return Summary{
		Header:      Header{SessionID: s.id, Timestamp: now},
		Started:     s.began,
		Duration:    now.Sub(s.began),
		Stats:       s.stats.snapshot(s.id),
		Last:        s.last,
		HasEstimate: s.hasLast,
	}
}
