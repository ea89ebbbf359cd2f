// Command rppgd runs the rPPG pipeline against a synthetic pulse source.
//
// All settings come from the environment (see internal/config). Events are
// fanned out to Prometheus metrics and, when configured, to a SQLite
// recording, a per-frame CSV file and NATS subjects. The session ends on
// SIGINT/SIGTERM, after RPPG_SESSION_DURATION, after RPPG_MAX_FRAMES live
// samples or when the source fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-rppg/internal/config"
	"github.com/cwbudde/algo-rppg/internal/csvexport"
	"github.com/cwbudde/algo-rppg/internal/logging"
	"github.com/cwbudde/algo-rppg/internal/metrics"
	"github.com/cwbudde/algo-rppg/internal/publish"
	"github.com/cwbudde/algo-rppg/internal/store"
	"github.com/cwbudde/algo-rppg/internal/synth"
	"github.com/cwbudde/algo-rppg/ppg/pipeline"
)

func main() {
	os.Exit(start())
}

// start returns the process exit code. Deferred calls, including the final
// logger flush, run before main exits.
func start() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("rppgd failed", zap.Error(err))
		return 1
	}

	return 0
}

func run(cfg *config.Config, log *zap.Logger) error {
	pcfg, err := cfg.Pipeline()
	if err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sinks := pipeline.MultiSink{metrics.New(reg)}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath, log)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		sinks = append(sinks, st)
		log.Info("recording sessions", zap.String("db", cfg.DBPath))
	}

	if cfg.CSVPath != "" {
		f, err := os.Create(cfg.CSVPath)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer f.Close()
		w := csvexport.NewWriter(f)
		defer w.Flush()
		sinks = append(sinks, w)
	}

	if cfg.NATSURL != "" {
		nc, err := publish.Connect(cfg.NATSURL, "rppgd")
		if err != nil {
			// Publishing is optional; keep sampling without it.
			log.Warn("nats connect failed, continuing without publishing", zap.Error(err))
		} else {
			defer nc.Drain()
			sinks = append(sinks, publish.New(nc, cfg.NATSSubject, log))
		}
	}

	stop := newStopper(cfg.MaxFrames)
	sinks = append(sinks, stop)

	src := synth.New(cfg.Synth(time.Now()))
	co := pipeline.New(dropEvery(src, cfg.SynthDropEvery), sinks, pipeline.WithLogger(log))
	metrics.ObserveTicks(reg, co.Stats)

	srv := metrics.StartServer(ctx, cfg.MetricsAddr, metrics.Handler(reg, func() error {
		if st, reason := co.State(); st == pipeline.StateError {
			return errors.New(reason)
		}
		return nil
	}), log)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := co.Start(pcfg); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var limit <-chan time.Time
	if cfg.SessionDuration > 0 {
		t := time.NewTimer(cfg.SessionDuration)
		defer t.Stop()
		limit = t.C
	}

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case <-limit:
		log.Info("session duration reached", zap.Duration("duration", cfg.SessionDuration))
	case <-stop.frames:
		log.Info("frame limit reached", zap.Int("frames", cfg.MaxFrames))
	case <-stop.failed:
		_, reason := co.State()
		return fmt.Errorf("session failed: %s", reason)
	}

	if err := co.Stop(); err != nil {
		// The source may have failed while we were shutting down.
		if st, reason := co.State(); st == pipeline.StateError {
			return fmt.Errorf("session failed: %s", reason)
		}
		return err
	}

	log.Info("rppgd stopped", zap.Object("stats", co.Stats()))
	return nil
}
