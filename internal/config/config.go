// Package config loads the rppgd daemon configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/cwbudde/algo-rppg/internal/synth"
	"github.com/cwbudde/algo-rppg/ppg/heartrate"
	"github.com/cwbudde/algo-rppg/ppg/pipeline"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	SampleInterval  time.Duration `env:"RPPG_SAMPLE_INTERVAL"   envDefault:"100ms"`
	Window          time.Duration `env:"RPPG_WINDOW"            envDefault:"12s"`
	BPMLow          float64       `env:"RPPG_BPM_LOW"           envDefault:"42"`
	BPMHigh         float64       `env:"RPPG_BPM_HIGH"          envDefault:"198"`
	FilterOrder     int           `env:"RPPG_FILTER_ORDER"      envDefault:"4"`
	EstimationTicks int           `env:"RPPG_ESTIMATION_TICKS"  envDefault:"10"`
	AcquireTimeout  time.Duration `env:"RPPG_ACQUIRE_TIMEOUT"   envDefault:"80ms"`
	JitterTolerance float64       `env:"RPPG_JITTER_TOLERANCE"  envDefault:"0.2"`
	Method          string        `env:"RPPG_METHOD"            envDefault:"spectral"`
	Extractor       string        `env:"RPPG_EXTRACTOR"         envDefault:"green"`
	ROI             string        `env:"RPPG_ROI"`
	SessionDuration time.Duration `env:"RPPG_SESSION_DURATION"  envDefault:"0s"`
	MaxFrames       int           `env:"RPPG_MAX_FRAMES"        envDefault:"0"`

	SynthBPM       float64 `env:"RPPG_SYNTH_BPM"        envDefault:"72"`
	SynthAmplitude float64 `env:"RPPG_SYNTH_AMPLITUDE"  envDefault:"3"`
	SynthNoise     float64 `env:"RPPG_SYNTH_NOISE"      envDefault:"2"`
	SynthJitter    float64 `env:"RPPG_SYNTH_JITTER"     envDefault:"0"`
	SynthSize      int     `env:"RPPG_SYNTH_SIZE"       envDefault:"32"`
	SynthDropEvery int     `env:"RPPG_SYNTH_DROP_EVERY" envDefault:"0"`
	SynthSeed      int64   `env:"RPPG_SYNTH_SEED"       envDefault:"1"`

	DBPath      string `env:"RPPG_DB_PATH"`
	CSVPath     string `env:"RPPG_CSV_PATH"`
	NATSURL     string `env:"RPPG_NATS_URL"`
	NATSSubject string `env:"RPPG_NATS_SUBJECT"     envDefault:"rppg"`
	MetricsAddr string `env:"RPPG_METRICS_ADDR"     envDefault:":9464"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads vars instead of the process environment.
func Parse(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Pipeline converts the daemon settings into a validated pipeline.Config.
func (c *Config) Pipeline() (pipeline.Config, error) {
	method, err := heartrate.ParseMethod(c.Method)
	if err != nil {
		return pipeline.Config{}, err
	}
	ext, err := sampler.ExtractorByName(c.Extractor)
	if err != nil {
		return pipeline.Config{}, err
	}
	roi, err := ParseROI(c.ROI)
	if err != nil {
		return pipeline.Config{}, err
	}

	pc := pipeline.Config{
		SampleInterval:     c.SampleInterval,
		WindowDuration:     c.Window,
		BPMLow:             c.BPMLow,
		BPMHigh:            c.BPMHigh,
		FilterOrder:        c.FilterOrder,
		EstimationInterval: c.EstimationTicks,
		AcquireTimeout:     c.AcquireTimeout,
		ROI:                roi,
		Extractor:          ext,
		JitterTolerance:    c.JitterTolerance,
		Method:             method,
	}
	if err := pc.Validate(); err != nil {
		return pipeline.Config{}, err
	}

	return pc, nil
}

// Synth returns the synthetic source settings. Frames start at start and
// follow the sampling interval.
func (c *Config) Synth(start time.Time) synth.Config {
	sc := synth.DefaultConfig()
	sc.BPM = c.SynthBPM
	sc.Amplitude = c.SynthAmplitude
	sc.Noise = c.SynthNoise
	sc.Jitter = c.SynthJitter
	sc.Interval = c.SampleInterval
	sc.Start = start
	sc.Seed = c.SynthSeed
	if c.SynthSize > 0 {
		sc.Width, sc.Height = c.SynthSize, c.SynthSize
	}
	return sc
}

// ParseROI parses "x0,y0,x1,y1". The empty string selects the whole frame.
func ParseROI(s string) (image.Rectangle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return image.Rectangle{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("%w: roi %q: want x0,y0,x1,y1", ErrInvalid, s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("%w: roi %q: %v", ErrInvalid, s, err)
		}
		v[i] = n
	}

	r := image.Rect(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: roi %q is empty", ErrInvalid, s)
	}

	return r, nil
}
