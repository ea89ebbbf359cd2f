// Command bandinfo prints the frequency response of the pulse band-pass
// filter and the spectral properties of the analysis windows.
//
// Usage:
//
//	bandinfo [flags]
//
// Examples:
//
//	bandinfo
//	bandinfo -rate 30 -order 2
//	bandinfo -bpm-low 50 -bpm-high 150 -zerophase
//	bandinfo -windows -window 12s
//	bandinfo -windows -periodic -tukey-alpha 0.25
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/window"
	"github.com/cwbudde/algo-rppg/ppg/bandpass"
)

type options struct {
	rate      float64
	bpmLow    float64
	bpmHigh   float64
	order     int
	points    int
	zeroPhase bool
	windows   bool
	window    time.Duration
	periodic  bool
	alpha     float64
}

func main() {
	var o options
	flag.Float64Var(&o.rate, "rate", 10, "nominal sample rate in Hz")
	flag.Float64Var(&o.bpmLow, "bpm-low", 42, "lower band edge in BPM")
	flag.Float64Var(&o.bpmHigh, "bpm-high", 198, "upper band edge in BPM")
	flag.IntVar(&o.order, "order", bandpass.DefaultOrder, "Butterworth prototype order (band-pass order is twice this)")
	flag.IntVar(&o.points, "points", 24, "number of response points up to Nyquist")
	flag.BoolVar(&o.zeroPhase, "zerophase", false, "show the forward-backward (batch) response")
	flag.BoolVar(&o.windows, "windows", false, "also print analysis window properties")
	flag.DurationVar(&o.window, "window", 12*time.Second, "analysis window duration for -windows")
	flag.BoolVar(&o.periodic, "periodic", false, "use the periodic (FFT framing) form of each window")
	flag.Float64Var(&o.alpha, "tukey-alpha", 0.5, "taper fraction of the Tukey window")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bandinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the pulse band-pass response at the given rate.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(os.Stdout, o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, o options) error {
	cfg := bandpass.DefaultConfig(o.rate)
	cfg.Band = bandpass.BandFromBPM(o.bpmLow, o.bpmHigh)
	cfg.Order = o.order

	if err := printResponse(w, cfg, o.points, o.zeroPhase); err != nil {
		return err
	}
	if o.windows {
		fmt.Fprintln(w)
		return printWindows(w, o)
	}
	return nil
}

func printResponse(w io.Writer, cfg bandpass.Config, points int, zeroPhase bool) error {
	chain, err := cfg.Chain()
	if err != nil {
		return err
	}
	if points < 2 {
		points = 2
	}

	mag := chain.MagnitudeDB
	if zeroPhase {
		mag = chain.ZeroPhaseMagnitudeDB
	}

	fmt.Fprintf(w, "Band %.2f-%.2f Hz (%.0f-%.0f BPM), order %d (%d sections) at %.2f Hz\n\n",
		cfg.Band.LowHz, cfg.Band.HighHz, cfg.Band.LowHz*60, cfg.Band.HighHz*60,
		chain.Order(), chain.NumSections(), cfg.SampleRate)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Freq [Hz]\tBPM\tGain [dB]\t\n")
	fmt.Fprintf(tw, "---------\t---\t---------\t\n")

	freqs := responseFreqs(cfg, points)
	for _, f := range freqs {
		db := mag(f, cfg.SampleRate)
		marker := ""
		if f == cfg.Band.LowHz || f == cfg.Band.HighHz {
			marker = "edge"
		}
		fmt.Fprintf(tw, "%.3f\t%.0f\t%s\t%s\n", f, f*60, formatDB(db), marker)
	}

	return tw.Flush()
}

// responseFreqs spaces points evenly below Nyquist and adds the band edges.
func responseFreqs(cfg bandpass.Config, points int) []float64 {
	nyq := cfg.SampleRate / 2
	out := make([]float64, 0, points+2)
	edges := []float64{cfg.Band.LowHz, cfg.Band.HighHz}

	for i := 1; i <= points; i++ {
		f := nyq * float64(i) / float64(points+1)
		for len(edges) > 0 && edges[0] <= f {
			if edges[0] < f {
				out = append(out, edges[0])
			}
			edges = edges[1:]
		}
		out = append(out, f)
	}
	return append(out, edges...)
}

func formatDB(db float64) string {
	if math.IsInf(db, -1) || db < -200 {
		return "-inf"
	}
	return fmt.Sprintf("%.2f", db)
}

func printWindows(w io.Writer, o options) error {
	n := int(math.Round(o.window.Seconds() * o.rate))
	if n < 2 {
		return fmt.Errorf("window of %v at %.2f Hz has %d samples", o.window, o.rate, n)
	}
	binHz := o.rate / float64(n)

	opts := []window.Option{window.WithAlpha(o.alpha)}
	if o.periodic {
		opts = append(opts, window.WithPeriodic())
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Window\tSamples\tCoherent Gain\tGain [dB]\tENBW [bins]\tSidelobe [dB]\tMain lobe [BPM]\n")
	fmt.Fprintf(tw, "------\t-------\t-------------\t---------\t-----------\t-------------\t---------------\n")

	types := []window.Type{window.TypeRectangular, window.TypeHann, window.TypeHamming, window.TypeBlackman, window.TypeTukey}
	for _, t := range types {
		coeffs := window.Generate(t, n, opts...)
		cg, err := window.CoherentGain(coeffs)
		if err != nil {
			return err
		}
		enbw, err := window.EquivalentNoiseBandwidth(coeffs)
		if err != nil {
			return err
		}
		m := window.Info(t)
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%s\t%.4f\t%.2f\t%.1f\n",
			m.Name, n, cg, formatDB(core.LinearToDB(cg)), enbw, m.HighestSidelobe, 2*m.MainLobeBins*binHz*60)
	}

	return tw.Flush()
}
