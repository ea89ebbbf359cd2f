// Package render draws a recorded session as an HTML page of go-echarts
// line charts.
package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/cwbudde/algo-rppg/internal/store"
)

// Options tunes the generated page.
type Options struct {
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
	Width      string
	Height     string
}

func (o Options) init(title string) opts.Initialization {
	in := opts.Initialization{PageTitle: title, Width: o.Width, Height: o.Height, AssetsHost: o.AssetsHost}
	if in.Width == "" {
		in.Width = "1200px"
	}
	if in.Height == "" {
		in.Height = "400px"
	}
	return in
}

// Session writes a page with the filtered pulse signal, the raw colour
// channels and the heart-rate estimates of one session.
func Session(w io.Writer, rec store.SessionRecord, samples []store.SampleRecord, ests []store.EstimateRecord, o Options) error {
	page := components.NewPage()
	page.SetPageTitle("rPPG session " + rec.ID)
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(
		signalChart(rec, samples, o),
		channelChart(rec, samples, o),
		estimateChart(rec, ests, o),
	)
	return page.Render(w)
}

func signalChart(rec store.SessionRecord, samples []store.SampleRecord, o Options) *charts.Line {
	x := make([]string, len(samples))
	filtered := make([]opts.LineData, len(samples))
	for i, s := range samples {
		x[i] = seconds(rec.Started, s.Timestamp)
		filtered[i] = opts.LineData{Value: s.Filtered}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Pulse signal")),
		charts.WithTitleOpts(opts.Title{Title: "Filtered pulse signal", Subtitle: subtitle(rec, len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "amplitude", Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).AddSeries("filtered", filtered,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}))

	return line
}

func channelChart(rec store.SessionRecord, samples []store.SampleRecord, o Options) *charts.Line {
	x := make([]string, len(samples))
	r := make([]opts.LineData, len(samples))
	g := make([]opts.LineData, len(samples))
	b := make([]opts.LineData, len(samples))
	for i, s := range samples {
		x[i] = seconds(rec.Started, s.Timestamp)
		r[i] = opts.LineData{Value: s.Channels.R}
		g[i] = opts.LineData{Value: s.Channels.G}
		b[i] = opts.LineData{Value: s.Channels.B}
	}

	noSymbol := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Colour channels")),
		charts.WithTitleOpts(opts.Title{Title: "ROI colour means"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "level", Scale: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries("R", r, noSymbol, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#d62728"})).
		AddSeries("G", g, noSymbol, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2ca02c"})).
		AddSeries("B", b, noSymbol, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f77b4"}))

	return line
}

func estimateChart(rec store.SessionRecord, ests []store.EstimateRecord, o Options) *charts.Line {
	var (
		x    []string
		bpm  []opts.LineData
		conf []opts.LineData
	)
	for _, e := range ests {
		if !e.Estimate.HasBPM {
			continue
		}
		x = append(x, seconds(rec.Started, e.Estimate.Timestamp))
		bpm = append(bpm, opts.LineData{Value: round(e.Estimate.BPM, 1), Name: e.Estimate.Status.String()})
		conf = append(conf, opts.LineData{Value: round(e.Estimate.Confidence, 3)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Heart rate")),
		charts.WithTitleOpts(opts.Title{Title: "Heart rate", Subtitle: fmt.Sprintf("%d estimates", len(bpm))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "BPM", Scale: opts.Bool(true)}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "confidence", Min: 0, Max: 1})
	line.SetXAxis(x).
		AddSeries("BPM", bpm).
		AddSeries("confidence", conf, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, Step: "end"}))

	return line
}

func subtitle(rec store.SessionRecord, n int) string {
	s := fmt.Sprintf("session=%s samples=%d", rec.ID, n)
	if rec.HasBPM {
		s += fmt.Sprintf(" last=%.1f BPM", rec.LastBPM)
	}
	return s
}

func seconds(start, t time.Time) string {
	return strconv.FormatFloat(t.Sub(start).Seconds(), 'f', 2, 64)
}

func round(v float64, digits int) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', digits, 64), 64)
	return f
}
