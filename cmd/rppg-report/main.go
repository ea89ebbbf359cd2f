// Command rppg-report renders a session recorded by rppgd.
//
// Usage:
//
//	rppg-report -db rppg.db [flags]
//
// Examples:
//
//	rppg-report -db rppg.db -list
//	rppg-report -db rppg.db -html session.html
//	rppg-report -db rppg.db -session 6f1c... -csv frames.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-rppg/internal/csvexport"
	"github.com/cwbudde/algo-rppg/internal/render"
	"github.com/cwbudde/algo-rppg/internal/store"
)

type options struct {
	db      string
	session string
	html    string
	csv     string
	list    bool
	assets  string
}

func main() {
	var o options
	flag.StringVar(&o.db, "db", "rppg.db", "SQLite database written by rppgd")
	flag.StringVar(&o.session, "session", "", "session id (default: most recent)")
	flag.StringVar(&o.html, "html", "", "write an HTML chart page to this file")
	flag.StringVar(&o.csv, "csv", "", "write per-frame R,G,B CSV to this file")
	flag.BoolVar(&o.list, "list", false, "list recorded sessions")
	flag.StringVar(&o.assets, "assets", "", "override the echarts assets host")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rppg-report -db FILE [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Renders a recorded rPPG session.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	st, err := store.Open(o.db, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := run(os.Stdout, st, o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, st *store.Store, o options) error {
	if o.list {
		return listSessions(w, st)
	}

	rec, err := pick(st, o.session)
	if err != nil {
		return err
	}
	samples, err := st.Samples(rec.ID)
	if err != nil {
		return err
	}
	ests, err := st.Estimates(rec.ID)
	if err != nil {
		return err
	}

	if o.html != "" {
		err := writeFile(o.html, func(f io.Writer) error {
			return render.Session(f, rec, samples, ests, render.Options{AssetsHost: o.assets})
		})
		if err != nil {
			return err
		}
	}

	if o.csv != "" {
		rows := make([]csvexport.Row, len(samples))
		for i, s := range samples {
			rows[i] = csvexport.Row{Timestamp: s.Timestamp, Channels: s.Channels, Raw: s.Raw, Filtered: s.Filtered}
		}
		if err := writeFile(o.csv, func(f io.Writer) error { return csvexport.WriteAll(f, rows) }); err != nil {
			return err
		}
	}

	return printSession(w, st, rec, len(samples), len(ests))
}

func pick(st *store.Store, id string) (store.SessionRecord, error) {
	if id == "" {
		return st.Latest()
	}
	return st.Session(id)
}

func listSessions(w io.Writer, st *store.Store) error {
	sessions, err := st.Sessions()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Session\tStarted\tDuration\tState\tSamples\tLast BPM\n")
	fmt.Fprintf(tw, "-------\t-------\t--------\t-----\t-------\t--------\n")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Started.Format(time.RFC3339), duration(s), s.FinalState, s.Samples, bpm(s))
	}
	return tw.Flush()
}

func printSession(w io.Writer, st *store.Store, rec store.SessionRecord, samples, estimates int) error {
	diags, err := st.Diagnostics(rec.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "session   %s\n", rec.ID)
	fmt.Fprintf(w, "started   %s\n", rec.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "duration  %s\n", duration(rec))
	fmt.Fprintf(w, "state     %s %s\n", rec.FinalState, rec.Reason)
	fmt.Fprintf(w, "ticks     %d (skipped %d)\n", rec.Ticks, rec.Skipped)
	fmt.Fprintf(w, "samples   %d recorded\n", samples)
	fmt.Fprintf(w, "estimates %d recorded\n", estimates)
	fmt.Fprintf(w, "last BPM  %s\n", bpm(rec))
	for _, d := range diags {
		fmt.Fprintf(w, "diag      %s x%d\n", d.Kind, d.Count)
	}
	return nil
}

func duration(s store.SessionRecord) string {
	if s.Stopped.IsZero() {
		return "-"
	}
	return s.Stopped.Sub(s.Started).Round(time.Millisecond).String()
}

func bpm(s store.SessionRecord) string {
	if !s.HasBPM {
		return "-"
	}
	return fmt.Sprintf("%.1f (conf %.2f)", s.LastBPM, s.Confidence)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
