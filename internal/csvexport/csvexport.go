// Package csvexport writes per-frame colour means and signal values as CSV.
package csvexport

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/cwbudde/algo-rppg/ppg/pipeline"
	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

// Header is the first record of every export.
var Header = []string{"timestamp", "R", "G", "B", "raw", "filtered"}

// Row is one exported frame.
type Row struct {
	Timestamp time.Time
	Channels  sampler.RGB
	Raw       float64
	Filtered  float64
}

// Writer appends rows to an io.Writer. It is a pipeline.Sink for live
// updates and safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *csv.Writer
	header bool
	err    error
}

// NewWriter returns a Writer on w. The header is written with the first row.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one row.
func (w *Writer) Write(r Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if !w.header {
		w.header = true
		if err := w.w.Write(Header); err != nil {
			w.err = err
			return err
		}
	}
	if err := w.w.Write(record(r)); err != nil {
		w.err = err
	}
	return w.err
}

// Emit implements pipeline.Sink. Rows are flushed every time so a crashed
// daemon leaves a usable file.
func (w *Writer) Emit(e pipeline.Event) {
	lu, ok := e.(pipeline.LiveUpdate)
	if !ok {
		return
	}
	if w.Write(Row{Timestamp: lu.Timestamp, Channels: lu.Channels, Raw: lu.Raw, Filtered: lu.Filtered}) == nil {
		_ = w.Flush()
	}
}

// Flush writes buffered rows and returns the first error seen.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.w.Flush()
	if w.err == nil {
		w.err = w.w.Error()
	}
	return w.err
}

// WriteAll writes a complete export of rows, header included.
func WriteAll(out io.Writer, rows []Row) error {
	w := NewWriter(out)
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

func record(r Row) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		formatFloat(r.Channels.R),
		formatFloat(r.Channels.G),
		formatFloat(r.Channels.B),
		formatFloat(r.Raw),
		formatFloat(r.Filtered),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
