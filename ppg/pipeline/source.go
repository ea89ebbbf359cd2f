package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rppg/ppg/sampler"
)

var (
	// ErrNoFrameAvailable is a transient acquisition failure; the tick is
	// skipped.
	ErrNoFrameAvailable = errors.New("pipeline: no frame available")
	// ErrSourceUnavailable is a fatal acquisition failure; the session ends
	// in the Error state.
	ErrSourceUnavailable = errors.New("pipeline: frame source unavailable")
)

// Source delivers frames. AcquireFrame must return promptly once ctx is
// done.
type Source interface {
	AcquireFrame(ctx context.Context) (sampler.Frame, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (sampler.Frame, error)

// AcquireFrame calls f(ctx).
func (f SourceFunc) AcquireFrame(ctx context.Context) (sampler.Frame, error) {
	return f(ctx)
}

// AcquisitionError reports a fatal source failure. It matches
// ErrSourceUnavailable.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("pipeline: acquisition failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *AcquisitionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSourceUnavailable.
func (e *AcquisitionError) Is(target error) bool { return target == ErrSourceUnavailable }

// fatal reports whether err must end the session.
func fatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
