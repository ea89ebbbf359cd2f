package sampler

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

var (
	// ErrEmptyFrame is returned for a frame without pixels or with
	// non-positive dimensions.
	ErrEmptyFrame = errors.New("sampler: empty frame")
	// ErrShortBuffer is returned when the pixel buffer is smaller than the
	// dimensions and stride require.
	ErrShortBuffer = errors.New("sampler: pixel buffer shorter than frame geometry")
	// ErrROIOutside is returned when the region of interest does not overlap
	// the frame.
	ErrROIOutside = errors.New("sampler: region of interest outside frame")
	// ErrNonFinite is returned when the extracted feature is NaN or Inf.
	ErrNonFinite = errors.New("sampler: non-finite feature value")
)

// BytesPerPixel is the size of one packed RGB24 pixel.
const BytesPerPixel = 3

// Frame is one captured image in packed 8-bit RGB order.
type Frame struct {
	// Pixels holds rows of Width*3 bytes, each row starting Stride bytes
	// after the previous one.
	Pixels []byte
	Width  int
	Height int
	// Stride is the row pitch in bytes. Zero means tightly packed.
	Stride int
	// Timestamp is the capture time (source clock, not processing time).
	Timestamp time.Time
}

// Bounds returns the frame rectangle in pixel coordinates.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f Frame) stride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * BytesPerPixel
}

func (f Frame) validate() error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) == 0 {
		return fmt.Errorf("%w: %dx%d, %d bytes", ErrEmptyFrame, f.Width, f.Height, len(f.Pixels))
	}

	stride := f.stride()
	if stride < f.Width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d below row size %d", ErrShortBuffer, stride, f.Width*BytesPerPixel)
	}

	need := (f.Height-1)*stride + f.Width*BytesPerPixel
	if len(f.Pixels) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(f.Pixels), need)
	}

	return nil
}

// RGB holds per-channel means on the 0..255 scale.
type RGB struct {
	R, G, B float64
}

// Sample is one scalar observation derived from one frame.
type Sample struct {
	Timestamp time.Time
	Channels  RGB
	Value     float64
}

// MeanRGB averages every pixel of f inside roi. An empty roi selects the
// whole frame; otherwise roi is clipped to the frame bounds.
func MeanRGB(f Frame, roi image.Rectangle) (RGB, error) {
	if err := f.validate(); err != nil {
		return RGB{}, err
	}

	region := f.Bounds()
	if !roi.Empty() {
		region = roi.Intersect(region)
		if region.Empty() {
			return RGB{}, fmt.Errorf("%w: roi %v, frame %v", ErrROIOutside, roi, f.Bounds())
		}
	}

	stride := f.stride()
	var r, g, b uint64
	for y := region.Min.Y; y < region.Max.Y; y++ {
		row := f.Pixels[y*stride+region.Min.X*BytesPerPixel : y*stride+region.Max.X*BytesPerPixel]
		for i := 0; i < len(row); i += BytesPerPixel {
			r += uint64(row[i])
			g += uint64(row[i+1])
			b += uint64(row[i+2])
		}
	}

	n := float64(region.Dx() * region.Dy())

	return RGB{R: float64(r) / n, G: float64(g) / n, B: float64(b) / n}, nil
}

// Sampler converts frames into samples. It is immutable after construction
// and safe for concurrent use.
type Sampler struct {
	roi     image.Rectangle
	extract Extractor
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithROI restricts averaging to roi. An empty rectangle means the whole
// frame.
func WithROI(roi image.Rectangle) Option {
	return func(s *Sampler) { s.roi = roi }
}

// WithExtractor sets the feature extractor. nil keeps the default.
func WithExtractor(e Extractor) Option {
	return func(s *Sampler) {
		if e != nil {
			s.extract = e
		}
	}
}

// New returns a Sampler using the whole frame and the [Green] extractor
// unless configured otherwise.
func New(opts ...Option) *Sampler {
	s := &Sampler{extract: Green}
	for _, o := range opts {
		o(s)
	}

	return s
}

// ROI returns the configured region of interest.
func (s *Sampler) ROI() image.Rectangle { return s.roi }

// Sample reduces one frame to a Sample stamped with the frame's timestamp.
// It never fabricates a value: any problem with the frame is an error.
func (s *Sampler) Sample(f Frame) (Sample, error) {
	rgb, err := MeanRGB(f, s.roi)
	if err != nil {
		return Sample{}, err
	}

	v := s.extract(rgb)
	if !core.IsFinite(v) {
		return Sample{}, fmt.Errorf("%w: %v from %+v", ErrNonFinite, v, rgb)
	}

	return Sample{Timestamp: f.Timestamp, Channels: rgb, Value: v}, nil
}
