package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeTukey
)

// Metadata holds spectral properties of a window type.
type Metadata struct {
	Name            string
	ENBW            float64 // equivalent noise bandwidth in bins
	HighestSidelobe float64 // dB relative to the main lobe
	CoherentGain    float64
	// MainLobeBins is the half-width of the main lobe, in DFT bins of the
	// unpadded frame, from the peak to the first null.
	MainLobeBins float64
}

var metadataByType = map[Type]Metadata{
	TypeRectangular: {Name: "Rectangular", ENBW: 1, HighestSidelobe: -13.26, CoherentGain: 1, MainLobeBins: 1},
	TypeHann:        {Name: "Hann", ENBW: 1.5, HighestSidelobe: -31.47, CoherentGain: 0.5, MainLobeBins: 2},
	TypeHamming:     {Name: "Hamming", ENBW: 1.36, HighestSidelobe: -42.68, CoherentGain: 0.54, MainLobeBins: 2},
	TypeBlackman:    {Name: "Blackman", ENBW: 1.73, HighestSidelobe: -58.11, CoherentGain: 0.42, MainLobeBins: 3},
	TypeTukey:       {Name: "Tukey", ENBW: 1.22, HighestSidelobe: -15.1, CoherentGain: 0.75, MainLobeBins: 1.5},
}

var (
	hannCoeffs     = []float64{0.5, -0.5}
	hammingCoeffs  = []float64{0.54, -0.46}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha    float64
	periodic bool
}

func defaultConfig() config {
	return config{alpha: 0.5}
}

// WithAlpha sets the taper fraction of the Tukey window, clamped to [0,1].
func WithAlpha(v float64) Option {
	return func(c *config) {
		c.alpha = math.Max(0, math.Min(1, v))
	}
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length, cfg.periodic), cfg)
	}

	return out
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// Info returns static metadata for a window type.
func Info(t Type) Metadata {
	return metadataByType[t]
}

// EquivalentNoiseBandwidth returns the ENBW in bins for a window.
func EquivalentNoiseBandwidth(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, ErrNoCoefficients
	}

	var sum, sumSquares float64
	for _, c := range coeffs {
		sum += c
		sumSquares += c * c
	}

	if sum == 0 {
		return 0, ErrZeroGain
	}

	return float64(len(coeffs)) * sumSquares / (sum * sum), nil
}

// CoherentGain returns the mean of the coefficients, the amplitude factor a
// windowed sinusoid is scaled by at its spectral peak.
func CoherentGain(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, ErrNoCoefficients
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs)), nil
}

func evalWindow(t Type, x float64, cfg config) float64 {
	x = math.Max(0, math.Min(1, x))

	switch t {
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	case TypeTukey:
		return tukeyAt(x, cfg.alpha)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}

func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}

	if alpha >= 1 {
		return cosineFromCoeffs(x, hannCoeffs)
	}

	a := alpha / 2
	switch {
	case x < a:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x <= 1-a:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-2/alpha+1)))
	}
}
