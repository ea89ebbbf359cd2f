package sampler

import (
	"fmt"
	"math"
	"strings"
)

// Extractor reduces channel means to the scalar feature that is filtered
// and analysed downstream.
type Extractor func(RGB) float64

// Green returns the green-channel mean.
func Green(c RGB) float64 { return c.G }

// Red returns the red-channel mean.
func Red(c RGB) float64 { return c.R }

// Chrom returns the green minus red chrominance normalised by the mean
// luminance (R+G+B)/3, which cancels slow global illumination changes.
// It yields NaN for a black region.
func Chrom(c RGB) float64 {
	lum := (c.R + c.G + c.B) / 3
	if lum == 0 {
		return math.NaN()
	}

	return (c.G - c.R) / lum
}

var extractors = map[string]Extractor{
	"green":  Green,
	"red":    Red,
	"chrom":  Chrom,
	"":       Green,
	"g":      Green,
	"r":      Red,
	"chroma": Chrom,
}

// ExtractorNames lists the canonical extractor names.
func ExtractorNames() []string {
	return []string{"chrom", "green", "red"}
}

// ExtractorByName resolves a case-insensitive extractor name. The empty
// string selects [Green].
func ExtractorByName(name string) (Extractor, error) {
	e, ok := extractors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("sampler: unknown extractor %q (want one of %s)", name, strings.Join(ExtractorNames(), ", "))
	}

	return e, nil
}
