package biquad

import (
	"math"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// MagnitudeSquared returns |H(f)|^2 of the section at freqHz for the given
// sampling rate, in closed form.
func (c Coefficients) MagnitudeSquared(freqHz, sampleRate float64) float64 {
	cw := 2 * math.Cos(2*math.Pi*freqHz/sampleRate)

	num := (c.B0-c.B2)*(c.B0-c.B2) + c.B1*c.B1 + (c.B1*(c.B0+c.B2)+c.B0*c.B2*cw)*cw
	den := (1-c.A2)*(1-c.A2) + c.A1*c.A1 + (c.A1*(c.A2+1)+cw*c.A2)*cw

	return num / den
}

// PowerGain returns |H(f)|^2 of the whole cascade.
func (c *Chain) PowerGain(freqHz, sampleRate float64) float64 {
	g := 1.0
	for i := range c.sections {
		g *= c.sections[i].MagnitudeSquared(freqHz, sampleRate)
	}

	return g
}

// MagnitudeDB returns the attenuation of one causal pass in dB. A
// camera-rate band-pass is typically inspected at 0.7 and 3.3 Hz, where it
// sits 3 dB down.
func (c *Chain) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return core.LinearPowerToDB(c.PowerGain(freqHz, sampleRate))
}

// ZeroPhaseMagnitudeDB is the response of FiltFilt: the forward and the
// backward pass each contribute MagnitudeDB.
func (c *Chain) ZeroPhaseMagnitudeDB(freqHz, sampleRate float64) float64 {
	return 2 * c.MagnitudeDB(freqHz, sampleRate)
}
