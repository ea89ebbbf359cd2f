package biquad

import "math"

// Coefficients of one second-order section with a0 normalised to 1.
//
// Processing uses Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // numerator
	A1, A2     float64 // denominator
}

// DCGain returns H(1), the gain for a constant input, or NaN when the
// section has a pole at z = 1.
func (c Coefficients) DCGain() float64 {
	den := 1 + c.A1 + c.A2
	if den == 0 {
		return math.NaN()
	}

	return (c.B0 + c.B1 + c.B2) / den
}

// Stable reports whether both poles lie strictly inside the unit circle.
// A band edge designed too close to DC or Nyquist can push a pole onto it.
func (c Coefficients) Stable() bool {
	return math.Abs(c.A2) < 1 && math.Abs(c.A1) < 1+c.A2
}

// Section is one biquad with its delay line. The zero value passes nothing;
// set Coefficients before use.
type Section struct {
	Coefficients

	d0, d1 float64
}

// ProcessSample filters one sample.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y

	return y
}

// ProcessBlock filters buf in place.
func (s *Section) ProcessBlock(buf []float64) {
	c := s.Coefficients
	d0, d1 := s.d0, s.d1

	for i, x := range buf {
		y := c.B0*x + d0
		d0 = c.B1*x - c.A1*y + d1
		d1 = c.B2*x - c.A2*y
		buf[i] = y
	}

	s.d0, s.d1 = d0, d1
}

// PrimeSteadyState loads the delay line with the state reached after an
// endless constant input x and returns the matching output. A section with
// a pole at DC is cleared instead and returns 0.
func (s *Section) PrimeSteadyState(x float64) float64 {
	g := s.DCGain()
	if math.IsNaN(g) {
		s.Reset()
		return 0
	}

	y := g * x
	s.d1 = s.B2*x - s.A2*y
	s.d0 = y - s.B0*x

	return y
}

// Reset zeroes the delay line.
func (s *Section) Reset() {
	s.d0, s.d1 = 0, 0
}

// State returns the delay line as [d0, d1].
func (s *Section) State() [2]float64 {
	return [2]float64{s.d0, s.d1}
}

// SetState restores a delay line returned by State.
func (s *Section) SetState(st [2]float64) {
	s.d0, s.d1 = st[0], st[1]
}

func (s *Section) finite() bool {
	return !math.IsNaN(s.d0) && !math.IsInf(s.d0, 0) && !math.IsNaN(s.d1) && !math.IsInf(s.d1, 0)
}
