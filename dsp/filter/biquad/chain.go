package biquad

// Chain runs a series of sections, the output of each feeding the next.
// The pulse band-pass is a high-pass cascade followed by a low-pass
// cascade in one Chain.
type Chain struct {
	sections []Section
}

// NewChain returns a cascade with one zero-state section per coefficient
// set.
func NewChain(coeffs []Coefficients) *Chain {
	c := &Chain{}
	c.Retune(coeffs)
	return c
}

// ProcessSample filters one sample through every section.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// ProcessBlock filters buf in place, one section at a time.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// PrimeSteadyState primes each section with the steady output of the one
// before it, so that a following ProcessSample(x) returns the DC response
// of the cascade without a start-up transient.
func (c *Chain) PrimeSteadyState(x float64) {
	for i := range c.sections {
		x = c.sections[i].PrimeSteadyState(x)
	}
}

// Reset zeroes every delay line.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// Order is twice the number of sections.
func (c *Chain) Order() int { return 2 * len(c.sections) }

// NumSections returns the number of sections.
func (c *Chain) NumSections() int { return len(c.sections) }

// Retune swaps in new coefficients. When the section count is unchanged
// the delay lines are kept, so a sampling-rate redesign does not restart
// the filter; otherwise the chain is rebuilt with zero state.
func (c *Chain) Retune(coeffs []Coefficients) {
	if len(coeffs) != len(c.sections) {
		c.sections = make([]Section, len(coeffs))
	}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}
}

// State returns a snapshot of every delay line.
func (c *Chain) State() [][2]float64 {
	st := make([][2]float64, len(c.sections))
	for i := range c.sections {
		st[i] = c.sections[i].State()
	}

	return st
}

// SetState restores a snapshot taken by State on a chain with the same
// number of sections.
func (c *Chain) SetState(st [][2]float64) {
	for i := range c.sections {
		c.sections[i].SetState(st[i])
	}
}

// StateFinite reports whether every delay line is finite. A chain driven
// into overflow must be Reset before further use.
func (c *Chain) StateFinite() bool {
	for i := range c.sections {
		if !c.sections[i].finite() {
			return false
		}
	}

	return true
}
