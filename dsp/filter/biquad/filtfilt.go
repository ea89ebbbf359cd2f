package biquad

// PadLen returns the number of samples FiltFilt extends each edge by,
// following the usual 3*(2*sections+1) rule for cascaded biquads.
func (c *Chain) PadLen() int {
	return 3 * (2*len(c.sections) + 1)
}

// FiltFilt applies the chain forward and then backward over x and returns
// the zero-phase result in a new slice. x is not modified.
//
// Both edges are extended by an odd reflection of PadLen samples (fewer for
// short inputs) and every pass starts from the steady state of its first
// input, which suppresses start-up transients. The chain's own delay-line
// state is saved and restored, so streaming use of the same chain is
// unaffected.
func (c *Chain) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}

	pad := c.PadLen()
	if pad > n-1 {
		pad = n - 1
	}

	ext := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
		ext[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	saved := c.State()

	c.PrimeSteadyState(ext[0])
	c.ProcessBlock(ext)
	reverse(ext)
	c.PrimeSteadyState(ext[0])
	c.ProcessBlock(ext)
	reverse(ext)

	c.SetState(saved)

	out := make([]float64, n)
	copy(out, ext[pad:pad+n])

	return out
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
