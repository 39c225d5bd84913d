// Package centerfft implements the centered real DFT the freeze engine
// runs every hop: a DFT whose sample grid sits symmetrically around zero
// rather than starting at it, built from two half-size DCT-IVs instead
// of a generic complex FFT. Centering shifts the frequency grid by half
// a bin, which is what keeps the per-bin phase bookkeeping in dsp/freeze
// free of the usual half-sample bias.
//
// Forward folds the time-domain block into a symmetric half and an
// antisymmetric half (with a sign flip on every other antisymmetric
// sample, the DST-IV convention), runs each half through DCT-IV, and
// interleaves the two half-size results into N/2 complex {re,im} bins.
// Inverse is the exact structural mirror, with a 1/2 in its recombine
// step so that Inverse(Forward(x)) == x to floating-point precision:
// the involutory DCT-IV in internal/dct contributes no scale of its
// own, so the transform pair introduces no gain for callers to undo.
package centerfft

import "github.com/cwbudde/spectrice/internal/dct"

// Forward transforms the time-domain block buf[:n] into n/2 complex
// bins, stored as interleaved {re, im} pairs in buf[:n]. tmp is scratch,
// at least scratchLen(n) long and distinct from buf. n must be a power
// of two, n >= 16.
func Forward(buf, tmp []float64, n int) error {
	if err := validate(buf, tmp, n); err != nil {
		return err
	}

	half := n / 2
	sym := tmp[0:half]
	anti := tmp[half:n]
	dctScratch := tmp[n : n+half]

	for idx := 0; idx < half; idx++ {
		a := buf[half+idx]
		b := buf[half-1-idx]

		sym[idx] = a + b

		d := a - b
		if idx%2 != 0 {
			d = -d
		}

		anti[idx] = d
	}

	if err := dct.DCT4(sym, dctScratch, half); err != nil {
		return err
	}

	if err := dct.DCT4(anti, dctScratch, half); err != nil {
		return err
	}

	for i := 0; i < half; i++ {
		buf[2*i] = sym[i]
		buf[2*i+1] = anti[half-1-i]
	}

	return nil
}

// Inverse is the structural dual of Forward: buf[:n] holds n/2
// interleaved {re, im} pairs and is overwritten with the n-sample
// time-domain block. Same scratch and size requirements as Forward.
func Inverse(buf, tmp []float64, n int) error {
	if err := validate(buf, tmp, n); err != nil {
		return err
	}

	half := n / 2
	sym := tmp[0:half]
	anti := tmp[half:n]
	dctScratch := tmp[n : n+half]

	for i := 0; i < half; i++ {
		sym[i] = buf[2*i]
		anti[half-1-i] = buf[2*i+1]
	}

	if err := dct.DCT4(sym, dctScratch, half); err != nil {
		return err
	}

	if err := dct.DCT4(anti, dctScratch, half); err != nil {
		return err
	}

	for idx := 0; idx < half; idx++ {
		sign := 1.0
		if idx%2 != 0 {
			sign = -1.0
		}

		a := (sym[idx] + sign*anti[idx]) / 2
		b := (sym[idx] - sign*anti[idx]) / 2

		buf[half+idx] = a
		buf[half-1-idx] = b
	}

	return nil
}

// ScratchLen returns the minimum tmp length Forward/Inverse require for
// a transform of size n.
func ScratchLen(n int) int {
	return scratchLen(n)
}
