// Package dct implements the scaled type-II and type-IV discrete cosine
// transforms that internal/centerfft builds its centered real FFT from.
//
// Both kernels are direct O(N^2) summations driven by the half-bin
// cosine/sine table in internal/trig: each input row's full set of N
// output angles is generated from a single table lookup plus an
// angle-addition recurrence, so the only trigonometric calls made at
// transform time happen inside trig.Get's cache-miss path. A radix-2
// factorization would cut the cost to O(N log N); the direct summation
// is kept because the transform runs once per hop, not per sample, and
// a drop-in replacement can slot in behind the same signatures.
//
// "Scaled" means the output is the orthonormal transform multiplied by a
// fixed per-kernel constant:
//
//   - DCT2 uses sqrt(N/2): every bin equals the raw cosine sum except bin
//     0, which is divided by sqrt(2) (the usual DC half-weighting).
//   - DCT4 uses the orthonormal transform unscaled. DCT-IV's orthonormal
//     matrix is both symmetric and orthogonal, so unscaled DCT4 is an
//     exact involution (DCT4(DCT4(x)) == x); internal/centerfft depends
//     on that exact property for its gain-free round trip.
package dct

import (
	"math"

	"github.com/cwbudde/spectrice/internal/cpu"
)

// SIMDLevel reports the SIMD tier DCT2/DCT4 would dispatch to on the
// current CPU. Both kernels above are scalar regardless of the result:
// this is the hook a vectorized row-butterfly would gate on.
func SIMDLevel() cpu.SIMDLevel {
	return cpu.Level()
}

// DCT2 computes the scaled type-II DCT of buf[:n] into buf[:n], using
// tmp[:n] as scratch. buf and tmp must be distinct and at least n long;
// n must be a power of two, n >= 8.
func DCT2(buf, tmp []float64, n int) error {
	if err := validate(buf, tmp, n); err != nil {
		return err
	}

	out := tmp[:n]
	for k := range out {
		out[k] = 0
	}

	table := trigTable(n)
	for row := 0; row < n; row++ {
		x := buf[row]
		if x == 0 {
			continue
		}

		c1, s1 := doubleAngle(table.Cos[row], table.Sin[row])
		cosK, sinK := 1.0, 0.0

		for k := 0; k < n; k++ {
			out[k] += x * cosK
			cosK, sinK = cosK*c1-sinK*s1, sinK*c1+cosK*s1
		}
	}

	out[0] /= math.Sqrt2

	copy(buf[:n], out)

	return nil
}

// DCT4 computes the scaled (orthonormal) type-IV DCT of buf[:n] into
// buf[:n], using tmp[:n] as scratch. Same size constraints as DCT2.
//
// DCT4 is its own inverse: calling it twice in succession on unmodified
// output reproduces the original input to floating-point precision.
func DCT4(buf, tmp []float64, n int) error {
	if err := validate(buf, tmp, n); err != nil {
		return err
	}

	out := tmp[:n]
	for k := range out {
		out[k] = 0
	}

	table := trigTable(n)
	scale := math.Sqrt(2.0 / float64(n))

	for row := 0; row < n; row++ {
		x := buf[row]
		if x == 0 {
			continue
		}

		c1, s1 := doubleAngle(table.Cos[row], table.Sin[row])
		cosK, sinK := table.Cos[row], table.Sin[row]

		for k := 0; k < n; k++ {
			out[k] += x * cosK
			cosK, sinK = cosK*c1-sinK*s1, sinK*c1+cosK*s1
		}
	}

	for k := 0; k < n; k++ {
		out[k] *= scale
	}

	copy(buf[:n], out)

	return nil
}

// doubleAngle turns the half-angle (c, s) = (cos θ, sin θ) stored in the
// trig table into the full-step rotator (cos 2θ, sin 2θ) used to advance
// the per-row angle one output bin at a time.
func doubleAngle(c, s float64) (float64, float64) {
	return c*c - s*s, 2 * c * s
}
