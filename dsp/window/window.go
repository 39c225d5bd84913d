// Package window builds the half-length analysis/synthesis windows the
// freeze engine uses for overlap-add.
//
// Every kind here is defined over the half-window grid
// x = (n+1/2)*2*pi/N for n in [0, N/2), and each carries a minimum hop
// count below which constant-overlap-add can't hold unit gain. Build
// normalizes the raw coefficients so that, once mirrored into the full
// symmetric N-sample window and overlap-added at the requested hop
// count, total energy is exactly 1.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type selects one of the five supported window shapes.
type Type int

const (
	// TypeSine is a half-sine taper, sin(x/2). Needs at least 2 hops.
	TypeSine Type = iota
	// TypeHann is the raised-cosine Hann window. Needs at least 3 hops.
	TypeHann
	// TypeHamming is the Hamming-weighted raised cosine. Needs at least 3 hops.
	TypeHamming
	// TypeBlackman is a 3-term cosine window. Needs at least 5 hops.
	TypeBlackman
	// TypeNuttall is the 4-term minimum-sidelobe window. Needs at least 7 hops.
	TypeNuttall
)

// String returns the CLI spelling of t ("sine", "hann", ...).
func (t Type) String() string {
	switch t {
	case TypeSine:
		return "sine"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	case TypeNuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window.Type(%d)", int(t))
	}
}

func (t Type) valid() bool {
	return t >= TypeSine && t <= TypeNuttall
}

// MinHops returns the minimum hop count H this window kind tolerates
// without constant-overlap-add breaking down.
func (t Type) MinHops() int {
	switch t {
	case TypeSine:
		return 2
	case TypeHann, TypeHamming:
		return 3
	case TypeBlackman:
		return 5
	case TypeNuttall:
		return 7
	default:
		return 0
	}
}

// ParseType maps a CLI -window: argument to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "sine":
		return TypeSine, nil
	case "hann":
		return TypeHann, nil
	case "hamming":
		return TypeHamming, nil
	case "blackman":
		return TypeBlackman, nil
	case "nuttall":
		return TypeNuttall, nil
	default:
		return 0, fmt.Errorf("window: %w: %q", errUnknownType, s)
	}
}

// Build returns a new unit-gain half window of length half for a frame
// of size N = 2*half, overlap-added at hops hops.
func Build(t Type, half, hops int) ([]float64, error) {
	dst := make([]float64, half)
	if err := BuildInto(dst, t, half, hops); err != nil {
		return nil, err
	}

	return dst, nil
}

// BuildInto fills dst[:half] with the unit-gain half window, avoiding an
// allocation beyond dst itself — dsp/freeze calls this against a slice
// carved out of the session's single backing buffer.
func BuildInto(dst []float64, t Type, half, hops int) error {
	if err := validate(t, half, hops); err != nil {
		return err
	}

	if len(dst) < half {
		return fmt.Errorf("window: %w: len=%d, half=%d", errBufferTooShort, len(dst), half)
	}

	n := 2 * half
	var sumSquares float64

	for i := 0; i < half; i++ {
		v := evaluate(t, i, n)
		dst[i] = v
		sumSquares += v * v
	}

	norm := unitGainNorm(sumSquares, hops)
	vecmath.ScaleBlockInPlace(dst[:half], norm)

	return nil
}

// unitGainNorm returns the factor that rescales a half window with the
// given sum-of-squares so that the mirrored full window overlap-added
// at hops hops reaches unit gain: sum_{k=0..N-1} full[k]^2 * H == 1.
// The full window's sum of squares is exactly twice the half window's
// (every half-window sample appears at two mirrored positions), hence
// the factor of 2 here.
func unitGainNorm(halfSumSquares float64, hops int) float64 {
	return math.Sqrt(1.0 / (2 * halfSumSquares * float64(hops)))
}

func evaluate(t Type, n, total int) float64 {
	x := (float64(n) + 0.5) * 2 * math.Pi / float64(total)

	switch t {
	case TypeSine:
		return math.Sin(x / 2)
	case TypeHann:
		return 0.5 - 0.5*math.Cos(x)
	case TypeHamming:
		return 25.0/46.0 - 21.0/46.0*math.Cos(x)
	case TypeBlackman:
		return 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
	case TypeNuttall:
		return 0.3635819 - 0.4891775*math.Cos(x) + 0.1365995*math.Cos(2*x) - 0.0106411*math.Cos(3*x)
	default:
		return 0
	}
}

// At returns the value of the full, symmetric N=2*len(half) window at
// index k in [0, 2*len(half)).
func At(half []float64, k int) float64 {
	n := len(half)
	if k < n {
		return half[k]
	}

	return half[2*n-1-k]
}
