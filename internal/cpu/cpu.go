// Package cpu reports the widest SIMD tier the current processor
// supports, so DSP kernels can gate a vectorized implementation on it.
// Detection runs once, on first use, and is cached.
package cpu

import "sync"

// SIMDLevel identifies a vector instruction set extension.
type SIMDLevel int

const (
	SIMDNone SIMDLevel = iota
	SIMDSSE2
	SIMDAVX
	SIMDAVX2
	SIMDNEON
)

// String returns the conventional spelling of the extension, or "none".
func (l SIMDLevel) String() string {
	switch l {
	case SIMDNone:
		return "none"
	case SIMDSSE2:
		return "SSE2"
	case SIMDAVX:
		return "AVX"
	case SIMDAVX2:
		return "AVX2"
	case SIMDNEON:
		return "NEON"
	default:
		return "unknown"
	}
}

var (
	levelOnce sync.Once
	level     SIMDLevel
)

// Level returns the best SIMD tier the current processor supports.
func Level() SIMDLevel {
	levelOnce.Do(func() {
		level = detectLevel()
	})

	return level
}
