//go:build amd64

package cpu

import "golang.org/x/sys/cpu"

func detectLevel() SIMDLevel {
	switch {
	case cpu.X86.HasAVX2:
		return SIMDAVX2
	case cpu.X86.HasAVX:
		return SIMDAVX
	default:
		// SSE2 is part of the amd64 baseline.
		return SIMDSSE2
	}
}
