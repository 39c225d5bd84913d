//go:build arm64

package cpu

import "golang.org/x/sys/cpu"

func detectLevel() SIMDLevel {
	if cpu.ARM64.HasASIMD {
		return SIMDNEON
	}

	return SIMDNone
}
