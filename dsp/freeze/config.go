package freeze

import "github.com/cwbudde/spectrice/dsp/window"

const (
	minChannels = 1
	maxChannels = 255
	minBlock    = 16
	maxBlock    = 65536
	minHops     = 2
)

// Config is the immutable, validated description of one freeze session.
// Every field here corresponds to the session's "immutable config" in the
// data model: it never changes after [New] returns.
type Config struct {
	// Channels is the interleaved channel count, 1..255.
	Channels int
	// BlockSize is the STFT frame size N: a power of two, 16..65536.
	BlockSize int
	// Hops is the number of STFT hops per block H: a power of two, >= 2,
	// <= BlockSize. HopSize = BlockSize/Hops.
	Hops int
	// Window selects the analysis/synthesis window shape.
	Window window.Type
	// FreezeStart is the sample position S where the crossfade ramp
	// begins. Must satisfy FreezePoint >= FreezeStart >= BlockSize.
	FreezeStart int
	// FreezePoint is the sample position P where the ramp saturates at
	// full strength.
	FreezePoint int
	// FreezeFactor F in [0,1] scales the crossfade ramp globally.
	FreezeFactor float64
	// FreezeAmp enables the per-bin amplitude freeze.
	FreezeAmp bool
	// FreezePhase enables the per-bin phase-step freeze. Mutually
	// exclusive with passing a snapshot to [New].
	FreezePhase bool
}

// HopSize returns BlockSize/Hops.
func (c Config) HopSize() int {
	return c.BlockSize / c.Hops
}

func (c Config) validate(haveSnapshot bool) error {
	if c.Channels < minChannels || c.Channels > maxChannels {
		return wrapConfig(errChannels)
	}

	if c.BlockSize < minBlock || c.BlockSize > maxBlock || !isPowerOfTwo(c.BlockSize) {
		return wrapConfig(errBlockSize)
	}

	if c.Hops < minHops || c.Hops > c.BlockSize || !isPowerOfTwo(c.Hops) {
		return wrapConfig(errHops)
	}

	if min := c.Window.MinHops(); c.Hops < min {
		return wrapConfig(errHops)
	}

	if c.FreezePoint < c.FreezeStart || c.FreezeStart < c.BlockSize {
		return wrapConfig(errFreezeRange)
	}

	if c.FreezeFactor < 0 || c.FreezeFactor > 1 {
		return wrapConfig(errFreezeFactor)
	}

	if haveSnapshot && c.FreezePhase {
		return wrapConfig(errSnapshotPlusPhase)
	}

	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
