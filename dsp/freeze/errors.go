package freeze

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig reports a configuration parameter out of range, a
	// non-power-of-two size, a window/hop combination the window kind
	// can't support, or a snapshot requested together with phase freezing.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBlockSize reports an input or output block whose length isn't
	// exactly BlockSize*Channels.
	ErrBlockSize = errors.New("block length must be BlockSize*Channels")
)

var (
	errChannels          = errors.New("channels must be in [1, 255]")
	errBlockSize         = errors.New("block size must be a power of two in [16, 65536]")
	errHops              = errors.New("hop count must be a power of two in [2, block size]")
	errFreezeRange       = errors.New("freeze point must be >= freeze start >= block size")
	errFreezeFactor      = errors.New("freeze factor must be in [0, 1]")
	errSnapshotPlusPhase = errors.New("a snapshot cannot be combined with phase-step freezing")
)

func wrapConfig(err error) error {
	return fmt.Errorf("freeze: %w: %w", ErrInvalidConfig, err)
}
