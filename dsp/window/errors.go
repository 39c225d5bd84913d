package window

import (
	"errors"
	"fmt"
)

var (
	errUnknownType    = errors.New("unknown window type")
	errHopsBelowMin   = errors.New("hop count below this window's minimum")
	errBadHalfLength  = errors.New("half-length must be positive")
	errBufferTooShort = errors.New("destination buffer shorter than half-length")
)

func validate(t Type, half, hops int) error {
	if !t.valid() {
		return fmt.Errorf("window: %w: %d", errUnknownType, int(t))
	}

	if half <= 0 {
		return fmt.Errorf("window: %w: %d", errBadHalfLength, half)
	}

	if min := t.MinHops(); hops < min {
		return fmt.Errorf("window: %s requires hops >= %d, got %d: %w", t, min, hops, errHopsBelowMin)
	}

	return nil
}
