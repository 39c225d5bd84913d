package freeze

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/spectrice/internal/centerfft"
)

// Process consumes one block of exactly BlockSize*Channels interleaved
// input samples and, if output is non-nil, fills it with exactly
// BlockSize*Channels interleaved output samples: HopSize*Channels
// samples emitted per hop, Hops hops per block. A nil output still
// advances the session's state but emits nothing; that is how a
// priming block is fed.
//
// Process never allocates and never fails except on a malformed block
// length: once a session exists, the steady-state path is infallible.
func (s *Session) Process(input, output []float64) error {
	n := s.cfg.BlockSize
	c := s.cfg.Channels
	want := n * c

	if len(input) != want {
		return fmt.Errorf("freeze: input length %d: %w (want %d)", len(input), ErrBlockSize, want)
	}

	if output != nil && len(output) != want {
		return fmt.Errorf("freeze: output length %d: %w (want %d)", len(output), ErrBlockSize, want)
	}

	half := n / 2
	hopSize := s.hopSize
	hops := s.cfg.Hops

	reScratch := s.fftTmp[:half]
	imScratch := s.fftTmp[half:n]
	absScratch := s.fftTmp[n : n+half]

	for ch := 0; ch < c; ch++ {
		fwdLap := s.fwdLap[ch]
		invLap := s.invLap[ch]
		abs := s.abs[ch]

		var argAccum, argPrev, argStep []float64
		if s.cfg.FreezePhase {
			argAccum = s.argAccum[ch]
			argPrev = s.argPrev[ch]
			argStep = s.argStep[ch]
		}

		for hop := 0; hop < hops; hop++ {
			s.analysisWindow(fwdLap)

			if err := centerfft.Forward(s.frame, s.fftTmp, n); err != nil {
				return fmt.Errorf("freeze: forward transform: %w", err)
			}

			for b := 0; b < half; b++ {
				reScratch[b] = s.frame[2*b]
				imScratch[b] = s.frame[2*b+1]
			}

			vecmath.Magnitude(absScratch, reScratch, imScratch)

			lambda := s.mixRatio(hop)

			for b := 0; b < half; b++ {
				re := reScratch[b]
				im := imScratch[b]
				absB := absScratch[b]

				// atan2 yields (-0.5, 0.5] cycles; wrap immediately so every
				// stored phase (argPrev included) stays in [0, 1). dArg below
				// is wrapped again anyway, so this shifts nothing audible.
				argB := wrapCycle(math.Atan2(im, re) / (2 * math.Pi))

				if s.cfg.FreezeAmp {
					absB = lambda*abs[b] + (1-lambda)*absB
					if !s.haveSnapshot {
						abs[b] = absB
					}
				}

				if s.cfg.FreezePhase {
					binAdvance := float64(b) / float64(hops)

					dArg := argB - argPrev[b]
					argPrev[b] = argB

					dArg += binAdvance
					dArg = wrapCycle(dArg)

					argStep[b] = lambda*argStep[b] + (1-lambda)*dArg
					dArg = argStep[b] - binAdvance

					argAccum[b] = wrapCycle(argAccum[b] + dArg)
					argB = argAccum[b]
				}

				s.frame[2*b] = absB * math.Cos(2*math.Pi*argB)
				s.frame[2*b+1] = absB * math.Sin(2*math.Pi*argB)
			}

			if err := centerfft.Inverse(s.frame, s.fftTmp, n); err != nil {
				return fmt.Errorf("freeze: inverse transform: %w", err)
			}

			// Inverse(Forward(x)) == x exactly, so the transform pair
			// contributes no gain of its own; the unit-energy window is
			// applied twice and overlap-added H times, leaving the chain
			// 1/N below unity. Restore it here, once per frame.
			vecmath.ScaleBlockInPlace(s.frame, s.synthGain)

			s.synthesisOverlapAdd(invLap)

			if output != nil {
				for k := 0; k < hopSize; k++ {
					output[(hop*hopSize+k)*c+ch] = invLap[k]
				}
			}

			copy(fwdLap[:n-hopSize], fwdLap[hopSize:])
			copy(invLap[:n-hopSize], invLap[hopSize:])

			for k := 0; k < hopSize; k++ {
				fwdLap[n-hopSize+k] = input[(hop*hopSize+k)*c+ch]
				invLap[n-hopSize+k] = 0
			}
		}
	}

	s.blockIdx++

	return nil
}

// analysisWindow builds s.frame[0:N] as the windowed analysis frame over
// fwdLap: full[k]*fwdLap[k], with full the implicit-symmetric mirror of
// the half window s.win.
func (s *Session) analysisWindow(fwdLap []float64) {
	half := len(s.win)
	n := 2 * half

	for k := 0; k < half; k++ {
		w := s.win[k]
		s.frame[k] = w * fwdLap[k]
		s.frame[n-1-k] = w * fwdLap[n-1-k]
	}
}

// synthesisOverlapAdd accumulates the windowed inverse-transform frame
// s.frame into invLap.
func (s *Session) synthesisOverlapAdd(invLap []float64) {
	half := len(s.win)
	n := 2 * half

	for k := 0; k < half; k++ {
		w := s.win[k]
		invLap[k] += w * s.frame[k]
		invLap[n-1-k] += w * s.frame[n-1-k]
	}
}

// mixRatio computes the crossfade blend coefficient lambda for the
// given hop within the current block: 0 before the ramp, rising
// linearly from FreezeStart to FreezePoint, then held at 1, the whole
// ramp scaled by FreezeFactor.
func (s *Session) mixRatio(hop int) float64 {
	n := float64(s.cfg.BlockSize)
	idx := (float64(s.blockIdx) + float64(hop)/float64(s.cfg.Hops)) * n

	beg := float64(s.cfg.FreezeStart)
	end := float64(s.cfg.FreezePoint)

	var raw float64
	if idx >= end {
		raw = 1
	} else {
		raw = (idx - beg) / (end - beg)
	}

	lambda := raw * s.cfg.FreezeFactor

	return clamp01(lambda)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// wrapCycle folds x into [0,1), the convention every stored phase value
// (ArgAccum, ArgPrev, ArgStep) uses for cycles.
func wrapCycle(x float64) float64 {
	return x - math.Floor(x)
}
