// Package freeze implements the STFT-based spectral freezing engine: a
// centered-FFT STFT whose per-bin magnitude and phase-step can be
// crossfaded toward a stored reference as playback approaches a freeze
// point, so a sample loop can be built around a quasi-stationary tail.
//
// A Session owns everything: configuration validation, the single
// backing allocation all per-channel state is carved from, optional
// snapshot pre-analysis and priming at construction, and the per-hop
// analysis/freeze/synthesis loop in Process.
package freeze

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/spectrice/dsp/window"
	"github.com/cwbudde/spectrice/internal/centerfft"
)

// Session is an opaque, stateful freeze engine for one fixed
// configuration. A Session is not safe for concurrent use by multiple
// goroutines; independent sessions share no mutable state and may run
// on different goroutines without synchronization.
type Session struct {
	cfg       Config
	hopSize   int
	synthGain float64

	blockIdx     int
	haveSnapshot bool

	// backing is the session's single allocation; every slice below is
	// carved out of it and never reallocated for the life of the
	// session.
	backing []float64

	win []float64 // half window, BlockSize/2

	frame  []float64 // BlockSize: windowed time frame / in-place spectrum
	fftTmp []float64 // centerfft scratch, centerfft.ScratchLen(BlockSize)

	fwdLap [][]float64 // [Channels][BlockSize]
	invLap [][]float64 // [Channels][BlockSize]
	abs    [][]float64 // [Channels][BlockSize/2]

	// Present only when cfg.FreezePhase is set.
	argAccum [][]float64 // [Channels][BlockSize/2]
	argPrev  [][]float64 // [Channels][BlockSize/2]
	argStep  [][]float64 // [Channels][BlockSize/2]
}

// Config returns the session's immutable configuration.
func (s *Session) Config() Config { return s.cfg }

// HaveSnapshot reports whether a precaptured amplitude spectrum is
// loaded. When true, the amplitude freeze blends toward the snapshot
// and never overwrites it with the live spectrum.
func (s *Session) HaveSnapshot() bool { return s.haveSnapshot }

// BlockIdx returns the index of the next block Process will consume,
// used by the crossfade ramp to locate each hop in sample-time.
func (s *Session) BlockIdx() int { return s.blockIdx }

// New validates cfg, allocates the session's single backing buffer,
// builds the analysis/synthesis window, and optionally pre-analyzes a
// snapshot and consumes a priming block.
//
// priming and snapshot are each interleaved blocks of exactly
// cfg.BlockSize*cfg.Channels samples, or nil. A short priming or
// snapshot block is zero-padded, never an error. Passing a non-nil
// snapshot together with cfg.FreezePhase is a configuration error:
// the phase-step tracking assumes a live analysis history, which a
// snapshot-only reference doesn't provide.
func New(cfg Config, priming, snapshot []float64) (*Session, error) {
	if err := cfg.validate(snapshot != nil); err != nil {
		return nil, err
	}

	n := cfg.BlockSize
	half := n / 2
	c := cfg.Channels

	s := &Session{
		cfg:       cfg,
		hopSize:   cfg.HopSize(),
		synthGain: float64(n),
	}

	fftTmpLen := centerfft.ScratchLen(n)

	total := half /*win*/ + n /*frame*/ + fftTmpLen /*fftTmp*/
	total += c * n * 2 /*fwdLap+invLap*/
	total += c * half /*abs*/
	if cfg.FreezePhase {
		total += c * half * 3 /*argAccum+argPrev+argStep*/
	}

	s.backing = make([]float64, total)
	cut := s.backing

	take := func(n int) []float64 {
		b := cut[:n:n]
		cut = cut[n:]
		return b
	}

	s.win = take(half)
	s.frame = take(n)
	s.fftTmp = take(fftTmpLen)

	s.fwdLap = make([][]float64, c)
	s.invLap = make([][]float64, c)
	s.abs = make([][]float64, c)
	for ch := 0; ch < c; ch++ {
		s.fwdLap[ch] = take(n)
	}
	for ch := 0; ch < c; ch++ {
		s.invLap[ch] = take(n)
	}
	for ch := 0; ch < c; ch++ {
		s.abs[ch] = take(half)
	}

	if cfg.FreezePhase {
		s.argAccum = make([][]float64, c)
		s.argPrev = make([][]float64, c)
		s.argStep = make([][]float64, c)
		for ch := 0; ch < c; ch++ {
			s.argAccum[ch] = take(half)
		}
		for ch := 0; ch < c; ch++ {
			s.argPrev[ch] = take(half)
		}
		for ch := 0; ch < c; ch++ {
			s.argStep[ch] = take(half)
		}
	}

	if err := window.BuildInto(s.win, cfg.Window, half, cfg.Hops); err != nil {
		return nil, wrapConfig(err)
	}

	if snapshot != nil {
		if err := s.loadSnapshot(snapshot); err != nil {
			return nil, fmt.Errorf("freeze: snapshot analysis failed: %w", err)
		}

		s.haveSnapshot = true
	}

	if priming != nil {
		if len(priming) < n*c {
			padded := make([]float64, n*c)
			copy(padded, priming)
			priming = padded
		}

		if err := s.Process(priming, nil); err != nil {
			return nil, fmt.Errorf("freeze: priming pass failed: %w", err)
		}
	}

	return s, nil
}

// loadSnapshot windows and transforms snapshot (one block, zero-padded
// if short) per channel, storing the resulting bin magnitudes directly
// into s.abs as the freeze target.
func (s *Session) loadSnapshot(snapshot []float64) error {
	n := s.cfg.BlockSize
	half := n / 2
	c := s.cfg.Channels

	reScratch := s.fftTmp[:half]
	imScratch := s.fftTmp[half:n]

	for ch := 0; ch < c; ch++ {
		for k := 0; k < half; k++ {
			s.frame[k] = s.win[k] * sampleAt(snapshot, k, ch, c)
			s.frame[n-1-k] = s.win[k] * sampleAt(snapshot, n-1-k, ch, c)
		}

		if err := centerfft.Forward(s.frame, s.fftTmp, n); err != nil {
			return err
		}

		for b := 0; b < half; b++ {
			reScratch[b] = s.frame[2*b]
			imScratch[b] = s.frame[2*b+1]
		}

		vecmath.Magnitude(s.abs[ch], reScratch, imScratch)
	}

	return nil
}

// sampleAt returns interleaved sample t of channel ch from block buf, or
// 0 when t or ch*stride falls outside buf (zero-padding for a short
// snapshot/priming block).
func sampleAt(buf []float64, t, ch, channels int) float64 {
	idx := t*channels + ch
	if idx < 0 || idx >= len(buf) {
		return 0
	}

	return buf[idx]
}
