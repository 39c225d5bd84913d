package freeze

import (
	"math"
	"testing"

	"github.com/cwbudde/spectrice/dsp/window"
)

func sineBlock(n, channels int, freq, sampleRate float64, startSample int) []float64 {
	buf := make([]float64, n*channels)
	for t := 0; t < n; t++ {
		v := math.Sin(2 * math.Pi * freq * float64(startSample+t) / sampleRate)
		for ch := 0; ch < channels; ch++ {
			buf[t*channels+ch] = v
		}
	}

	return buf
}

func baseConfig() Config {
	return Config{
		Channels:     1,
		BlockSize:    64,
		Hops:         4,
		Window:       window.TypeHann,
		FreezeStart:  1 << 20, // far beyond any test signal: ramp never engages
		FreezePoint:  1<<20 + 64,
		FreezeFactor: 0,
		FreezeAmp:    true,
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		mod  func(c *Config)
	}{
		{"channels too high", func(c *Config) { c.Channels = 256 }},
		{"block size not power of two", func(c *Config) { c.BlockSize = 100 }},
		{"hops not power of two", func(c *Config) { c.Hops = 3 }},
		{"hops below window minimum", func(c *Config) {
			c.Window = window.TypeNuttall
			c.Hops = 4
		}},
		{"freeze point before freeze start", func(c *Config) { c.FreezePoint = c.FreezeStart - 1 }},
		{"freeze start below block size", func(c *Config) { c.FreezeStart = c.BlockSize - 1; c.FreezePoint = c.BlockSize }},
		{"freeze factor out of range", func(c *Config) { c.FreezeFactor = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mod(&cfg)

			if _, err := New(cfg, nil, nil); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestNewRejectsSnapshotWithPhaseFreeze(t *testing.T) {
	cfg := baseConfig()
	cfg.FreezePhase = true

	snap := make([]float64, cfg.BlockSize*cfg.Channels)
	if _, err := New(cfg, nil, snap); err == nil {
		t.Fatalf("expected an error combining snapshot with phase freezing")
	}
}

// Hop counts must be powers of two at the session level, so the exact
// window minimum (3, 5, 7) is only reachable through dsp/window's own
// Build; here the boundary is the largest power of two below the
// minimum (must fail) against the smallest at or above it (must
// succeed).
func TestHopCountBoundaries(t *testing.T) {
	for _, w := range []window.Type{window.TypeSine, window.TypeHann, window.TypeHamming, window.TypeBlackman, window.TypeNuttall} {
		min := w.MinHops()

		below := 1
		for below*2 < min {
			below *= 2
		}

		above := below
		for above < min {
			above *= 2
		}

		cfg := baseConfig()
		cfg.Window = w
		cfg.BlockSize = 256

		if below >= 2 {
			cfg.Hops = below
			if _, err := New(cfg, nil, nil); err == nil {
				t.Errorf("%s: hops=%d (below minimum %d) should fail", w, below, min)
			}
		}

		cfg.Hops = above
		if _, err := New(cfg, nil, nil); err != nil {
			t.Errorf("%s: hops=%d (smallest valid at or above minimum %d) should succeed: %v", w, above, min, err)
		}
	}
}

func TestZeroFactorIsNearIdentity(t *testing.T) {
	cfg := baseConfig()
	cfg.FreezeFactor = 0

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const sampleRate = 48000.0
	const totalSamples = 8192

	input := sineBlock(totalSamples, 1, 1000, sampleRate, 0)

	// Prime with N samples, then process the rest one block at a time.
	blockSamples := cfg.BlockSize * cfg.Channels
	if err := s.Process(input[:blockSamples], nil); err != nil {
		t.Fatalf("priming Process: %v", err)
	}

	var sumSq, sumDiffSq float64
	pos := cfg.BlockSize
	for pos+blockSamples <= totalSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(input[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}

		// Output at this point corresponds to input delayed by BlockSize
		// samples (one full analysis window of latency).
		for i := 0; i < blockSamples; i++ {
			ref := input[pos-cfg.BlockSize+i]
			d := out[i] - ref
			sumSq += ref * ref
			sumDiffSq += d * d
		}

		pos += blockSamples
	}

	rms := math.Sqrt(sumDiffSq / sumSq)
	if rms > 1e-3 {
		t.Errorf("reconstruction RMS error %v exceeds tolerance", rms)
	}
}

func TestPhaseValuesStayInUnitInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.FreezeAmp = false
	cfg.FreezePhase = true
	cfg.FreezeFactor = 1
	cfg.FreezeStart = cfg.BlockSize
	cfg.FreezePoint = cfg.BlockSize * 2

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	input := sineBlock(blockSamples*8, 1, 1000, 48000, 0)

	for pos := 0; pos+blockSamples <= len(input); pos += blockSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(input[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	half := cfg.BlockSize / 2
	for b := 0; b < half; b++ {
		for _, v := range []float64{s.argAccum[0][b], s.argPrev[0][b], s.argStep[0][b]} {
			if v < 0 || v >= 1 {
				t.Fatalf("bin %d: phase value %v outside [0,1)", b, v)
			}
		}
	}
}

func TestAmplitudeFreezeHoldsMagnitudeAfterPeak(t *testing.T) {
	const sampleRate = 48000.0
	cfg := Config{
		Channels:     1,
		BlockSize:    64,
		Hops:         4,
		Window:       window.TypeHann,
		FreezeStart:  3072,
		FreezePoint:  4096,
		FreezeFactor: 1,
		FreezeAmp:    true,
	}

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	totalSamples := 4096 + 2048

	input := make([]float64, totalSamples)
	for i := range input {
		if i < 4096 {
			input[i] = math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate)
		}
	}

	half := cfg.BlockSize / 2

	var lastAbsPastPeak []float64
	var mismatch bool

	for pos := 0; pos+blockSamples <= totalSamples; pos += blockSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(input[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}

		if pos >= cfg.FreezePoint {
			snapshot := append([]float64(nil), s.abs[0][:half]...)
			if lastAbsPastPeak != nil {
				for b := range snapshot {
					if math.Abs(snapshot[b]-lastAbsPastPeak[b]) > 1e-4*math.Max(1, snapshot[b]) {
						mismatch = true
					}
				}
			}

			lastAbsPastPeak = snapshot
		}
	}

	if mismatch {
		t.Errorf("reference magnitude drifted after the freeze point was reached")
	}
}

// The input goes silent at the freeze point; a working amplitude freeze
// keeps the output ringing on the stored magnitudes instead of decaying
// with the live signal.
func TestAmplitudeFreezeOutlivesSilencedInput(t *testing.T) {
	const sampleRate = 48000.0
	cfg := Config{
		Channels:     1,
		BlockSize:    64,
		Hops:         4,
		Window:       window.TypeHann,
		FreezeStart:  3072,
		FreezePoint:  4096,
		FreezeFactor: 1,
		FreezeAmp:    true,
	}

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	totalSamples := 4096 + 2048

	input := make([]float64, totalSamples)
	for i := 0; i < 4096; i++ {
		input[i] = math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate)
	}

	var output []float64
	for pos := 0; pos+blockSamples <= totalSamples; pos += blockSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(input[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}

		output = append(output, out...)
	}

	var tailEnergy float64
	tail := output[len(output)-1024:]
	for _, v := range tail {
		tailEnergy += v * v
	}

	if tailEnergy < 1e-3 {
		t.Errorf("frozen output died with the input (tail energy %v)", tailEnergy)
	}
}

func TestIdenticalSessionsProduceIdenticalOutput(t *testing.T) {
	cfg := baseConfig()
	cfg.FreezeStart = cfg.BlockSize
	cfg.FreezePoint = cfg.BlockSize * 4
	cfg.FreezeFactor = 0.75

	a, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	input := sineBlock(blockSamples*8, 1, 777, 48000, 0)

	for pos := 0; pos+blockSamples <= len(input); pos += blockSamples {
		outA := make([]float64, blockSamples)
		outB := make([]float64, blockSamples)

		if err := a.Process(input[pos:pos+blockSamples], outA); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if err := b.Process(input[pos:pos+blockSamples], outB); err != nil {
			t.Fatalf("Process: %v", err)
		}

		for i := range outA {
			if outA[i] != outB[i] {
				t.Fatalf("outputs diverge at block %d, sample %d", pos/blockSamples, i)
			}
		}
	}
}

func TestMultiChannelIndependence(t *testing.T) {
	cfg := baseConfig()
	cfg.Channels = 2

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	n := blockSamples * 6

	input := make([]float64, n)
	for i := 0; i < n/cfg.Channels; i++ {
		input[i*cfg.Channels+0] = 0
		input[i*cfg.Channels+1] = math.Sin(2 * math.Pi * 1000 * float64(i) / 48000.0)
	}

	for pos := 0; pos+blockSamples <= n; pos += blockSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(input[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}

		for i := 0; i < cfg.BlockSize; i++ {
			if v := out[i*cfg.Channels+0]; math.Abs(v) > 1e-6 {
				t.Fatalf("silent channel leaked: %v", v)
			}
		}
	}
}

func TestProcessRejectsWrongBlockLength(t *testing.T) {
	cfg := baseConfig()

	s, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bad := make([]float64, cfg.BlockSize*cfg.Channels-1)
	if err := s.Process(bad, nil); err == nil {
		t.Fatalf("expected an error for a short input block")
	}
}

func TestSnapshotBlending(t *testing.T) {
	cfg := Config{
		Channels:     1,
		BlockSize:    1024,
		Hops:         8,
		Window:       window.TypeHann,
		FreezeStart:  1024,
		FreezePoint:  2048,
		FreezeFactor: 1,
		FreezeAmp:    true,
	}

	snapshot := sineBlock(cfg.BlockSize, 1, 440, 48000, 0)

	s, err := New(cfg, nil, snapshot)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !s.HaveSnapshot() {
		t.Fatalf("expected HaveSnapshot to be true after a snapshot is supplied")
	}

	blockSamples := cfg.BlockSize * cfg.Channels
	vocal := sineBlock(blockSamples*6, 1, 220, 48000, 0)

	for pos := 0; pos+blockSamples <= len(vocal); pos += blockSamples {
		out := make([]float64, blockSamples)
		if err := s.Process(vocal[pos:pos+blockSamples], out); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	// The snapshot's reference magnitude must never have been overwritten
	// by the live (vocal) spectrum once HaveSnapshot is true.
	half := cfg.BlockSize / 2
	violinRef, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New (oracle): %v", err)
	}

	if err := violinRef.loadSnapshot(snapshot); err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}

	for b := 0; b < half; b++ {
		if got, want := s.abs[0][b], violinRef.abs[0][b]; got != want {
			t.Fatalf("bin %d: reference magnitude mutated: got %v want %v", b, got, want)
		}
	}
}
