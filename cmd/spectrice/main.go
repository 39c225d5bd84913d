// Command spectrice freezes the spectral character of a sample around a
// freeze point, for building seamless sample loops.
//
// Usage:
//
//	spectrice Input.wav Output.wav [options]
//
// The flag grammar is colon-valued (-blocksize:1024, -window:nuttall)
// rather than the standard library's "-name value" form, so argv is
// parsed directly instead of through flag.FlagSet.
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/spectrice/dsp/freeze"
	"github.com/cwbudde/spectrice/dsp/window"
	"github.com/cwbudde/spectrice/internal/audiosrc"
	"github.com/cwbudde/spectrice/internal/dct"
	"github.com/cwbudde/spectrice/internal/wavio"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "spectrice: %v\n", err)
		os.Exit(1)
	}
}

const usage = `spectrice - Spectral Freezing Tool
Usage:
 spectrice Input.wav Output.wav [Opt]
Options:
 -blocksize:8192   - Transform block size, a power of two in [16, 65536].
 -nhops:8          - STFT hops per block, a power of two >= 2.
 -window:nuttall   - sine, hann, hamming, blackman, or nuttall.
 -freezexfade:0    - Samples of crossfade before the freeze point.
 -freezepoint:X    - Freeze-peak sample position. Defaults to the WAV
                     loop start point when the input carries a loop chunk.
 -freezefactor:1.0 - Freezing amount in [0, 1].
 -nofreezeamp      - Disable amplitude freezing.
 -freezephase      - Enable phase-step freezing.
 -snapshot:n|POS   - Precaptured amplitude reference position, or 'n'.
 -snapshotgain:1.0 - Linear or XdB gain applied to the snapshot.
 -loops:y|n        - Wrap input reads at the loop point instead of
                     playing through to end of file (default y).
 -format:default   - default, pcm8, pcm16, pcm24, or float32.
 -verbose          - print engine and CPU feature diagnostics to stderr.
`

type options struct {
	blockSize    int
	hops         int
	window       window.Type
	freezeXFade  int
	freezePoint  int
	freezeFactor float64
	freezeAmp    bool
	freezePhase  bool
	snapshotPos  int // -1 disables
	snapshotGain float64
	loopProcess  bool
	format       wavio.Format
	verbose      bool
}

func defaultOptions() options {
	return options{
		blockSize:    8192,
		hops:         8,
		window:       window.TypeNuttall,
		freezeFactor: 1.0,
		freezeAmp:    true,
		snapshotPos:  -1,
		snapshotGain: 1.0,
		loopProcess:  true,
		format:       wavio.FormatDefault,
	}
}

func run(args []string) error {
	if len(args) < 2 {
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("expected input and output paths")
	}

	inPath, outPath := args[0], args[1]
	opt := defaultOptions()

	for _, arg := range args[2:] {
		if err := parseFlag(&opt, arg); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
		}
	}

	src, err := audiosrc.Load(inPath)
	if err != nil {
		return fmt.Errorf("opening input file: %w", err)
	}

	totalSamples := len(src.Samples) / src.Channels
	if totalSamples < opt.blockSize {
		return fmt.Errorf("input file has fewer sample points than the block size")
	}

	loopStart, loopEnd, haveLoop := loopBounds(src)
	if opt.freezePoint == 0 {
		if !haveLoop {
			return fmt.Errorf("no -freezepoint given and the input has no loop chunk")
		}

		opt.freezePoint = loopStart
	}

	if opt.freezePoint > totalSamples {
		return fmt.Errorf("freeze point %d lies past the end of the input (%d sample points)", opt.freezePoint, totalSamples)
	}

	// The processed region starts one priming block before the freeze
	// start, plus half a block to account for the OLA frame centering;
	// everything before that is copied through untouched.
	freezeStart := opt.freezePoint - opt.freezeXFade
	primingLength := opt.blockSize + opt.blockSize/2
	if freezeStart < primingLength {
		fmt.Fprintf(os.Stderr, "WARNING: freeze start point too early; moving to %d\n", primingLength)
		freezeStart = primingLength
		if opt.freezePoint < freezeStart {
			opt.freezePoint = freezeStart
		}
	}

	loopProcess := opt.loopProcess && haveLoop && loopEnd > loopStart && loopEnd > freezeStart

	var snapshot []float64
	if opt.snapshotPos >= 0 {
		pos := opt.snapshotPos
		if pos > totalSamples-opt.blockSize {
			pos = totalSamples - opt.blockSize
		}

		snapshot = extractBlock(src.Samples, src.Channels, pos, opt.blockSize)
		if opt.snapshotGain != 1.0 {
			for i := range snapshot {
				snapshot[i] *= opt.snapshotGain
			}
		}
	}

	// The engine sees sample time relative to the start of the processed
	// region: the priming block spans [0, BlockSize), so the crossfade
	// ramp runs from BlockSize to BlockSize plus the crossfade length.
	cfg := freeze.Config{
		Channels:     src.Channels,
		BlockSize:    opt.blockSize,
		Hops:         opt.hops,
		Window:       opt.window,
		FreezeStart:  opt.blockSize,
		FreezePoint:  opt.blockSize + opt.freezePoint - freezeStart,
		FreezeFactor: opt.freezeFactor,
		FreezeAmp:    opt.freezeAmp,
		FreezePhase:  opt.freezePhase,
	}

	if opt.verbose {
		fmt.Fprintf(os.Stderr, "spectrice: channels=%d blocksize=%d hops=%d window=%s simd=%s\n",
			src.Channels, opt.blockSize, opt.hops, opt.window, dct.SIMDLevel())
		fmt.Fprintf(os.Stderr, "spectrice: freeze start=%d point=%d factor=%.3f amp=%t phase=%t\n",
			freezeStart, opt.freezePoint, opt.freezeFactor, opt.freezeAmp, opt.freezePhase)
	}

	headLen := freezeStart - primingLength
	priming := extractBlock(src.Samples, src.Channels, headLen, opt.blockSize)

	session, err := freeze.New(cfg, priming, snapshot)
	if err != nil {
		return fmt.Errorf("initializing freeze engine: %w", err)
	}

	output := make([]float64, 0, totalSamples*src.Channels)
	output = append(output, src.Samples[:headLen*src.Channels]...)

	cursor := newLoopCursor(src.Samples, src.Channels, loopStart, loopEnd, loopProcess)
	cursor.advance(headLen + opt.blockSize) // head copied, priming consumed

	blockSamples := opt.blockSize * src.Channels
	samplesRem := totalSamples - freezeStart + primingLength
	blocks := (samplesRem-1)/opt.blockSize + 1

	for block := 0; block < blocks; block++ {
		fmt.Fprintf(os.Stderr, "\rBlock %d/%d (%.2f%%)", block+1, blocks, float64(block)*100/float64(blocks))

		in := cursor.nextBlock(opt.blockSize)

		out := make([]float64, blockSamples)
		if err := session.Process(in, out); err != nil {
			return fmt.Errorf("processing block: %w", err)
		}

		n := opt.blockSize
		if samplesRem < n {
			n = samplesRem
		}

		output = append(output, out[:n*src.Channels]...)
		samplesRem -= n
	}

	fmt.Fprintln(os.Stderr)

	if err := wavio.Write(outPath, output, src.SampleRate, src.Channels, opt.format, src.BitDepth); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}

	return nil
}

// loopCursor reads interleaved blocks from samples, wrapping the read
// position from loopEnd back to loopStart when wrap is enabled — loop
// handling lives here in the CLI, never in dsp/freeze.
type loopCursor struct {
	samples  []float64
	channels int
	pos      int
	loopLen  int
	loopEnd  int
	wrap     bool
}

func newLoopCursor(samples []float64, channels, loopStart, loopEnd int, wrap bool) *loopCursor {
	return &loopCursor{
		samples:  samples,
		channels: channels,
		loopLen:  loopEnd - loopStart,
		loopEnd:  loopEnd,
		wrap:     wrap,
	}
}

func (c *loopCursor) advance(n int) { c.pos += n }

func (c *loopCursor) nextBlock(n int) []float64 {
	out := make([]float64, n*c.channels)

	total := len(c.samples) / c.channels
	for t := 0; t < n; t++ {
		if c.wrap && c.pos >= c.loopEnd && c.loopLen > 0 {
			c.pos -= c.loopLen
		}

		if c.pos < total {
			copy(out[t*c.channels:(t+1)*c.channels], c.samples[c.pos*c.channels:(c.pos+1)*c.channels])
		}

		c.pos++
	}

	return out
}

func loopBounds(src *audiosrc.Source) (start, end int, ok bool) {
	if src.Loop == nil {
		return 0, 0, false
	}

	// The smpl chunk's end sample is inclusive.
	return int(src.Loop.Start), int(src.Loop.End) + 1, true
}

func extractBlock(samples []float64, channels, startFrame, n int) []float64 {
	out := make([]float64, n*channels)
	total := len(samples) / channels

	for t := 0; t < n; t++ {
		frame := startFrame + t
		if frame < 0 || frame >= total {
			continue
		}

		copy(out[t*channels:(t+1)*channels], samples[frame*channels:(frame+1)*channels])
	}

	return out
}

func parseFlag(opt *options, arg string) error {
	switch {
	case strings.HasPrefix(arg, "-blocksize:"):
		x, err := strconv.Atoi(strings.TrimPrefix(arg, "-blocksize:"))
		if err != nil || x < 16 || x > 65536 || !isPowerOfTwo(x) {
			return fmt.Errorf("ignoring invalid block size (%s)", arg)
		}

		opt.blockSize = x

	case strings.HasPrefix(arg, "-nhops:"):
		x, err := strconv.Atoi(strings.TrimPrefix(arg, "-nhops:"))
		if err != nil || x < 2 || !isPowerOfTwo(x) {
			return fmt.Errorf("ignoring invalid hop count (%s)", arg)
		}

		opt.hops = x

	case strings.HasPrefix(arg, "-window:"):
		w, err := window.ParseType(strings.TrimPrefix(arg, "-window:"))
		if err != nil {
			return fmt.Errorf("ignoring invalid window type (%s)", arg)
		}

		opt.window = w

	case strings.HasPrefix(arg, "-freezexfade:"):
		x, err := strconv.Atoi(strings.TrimPrefix(arg, "-freezexfade:"))
		if err != nil || x < 0 {
			return fmt.Errorf("ignoring invalid freeze crossfade (%s)", arg)
		}

		opt.freezeXFade = x

	case strings.HasPrefix(arg, "-freezepoint:"):
		x, err := strconv.Atoi(strings.TrimPrefix(arg, "-freezepoint:"))
		if err != nil || x <= 0 {
			return fmt.Errorf("ignoring invalid freeze point (%s)", arg)
		}

		opt.freezePoint = x

	case strings.HasPrefix(arg, "-freezefactor:"):
		x, err := strconv.ParseFloat(strings.TrimPrefix(arg, "-freezefactor:"), 64)
		if err != nil || x < 0 || x > 1 {
			return fmt.Errorf("ignoring invalid freeze factor (%s)", arg)
		}

		opt.freezeFactor = x

	case arg == "-nofreezeamp":
		opt.freezeAmp = false

	case arg == "-freezephase":
		opt.freezePhase = true

	case arg == "-verbose":
		opt.verbose = true

	case strings.HasPrefix(arg, "-snapshot:"):
		v := strings.TrimPrefix(arg, "-snapshot:")
		if v == "n" || v == "N" {
			opt.snapshotPos = -1
		} else if x, err := strconv.Atoi(v); err == nil {
			opt.snapshotPos = x
		} else {
			return fmt.Errorf("ignoring invalid snapshot position (%s)", arg)
		}

	case strings.HasPrefix(arg, "-snapshotgain:"):
		g, err := readGain(strings.TrimPrefix(arg, "-snapshotgain:"))
		if err != nil {
			return fmt.Errorf("ignoring invalid snapshot gain (%s)", arg)
		}

		opt.snapshotGain = g

	case strings.HasPrefix(arg, "-loops:"):
		switch strings.TrimPrefix(arg, "-loops:") {
		case "y", "Y":
			opt.loopProcess = true
		case "n", "N":
			opt.loopProcess = false
		default:
			return fmt.Errorf("ignoring invalid loop setting (%s)", arg)
		}

	case strings.HasPrefix(arg, "-format:"):
		f, err := wavio.ParseFormat(strings.ToLower(strings.TrimPrefix(arg, "-format:")))
		if err != nil {
			return fmt.Errorf("invalid output format (%s)", arg)
		}

		opt.format = f

	default:
		return fmt.Errorf("ignoring unknown argument (%s)", arg)
	}

	return nil
}

// readGain parses a gain string in linear form ("1.5") or decibel form
// ("3dB", case-insensitive suffix).
func readGain(s string) (float64, error) {
	s = strings.TrimSpace(s)

	if rest, ok := trimSuffixFold(s, "db"); ok {
		db, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
		if err != nil {
			return 0, err
		}

		return math.Pow(10, db/20), nil
	}

	return strconv.ParseFloat(s, 64)
}

func trimSuffixFold(s, suffix string) (string, bool) {
	if len(s) < len(suffix) {
		return s, false
	}

	tail := s[len(s)-len(suffix):]
	if strings.EqualFold(tail, suffix) {
		return s[:len(s)-len(suffix)], true
	}

	return s, false
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
