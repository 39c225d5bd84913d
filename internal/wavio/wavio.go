// Package wavio reads and writes WAV/RIFF files for the spectrice CLI.
//
// Decoding is built on go-audio/wav and go-audio/audio: wav.Decoder for
// the PCM payload, converted to interleaved float64 in [-1, 1]. The
// `smpl` loop chunk that go-audio/wav doesn't expose is read directly
// off the RIFF chunk stream with go-audio/riff.
package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// Format selects the PCM encoding written by [Write].
type Format int

const (
	// FormatDefault matches the bit depth of the file's original source
	// when known, otherwise FormatFloat32.
	FormatDefault Format = iota
	FormatPCM8
	FormatPCM16
	FormatPCM24
	FormatFloat32
)

// ParseFormat maps a CLI -format: argument to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "default", "":
		return FormatDefault, nil
	case "pcm8":
		return FormatPCM8, nil
	case "pcm16":
		return FormatPCM16, nil
	case "pcm24":
		return FormatPCM24, nil
	case "float32":
		return FormatFloat32, nil
	default:
		return 0, fmt.Errorf("wavio: unknown format %q", s)
	}
}

// Loop describes a `smpl` chunk loop region, in sample frames.
type Loop struct {
	Start uint32
	End   uint32
}

// File holds a fully decoded WAV: interleaved float64 PCM in [-1, 1]
// plus the metadata the spectrice CLI needs (native bit depth, for
// FormatDefault output, and an optional loop region).
type File struct {
	Samples    []float64
	SampleRate int
	Channels   int
	BitDepth   int
	Loop       *Loop
}

// Read decodes path as a WAV file.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavio: %s: not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: %s: decoding PCM: %w", path, err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)

	// 8-bit WAV PCM is unsigned (0..255); everything wider is signed.
	samples := make([]float64, len(buf.Data))
	fullScale := float64(int64(1) << (uint(bitDepth) - 1))
	if bitDepth == 8 {
		for i, v := range buf.Data {
			samples[i] = (float64(v) - 128) / 128
		}
	} else {
		for i, v := range buf.Data {
			samples[i] = float64(v) / fullScale
		}
	}

	file := &File{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
	}

	if loop, err := readSmplLoop(path); err == nil {
		file.Loop = loop
	}

	return file, nil
}

// readSmplLoop re-opens path and walks its RIFF chunks looking for a
// `smpl` chunk with at least one loop region, since go-audio/wav
// doesn't surface it. Absence of a loop chunk is returned as an error,
// which Read ignores: a file without one simply has no Loop.
func readSmplLoop(path string) (*Loop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parser := riff.New(f)
	if err := parser.ParseHeaders(); err != nil {
		return nil, err
	}

	for {
		chunk, err := parser.NextChunk()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("wavio: no smpl chunk")
		}
		if err != nil {
			return nil, err
		}

		if chunk.ID != [4]byte{'s', 'm', 'p', 'l'} {
			chunk.Drain()
			continue
		}

		return parseSmplChunk(chunk)
	}
}

// smplHeader mirrors the fixed-size portion of a `smpl` chunk preceding
// its loop-region array (RIFF/WAV spec), enough to read the first loop.
type smplHeader struct {
	Manufacturer uint32
	Product      uint32
	SamplePeriod uint32
	MIDIUnity    uint32
	MIDIPitch    uint32
	SMPTEFormat  uint32
	SMPTEOffset  uint32
	NumLoops     uint32
	SamplerData  uint32
}

type smplLoopRegion struct {
	CuePointID uint32
	Type       uint32
	Start      uint32
	End        uint32
	Fraction   uint32
	PlayCount  uint32
}

func parseSmplChunk(chunk *riff.Chunk) (*Loop, error) {
	var hdr smplHeader
	if err := binary.Read(chunk, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("wavio: reading smpl header: %w", err)
	}

	if hdr.NumLoops == 0 {
		return nil, errors.New("wavio: smpl chunk has no loops")
	}

	var loop smplLoopRegion
	if err := binary.Read(chunk, binary.LittleEndian, &loop); err != nil {
		return nil, fmt.Errorf("wavio: reading smpl loop region: %w", err)
	}

	return &Loop{Start: loop.Start, End: loop.End}, nil
}

// Write encodes samples (interleaved float64 in [-1, 1]) to path as a
// WAV file at the given sample rate, channel count, and output format.
func Write(path string, samples []float64, sampleRate, channels int, format Format, sourceBitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	bitDepth := resolveBitDepth(format, sourceBitDepth)

	if format == FormatFloat32 || (format == FormatDefault && bitDepth == 0) {
		return writeFloat32(f, samples, sampleRate, channels)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	defer enc.Close()

	fullScale := float64(int64(1) << (uint(bitDepth) - 1))
	ints := make([]int, len(samples))
	maxVal := int(fullScale - 1)
	minVal := -int(fullScale)

	for i, v := range samples {
		s := int(v * fullScale)
		if s > maxVal {
			s = maxVal
		} else if s < minVal {
			s = minVal
		}

		// The encoder writes 8-bit samples as unsigned bytes.
		if bitDepth == 8 {
			s += 128
		}

		ints[i] = s
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   ints,
	}

	return enc.Write(buf)
}

func resolveBitDepth(format Format, sourceBitDepth int) int {
	switch format {
	case FormatPCM8:
		return 8
	case FormatPCM16:
		return 16
	case FormatPCM24:
		return 24
	case FormatDefault:
		if sourceBitDepth == 8 || sourceBitDepth == 16 || sourceBitDepth == 24 {
			return sourceBitDepth
		}

		return 0 // signals "use float32"
	default:
		return 16
	}
}

// writeFloat32 writes a minimal IEEE-float WAV (format code 3): the
// go-audio/wav encoder only targets integer PCM, so the 32-bit float
// output path is a small hand-rolled RIFF writer.
func writeFloat32(w io.Writer, samples []float64, sampleRate, channels int) error {
	dataSize := uint32(len(samples)) * 4
	blockAlign := uint16(channels * 4)
	byteRate := uint32(sampleRate) * uint32(blockAlign)

	hdr := struct {
		RiffID        [4]byte
		RiffSize      uint32
		WaveID        [4]byte
		FmtID         [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		DataID        [4]byte
		DataSize      uint32
	}{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		RiffSize:      36 + dataSize,
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   3, // IEEE float
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: 32,
		DataID:        [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}

	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}

	floats := make([]float32, len(samples))
	for i, v := range samples {
		floats[i] = float32(v)
	}

	return binary.Write(w, binary.LittleEndian, floats)
}
