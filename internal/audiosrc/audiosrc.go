// Package audiosrc dispatches audio file decoding by extension,
// decoding each format fully into interleaved float64 PCM up front
// instead of streaming: spectrice needs random access to the whole
// sample array to locate a snapshot window and, for WAV, the `smpl`
// loop chunk.
package audiosrc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/cwbudde/spectrice/internal/wavio"
)

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: %w", err)
	}

	return f, nil
}

// Source is a fully decoded audio file: interleaved float64 PCM plus
// format metadata. Loop and BitDepth are only ever populated for WAV
// input; other formats leave them zero.
type Source struct {
	Samples    []float64
	SampleRate int
	Channels   int
	BitDepth   int
	Loop       *wavio.Loop
}

// Load decodes path, dispatching on its file extension.
func Load(path string) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return loadWAV(path)
	case ".flac":
		return loadFLAC(path)
	case ".mp3":
		return loadMP3(path)
	case ".ogg":
		return loadOgg(path)
	default:
		return nil, fmt.Errorf("audiosrc: unsupported extension %q", filepath.Ext(path))
	}
}

func loadWAV(path string) (*Source, error) {
	f, err := wavio.Read(path)
	if err != nil {
		return nil, err
	}

	return &Source{
		Samples:    f.Samples,
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		BitDepth:   f.BitDepth,
		Loop:       f.Loop,
	}, nil
}

func loadFLAC(path string) (*Source, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: decoding FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	fullScale := float64(int64(1) << (uint(bps) - 1))

	samples := make([]float64, 0, int(info.NSamples)*channels)

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("audiosrc: decoding FLAC frame: %w", err)
		}

		n := int(frame.Subframes[0].NSamples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float64(frame.Subframes[ch].Samples[i])/fullScale)
			}
		}
	}

	return &Source{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
	}, nil
}

func loadMP3(path string) (*Source, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: decoding MP3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: reading MP3 PCM: %w", err)
	}

	// go-mp3 always produces 16-bit little-endian stereo PCM.
	const channels = 2
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		lo, hi := raw[2*i], raw[2*i+1]
		v := int16(uint16(lo) | uint16(hi)<<8)
		samples[i] = float64(v) / 32768.0
	}

	return &Source{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   channels,
	}, nil
}

func loadOgg(path string) (*Source, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("audiosrc: decoding OGG: %w", err)
	}

	channels := reader.Channels()

	var samples []float64
	chunk := make([]float32, 4096*channels)

	for {
		n, err := reader.Read(chunk)
		for i := 0; i < n; i++ {
			samples = append(samples, float64(chunk[i]))
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("audiosrc: reading OGG samples: %w", err)
		}
	}

	return &Source{
		Samples:    samples,
		SampleRate: reader.SampleRate(),
		Channels:   channels,
	}, nil
}
