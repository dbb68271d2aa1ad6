// Package audio decodes raw PCM speech payloads and wraps them for playback.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// Default format of synthesized speech: 16-bit little-endian PCM, 24 kHz mono.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
)

const (
	bitDepth  = 16
	formatPCM = 1
)

var ErrOddLength = errors.New("pcm payload has odd length")

// Clip is a decoded sequence of 16-bit samples.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

// DecodePCM16 decodes little-endian signed 16-bit PCM into frames.
func DecodePCM16(data []byte, sampleRate, channels int) (Clip, error) {
	if len(data)%2 != 0 {
		return Clip{}, ErrOddLength
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return Clip{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// Duration returns the playback length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// WAV renders the clip as a RIFF/WAVE file.
func (c Clip) WAV() ([]byte, error) {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return nil, fmt.Errorf("invalid clip format: %d Hz, %d channels", c.SampleRate, c.Channels)
	}

	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: c.Channels, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, c.SampleRate, bitDepth, c.Channels, formatPCM)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}
	return io.ReadAll(ws.Reader())
}
