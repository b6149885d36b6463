// Package audio provides PCM decoding and interruptible playback for spoken
// directives.
//
// The speech model returns raw signed 16-bit little-endian PCM. Decoding is
// purely computational: base64 payload in, normalized float buffer out. The
// playback half of the package turns a decoded buffer into a single
// cancelable session on an output device.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultSampleRate is the sample rate of synthesized speech payloads.
const DefaultSampleRate = 24000

// Error variables for better error handling and testability
var (
	ErrEmptyPCM        = errors.New("empty PCM payload")
	ErrBadChannelCount = errors.New("channel count must be at least one")
	ErrOddPCMLength    = errors.New("PCM byte length is not a multiple of the frame size")
)

// Buffer is a decoded multichannel audio buffer with samples normalized to
// [-1.0, 1.0].
type Buffer struct {
	SampleRate int
	// Channels holds one sample slice per channel, all of equal length.
	Channels [][]float32
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.Channels) }

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// DecodePCM16 decodes interleaved signed 16-bit little-endian samples into a
// normalized buffer. A byte length that is not a multiple of 2*channels is
// rejected with ErrOddPCMLength; the decoder never truncates.
func DecodePCM16(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		return nil, ErrBadChannelCount
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPCM
	}
	frameSize := 2 * channels
	if len(raw)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes with %d channel(s)", ErrOddPCMLength, len(raw), channels)
	}

	frames := len(raw) / frameSize
	buf := &Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sample := int16(uint16(raw[off]) | uint16(raw[off+1])<<8)
			buf.Channels[ch][i] = float32(sample) / 32768.0
		}
	}
	return buf, nil
}

// DecodeBase64PCM decodes a base64-encoded PCM payload, as returned by the
// speech model, into a normalized buffer.
func DecodeBase64PCM(payload string, sampleRate, channels int) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 PCM payload: %w", err)
	}
	return DecodePCM16(raw, sampleRate, channels)
}
