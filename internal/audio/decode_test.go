package audio

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"
	"time"
)

// encodePCM16 quantizes float samples per channel into an interleaved
// little-endian 16-bit stream, the inverse of DecodePCM16.
func encodePCM16(channels [][]float32) []byte {
	frames := len(channels[0])
	out := make([]byte, frames*len(channels)*2)
	for i := 0; i < frames; i++ {
		for ch := range channels {
			q := int(math.Round(float64(channels[ch][i]) * 32768))
			if q > 32767 {
				q = 32767
			}
			if q < -32768 {
				q = -32768
			}
			off := (i*len(channels) + ch) * 2
			out[off] = byte(uint16(q))
			out[off+1] = byte(uint16(q) >> 8)
		}
	}
	return out
}

func TestDecodePCM16RoundTrip(t *testing.T) {
	want := [][]float32{{0, 0.25, -0.25, 0.5, -0.5, 1.0, -1.0, 0.123}}
	raw := encodePCM16(want)

	buf, err := DecodePCM16(raw, DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if buf.NumChannels() != 1 {
		t.Fatalf("expected 1 channel, got %d", buf.NumChannels())
	}
	if buf.Frames() != len(want[0]) {
		t.Fatalf("expected %d frames, got %d", len(want[0]), buf.Frames())
	}
	const step = 1.0 / 32768
	for i, w := range want[0] {
		got := buf.Channels[0][i]
		if math.Abs(float64(got-w)) > step {
			t.Errorf("frame %d: got %v, want %v within one quantization step", i, got, w)
		}
	}
}

func TestDecodePCM16Stereo(t *testing.T) {
	// Interleaved L0 R0 L1 R1
	channels := [][]float32{{0.5, -0.5}, {0.25, -0.25}}
	raw := encodePCM16(channels)

	buf, err := DecodePCM16(raw, 48000, 2)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if buf.NumChannels() != 2 || buf.Frames() != 2 {
		t.Fatalf("expected 2 channels x 2 frames, got %d x %d", buf.NumChannels(), buf.Frames())
	}
	const step = 1.0 / 32768
	for ch := range channels {
		for i := range channels[ch] {
			if math.Abs(float64(buf.Channels[ch][i]-channels[ch][i])) > step {
				t.Errorf("channel %d frame %d: got %v, want %v", ch, i, buf.Channels[ch][i], channels[ch][i])
			}
		}
	}
}

func TestDecodePCM16Rejects(t *testing.T) {
	if _, err := DecodePCM16(nil, DefaultSampleRate, 1); err != ErrEmptyPCM {
		t.Errorf("expected ErrEmptyPCM for empty input, got %v", err)
	}
	if _, err := DecodePCM16([]byte{1, 2, 3}, DefaultSampleRate, 1); !errors.Is(err, ErrOddPCMLength) {
		t.Errorf("expected ErrOddPCMLength for 3 bytes mono, got %v", err)
	}
	if _, err := DecodePCM16([]byte{1, 2}, DefaultSampleRate, 2); !errors.Is(err, ErrOddPCMLength) {
		t.Errorf("expected ErrOddPCMLength for 2 bytes stereo, got %v", err)
	}
	if _, err := DecodePCM16([]byte{1, 2}, DefaultSampleRate, 0); err != ErrBadChannelCount {
		t.Errorf("expected ErrBadChannelCount, got %v", err)
	}
}

func TestDecodeBase64PCM(t *testing.T) {
	raw := encodePCM16([][]float32{{0.5, -0.5}})
	payload := base64.StdEncoding.EncodeToString(raw)

	buf, err := DecodeBase64PCM(payload, DefaultSampleRate, 1)
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if buf.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", buf.Frames())
	}

	if _, err := DecodeBase64PCM("not base64!!!", DefaultSampleRate, 1); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := DecodeBase64PCM("", DefaultSampleRate, 1); err != ErrEmptyPCM {
		t.Errorf("expected ErrEmptyPCM for empty payload, got %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{SampleRate: DefaultSampleRate, Channels: [][]float32{make([]float32, DefaultSampleRate)}}
	if d := buf.Duration(); d != time.Second {
		t.Errorf("expected 1s duration, got %v", d)
	}
}
