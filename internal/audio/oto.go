package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoDevice plays decoded buffers on the system audio output via oto. The
// underlying oto context is created once, on first use, with the first
// buffer's format; later buffers must match it.
type OtoDevice struct {
	mu         sync.Mutex
	octx       *oto.Context
	sampleRate int
	channels   int
}

// NewOtoDevice creates an OtoDevice. Device acquisition is deferred until
// the first Start call so that constructing the device cannot fail.
func NewOtoDevice() *OtoDevice {
	return &OtoDevice{}
}

// Start begins playback of buf and returns a Playback handle. It blocks
// until the audio context is ready or ctx is cancelled.
func (d *OtoDevice) Start(ctx context.Context, buf *Buffer) (Playback, error) {
	octx, err := d.context(ctx, buf)
	if err != nil {
		return nil, err
	}

	player := octx.NewPlayer(bytes.NewReader(interleaveFloat32LE(buf)))
	player.Play()

	pb := &otoPlayback{
		player: player,
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	go pb.watch()
	return pb, nil
}

func (d *OtoDevice) context(ctx context.Context, buf *Buffer) (*oto.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.octx != nil {
		if d.sampleRate != buf.SampleRate || d.channels != buf.NumChannels() {
			return nil, fmt.Errorf("audio context is %d Hz / %d ch, buffer is %d Hz / %d ch",
				d.sampleRate, d.channels, buf.SampleRate, buf.NumChannels())
		}
		return d.octx, nil
	}

	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   buf.SampleRate,
		ChannelCount: buf.NumChannels(),
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire audio device: %w", err)
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	d.octx = octx
	d.sampleRate = buf.SampleRate
	d.channels = buf.NumChannels()
	return octx, nil
}

// interleaveFloat32LE flattens a buffer into the interleaved little-endian
// float32 stream oto consumes.
func interleaveFloat32LE(buf *Buffer) []byte {
	frames := buf.Frames()
	channels := buf.NumChannels()
	out := make([]byte, frames*channels*4)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 4
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(buf.Channels[ch][i]))
		}
	}
	return out
}

// otoPlayback polls the player until it drains or is stopped.
type otoPlayback struct {
	player *oto.Player
	done   chan struct{}
	stop   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (p *otoPlayback) Done() <-chan struct{} { return p.done }

func (p *otoPlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.stop)
	p.player.Close()
}

func (p *otoPlayback) watch() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if p.player.IsPlaying() {
				continue
			}
			p.mu.Lock()
			if !p.closed {
				p.closed = true
				p.player.Close()
				close(p.done)
			}
			p.mu.Unlock()
			return
		}
	}
}
