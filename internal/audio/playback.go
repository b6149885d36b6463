package audio

import (
	"context"
	"log/slog"
	"sync"
)

// Playback is one in-flight buffer on an output device.
type Playback interface {
	// Done is closed when the device drains the buffer naturally.
	Done() <-chan struct{}
	// Stop halts output and releases the device resources. Safe to call
	// more than once.
	Stop()
}

// Device starts playback of a decoded buffer. Implementations release their
// resources when the returned Playback completes or is stopped.
type Device interface {
	Start(ctx context.Context, buf *Buffer) (Playback, error)
}

// Session is the caller's handle on one playback run. Its completion
// callback fires exactly once, on natural completion only; an explicit Stop
// suppresses it so the caller can distinguish "finished" from "interrupted".
type Session struct {
	pb       Playback
	stopped  chan struct{}
	finished chan struct{}
	once     sync.Once
}

func newSession(pb Playback, onComplete func()) *Session {
	s := &Session{pb: pb, stopped: make(chan struct{}), finished: make(chan struct{})}
	go func() {
		defer close(s.finished)
		select {
		case <-pb.Done():
			s.once.Do(func() {
				pb.Stop()
				if onComplete != nil {
					onComplete()
				}
			})
		case <-s.stopped:
		}
	}()
	return s
}

// Stop interrupts playback. The completion callback does not fire. Calling
// Stop after natural completion, or repeatedly, is a no-op.
func (s *Session) Stop() {
	s.once.Do(func() {
		close(s.stopped)
		s.pb.Stop()
	})
}

// Done is closed once the session reaches its terminal state, whether it
// completed naturally or was stopped.
func (s *Session) Done() <-chan struct{} { return s.finished }

// Controller owns at most one active playback session. Voice narration is a
// non-critical enhancement: Play reports failure by returning nil rather than
// an error.
type Controller struct {
	device Device

	mu     sync.Mutex
	active *Session
}

// NewController creates a playback controller on the given output device.
func NewController(device Device) *Controller {
	return &Controller{device: device}
}

// Play starts playback of a decoded buffer and returns the session handle,
// or nil if the buffer is empty, a session is still active, or the device is
// unavailable. Callers must stop the previous session before starting a new
// one; Play does not auto-cancel.
func (c *Controller) Play(ctx context.Context, buf *Buffer, onComplete func()) *Session {
	if buf == nil || buf.Frames() == 0 {
		slog.Warn("Controller.Play: nothing to play, skipping")
		return nil
	}

	c.mu.Lock()
	if c.active != nil {
		select {
		case <-c.active.Done():
			c.active = nil
		default:
			c.mu.Unlock()
			slog.Error("Controller.Play: previous session still active; stop it first")
			return nil
		}
	}
	c.mu.Unlock()

	pb, err := c.device.Start(ctx, buf)
	if err != nil {
		slog.Warn("Controller.Play: audio device unavailable", "error", err)
		return nil
	}
	session := newSession(pb, onComplete)

	c.mu.Lock()
	c.active = session
	c.mu.Unlock()
	return session
}
