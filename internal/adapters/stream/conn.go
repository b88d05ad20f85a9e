package stream

import (
	"context"
	"io"
	"sync"

	"github.com/dkeye/camrelay/internal/core"
	"github.com/google/uuid"
)

// DeviceStream is the live handle for the device's long-lived response body.
type DeviceStream struct {
	id   string
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewDeviceStream(buffer int) *DeviceStream {
	if buffer <= 0 {
		buffer = 1
	}
	return &DeviceStream{
		id:   uuid.NewString(),
		send: make(chan core.Frame, buffer),
	}
}

func (s *DeviceStream) ID() string { return s.id }

func (s *DeviceStream) TrySend(f core.Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return core.ErrClosed
	}
	select {
	case s.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close ends the stream. Frames already queued are still written.
func (s *DeviceStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Next writes one queued frame to w. It returns false once the stream is
// closed and drained, ctx is done, or the write fails.
func (s *DeviceStream) Next(ctx context.Context, w io.Writer) bool {
	select {
	case <-ctx.Done():
		return false
	case f, ok := <-s.send:
		if !ok {
			return false
		}
		if _, err := w.Write(f); err != nil {
			return false
		}
		return true
	}
}
