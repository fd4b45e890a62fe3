package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/Alia5/blemouse/device/mouse"
)

// StreamPath is the request path that switches a connection to input frames.
const StreamPath = "mouse/stream"

// Stream is an open input stream. Frames are applied in order; button changes
// become button reports and deltas are queued as movement.
type Stream struct {
	mu   sync.Mutex
	conn net.Conn
}

// OpenStream connects and switches the connection to streaming input frames.
func (c *Client) OpenStream(ctx context.Context) (*Stream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("streaming not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write([]byte(StreamPath + "\x00")); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Send writes one frame.
func (s *Stream) Send(f mouse.Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close ends the stream. Buttons still held are released by the server.
func (s *Stream) Close() error { return s.conn.Close() }
