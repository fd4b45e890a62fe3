package mouse

import (
	"errors"
	"fmt"
	"io"
)

// ReadFrames reads 5-byte input frames from r until EOF and hands each to fn.
// A clean EOF between frames returns nil.
func ReadFrames(r io.Reader, fn func(Frame) error) error {
	buf := make([]byte, FrameLen)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input frame: %w", err)
		}
		var f Frame
		if err := f.UnmarshalBinary(buf); err != nil {
			return fmt.Errorf("unmarshal input frame: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
