package input

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// EVIOCGRAB = _IOW('E', 0x90, int)
const eviocgrab = 1<<30 | 'E'<<8 | 0x90 | 4<<16

var inputEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8

// Evdev reads key events from a Linux input device.
type Evdev struct {
	path   string
	grab   bool
	logger *slog.Logger
}

func NewEvdev(path string, grab bool, logger *slog.Logger) *Evdev {
	return &Evdev{path: path, grab: grab, logger: logger}
}

func (e *Evdev) Run(ctx context.Context, h Handler) error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("open input device: %w", err)
	}
	defer f.Close()

	if e.grab {
		if err := unix.IoctlSetPointerInt(int(f.Fd()), eviocgrab, 1); err != nil {
			e.logger.Warn("could not grab input device", "device", e.path, "error", err)
		}
	}
	e.logger.Info("Reading buttons from input device", "device", e.path)

	go func() {
		<-ctx.Done()
		_ = f.Close()
	}()

	var b buttons
	handle := keyHandler(h, &b)
	buf := make([]byte, inputEventSize*64)
	var pending []byte
	for {
		n, err := f.Read(buf)
		if n > 0 {
			pending = parseEvents(append(pending, buf[:n]...), inputEventSize, handle)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read input device: %w", err)
		}
	}
}
