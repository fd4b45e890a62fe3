package input

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// Terminal reads single key presses from a terminal in raw mode.
//
//	arrows or 1-4   move (1 left, 2 up, 3 right, 4 down)
//	y / n           accept / reject a pending passkey
//	q or Ctrl-C     quit
type Terminal struct {
	r      io.Reader
	fd     int
	logger *slog.Logger
}

func NewTerminal(logger *slog.Logger) *Terminal {
	return &Terminal{r: os.Stdin, fd: int(os.Stdin.Fd()), logger: logger}
}

func (t *Terminal) Run(ctx context.Context, h Handler) error {
	if term.IsTerminal(t.fd) {
		old, err := term.MakeRaw(t.fd)
		if err != nil {
			return err
		}
		defer func() { _ = term.Restore(t.fd, old) }()
	}
	t.logger.Info("Terminal input: arrows or 1-4 move, y/n answer pairing, q quits")

	errCh := make(chan error, 1)
	go func() { errCh <- t.read(h) }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (t *Terminal) read(h Handler) error {
	var b buttons
	buf := make([]byte, 64)
	var pending []byte
	for {
		n, err := t.r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			var keys []uint32
			var quit bool
			keys, quit, pending = decodeTerminal(pending)
			for _, k := range keys {
				tap(h, &b, k)
			}
			if quit {
				return ErrQuit
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// decodeTerminal translates raw terminal bytes into button bits. An escape
// sequence cut short at the end of data is returned as rest.
func decodeTerminal(data []byte) (keys []uint32, quit bool, rest []byte) {
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case 0x03, 'q', 'Q':
			return keys, true, nil
		case '1':
			keys = append(keys, peripheral.KeyLeft)
		case '2':
			keys = append(keys, peripheral.KeyUp)
		case '3':
			keys = append(keys, peripheral.KeyRight)
		case '4':
			keys = append(keys, peripheral.KeyDown)
		case 'y', 'Y':
			keys = append(keys, peripheral.KeyPairingAccept)
		case 'n', 'N':
			keys = append(keys, peripheral.KeyPairingReject)
		case 0x1b:
			if i+2 >= len(data) {
				return keys, false, append([]byte(nil), data[i:]...)
			}
			if data[i+1] != '[' {
				continue
			}
			switch data[i+2] {
			case 'D':
				keys = append(keys, peripheral.KeyLeft)
			case 'A':
				keys = append(keys, peripheral.KeyUp)
			case 'C':
				keys = append(keys, peripheral.KeyRight)
			case 'B':
				keys = append(keys, peripheral.KeyDown)
			}
			i += 2
		}
	}
	return keys, false, nil
}
