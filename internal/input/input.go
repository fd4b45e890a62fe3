// Package input turns local key presses into button transitions for the
// peripheral.
package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// ErrQuit is returned by a source when the operator asked to exit.
var ErrQuit = errors.New("quit requested")

// Config selects and configures the button source.
type Config struct {
	Source string `help:"Button source (none, terminal, evdev)" default:"none" enum:"none,terminal,evdev" env:"BLEMOUSE_INPUT_SOURCE"`
	Device string `help:"evdev device, e.g. /dev/input/event3" default:"" env:"BLEMOUSE_INPUT_DEVICE"`
	Grab   bool   `help:"Grab the evdev device so other readers stop seeing its keys" default:"true" env:"BLEMOUSE_INPUT_GRAB"`
}

// Handler receives button transitions. state holds every pressed button and
// changed the buttons that flipped with this transition.
type Handler interface {
	Buttons(state, changed uint32)
}

// Source delivers button transitions until ctx is done.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// New builds the source named by cfg.Source. It returns nil for "none".
func New(cfg Config, logger *slog.Logger) (Source, error) {
	switch cfg.Source {
	case "", "none":
		return nil, nil
	case "terminal":
		return NewTerminal(logger), nil
	case "evdev":
		if cfg.Device == "" {
			return nil, errors.New("evdev source needs --input.device")
		}
		return NewEvdev(cfg.Device, cfg.Grab, logger), nil
	default:
		return nil, fmt.Errorf("unknown input source %q", cfg.Source)
	}
}

// buttons tracks the pressed state of the peripheral buttons.
type buttons struct {
	state uint32
}

// set records bit as pressed or released and returns the transition.
// A press of an already pressed button is reported again so held keys
// repeat.
func (b *buttons) set(bit uint32, down bool) (state, changed uint32, ok bool) {
	if down {
		b.state |= bit
		return b.state, bit, true
	}
	if b.state&bit == 0 {
		return b.state, 0, false
	}
	b.state &^= bit
	return b.state, bit, true
}

// tap reports a press immediately followed by a release.
func tap(h Handler, b *buttons, bit uint32) {
	if state, changed, ok := b.set(bit, true); ok {
		h.Buttons(state, changed)
	}
	if state, changed, ok := b.set(bit, false); ok {
		h.Buttons(state, changed)
	}
}

var _ Handler = (*peripheral.Peripheral)(nil)
