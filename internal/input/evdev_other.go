//go:build !linux

package input

import (
	"context"
	"errors"
	"log/slog"
)

type Evdev struct{}

func NewEvdev(path string, grab bool, logger *slog.Logger) *Evdev { return &Evdev{} }

func (e *Evdev) Run(context.Context, Handler) error {
	return errors.New("evdev input is only available on Linux")
}
