package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/Alia5/blemouse/device/mouse"
	"github.com/Alia5/blemouse/internal/peripheral"
	"github.com/Alia5/blemouse/internal/server/api"
)

// MouseStream returns a stream handler that reads 5-byte input frames until
// the client disconnects. Button changes become button reports and non-zero
// deltas are queued as movement. Frames that do not fit are dropped.
func MouseStream(c Controller) api.StreamHandlerFunc {
	return func(req *api.Request, conn net.Conn, logger *slog.Logger) error {
		defer conn.Close()
		stop := context.AfterFunc(req.Ctx, func() { _ = conn.Close() })
		defer stop()

		var buttons uint8
		err := mouse.ReadFrames(conn, func(f mouse.Frame) error {
			if f.Buttons != buttons {
				if err := c.Press(f.Buttons); err != nil {
					logger.Warn("Dropped button frame", "buttons", f.Buttons, "error", err)
				} else {
					buttons = f.Buttons
				}
			}
			if f.DX == 0 && f.DY == 0 {
				return nil
			}
			if err := c.Move(f.DX, f.DY); err != nil && !errors.Is(err, peripheral.ErrQueueFull) {
				return err
			}
			return nil
		})
		if buttons != 0 {
			if perr := c.Press(0); perr != nil {
				logger.Warn("Failed to release buttons", "error", perr)
			}
		}
		if err != nil && req.Ctx.Err() != nil {
			return nil
		}
		return err
	}
}
