package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

func decodePayload(payload string, v any) error {
	if payload == "" {
		return apierror.ErrBadRequest("missing payload")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return apierror.ErrBadRequest(fmt.Sprintf("invalid JSON payload: %v", err))
	}
	return nil
}

// MouseMove returns a handler that queues one relative movement.
func MouseMove(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var mv apitypes.MoveRequest
		if err := decodePayload(req.Payload, &mv); err != nil {
			return err
		}
		if err := c.Move(mv.DX, mv.DY); err != nil {
			return peripheralError(err)
		}
		return nil
	}
}

// MouseButtons returns a handler that reports a button mask.
func MouseButtons(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var br apitypes.ButtonsRequest
		if err := decodePayload(req.Payload, &br); err != nil {
			return err
		}
		if err := c.Press(br.Buttons); err != nil {
			return peripheralError(err)
		}
		return nil
	}
}

// MouseMedia returns a handler that reports a consumer control key mask.
func MouseMedia(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var mr apitypes.MediaRequest
		if err := decodePayload(req.Payload, &mr); err != nil {
			return err
		}
		if err := c.Media(mr.Keys); err != nil {
			return peripheralError(err)
		}
		return nil
	}
}
