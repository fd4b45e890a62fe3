package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// Ping returns a handler that identifies the server.
func Ping() api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "blemouse", Version: Version})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
