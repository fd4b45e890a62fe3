package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api"
)

// ClientsList returns a handler that lists the occupied client slots.
func ClientsList(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := c.Status()
		b, err := json.Marshal(apitypes.ClientsListResponse{
			Clients:    toClients(st.Clients),
			MaxClients: st.MaxClients,
		})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
