package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api"
)

// Status returns a handler reporting advertising, clients and queues.
func Status(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := c.Status()
		backlog := make([]string, 0, len(st.Backlog))
		for _, a := range st.Backlog {
			backlog = append(backlog, string(a))
		}
		b, err := json.Marshal(apitypes.StatusResponse{
			Advertising:    st.Advertising.String(),
			Backlog:        backlog,
			Clients:        toClients(st.Clients),
			MaxClients:     st.MaxClients,
			Pairing:        toPairing(st.Pairing),
			MovementQueued: st.MovementQueued,
			DroppedEvents:  st.DroppedEvents,
		})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
