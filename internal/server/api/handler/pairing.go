package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

// PairingList returns a handler listing pairing requests awaiting an answer.
// The first entry is the one currently shown to the operator.
func PairingList(c Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PairingListResponse{Pairing: toPairing(c.Status().Pairing)})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}

// PairingResolve returns a handler that accepts or rejects the request at the
// head of the pairing queue.
func PairingResolve(c Controller, accept bool) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		pending := c.Status().Pairing
		if len(pending) == 0 {
			return apierror.ErrNotFound("no pairing request pending")
		}
		if err := c.ResolvePairing(accept); err != nil {
			return peripheralError(err)
		}
		logger.Info("Pairing answered over API", "link", pending[0].Link, "accept", accept)
		b, err := json.Marshal(apitypes.PairingResolveResponse{
			Addr:     string(pending[0].Link.Addr),
			Accepted: accept,
		})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
