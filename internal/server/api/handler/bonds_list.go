package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/peripheral"
	"github.com/Alia5/blemouse/internal/server/api"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

// BondsList returns a handler that lists the bonded peers.
func BondsList(store peripheral.BondStore) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		bonds := []string{}
		if err := store.ForEachBond(func(a peripheral.Address) {
			bonds = append(bonds, string(a))
		}); err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to read bonds: %v", err))
		}
		b, err := json.Marshal(apitypes.BondsListResponse{Bonds: bonds})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
