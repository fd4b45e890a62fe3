package handler

import (
	"errors"
	"fmt"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/peripheral"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

// Controller is the part of the peripheral driven by the control API.
type Controller interface {
	Status() peripheral.Status
	Move(dx, dy int16) error
	Press(buttons uint8) error
	Media(keys uint8) error
	ResolvePairing(accept bool) error
}

var _ Controller = (*peripheral.Peripheral)(nil)

// peripheralError maps ingress errors onto API problems.
func peripheralError(err error) error {
	switch {
	case errors.Is(err, peripheral.ErrQueueFull):
		return apierror.ErrUnavailable("movement queue full")
	case errors.Is(err, peripheral.ErrBusy):
		return apierror.ErrUnavailable("peripheral busy")
	default:
		return apierror.ErrInternal(err.Error())
	}
}

func toClients(infos []peripheral.ClientInfo) []apitypes.Client {
	out := make([]apitypes.Client, 0, len(infos))
	for _, c := range infos {
		out = append(out, apitypes.Client{
			Slot: c.Slot,
			Addr: string(c.Link.Addr),
			Link: c.Link.String(),
			Mode: c.Mode.String(),
		})
	}
	return out
}

func toPairing(pending []peripheral.PendingPairing) []apitypes.Pairing {
	out := make([]apitypes.Pairing, 0, len(pending))
	for _, p := range pending {
		out = append(out, apitypes.Pairing{
			Addr:    string(p.Link.Addr),
			Link:    p.Link.String(),
			Passkey: fmt.Sprintf("%06d", p.Passkey),
		})
	}
	return out
}
