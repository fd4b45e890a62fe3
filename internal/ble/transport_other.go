//go:build !linux

package ble

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// ErrUnsupportedPlatform is returned on hosts without BlueZ.
var ErrUnsupportedPlatform = errors.New("BLE peripheral mode requires Linux with BlueZ")

// Transport is unavailable on this platform; every method fails.
type Transport struct{}

var _ peripheral.Transport = (*Transport)(nil)

func New(cfg Config, logger *slog.Logger) *Transport { return &Transport{} }

func (t *Transport) Start(ctx context.Context, sink Sink) error { return ErrUnsupportedPlatform }
func (t *Transport) Close() error                               { return nil }

func (t *Transport) StartDirected(peripheral.Address) error { return ErrUnsupportedPlatform }
func (t *Transport) StartUndirected() error                 { return ErrUnsupportedPlatform }
func (t *Transport) StopAdvertising() error                 { return ErrUnsupportedPlatform }

func (t *Transport) SendReport(*peripheral.Link, int, []byte) error   { return ErrUnsupportedPlatform }
func (t *Transport) SendBootMouse(*peripheral.Link, int8, int8) error { return ErrUnsupportedPlatform }
func (t *Transport) ConfirmPasskey(*peripheral.Link) error            { return ErrUnsupportedPlatform }
func (t *Transport) CancelPairing(*peripheral.Link) error             { return ErrUnsupportedPlatform }
func (t *Transport) ForEachBond(func(peripheral.Address)) error       { return ErrUnsupportedPlatform }
func (t *Transport) Connected(*peripheral.Link) error                 { return ErrUnsupportedPlatform }
func (t *Transport) Disconnected(*peripheral.Link) error              { return ErrUnsupportedPlatform }
