package cmd

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/godbus/dbus/v5"

	"github.com/Alia5/blemouse/internal/ble"
)

// Bonds lists the peers bonded with the adapter straight from BlueZ, without
// a running peripheral.
type Bonds struct {
	Adapter string `help:"BlueZ adapter name" default:"hci0" env:"BLEMOUSE_BLE_ADAPTER"`
}

func (b *Bonds) Run(kctx *kong.Context, logger *slog.Logger) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer conn.Close()

	bonds, err := ble.Bonds(conn, b.Adapter)
	if err != nil {
		return err
	}
	logger.Debug("Read bonds", "adapter", b.Adapter, "count", len(bonds))
	for _, a := range bonds {
		fmt.Fprintln(kctx.Stdout, a)
	}
	return nil
}
