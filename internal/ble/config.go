package ble

import "time"

// Config configures the BlueZ backed transport.
type Config struct {
	Adapter             string        `help:"BlueZ adapter name" default:"hci0" env:"BLEMOUSE_BLE_ADAPTER"`
	Name                string        `help:"Advertised local name" default:"BLE Mouse" env:"BLEMOUSE_BLE_NAME"`
	AdvInterval         time.Duration `help:"Advertising interval" default:"100ms" env:"BLEMOUSE_BLE_ADV_INTERVAL"`
	Agent               bool          `help:"Register a BlueZ pairing agent for numeric comparison" default:"true" env:"BLEMOUSE_BLE_AGENT"`
	ConfirmationTimeout time.Duration `help:"Time the operator has to answer a passkey confirmation" default:"30s" env:"BLEMOUSE_BLE_CONFIRMATION_TIMEOUT"`
}
