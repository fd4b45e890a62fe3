// Package config holds the root command line definition.
package config

import "github.com/Alia5/blemouse/internal/cmd"

// Log configures the process loggers.
type Log struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"BLEMOUSE_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" default:"" env:"BLEMOUSE_LOG_FILE"`
	RawFile string `help:"Write every sent HID report to this file" default:"" env:"BLEMOUSE_LOG_RAW_FILE"`
}

// CLI is the root of the command tree. Config file values are applied
// before flags and environment variables.
type CLI struct {
	Config string `help:"Config file (json, yaml or toml)" default:"" env:"BLEMOUSE_CONFIG"`
	Log    Log    `embed:"" prefix:"log."`

	Run       cmd.Run           `cmd:"" help:"Run the BLE mouse peripheral"`
	Ctl       cmd.Ctl           `cmd:"" help:"Control a running peripheral over the API"`
	Bonds     cmd.Bonds         `cmd:"" help:"List peers bonded with the adapter"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install the run command as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the systemd service"`
}
