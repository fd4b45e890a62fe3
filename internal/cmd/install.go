package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Install registers "blemouse run" as a system service.
type Install struct {
	Args []string `arg:"" optional:"" passthrough:"" help:"Extra flags for the run command, e.g. -- --input.source=evdev"`
}

func (i *Install) Run(logger *slog.Logger) error { return install(logger, i.Args) }

// Uninstall stops and removes the system service.
type Uninstall struct{}

func (u *Uninstall) Run(logger *slog.Logger) error { return uninstall(logger) }

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}
