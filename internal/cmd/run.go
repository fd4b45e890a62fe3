package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/blemouse/internal/ble"
	"github.com/Alia5/blemouse/internal/configpaths"
	"github.com/Alia5/blemouse/internal/events"
	"github.com/Alia5/blemouse/internal/input"
	"github.com/Alia5/blemouse/internal/log"
	"github.com/Alia5/blemouse/internal/peripheral"
	"github.com/Alia5/blemouse/internal/server/api"
	"github.com/Alia5/blemouse/internal/server/api/auth"
	"github.com/Alia5/blemouse/internal/server/api/handler"
)

type Run struct {
	PeripheralConfig  peripheral.Config `embed:"" prefix:"peripheral."`
	BLEConfig         ble.Config        `embed:"" prefix:"ble."`
	ApiServerConfig   api.ServerConfig  `embed:"" prefix:"api."`
	EventsConfig      events.Config     `embed:"" prefix:"events."`
	InputConfig       input.Config      `embed:"" prefix:"input."`
	KeyFile           string            `help:"API password file, created with a random key when missing" default:"" env:"BLEMOUSE_KEY_FILE"`
	ConnectionTimeout time.Duration     `help:"Time an API client has to send its request" default:"30s" env:"BLEMOUSE_CONNECTION_TIMEOUT"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.StartPeripheral(ctx, logger, rawLogger)
}

func (r *Run) StartPeripheral(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.ApiServerConfig.ConnectionTimeout = r.ConnectionTimeout
	if r.ApiServerConfig.Addr != "" && r.ApiServerConfig.RequireAuth {
		pwd, err := loadOrCreateKey(r.KeyFile, logger)
		if err != nil {
			return err
		}
		r.ApiServerConfig.Password = pwd
	}

	src, err := input.New(r.InputConfig, logger)
	if err != nil {
		return err
	}

	var notifiers peripheral.Notifiers
	var hub *events.Hub
	if r.EventsConfig.Addr != "" {
		hub = events.NewHub(r.EventsConfig, logger)
		notifiers = append(notifiers, hub)
	}

	logger.Info("Starting BLE mouse", "adapter", r.BLEConfig.Adapter, "name", r.BLEConfig.Name)
	tr := ble.New(r.BLEConfig, logger)
	p := peripheral.New(r.PeripheralConfig, tr, logger, rawLogger, notifiers)
	if err := tr.Start(ctx, p); err != nil {
		return fmt.Errorf("start bluetooth: %w", err)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			logger.Error("failed to close bluetooth transport", "error", err)
		}
	}()

	errCh := make(chan error, 3)
	running := 1
	go func() { errCh <- p.Run(ctx) }()

	if hub != nil {
		running++
		go func() { errCh <- hub.ListenAndServe(ctx, r.EventsConfig.Addr) }()
	}
	if src != nil {
		running++
		go func() {
			err := src.Run(ctx, p)
			if errors.Is(err, input.ErrQuit) {
				logger.Info("Quit requested")
				cancel()
				err = nil
			}
			errCh <- err
		}()
	}

	if r.ApiServerConfig.Addr != "" {
		apiSrv := api.New(r.ApiServerConfig.Addr, r.ApiServerConfig, logger)
		registerRoutes(apiSrv.Router(), p, tr)
		if err := apiSrv.Start(); err != nil {
			logger.Error("failed to start API server", "error", err)
			cancel()
			for ; running > 0; running-- {
				<-errCh
			}
			return err
		}
		defer apiSrv.Close()
	}

	var firstErr error
	for ; running > 0; running-- {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

func registerRoutes(r *api.Router, p *peripheral.Peripheral, bonds peripheral.BondStore) {
	r.Register("ping", handler.Ping())
	r.Register("status", handler.Status(p))
	r.Register("clients/list", handler.ClientsList(p))
	r.Register("bonds/list", handler.BondsList(bonds))
	r.Register("pairing/list", handler.PairingList(p))
	r.Register("pairing/accept", handler.PairingResolve(p, true))
	r.Register("pairing/reject", handler.PairingResolve(p, false))
	r.Register("mouse/move", handler.MouseMove(p))
	r.Register("mouse/buttons", handler.MouseButtons(p))
	r.Register("mouse/media", handler.MouseMedia(p))
	r.RegisterStream("mouse/stream", handler.MouseStream(p))
}

// loadOrCreateKey reads the API password, generating and storing a new one
// when the file does not exist yet.
func loadOrCreateKey(keyFilePath string, logger *slog.Logger) (string, error) {
	if keyFilePath == "" {
		p, err := configpaths.KeyFilePath()
		if err != nil {
			return "", fmt.Errorf("failed to resolve key file path: %w", err)
		}
		keyFilePath = p
	}
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		if s := strings.TrimSpace(string(pwd)); s != "" {
			return s, nil
		}
	}

	newPwd, err := auth.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate new API password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyFilePath), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write new API password to file: %w", err)
	}
	logger.Info("Generated API server password", "path", keyFilePath)
	logger.Info("-------------------------------------")
	logger.Info("Your API password is:")
	logger.Info(newPwd)
	logger.Info("-------------------------------------")
	logger.Info("You can change this password at any time by editing the file")
	return newPwd, nil
}

// readKey returns the stored API password, or "" when there is none.
func readKey(keyFilePath string) string {
	if keyFilePath == "" {
		p, err := configpaths.KeyFilePath()
		if err != nil {
			return ""
		}
		keyFilePath = p
	}
	b, err := os.ReadFile(keyFilePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
