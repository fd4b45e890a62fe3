package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// Transport drives a BlueZ adapter for the peripheral core.
type Transport struct {
	cfg    Config
	logger *slog.Logger
	links  *links

	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	hid     *hidService
	conn    *dbus.Conn
	agent   *Agent
	sink    Sink

	mu     sync.Mutex
	served map[*peripheral.Link]bool
}

var (
	_ peripheral.Transport       = (*Transport)(nil)
	_ peripheral.SharedReporter  = (*Transport)(nil)
	_ peripheral.DirectedSupport = (*Transport)(nil)
)

func New(cfg Config, logger *slog.Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		logger: logger,
		links:  newLinks(),
		served: make(map[*peripheral.Link]bool),
	}
}

// Start enables the adapter, registers the HID service and the pairing
// agent, and begins forwarding events to sink. Any failure is fatal.
func (t *Transport) Start(ctx context.Context, sink Sink) error {
	t.sink = sink

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system D-Bus: %w", err)
	}
	t.conn = conn

	t.adapter = bluetooth.NewAdapter(t.cfg.Adapter)
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter %s: %w", t.cfg.Adapter, err)
	}
	t.adapter.SetConnectHandler(t.onConnect)

	t.hid, err = newHIDService(t.adapter, t.onProtocolMode, t.logger)
	if err != nil {
		return err
	}

	t.adv = t.adapter.DefaultAdvertisement()
	err = t.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    t.cfg.Name,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.New16BitUUID(uuidHIDService)},
		Interval:     bluetooth.NewDuration(t.cfg.AdvInterval),
	})
	if err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}

	if t.cfg.Agent {
		t.agent = newAgent(t.links, sink, t.cfg.ConfirmationTimeout, t.logger)
		if err := t.agent.register(conn); err != nil {
			return err
		}
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, bluezDeviceInterface),
	); err != nil {
		return fmt.Errorf("add match rule: %w", err)
	}
	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	go t.watch(ctx, signals)

	t.logger.Info("BLE transport ready", "adapter", t.cfg.Adapter, "name", t.cfg.Name)
	return nil
}

// Close unregisters the agent and stops advertising.
func (t *Transport) Close() error {
	var errs []error
	if t.adv != nil {
		if err := t.adv.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.conn != nil {
		if t.agent != nil {
			t.agent.unregister(t.conn)
		}
		errs = append(errs, t.conn.Close())
	}
	return errors.Join(errs...)
}

func (t *Transport) watch(ctx context.Context, signals chan *dbus.Signal) {
	defer t.conn.RemoveSignal(signals)
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			c, ok := parseDeviceChange(sig)
			if !ok || c.Paired == nil || !*c.Paired {
				continue
			}
			link, ok := t.links.get(c.Addr)
			if !ok {
				continue
			}
			bonded := true
			if c.Bonded != nil {
				bonded = *c.Bonded
			}
			t.sink.PairingComplete(link, bonded)
		}
	}
}

func (t *Transport) onConnect(device bluetooth.Device, connected bool) {
	addr, err := peripheral.ParseAddress(device.Address.String())
	if err != nil {
		t.logger.Warn("connection from unparsable address", "addr", device.Address.String())
		return
	}
	if connected {
		link, created := t.links.open(addr)
		if created {
			t.sink.Connected(link, nil)
		}
		return
	}
	if link, ok := t.links.close(addr); ok {
		// BlueZ does not expose the HCI disconnect reason.
		t.sink.Disconnected(link, 0)
	}
}

// onProtocolMode applies a protocol mode write. The GATT server does not
// tell which central wrote it, so every served link switches.
func (t *Transport) onProtocolMode(mode peripheral.Mode) {
	t.mu.Lock()
	served := make([]*peripheral.Link, 0, len(t.served))
	for l := range t.served {
		served = append(served, l)
	}
	t.mu.Unlock()
	if len(served) > 1 {
		t.logger.Warn("protocol mode write with several hosts connected, applying to all", "mode", mode)
	}
	for _, l := range served {
		t.sink.ProtocolModeChanged(l, mode)
	}
}

// SharedReports is true: the HID service has one characteristic per report
// and BlueZ notifies every subscribed central on a write.
func (t *Transport) SharedReports() bool { return true }

// SupportsDirected is false. BlueZ advertising objects have no directed mode.
func (t *Transport) SupportsDirected() bool { return false }

func (t *Transport) StartDirected(addr peripheral.Address) error {
	return fmt.Errorf("%s: %w", addr, ErrDirectedUnsupported)
}

func (t *Transport) StartUndirected() error { return t.adv.Start() }

func (t *Transport) StopAdvertising() error { return t.adv.Stop() }

func (t *Transport) isServed(link *peripheral.Link) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.served[link]
}

func (t *Transport) SendReport(link *peripheral.Link, index int, data []byte) error {
	if !t.isServed(link) {
		return fmt.Errorf("%s: %w", link, ErrNotConnected)
	}
	return t.hid.sendReport(index, data)
}

func (t *Transport) SendBootMouse(link *peripheral.Link, dx, dy int8) error {
	if !t.isServed(link) {
		return fmt.Errorf("%s: %w", link, ErrNotConnected)
	}
	return t.hid.sendBootMouse(dx, dy)
}

func (t *Transport) ConfirmPasskey(link *peripheral.Link) error {
	if t.agent == nil {
		return ErrNoPendingRequest
	}
	return t.agent.Confirm(link)
}

func (t *Transport) CancelPairing(link *peripheral.Link) error {
	if t.agent == nil {
		return ErrNoPendingRequest
	}
	return t.agent.Reject(link)
}

func (t *Transport) ForEachBond(fn func(peripheral.Address)) error {
	bonds, err := Bonds(t.conn, t.cfg.Adapter)
	if err != nil {
		return err
	}
	for _, b := range bonds {
		fn(b)
	}
	return nil
}

func (t *Transport) Connected(link *peripheral.Link) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.served[link] = true
	return nil
}

func (t *Transport) Disconnected(link *peripheral.Link) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.served, link)
	return nil
}
