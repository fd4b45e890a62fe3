package ble

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// linkWait is how long an agent request waits for the LE connection of its
// peer to be reported. BlueZ may call the agent before the connect handler.
const linkWait = 2 * time.Second

// smpUnspecifiedReason is reported with pairing failures BlueZ does not
// explain further.
const smpUnspecifiedReason = 0x08

var (
	errRejected = dbus.NewError("org.bluez.Error.Rejected", nil)
	errCanceled = dbus.NewError("org.bluez.Error.Canceled", nil)
)

// Sink receives link and security events from the transport.
// *peripheral.Peripheral implements it.
type Sink interface {
	Connected(link *peripheral.Link, err error)
	Disconnected(link *peripheral.Link, reason int)
	ProtocolModeChanged(link *peripheral.Link, mode peripheral.Mode)
	PasskeyDisplay(link *peripheral.Link, passkey uint32)
	PasskeyConfirm(link *peripheral.Link, passkey uint32)
	AuthCancel(link *peripheral.Link)
	PairingComplete(link *peripheral.Link, bonded bool)
	PairingFailed(link *peripheral.Link, reason int)
}

// Agent implements org.bluez.Agent1 with DisplayYesNo capability.
//
// RequestConfirmation blocks the D-Bus call until the operator answers
// through Confirm or Reject, or until the timeout expires.
type Agent struct {
	links    *links
	sink     Sink
	timeout  time.Duration
	linkWait time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[peripheral.Address]chan bool
}

func newAgent(l *links, sink Sink, timeout time.Duration, logger *slog.Logger) *Agent {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Agent{
		links:    l,
		sink:     sink,
		timeout:  timeout,
		linkWait: linkWait,
		logger:   logger,
		pending:  make(map[peripheral.Address]chan bool),
	}
}

func (a *Agent) register(conn *dbus.Conn) error {
	if err := conn.Export(a, agentPath, bluezAgentInterface); err != nil {
		return fmt.Errorf("export agent: %w", err)
	}
	mgr := conn.Object(bluezBusName, bluezObjectPath)
	if err := mgr.Call(bluezAgentManager+".RegisterAgent", 0, agentPath, agentCapability).Err; err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	if err := mgr.Call(bluezAgentManager+".RequestDefaultAgent", 0, agentPath).Err; err != nil {
		return fmt.Errorf("request default agent: %w", err)
	}
	a.logger.Info("Pairing agent registered", "path", agentPath, "capability", agentCapability)
	return nil
}

func (a *Agent) unregister(conn *dbus.Conn) {
	mgr := conn.Object(bluezBusName, bluezObjectPath)
	if err := mgr.Call(bluezAgentManager+".UnregisterAgent", 0, agentPath).Err; err != nil {
		a.logger.Debug("unregister agent", "error", err)
	}
	_ = conn.Export(nil, agentPath, bluezAgentInterface)
}

// Confirm accepts the pending numeric comparison of link.
func (a *Agent) Confirm(link *peripheral.Link) error { return a.reply(link, true) }

// Reject refuses the pending numeric comparison of link.
func (a *Agent) Reject(link *peripheral.Link) error { return a.reply(link, false) }

func (a *Agent) reply(link *peripheral.Link, accept bool) error {
	a.mu.Lock()
	ch, ok := a.pending[link.Addr]
	delete(a.pending, link.Addr)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", link.Addr, ErrNoPendingRequest)
	}
	ch <- accept
	return nil
}

func (a *Agent) link(device dbus.ObjectPath) (*peripheral.Link, *dbus.Error) {
	addr, err := addressFromPath(device)
	if err != nil {
		a.logger.Warn("agent request for unknown object", "path", device)
		return nil, errRejected
	}
	// Only LE links reported by the connect handler are served. Anything
	// else (BR/EDR, or a peer that never connected) is refused.
	link, ok := a.links.wait(addr, a.linkWait)
	if !ok {
		a.logger.Warn("agent request from a peer without a connection", "addr", addr)
		return nil, errRejected
	}
	return link, nil
}

func (a *Agent) Release() *dbus.Error {
	a.logger.Info("Pairing agent released by BlueZ")
	return nil
}

func (a *Agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	return "", errRejected
}

func (a *Agent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	return errRejected
}

func (a *Agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	return 0, errRejected
}

func (a *Agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	link, derr := a.link(device)
	if derr != nil {
		return derr
	}
	if entered == 0 {
		a.sink.PasskeyDisplay(link, passkey)
	}
	return nil
}

func (a *Agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	link, derr := a.link(device)
	if derr != nil {
		return derr
	}

	ch := make(chan bool, 1)
	a.mu.Lock()
	if old, ok := a.pending[link.Addr]; ok {
		old <- false
	}
	a.pending[link.Addr] = ch
	a.mu.Unlock()

	a.sink.PasskeyConfirm(link, passkey)

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()
	select {
	case accept := <-ch:
		if accept {
			return nil
		}
		return errRejected
	case <-timer.C:
		a.mu.Lock()
		if a.pending[link.Addr] == ch {
			delete(a.pending, link.Addr)
		}
		a.mu.Unlock()
		a.logger.Warn("Passkey confirmation timed out", "link", link)
		a.sink.PairingFailed(link, smpUnspecifiedReason)
		return errCanceled
	}
}

func (a *Agent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	return errRejected
}

func (a *Agent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	return nil
}

// Cancel aborts every outstanding confirmation. BlueZ does not say which
// request it cancels.
func (a *Agent) Cancel() *dbus.Error {
	a.mu.Lock()
	pending := a.pending
	a.pending = make(map[peripheral.Address]chan bool)
	a.mu.Unlock()

	for addr, ch := range pending {
		ch <- false
		if link, ok := a.links.get(addr); ok {
			a.sink.AuthCancel(link)
			a.sink.PairingFailed(link, smpUnspecifiedReason)
		}
	}
	return nil
}
