// Package peripheral is the control core of a multi-client BLE HID mouse.
//
// A Peripheral owns the client table, the movement and pairing queues and the
// advertising controller. Transport callbacks and input sources call its
// ingress methods from any goroutine; those never block and never touch the
// state directly. All processing happens on a single worker goroutine started
// by Run.
package peripheral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Alia5/blemouse/device"
	"github.com/Alia5/blemouse/device/mouse"
	"github.com/Alia5/blemouse/internal/log"
)

var (
	// ErrAdvertisingTimeout is passed to Connected when directed advertising
	// ended without a connection.
	ErrAdvertisingTimeout = errors.New("directed advertising timed out")
	ErrAlreadyRunning     = errors.New("peripheral already running")
	// ErrBusy is returned when the worker's ingress channel is full.
	ErrBusy = errors.New("peripheral busy")
)

// Peripheral is the event ingress and owner of all core state.
type Peripheral struct {
	cfg      Config
	tr       Transport
	logger   *slog.Logger
	raw      log.RawLogger
	notifier Notifier

	clients    *ClientTable
	movement   *MovementQueue
	dispatcher *Dispatcher
	adv        *Advertising
	pairing    *PairingQueue

	worker       *Worker
	advWork      *Work
	dispatchWork *Work
	pairingWork  *Work

	shared  bool
	running atomic.Bool
	now     func() time.Time
}

// New wires a peripheral on top of tr. raw and notifier may be nil.
//
// Directed advertising is switched off when tr reports it cannot do it, so
// the advertising controller never stalls on a bonded peer.
func New(cfg Config, tr Transport, logger *slog.Logger, raw log.RawLogger, notifier Notifier) *Peripheral {
	cfg = cfg.withDefaults()
	if ds, ok := tr.(DirectedSupport); ok && cfg.DirectedAdvertising && !ds.SupportsDirected() {
		logger.Warn("Transport cannot do directed advertising, using undirected advertising only")
		cfg.DirectedAdvertising = false
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	p := &Peripheral{
		cfg:      cfg,
		tr:       tr,
		logger:   logger,
		raw:      raw,
		notifier: notifier,
		clients:  NewClientTable(cfg.MaxClients),
		movement: NewMovementQueue(cfg.MovementQueueSize),
		pairing:  NewPairingQueue(cfg.MaxClients),
		worker:   NewWorker(cfg.EventQueueSize),
		shared:   sharesReports(tr),
		now:      time.Now,
	}
	p.dispatcher = NewDispatcher(p.movement, p.clients, tr, logger, raw)
	p.adv = NewAdvertising(tr, tr, p.clients, cfg.DirectedAdvertising, logger)
	p.adv.notify = func(s AdvState) {
		p.emit(Event{Type: EventAdvertisingChanged, Mode: s.String()})
	}

	p.advWork = p.worker.NewWork("advertising", func() { _ = p.adv.Start() })
	p.dispatchWork = p.worker.NewWork("movement", func() { p.dispatcher.Dispatch() })
	p.pairingWork = p.worker.NewWork("pairing", p.processPairing)
	return p
}

// Run starts advertising and processes events until ctx is done.
// Pending pairing references are released on return.
func (p *Peripheral) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	if err := mouse.ValidateReportGroup(mouse.Reports); err != nil {
		return fmt.Errorf("report group: %w", err)
	}
	p.logger.Info("Peripheral started", "max_clients", p.cfg.MaxClients, "directed_advertising", p.cfg.DirectedAdvertising)
	p.advWork.Submit()
	p.worker.Run(ctx)

	p.pairing.Clear()
	p.logger.Info("Peripheral stopped")
	return nil
}

// Connected is called when a connection attempt finished. err is
// ErrAdvertisingTimeout when directed advertising expired.
func (p *Peripheral) Connected(link *Link, err error) {
	p.post("connected", func() { p.onConnected(link, err) })
}

// Disconnected is called when link went away.
func (p *Peripheral) Disconnected(link *Link, reason int) {
	p.post("disconnected", func() { p.onDisconnected(link, reason) })
}

// SecurityChanged reports a security level change or failure on link.
func (p *Peripheral) SecurityChanged(link *Link, level int, err error) {
	ev := Event{Type: EventSecurityChanged, Addr: link.Addr, Link: link.ID, Level: level}
	if err != nil {
		ev.Error = err.Error()
		p.logger.Warn("Security failed", "link", link, "level", level, "error", err)
	} else {
		p.logger.Info("Security changed", "link", link, "level", level)
	}
	p.emit(ev)
}

// ProtocolModeChanged records the HID protocol mode selected by link's host.
func (p *Peripheral) ProtocolModeChanged(link *Link, mode Mode) {
	p.post("protocol mode", func() {
		if !p.clients.SetMode(link, mode) {
			return
		}
		p.logger.Info("Protocol mode entered", "link", link, "mode", mode)
		p.emit(Event{Type: EventProtocolMode, Addr: link.Addr, Link: link.ID, Mode: mode.String()})
	})
}

// PasskeyDisplay shows a passkey the peer has to enter. No confirmation is needed.
func (p *Peripheral) PasskeyDisplay(link *Link, passkey uint32) {
	p.logger.Info(fmt.Sprintf("Passkey for %s: %06d", link.Addr, passkey))
	p.emit(Event{Type: EventPasskeyDisplay, Addr: link.Addr, Link: link.ID, Passkey: &passkey})
}

// PasskeyConfirm queues a numeric comparison request for the operator.
func (p *Peripheral) PasskeyConfirm(link *Link, passkey uint32) {
	p.post("passkey confirm", func() { p.onPasskeyConfirm(link, passkey) })
}

// AuthCancel reports that the peer cancelled authentication.
func (p *Peripheral) AuthCancel(link *Link) {
	p.logger.Info("Pairing cancelled", "link", link)
	p.emit(Event{Type: EventAuthCancel, Addr: link.Addr, Link: link.ID})
}

func (p *Peripheral) PairingComplete(link *Link, bonded bool) {
	p.logger.Info("Pairing completed", "link", link, "bonded", bonded)
	p.emit(Event{Type: EventPairingComplete, Addr: link.Addr, Link: link.ID, Bonded: &bonded})
}

// PairingFailed drops link's request if it is the one being shown.
func (p *Peripheral) PairingFailed(link *Link, reason int) {
	p.post("pairing failed", func() {
		if p.pairing.FailHead(link) && p.pairing.Len() > 0 {
			p.pairingWork.Submit()
		}
		p.logger.Warn("Pairing failed", "link", link, "reason", reason)
		p.emit(Event{Type: EventPairingFailed, Addr: link.Addr, Link: link.ID, Reason: reason})
	})
}

// Buttons handles a transition of the input buttons. state is the current
// button state and changed has a bit set for every button that flipped.
//
// While a pairing request is pending, the accept and reject buttons answer
// it and produce no movement.
func (p *Peripheral) Buttons(state, changed uint32) {
	pressed := state & changed
	if p.pairing.Len() > 0 {
		if pressed&KeyPairingAccept != 0 {
			_ = p.ResolvePairing(true)
			return
		}
		if pressed&KeyPairingReject != 0 {
			_ = p.ResolvePairing(false)
			return
		}
	}
	if d, ok := movementFromButtons(pressed, p.cfg.Speed); ok {
		_ = p.Move(d.DX, d.DY)
	}
}

// Move queues one relative movement for every connected client.
func (p *Peripheral) Move(dx, dy int16) error {
	if err := p.movement.Enqueue(MovementDelta{DX: dx, DY: dy}); err != nil {
		p.logger.Warn("No space in the movement queue", "dx", dx, "dy", dy)
		return err
	}
	p.dispatchWork.Submit()
	return nil
}

// ResolvePairing answers the request at the head of the pairing queue.
// Nothing happens when no request is pending.
func (p *Peripheral) ResolvePairing(accept bool) error {
	if !p.post("pairing reply", func() { p.resolvePairing(accept) }) {
		return ErrBusy
	}
	return nil
}

// Press sends a buttons report with the given button mask to every client
// in report mode.
func (p *Peripheral) Press(buttons uint8) error {
	return p.broadcast(mouse.ReportIndexButtons, "buttons", &mouse.InputState{Buttons: buttons})
}

// Media sends a consumer control report to every client in report mode.
func (p *Peripheral) Media(keys uint8) error {
	return p.broadcast(mouse.ReportIndexMedia, "media", &mouse.MediaState{Keys: keys})
}

// Status is a point in time view of the peripheral.
type Status struct {
	Advertising    AdvState
	Backlog        []Address
	Clients        []ClientInfo
	MaxClients     int
	Pairing        []PendingPairing
	MovementQueued int
	DroppedEvents  uint64
}

func (p *Peripheral) Status() Status {
	return Status{
		Advertising:    p.adv.State(),
		Backlog:        p.adv.Backlog(),
		Clients:        p.clients.Snapshot(),
		MaxClients:     p.clients.Cap(),
		Pairing:        p.pairing.Pending(),
		MovementQueued: p.movement.Len(),
		DroppedEvents:  p.worker.Dropped(),
	}
}

func (p *Peripheral) onConnected(link *Link, err error) {
	p.adv.OnConnect()

	if err != nil {
		if errors.Is(err, ErrAdvertisingTimeout) {
			p.logger.Info("Direct advertising timed out", "link", link)
			_ = p.adv.OnDirectedTimeout()
			return
		}
		p.logger.Warn("Failed to connect", "link", link, "error", err)
		return
	}

	p.logger.Info("Connected", "link", link)
	if err := p.tr.Connected(link); err != nil {
		p.logger.Error("Failed to notify HID service about connection", "link", link, "error", err)
		return
	}
	slot, err := p.clients.Insert(link)
	if err != nil {
		p.logger.Warn("Connection could not be tracked", "link", link, "error", err)
		if err := p.tr.Disconnected(link); err != nil {
			p.logger.Error("Failed to release untracked connection", "link", link, "error", err)
		}
		return
	}
	p.emit(Event{Type: EventConnected, Addr: link.Addr, Link: link.ID})
	p.logger.Debug("Client slot assigned", "link", link, "slot", slot)

	if p.clients.HasFreeSlot() {
		p.advWork.Submit()
	}
}

func (p *Peripheral) onDisconnected(link *Link, reason int) {
	p.logger.Info("Disconnected", "link", link, "reason", reason)
	if err := p.tr.Disconnected(link); err != nil {
		p.logger.Error("Failed to notify HID service about disconnection", "link", link, "error", err)
	}
	if p.clients.Remove(link) {
		p.emit(Event{Type: EventDisconnected, Addr: link.Addr, Link: link.ID, Reason: reason})
	}
	p.advWork.Submit()
}

func (p *Peripheral) onPasskeyConfirm(link *Link, passkey uint32) {
	first, err := p.pairing.Push(link, passkey)
	if err != nil {
		p.logger.Warn("Pairing queue is full, rejecting request", "link", link)
		if err := p.tr.CancelPairing(link); err != nil {
			p.logger.Error("Failed to cancel pairing", "link", link, "error", err)
		}
		return
	}
	if first {
		p.pairingWork.Submit()
	}
}

func (p *Peripheral) processPairing() {
	head, ok := p.pairing.Head()
	if !ok {
		return
	}
	p.logger.Info(fmt.Sprintf("Passkey for %s: %06d", head.Link.Addr, head.Passkey))
	p.logger.Info("Press Button 1 to confirm, Button 2 to reject.")
	passkey := head.Passkey
	p.emit(Event{Type: EventPasskeyConfirm, Addr: head.Link.Addr, Link: head.Link.ID, Passkey: &passkey})
}

func (p *Peripheral) resolvePairing(accept bool) {
	ref, _, ok := p.pairing.Pop()
	if !ok {
		return
	}
	link, err := ref.Link()
	if err != nil {
		p.logger.Error("Pairing request lost its link", "error", err)
		return
	}

	if accept {
		err = p.tr.ConfirmPasskey(link)
		p.logger.Info("Numeric match", "link", link)
	} else {
		err = p.tr.CancelPairing(link)
		p.logger.Info("Numeric reject", "link", link)
	}
	if err != nil {
		p.logger.Error("Failed to answer pairing request", "link", link, "accept", accept, "error", err)
	}
	p.emit(Event{Type: EventPairingResolved, Addr: link.Addr, Link: link.ID, Accepted: &accept})

	if err := ref.Release(); err != nil {
		p.logger.Error("Release pairing link", "link", link, "error", err)
	}
	if p.pairing.Len() > 0 {
		p.pairingWork.Submit()
	}
}

func (p *Peripheral) broadcast(index int, name string, rb device.ReportBuilder) error {
	report := rb.BuildReport()
	if !p.post(name+" report", func() {
		f := &fanout{shared: p.shared}
		p.clients.ForEachOccupied(func(slot int, link *Link, mode Mode) {
			if mode != ModeReport || f.skip(mode) {
				return
			}
			p.raw.Log(link.String(), name, report)
			if err := p.tr.SendReport(link, index, report); err != nil {
				p.logger.Warn("send report", "report", name, "slot", slot, "link", link, "error", err)
				return
			}
			f.sent(mode)
		})
	}) {
		return ErrBusy
	}
	return nil
}

func (p *Peripheral) post(what string, fn func()) bool {
	if p.worker.Post(fn) {
		return true
	}
	p.logger.Warn("Event queue full, dropping event", "event", what)
	return false
}

func (p *Peripheral) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = p.now()
	}
	p.notifier.Notify(ev)
}
