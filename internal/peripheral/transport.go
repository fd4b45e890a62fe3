package peripheral

import "time"

// Advertiser starts and stops advertising on the controller.
type Advertiser interface {
	// StartDirected advertises to addr only, with RPA targeting when the
	// controller supports it.
	StartDirected(addr Address) error
	// StartUndirected starts one-shot general discoverable advertising with
	// the device's advertising and scan response payloads.
	StartUndirected() error
	StopAdvertising() error
}

// ReportSender delivers input reports to one link.
type ReportSender interface {
	SendReport(link *Link, index int, data []byte) error
	SendBootMouse(link *Link, dx, dy int8) error
}

// Security resolves numeric comparison requests.
type Security interface {
	ConfirmPasskey(link *Link) error
	CancelPairing(link *Link) error
}

// BondStore enumerates bonded peers.
type BondStore interface {
	ForEachBond(fn func(addr Address)) error
}

// HIDService tracks which links the HID GATT service serves.
type HIDService interface {
	Connected(link *Link) error
	Disconnected(link *Link) error
}

// SharedReporter is implemented by transports where one report write
// reaches every subscribed host. The core then writes each report once per
// protocol mode instead of once per link.
type SharedReporter interface {
	SharedReports() bool
}

// DirectedSupport is implemented by transports that can tell whether
// directed advertising is available. When it reports false the backlog of
// bonded peers is never built.
type DirectedSupport interface {
	SupportsDirected() bool
}

// Transport is the full set of collaborators the peripheral drives.
type Transport interface {
	Advertiser
	ReportSender
	Security
	BondStore
	HIDService
}

// EventType names a notification published to a Notifier.
type EventType string

const (
	EventConnected          EventType = "connected"
	EventDisconnected       EventType = "disconnected"
	EventSecurityChanged    EventType = "security_changed"
	EventProtocolMode       EventType = "protocol_mode"
	EventPasskeyDisplay     EventType = "passkey_display"
	EventPasskeyConfirm     EventType = "passkey_confirm"
	EventPairingResolved    EventType = "pairing_resolved"
	EventPairingComplete    EventType = "pairing_complete"
	EventPairingFailed      EventType = "pairing_failed"
	EventAuthCancel         EventType = "auth_cancel"
	EventAdvertisingChanged EventType = "advertising"
)

// Event is a user facing notification about the peripheral.
type Event struct {
	Type     EventType `json:"type"`
	Time     time.Time `json:"time"`
	Addr     Address   `json:"addr,omitempty"`
	Link     LinkID    `json:"link,omitempty"`
	Passkey  *uint32   `json:"passkey,omitempty"`
	Accepted *bool     `json:"accepted,omitempty"`
	Bonded   *bool     `json:"bonded,omitempty"`
	Mode     string    `json:"mode,omitempty"`
	Level    int       `json:"level,omitempty"`
	Reason   int       `json:"reason,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Notifier receives peripheral events. Notify must not block.
type Notifier interface {
	Notify(ev Event)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ev Event) {
	for _, n := range ns {
		n.Notify(ev)
	}
}
