package testing

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// Call is one recorded collaborator invocation.
type Call struct {
	Op    string
	Link  *peripheral.Link
	Addr  peripheral.Address
	Index int
	Data  []byte
}

// Transport is an in-memory peripheral.Transport that records every call.
//
// Shared and NoDirected must be set before the transport is handed to
// peripheral.New.
type Transport struct {
	// Shared makes one report write count for every host.
	Shared bool
	// NoDirected reports that directed advertising is unavailable.
	NoDirected bool

	mu    sync.Mutex
	calls []Call
	bonds []peripheral.Address
	fail  map[string]error
}

var (
	_ peripheral.Transport       = (*Transport)(nil)
	_ peripheral.SharedReporter  = (*Transport)(nil)
	_ peripheral.DirectedSupport = (*Transport)(nil)
)

func NewTransport(bonds ...peripheral.Address) *Transport {
	return &Transport{bonds: bonds, fail: map[string]error{}}
}

// Fail makes every later call to op return err. A nil err clears it.
func (f *Transport) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *Transport) SetBonds(bonds ...peripheral.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bonds = bonds
}

func (f *Transport) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Op]
}

func (f *Transport) SharedReports() bool { return f.Shared }

func (f *Transport) SupportsDirected() bool { return !f.NoDirected }

func (f *Transport) StartDirected(addr peripheral.Address) error {
	return f.record(Call{Op: "StartDirected", Addr: addr})
}

func (f *Transport) StartUndirected() error { return f.record(Call{Op: "StartUndirected"}) }

func (f *Transport) StopAdvertising() error { return f.record(Call{Op: "StopAdvertising"}) }

func (f *Transport) SendReport(link *peripheral.Link, index int, data []byte) error {
	return f.record(Call{Op: "SendReport", Link: link, Index: index, Data: slices.Clone(data)})
}

func (f *Transport) SendBootMouse(link *peripheral.Link, dx, dy int8) error {
	return f.record(Call{Op: "SendBootMouse", Link: link, Data: []byte{byte(dx), byte(dy)}})
}

func (f *Transport) ConfirmPasskey(link *peripheral.Link) error {
	return f.record(Call{Op: "ConfirmPasskey", Link: link})
}

func (f *Transport) CancelPairing(link *peripheral.Link) error {
	return f.record(Call{Op: "CancelPairing", Link: link})
}

func (f *Transport) ForEachBond(fn func(peripheral.Address)) error {
	f.mu.Lock()
	bonds := slices.Clone(f.bonds)
	err := f.fail["ForEachBond"]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	for _, b := range bonds {
		fn(b)
	}
	return nil
}

func (f *Transport) Connected(link *peripheral.Link) error {
	return f.record(Call{Op: "Connected", Link: link})
}

func (f *Transport) Disconnected(link *peripheral.Link) error {
	return f.record(Call{Op: "Disconnected", Link: link})
}

// Calls returns the recorded calls, optionally filtered by op.
func (f *Transport) Calls(ops ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, 0, len(f.calls))
	for _, c := range f.calls {
		if len(ops) == 0 || slices.Contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Transport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// WaitCalls waits until at least n calls to op were recorded and returns them.
func (f *Transport) WaitCalls(t *testing.T, op string, n int) []Call {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.Calls(op)) >= n }, 2*time.Second, 5*time.Millisecond,
		"waiting for %d %s calls", n, op)
	return f.Calls(op)
}

// Notifier records peripheral events.
type Notifier struct {
	mu     sync.Mutex
	events []peripheral.Event
}

func (n *Notifier) Notify(ev peripheral.Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *Notifier) Events(types ...peripheral.EventType) []peripheral.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]peripheral.Event, 0, len(n.events))
	for _, ev := range n.events {
		if len(types) == 0 || slices.Contains(types, ev.Type) {
			out = append(out, ev)
		}
	}
	return out
}
