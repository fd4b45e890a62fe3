package peripheral

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// AdvState is the advertising controller state.
type AdvState int32

const (
	AdvIdle AdvState = iota
	AdvDirected
	AdvUndirected
)

func (s AdvState) String() string {
	switch s {
	case AdvDirected:
		return "directed"
	case AdvUndirected:
		return "undirected"
	default:
		return "idle"
	}
}

// Advertising chooses between directed advertising to bonded peers and
// undirected general discoverable advertising. Its methods run on the worker;
// State and Backlog may be read from anywhere.
type Advertising struct {
	adv      Advertiser
	bonds    BondStore
	clients  *ClientTable
	directed bool
	logger   *slog.Logger
	notify   func(AdvState)

	state atomicAdvState

	mu      sync.Mutex
	backlog []Address
}

type atomicAdvState struct{ v atomic.Int32 }

func (a *atomicAdvState) Load() AdvState   { return AdvState(a.v.Load()) }
func (a *atomicAdvState) Store(s AdvState) { a.v.Store(int32(s)) }

func NewAdvertising(adv Advertiser, bonds BondStore, clients *ClientTable, directed bool, logger *slog.Logger) *Advertising {
	return &Advertising{
		adv:      adv,
		bonds:    bonds,
		clients:  clients,
		directed: directed,
		logger:   logger,
		notify:   func(AdvState) {},
	}
}

func (a *Advertising) State() AdvState { return a.state.Load() }

// Backlog returns the bonded peers still waiting for a directed attempt.
func (a *Advertising) Backlog() []Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Address(nil), a.backlog...)
}

// Start begins a new advertising cycle: the backlog is rebuilt from the
// bonded peers that are not connected, then the next step is taken.
func (a *Advertising) Start() error {
	a.rebuildBacklog()
	return a.advance()
}

// OnConnect marks advertising stopped. The controller ends advertising by
// itself when a connection is established.
func (a *Advertising) OnConnect() {
	a.setState(AdvIdle)
}

// OnDirectedTimeout moves on to the next bonded peer, or to undirected
// advertising once the backlog is exhausted.
func (a *Advertising) OnDirectedTimeout() error {
	if a.State() == AdvDirected {
		a.setState(AdvIdle)
	}
	return a.advance()
}

func (a *Advertising) rebuildBacklog() {
	var backlog []Address
	if a.directed && a.bonds != nil {
		err := a.bonds.ForEachBond(func(addr Address) {
			if !a.clients.Contains(addr) {
				backlog = append(backlog, addr)
			}
		})
		if err != nil {
			a.logger.Warn("enumerate bonds", "error", err)
		}
	}
	a.mu.Lock()
	a.backlog = backlog
	a.mu.Unlock()
}

func (a *Advertising) popBacklog() (Address, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.backlog) == 0 {
		return "", false
	}
	addr := a.backlog[0]
	a.backlog = a.backlog[1:]
	return addr, true
}

func (a *Advertising) advance() error {
	if addr, ok := a.popBacklog(); ok {
		if a.State() != AdvIdle {
			if err := a.adv.StopAdvertising(); err != nil {
				a.logger.Error("stop advertising", "error", err)
				return fmt.Errorf("stop advertising: %w", err)
			}
			a.setState(AdvIdle)
		}
		if err := a.adv.StartDirected(addr); err != nil {
			a.logger.Error("start directed advertising", "addr", addr, "error", err)
			return fmt.Errorf("start directed advertising to %s: %w", addr, err)
		}
		a.logger.Info("Directed advertising started", "addr", addr)
		a.setState(AdvDirected)
		return nil
	}

	if a.State() != AdvIdle {
		return nil
	}
	if err := a.adv.StartUndirected(); err != nil {
		a.logger.Error("start advertising", "error", err)
		return fmt.Errorf("start advertising: %w", err)
	}
	a.logger.Info("Regular advertising started")
	a.setState(AdvUndirected)
	return nil
}

func (a *Advertising) setState(s AdvState) {
	if a.state.Load() == s {
		return
	}
	a.state.Store(s)
	a.notify(s)
}
