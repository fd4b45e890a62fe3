package peripheral

import (
	"errors"
	"sync"
)

// ErrNoFreeSlot is returned by ClientTable.Insert when every slot is occupied.
var ErrNoFreeSlot = errors.New("no free client slot")

// Mode is the HID protocol mode negotiated by a client.
type Mode uint8

const (
	ModeReport Mode = iota
	ModeBoot
)

func (m Mode) String() string {
	if m == ModeBoot {
		return "boot"
	}
	return "report"
}

// ClientInfo is a read-only view of an occupied slot.
type ClientInfo struct {
	Slot int
	Link *Link
	Mode Mode
}

type clientSlot struct {
	link *Link
	mode Mode
}

// ClientTable is a fixed-capacity registry of connected clients.
//
// Mutation happens on the worker; readers on other goroutines (status queries)
// go through the read lock. ForEachOccupied iterates a snapshot so a dispatch
// cycle sees one consistent view of the table.
type ClientTable struct {
	mu    sync.RWMutex
	slots []clientSlot
}

// NewClientTable creates a table with n slots.
func NewClientTable(n int) *ClientTable {
	if n < 1 {
		n = 1
	}
	return &ClientTable{slots: make([]clientSlot, n)}
}

// Insert stores link in the first free slot in report mode.
// A link already present keeps its slot.
func (t *ClientTable) Insert(link *Link) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	free := -1
	for i, s := range t.slots {
		if s.link == link {
			return i, nil
		}
		if s.link == nil && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return -1, ErrNoFreeSlot
	}
	t.slots[free] = clientSlot{link: link, mode: ModeReport}
	return free, nil
}

// Remove clears the slot holding link. Returns false if link was not present.
func (t *ClientTable) Remove(link *Link) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].link == link {
			t.slots[i] = clientSlot{}
			return true
		}
	}
	return false
}

// HasFreeSlot reports whether at least one slot is unoccupied.
func (t *ClientTable) HasFreeSlot() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.slots {
		if s.link == nil {
			return true
		}
	}
	return false
}

// SetMode updates the protocol mode of link. Returns false if link is unknown.
func (t *ClientTable) SetMode(link *Link, mode Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].link == link {
			t.slots[i].mode = mode
			return true
		}
	}
	return false
}

// Mode returns the protocol mode of link.
func (t *ClientTable) Mode(link *Link) (Mode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.slots {
		if s.link == link {
			return s.mode, true
		}
	}
	return ModeReport, false
}

// Contains reports whether a link to addr occupies a slot.
func (t *ClientTable) Contains(addr Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.slots {
		if s.link != nil && s.link.Addr == addr {
			return true
		}
	}
	return false
}

// Snapshot returns the occupied slots in slot-index order.
func (t *ClientTable) Snapshot() []ClientInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ClientInfo, 0, len(t.slots))
	for i, s := range t.slots {
		if s.link != nil {
			out = append(out, ClientInfo{Slot: i, Link: s.link, Mode: s.mode})
		}
	}
	return out
}

// ForEachOccupied calls fn for every occupied slot in slot-index order.
func (t *ClientTable) ForEachOccupied(fn func(slot int, link *Link, mode Mode)) {
	for _, c := range t.Snapshot() {
		fn(c.Slot, c.Link, c.Mode)
	}
}

// Len returns the number of occupied slots.
func (t *ClientTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.slots {
		if s.link != nil {
			n++
		}
	}
	return n
}

// Cap returns the number of slots.
func (t *ClientTable) Cap() int { return len(t.slots) }
