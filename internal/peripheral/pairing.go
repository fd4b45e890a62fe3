package peripheral

import (
	"sync"
)

// PendingPairing is a numeric comparison request waiting for the operator.
type PendingPairing struct {
	Link    *Link
	Passkey uint32
}

type pairingEntry struct {
	ref     *Ref
	passkey uint32
}

// PairingQueue serializes numeric comparison requests. Only the head entry
// is ever presented to the operator.
//
// Each entry holds its own reference on the link so the link outlives a
// disconnect that races with the operator's decision.
type PairingQueue struct {
	mu      sync.Mutex
	entries []pairingEntry
	cap     int
}

func NewPairingQueue(capacity int) *PairingQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &PairingQueue{cap: capacity}
}

// Push queues a request for link. A link already queued keeps its position
// and gets the new passkey. first is true when the request became the head
// of a previously empty queue.
func (q *PairingQueue) Push(link *Link, passkey uint32) (first bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if l, _ := q.entries[i].ref.Link(); l == link {
			q.entries[i].passkey = passkey
			return false, nil
		}
	}
	if len(q.entries) >= q.cap {
		return false, ErrQueueFull
	}
	q.entries = append(q.entries, pairingEntry{ref: link.Acquire(), passkey: passkey})
	return len(q.entries) == 1, nil
}

// Head returns the active request without removing it.
func (q *PairingQueue) Head() (PendingPairing, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return PendingPairing{}, false
	}
	l, err := q.entries[0].ref.Link()
	if err != nil {
		return PendingPairing{}, false
	}
	return PendingPairing{Link: l, Passkey: q.entries[0].passkey}, true
}

// Pop removes the head. The caller owns the returned reference.
func (q *PairingQueue) Pop() (*Ref, uint32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil, 0, false
	}
	e := q.entries[0]
	q.entries[0] = pairingEntry{}
	q.entries = q.entries[1:]
	return e.ref, e.passkey, true
}

// FailHead removes and releases the head only when it belongs to link.
func (q *PairingQueue) FailHead(link *Link) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return false
	}
	if l, _ := q.entries[0].ref.Link(); l != link {
		return false
	}
	_ = q.entries[0].ref.Release()
	q.entries[0] = pairingEntry{}
	q.entries = q.entries[1:]
	return true
}

// Pending returns all queued requests in order.
func (q *PairingQueue) Pending() []PendingPairing {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingPairing, 0, len(q.entries))
	for _, e := range q.entries {
		if l, err := e.ref.Link(); err == nil {
			out = append(out, PendingPairing{Link: l, Passkey: e.passkey})
		}
	}
	return out
}

// Clear releases every queued reference.
func (q *PairingQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		_ = e.ref.Release()
	}
	q.entries = nil
}

func (q *PairingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *PairingQueue) Cap() int { return q.cap }
