package peripheral

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// ErrRefReleased is returned when a Ref is used or released after Release.
var ErrRefReleased = errors.New("link reference already released")

// LinkID identifies a link for the lifetime of the process.
type LinkID uint32

// Address is a BLE device address in canonical "AA:BB:CC:DD:EE:FF" form.
type Address string

// ParseAddress normalizes a colon, dash or underscore separated address.
func ParseAddress(s string) (Address, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", ":", "_", ":").Replace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", fmt.Errorf("invalid address %q", s)
	}
	for _, p := range parts {
		if len(p) != 2 || !isHex(p[0]) || !isHex(p[1]) {
			return "", fmt.Errorf("invalid address %q", s)
		}
	}
	return Address(s), nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}

var linkCounter atomic.Uint32

// Link is an established connection to one peer.
//
// The transport owns one reference for as long as the connection exists.
// Anything that needs the link to outlive an asynchronous step (a pending
// pairing confirmation) takes its own reference with Acquire.
type Link struct {
	ID   LinkID
	Addr Address
	refs atomic.Int32
}

// NewLink creates a link holding a single reference owned by the caller.
func NewLink(addr Address) *Link {
	l := &Link{ID: LinkID(linkCounter.Add(1)), Addr: addr}
	l.refs.Store(1)
	return l
}

// Acquire takes an additional reference on the link.
func (l *Link) Acquire() *Ref {
	l.refs.Add(1)
	return &Ref{link: l}
}

// Refs returns the current reference count.
func (l *Link) Refs() int32 { return l.refs.Load() }

// Unref drops the reference obtained from NewLink.
func (l *Link) Unref() { l.refs.Add(-1) }

func (l *Link) String() string {
	if l == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", l.Addr, l.ID)
}

// Ref is a counted reference to a Link. Release must be called exactly once.
type Ref struct {
	link     *Link
	released atomic.Bool
}

// Link returns the referenced link, or ErrRefReleased after Release.
func (r *Ref) Link() (*Link, error) {
	if r.released.Load() {
		return nil, ErrRefReleased
	}
	return r.link, nil
}

// Release drops the reference. A second call returns ErrRefReleased and has no effect.
func (r *Ref) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return ErrRefReleased
	}
	r.link.refs.Add(-1)
	return nil
}
