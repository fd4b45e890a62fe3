package ble

import (
	"sync"
	"time"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// links maps peer addresses to the Link of their current connection.
// It owns the reference created by peripheral.NewLink.
type links struct {
	mu    sync.Mutex
	byAdr map[peripheral.Address]*peripheral.Link
	// opened is closed and replaced whenever a link is created.
	opened chan struct{}
}

func newLinks() *links {
	return &links{
		byAdr:  make(map[peripheral.Address]*peripheral.Link),
		opened: make(chan struct{}),
	}
}

// open returns the link for addr, creating it when absent. created reports
// whether a new link was made.
func (l *links) open(addr peripheral.Address) (link *peripheral.Link, created bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if link, ok := l.byAdr[addr]; ok {
		return link, false
	}
	link = peripheral.NewLink(addr)
	l.byAdr[addr] = link
	close(l.opened)
	l.opened = make(chan struct{})
	return link, true
}

func (l *links) get(addr peripheral.Address) (*peripheral.Link, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	link, ok := l.byAdr[addr]
	return link, ok
}

// wait returns the link for addr, waiting up to d for it to be opened.
func (l *links) wait(addr peripheral.Address, d time.Duration) (*peripheral.Link, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		l.mu.Lock()
		link, ok := l.byAdr[addr]
		opened := l.opened
		l.mu.Unlock()
		if ok {
			return link, true
		}
		select {
		case <-opened:
		case <-timer.C:
			return nil, false
		}
	}
}

// close forgets addr and drops the owning reference.
func (l *links) close(addr peripheral.Address) (*peripheral.Link, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	link, ok := l.byAdr[addr]
	if !ok {
		return nil, false
	}
	delete(l.byAdr, addr)
	link.Unref()
	return link, true
}

func (l *links) all() []*peripheral.Link {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*peripheral.Link, 0, len(l.byAdr))
	for _, link := range l.byAdr {
		out = append(out, link)
	}
	return out
}
