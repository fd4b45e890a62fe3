package peripheral

import (
	"errors"
	"log/slog"

	"github.com/Alia5/blemouse/device/mouse"
	"github.com/Alia5/blemouse/internal/log"
)

// ErrQueueFull is returned when a bounded queue has no room for a new item.
// The new item is dropped.
var ErrQueueFull = errors.New("queue full")

// MovementDelta is one relative movement in report units.
type MovementDelta struct {
	DX, DY int16
}

// MovementQueue is a bounded FIFO of pending deltas.
type MovementQueue struct {
	ch chan MovementDelta
}

func NewMovementQueue(capacity int) *MovementQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MovementQueue{ch: make(chan MovementDelta, capacity)}
}

// Enqueue adds d without blocking. The caller schedules a dispatch after
// every successful enqueue; Work.Submit folds those into one run.
func (q *MovementQueue) Enqueue(d MovementDelta) error {
	select {
	case q.ch <- d:
		return nil
	default:
		return ErrQueueFull
	}
}

// TryDequeue removes the oldest delta.
func (q *MovementQueue) TryDequeue() (MovementDelta, bool) {
	select {
	case d := <-q.ch:
		return d, true
	default:
		return MovementDelta{}, false
	}
}

func (q *MovementQueue) Len() int { return len(q.ch) }
func (q *MovementQueue) Cap() int { return cap(q.ch) }

// fanout tracks which protocol modes already got a report in one cycle.
// With a shared transport one successful write per mode reaches every host.
type fanout struct {
	shared bool
	done   [ModeBoot + 1]bool
}

func sharesReports(sender any) bool {
	s, ok := sender.(SharedReporter)
	return ok && s.SharedReports()
}

// skip reports whether mode was already served in this cycle.
func (f *fanout) skip(mode Mode) bool { return f.shared && f.done[mode] }

func (f *fanout) sent(mode Mode) { f.done[mode] = true }

func (f *fanout) reset() { f.done = [ModeBoot + 1]bool{} }

// Dispatcher drains a MovementQueue into every connected client.
type Dispatcher struct {
	queue   *MovementQueue
	clients *ClientTable
	sender  ReportSender
	logger  *slog.Logger
	raw     log.RawLogger
	shared  bool
}

func NewDispatcher(q *MovementQueue, clients *ClientTable, sender ReportSender, logger *slog.Logger, raw log.RawLogger) *Dispatcher {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Dispatcher{queue: q, clients: clients, sender: sender, logger: logger, raw: raw, shared: sharesReports(sender)}
}

// Dispatch sends every queued delta to every occupied slot, in slot order,
// encoded for the slot's protocol mode. On a shared transport each delta is
// written once per mode. It returns the number of deltas drained.
func (d *Dispatcher) Dispatch() int {
	n := 0
	f := &fanout{shared: d.shared}
	for {
		delta, ok := d.queue.TryDequeue()
		if !ok {
			return n
		}
		n++
		f.reset()
		d.clients.ForEachOccupied(func(slot int, link *Link, mode Mode) {
			if f.skip(mode) {
				return
			}
			if d.send(slot, link, mode, delta) {
				f.sent(mode)
			}
		})
	}
}

func (d *Dispatcher) send(slot int, link *Link, mode Mode, delta MovementDelta) bool {
	var err error
	switch mode {
	case ModeBoot:
		dx, dy := mouse.EncodeBootMovement(delta.DX, delta.DY)
		d.raw.Log(link.String(), "boot", mouse.BootReport(0, dx, dy))
		err = d.sender.SendBootMouse(link, dx, dy)
	default:
		report := mouse.EncodeMovement(delta.DX, delta.DY)
		d.raw.Log(link.String(), "movement", report[:])
		err = d.sender.SendReport(link, mouse.ReportIndexMovement, report[:])
	}
	if err != nil {
		d.logger.Warn("send movement report", "slot", slot, "link", link, "mode", mode, "error", err)
		return false
	}
	return true
}
