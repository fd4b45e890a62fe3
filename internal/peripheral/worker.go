package peripheral

import (
	"context"
	"sync/atomic"
)

// Work is a unit of deferred processing run on a Worker.
//
// Submitting a Work that is already pending is a no-op, so a burst of
// triggers collapses into a single run. A Work submitted while it runs is
// run again afterwards.
type Work struct {
	name    string
	fn      func()
	pending atomic.Bool
	w       *Worker
}

// Submit schedules the work. It never blocks.
func (wk *Work) Submit() {
	if !wk.pending.CompareAndSwap(false, true) {
		return
	}
	wk.w.queue <- wk
}

// Pending reports whether the work is scheduled and not yet started.
func (wk *Work) Pending() bool { return wk.pending.Load() }

// Worker runs Work items and ingress functions on a single goroutine.
type Worker struct {
	works  []*Work
	queue  chan *Work
	events chan func()
	drops  atomic.Uint64
}

// NewWorker creates a worker whose ingress channel holds eventCap functions.
// Works must be registered with NewWork before Run is called.
func NewWorker(eventCap int) *Worker {
	if eventCap < 1 {
		eventCap = 1
	}
	return &Worker{events: make(chan func(), eventCap)}
}

// NewWork registers fn under name.
func (w *Worker) NewWork(name string, fn func()) *Work {
	wk := &Work{name: name, fn: fn, w: w}
	w.works = append(w.works, wk)
	// Each work is in the queue at most once, so len(works) slots
	// guarantee Submit never blocks.
	w.queue = make(chan *Work, len(w.works))
	return wk
}

// Post hands fn to the worker. It returns false without blocking when the
// ingress channel is full.
func (w *Worker) Post(fn func()) bool {
	select {
	case w.events <- fn:
		return true
	default:
		w.drops.Add(1)
		return false
	}
}

// Dropped returns how many posted functions were rejected.
func (w *Worker) Dropped() uint64 { return w.drops.Load() }

// Run processes works and posted functions until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case wk := <-w.queue:
			wk.pending.Store(false)
			wk.fn()
		case fn := <-w.events:
			fn()
		}
	}
}
