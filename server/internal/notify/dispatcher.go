package notify

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Receiver is told how many alerts currently need attention.
type Receiver interface {
	AlertsAvailable(count int)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(count int)

func (f ReceiverFunc) AlertsAvailable(count int) { f(count) }

// Stats are cumulative dispatcher counters.
type Stats struct {
	Delivered uint64 // receiver calls that returned normally
	Failed    uint64 // receiver calls that panicked
	Rejected  uint64 // drain tasks the executor refused
	Dropped   uint64 // counts discarded from a full mailbox
}

// DefaultMailboxLimit bounds the counts waiting for one receiver.
const DefaultMailboxLimit = 1024

// Dispatcher delivers counts to registered receivers through an Executor.
//
// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	exec  Executor
	log   zerolog.Logger
	limit int

	mu    sync.RWMutex
	boxes []*mailbox

	delivered atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
}

type mailbox struct {
	recv Receiver

	mu      sync.Mutex
	pending []int
	running bool // a drain task is scheduled or executing
	full    bool // the limit was hit since the mailbox last emptied
}

// New creates a Dispatcher that runs receiver calls on exec.
func New(exec Executor, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		exec:  exec,
		log:   logger.With().Str("component", "notify").Logger(),
		limit: DefaultMailboxLimit,
	}
}

// AddReceiver registers r. Counts enqueued before registration are not
// delivered to it.
func (d *Dispatcher) AddReceiver(r Receiver) {
	d.mu.Lock()
	d.boxes = append(d.boxes, &mailbox{recv: r})
	d.mu.Unlock()
}

// Receivers returns the number of registered receivers.
func (d *Dispatcher) Receivers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.boxes)
}

// Enqueue records count for every receiver and returns a function that
// schedules delivery. Callers that need cross-caller ordering call Enqueue
// while holding their own sequencing lock and invoke the returned function
// after releasing it.
//
// A receiver that stops returning accumulates counts; once its mailbox holds
// DefaultMailboxLimit of them the oldest is dropped for each new one.
func (d *Dispatcher) Enqueue(count int) (schedule func()) {
	d.mu.RLock()
	boxes := d.boxes
	d.mu.RUnlock()

	var idle []*mailbox
	for _, b := range boxes {
		b.mu.Lock()
		if len(b.pending) >= d.limit {
			b.pending = b.pending[1:]
			d.dropped.Add(1)
			if !b.full {
				b.full = true
				d.log.Warn().Int("limit", d.limit).Msg("receiver is not keeping up, dropping oldest counts")
			}
		}
		b.pending = append(b.pending, count)
		if !b.running {
			b.running = true
			idle = append(idle, b)
		}
		b.mu.Unlock()
	}

	return func() {
		for _, b := range idle {
			d.schedule(b)
		}
	}
}

// Notify enqueues count and schedules delivery immediately.
func (d *Dispatcher) Notify(count int) {
	d.Enqueue(count)()
}

// Stats returns a snapshot of the delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Rejected:  d.rejected.Load(),
		Dropped:   d.dropped.Load(),
	}
}

func (d *Dispatcher) schedule(b *mailbox) {
	err := d.exec.Execute(func() { d.drain(b) })
	if errors.Is(err, ErrPoolFull) {
		// The caller runs the drain itself rather than wait on a queue
		// that may only empty once this caller returns.
		d.log.Debug().Msg("executor queue full, delivering on caller")
		d.drain(b)
		return
	}
	if err != nil {
		// Counts stay pending and go out with the next successful schedule.
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
		d.rejected.Add(1)
		d.log.Warn().Err(err).Msg("notification task rejected")
	}
}

// drain delivers pending counts in FIFO order until the mailbox is empty.
func (d *Dispatcher) drain(b *mailbox) {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.running = false
			b.full = false
			b.mu.Unlock()
			return
		}
		n := b.pending[0]
		b.pending = b.pending[1:]
		b.mu.Unlock()

		d.deliver(b.recv, n)
	}
}

func (d *Dispatcher) deliver(r Receiver, n int) {
	defer func() {
		if rec := recover(); rec != nil {
			d.failed.Add(1)
			d.log.Error().
				Interface("panic", rec).
				Int("count", n).
				Msg("receiver panicked")
		}
	}()
	r.AlertsAvailable(n)
	d.delivered.Add(1)
}
