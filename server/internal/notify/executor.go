package notify

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrPoolStopped is returned by Pool.Execute after Stop.
	ErrPoolStopped = errors.New("notify: worker pool stopped")

	// ErrPoolFull is returned by Pool.Execute when the task queue has no
	// room. The Dispatcher then runs the task on the calling goroutine.
	ErrPoolFull = errors.New("notify: worker pool queue full")
)

// Executor runs tasks, possibly asynchronously.
type Executor interface {
	Execute(task func()) error
}

// Direct runs every task on the calling goroutine before returning.
type Direct struct{}

func (Direct) Execute(task func()) error {
	task()
	return nil
}

// Pool runs tasks on a fixed set of worker goroutines. Execute never
// blocks: a full queue is reported as ErrPoolFull.
type Pool struct {
	tasks chan func()
	log   zerolog.Logger
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool starts workers goroutines reading from a queue of queueSize tasks.
// Non-positive arguments are raised to 1 and 0 respectively.
func NewPool(workers, queueSize int, logger zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		tasks: make(chan func(), queueSize),
		log:   logger.With().Str("component", "notify-pool").Logger(),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	p.log.Debug().Int("workers", workers).Int("queue_size", queueSize).Msg("worker pool started")
	return p
}

// Execute queues task for a worker.
func (p *Pool) Execute(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Stop rejects new tasks, lets the workers finish queued ones and waits for
// them to exit. Stop is idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug().Msg("worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	task()
}
