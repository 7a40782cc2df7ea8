package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Receiver that records every count it is given.
type recorder struct {
	mu     sync.Mutex
	counts []int
}

func (r *recorder) AlertsAvailable(n int) {
	r.mu.Lock()
	r.counts = append(r.counts, n)
	r.mu.Unlock()
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.counts...)
}

// rejectingExecutor refuses every task.
type rejectingExecutor struct{}

func (rejectingExecutor) Execute(func()) error { return errors.New("rejected") }

// fullExecutor reports a full queue for every task.
type fullExecutor struct{}

func (fullExecutor) Execute(func()) error { return ErrPoolFull }

// --- Direct -----------------------------------------------------------------

func TestNotify_DirectDeliversOncePerReceiver(t *testing.T) {
	d := New(Direct{}, zerolog.Nop())
	a, b := &recorder{}, &recorder{}
	d.AddReceiver(a)
	d.AddReceiver(b)

	d.Notify(3)

	assert.Equal(t, []int{3}, a.got())
	assert.Equal(t, []int{3}, b.got())
	assert.Equal(t, Stats{Delivered: 2}, d.Stats())
	assert.Equal(t, 2, d.Receivers())
}

func TestNotify_NoReceivers(t *testing.T) {
	d := New(Direct{}, zerolog.Nop())
	d.Notify(1)
	assert.Equal(t, Stats{}, d.Stats())
}

func TestNotify_PanickingReceiverIsIsolated(t *testing.T) {
	d := New(Direct{}, zerolog.Nop())
	good := &recorder{}
	d.AddReceiver(ReceiverFunc(func(int) { panic("boom") }))
	d.AddReceiver(good)

	assert.NotPanics(t, func() { d.Notify(1) })
	assert.NotPanics(t, func() { d.Notify(2) })

	assert.Equal(t, []int{1, 2}, good.got())
	assert.Equal(t, Stats{Delivered: 2, Failed: 2}, d.Stats())
}

func TestEnqueue_ScheduleLaterPreservesOrder(t *testing.T) {
	d := New(Direct{}, zerolog.Nop())
	r := &recorder{}
	d.AddReceiver(r)

	first := d.Enqueue(1)
	second := d.Enqueue(2)

	// Nothing is delivered until a schedule function runs.
	assert.Empty(t, r.got())

	// The second mutation found the mailbox busy, so its schedule is a no-op
	// and the first schedule delivers both in order.
	second()
	assert.Empty(t, r.got())
	first()
	assert.Equal(t, []int{1, 2}, r.got())
}

func TestNotify_ReentrantReceiver(t *testing.T) {
	d := New(Direct{}, zerolog.Nop())
	r := &recorder{}
	var once sync.Once
	d.AddReceiver(ReceiverFunc(func(n int) {
		r.AlertsAvailable(n)
		once.Do(func() { d.Notify(n + 1) })
	}))

	d.Notify(1)
	assert.Equal(t, []int{1, 2}, r.got())
}

func TestNotify_RejectedTasksStayPending(t *testing.T) {
	d := New(rejectingExecutor{}, zerolog.Nop())
	r := &recorder{}
	d.AddReceiver(r)

	d.Notify(1)
	assert.Equal(t, uint64(1), d.Stats().Rejected)
	assert.Empty(t, r.got())

	// Swap in a working executor; the next notification flushes both counts.
	d.exec = Direct{}
	d.Notify(2)
	assert.Equal(t, []int{1, 2}, r.got())
}

// --- Pool -------------------------------------------------------------------

func TestPool_PerReceiverOrder(t *testing.T) {
	p := NewPool(4, 16, zerolog.Nop())
	defer p.Stop()

	d := New(p, zerolog.Nop())
	recs := []*recorder{{}, {}, {}}
	for _, r := range recs {
		d.AddReceiver(r)
	}

	const n = 200
	for i := 1; i <= n; i++ {
		d.Notify(i)
	}

	require.Eventually(t, func() bool {
		for _, r := range recs {
			if len(r.got()) != n {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)

	for _, r := range recs {
		got := r.got()
		for i, v := range got {
			require.Equal(t, i+1, v, "receiver saw counts out of order")
		}
	}
}

func TestPool_SlowReceiverDoesNotBlockCaller(t *testing.T) {
	p := NewPool(2, 4, zerolog.Nop())
	release := make(chan struct{})
	defer func() {
		close(release)
		p.Stop()
	}()

	d := New(p, zerolog.Nop())
	fast := &recorder{}
	d.AddReceiver(ReceiverFunc(func(int) { <-release }))
	d.AddReceiver(fast)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow receiver")
	}
	require.Eventually(t, func() bool { return len(fast.got()) == 10 }, time.Second, 5*time.Millisecond)
}

func TestPool_StopRejectsAndDrains(t *testing.T) {
	p := NewPool(1, 8, zerolog.Nop())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Execute(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	p.Stop()
	p.Stop()

	mu.Lock()
	assert.Equal(t, 5, ran, "queued tasks must run before Stop returns")
	mu.Unlock()

	err := p.Execute(func() {})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_PanickingTaskKeepsWorker(t *testing.T) {
	p := NewPool(1, 2, zerolog.Nop())
	defer p.Stop()

	require.NoError(t, p.Execute(func() { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, p.Execute(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestNewPool_ClampsArguments(t *testing.T) {
	p := NewPool(0, -1, zerolog.Nop())
	defer p.Stop()

	// An unbuffered queue only accepts a task while the worker is waiting.
	done := make(chan struct{})
	require.Eventually(t, func() bool {
		return p.Execute(func() { close(done) }) == nil
	}, time.Second, time.Millisecond)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("clamped pool did not run task")
	}
}

func TestPool_FullQueueDoesNotBlock(t *testing.T) {
	p := NewPool(1, 1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})
	defer func() {
		close(release)
		p.Stop()
	}()

	require.NoError(t, p.Execute(func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Execute(func() {}), "one slot is free")

	errCh := make(chan error, 1)
	go func() { errCh <- p.Execute(func() {}) }()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrPoolFull)
	case <-time.After(time.Second):
		t.Fatal("Execute blocked on a full queue")
	}
}

func TestNotify_FullExecutorDeliversOnCaller(t *testing.T) {
	d := New(fullExecutor{}, zerolog.Nop())
	r := &recorder{}
	d.AddReceiver(r)

	d.Notify(1)
	d.Notify(2)

	assert.Equal(t, []int{1, 2}, r.got())
	assert.Equal(t, Stats{Delivered: 2}, d.Stats())
}

// --- mailbox limit ----------------------------------------------------------

func TestEnqueue_MailboxLimitDropsOldest(t *testing.T) {
	p := NewPool(1, 4, zerolog.Nop())
	defer p.Stop()

	d := New(p, zerolog.Nop())
	d.limit = 3

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	r := &recorder{}
	d.AddReceiver(ReceiverFunc(func(n int) {
		once.Do(func() {
			close(started)
			<-release
		})
		r.AlertsAvailable(n)
	}))

	d.Notify(0)
	<-started
	for i := 1; i <= 10; i++ {
		d.Notify(i)
	}
	assert.Equal(t, uint64(7), d.Stats().Dropped)
	close(release)

	require.Eventually(t, func() bool { return len(r.got()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0, 8, 9, 10}, r.got(), "the newest counts survive")

	// The limit applies per stall: an idle mailbox accepts again.
	d.Notify(11)
	require.Eventually(t, func() bool { return len(r.got()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(7), d.Stats().Dropped)
}
