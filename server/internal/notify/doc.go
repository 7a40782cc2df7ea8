// Package notify fans "alerts available" signals out to receivers.
//
// Every receiver owns a FIFO mailbox. Enqueue appends the pending count to
// each mailbox; the returned schedule function hands a drain task to the
// configured Executor when the mailbox is idle. At most one drain task per
// receiver is outstanding at any time, so a receiver observes counts in the
// order they were enqueued whatever the executor. Different receivers are
// not ordered relative to each other.
//
// Executors:
//
//	Direct  runs tasks inline on the caller's goroutine (tests)
//	Pool    fixed worker goroutines over a buffered task channel (production)
//
// Pool.Execute does not wait for queue space. When it reports ErrPoolFull
// the Dispatcher drains that mailbox on the scheduling goroutine, so a
// receiver calling back into the manager from a worker cannot deadlock on
// its own pool. A mailbox that reaches DefaultMailboxLimit drops its oldest
// counts and Stats.Dropped records how many.
//
// A receiver that panics is recovered and counted as failed; delivery to
// the other receivers is unaffected and nothing reaches the caller.
package notify
