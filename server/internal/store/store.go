package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alertcore/alertcore/pkg/types"
)

// ErrNotFound is returned when an id does not identify a live alert.
var ErrNotFound = errors.New("alert not found")

// entry is one live alert together with its insertion sequence number.
type entry struct {
	seq   uint64
	alert types.Alert
}

// Store is a thread-safe in-memory alert store.
type Store struct {
	mu    sync.RWMutex
	byID  map[types.AlertID]*entry
	order []*entry // ascending seq, and therefore ascending CreatedAt
	seq   uint64
	last  time.Time        // CreatedAt of the most recent alert
	now   func() time.Time // injectable for deterministic tests
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		byID: make(map[types.AlertID]*entry),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create records a new alert with a single UNHANDLED event and returns its
// snapshot.
func (s *Store) Create(alertType string, level types.Level, description, content string) types.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if ts.Before(s.last) {
		// Clock went backwards; keep creation order monotonic.
		ts = s.last
	}
	s.last = ts
	s.seq++

	a := types.Alert{
		ID:          types.NewAlertID(),
		Type:        alertType,
		Level:       level,
		Description: description,
		Content:     content,
		CreatedAt:   ts,
		Events:      []types.Event{{State: types.StateUnhandled, Timestamp: ts}},
	}
	e := &entry{seq: s.seq, alert: a}
	s.byID[a.ID] = e
	s.order = append(s.order, e)
	return a.Clone()
}

// Get returns the current snapshot of the alert with the given id.
func (s *Store) Get(id types.AlertID) (types.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return types.Alert{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return e.alert.Clone(), nil
}

// Resolve parses the string form of an AlertID. It does not check whether
// the alert exists; a bad encoding yields types.ErrMalformedID.
func (s *Store) Resolve(id string) (types.AlertID, error) {
	return types.ParseAlertID(id)
}

// Alerts iterates every live alert in creation order.
func (s *Store) Alerts() *Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newIterator(s.order)
}

// AlertsSince iterates live alerts created strictly after since.
func (s *Store) AlertsSince(since time.Time) *Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := sort.Search(len(s.order), func(i int) bool {
		return s.order[i].alert.CreatedAt.After(since)
	})
	return newIterator(s.order[i:])
}

// AlertsAfter iterates live alerts created after the alert identified by id,
// excluding that alert. It fails with ErrNotFound when id is not live.
func (s *Store) AlertsAfter(id types.AlertID) (*Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("alerts after %s: %w", id, ErrNotFound)
	}
	i := s.indexOf(e.seq) + 1
	return newIterator(s.order[i:]), nil
}

// Remove erases the alert from the store and returns its last snapshot.
func (s *Store) Remove(id types.AlertID) (types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return types.Alert{}, fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	i := s.indexOf(e.seq)
	s.order = append(s.order[:i:i], s.order[i+1:]...)
	return e.alert.Clone(), nil
}

// RemoveIf erases the alert only if match reports true for its current
// snapshot. The check and the removal happen under one write lock. It
// returns the removed snapshot and true, or false when match declined.
func (s *Store) RemoveIf(id types.AlertID, match func(types.Alert) bool) (types.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return types.Alert{}, false, fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if !match(e.alert) {
		return types.Alert{}, false, nil
	}
	delete(s.byID, id)
	i := s.indexOf(e.seq)
	s.order = append(s.order[:i:i], s.order[i+1:]...)
	return e.alert.Clone(), true, nil
}

// ChangeState appends an event with the given state and message to the
// alert identified by a.ID and returns the new snapshot. Any state may
// follow any other.
func (s *Store) ChangeState(a types.Alert, state types.State, message string) (types.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[a.ID]
	if !ok {
		return types.Alert{}, fmt.Errorf("change state of %s: %w", a.ID, ErrNotFound)
	}

	// Build a fresh events slice so snapshots held by iterators keep seeing
	// the old history.
	next := e.alert
	next.Events = make([]types.Event, len(e.alert.Events), len(e.alert.Events)+1)
	copy(next.Events, e.alert.Events)
	next.Events = append(next.Events, types.Event{
		State:     state,
		Message:   message,
		Timestamp: s.now(),
	})
	e.alert = next
	return next.Clone(), nil
}

// Count returns the number of live alerts for which match returns true.
func (s *Store) Count(match func(types.Alert) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.order {
		if match(e.alert) {
			n++
		}
	}
	return n
}

// Len returns the number of live alerts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ClearedBefore returns the ids of alerts whose latest event is CLEARED and
// older than cutoff, in creation order.
func (s *Store) ClearedBefore(cutoff time.Time) []types.AlertID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expired := ClearedOlderThan(cutoff)
	var out []types.AlertID
	for _, e := range s.order {
		if expired(e.alert) {
			out = append(out, e.alert.ID)
		}
	}
	return out
}

// ClearedOlderThan matches alerts whose latest event is CLEARED and older than
// cutoff.
func ClearedOlderThan(cutoff time.Time) func(types.Alert) bool {
	return func(a types.Alert) bool {
		last := a.Latest()
		return last.State == types.StateCleared && last.Timestamp.Before(cutoff)
	}
}

// indexOf returns the position of seq in s.order. The caller holds s.mu and
// guarantees seq is present.
func (s *Store) indexOf(seq uint64) int {
	return sort.Search(len(s.order), func(i int) bool {
		return s.order[i].seq >= seq
	})
}
