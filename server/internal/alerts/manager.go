package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertcore/alertcore/pkg/types"
	"github.com/alertcore/alertcore/server/internal/descriptor"
	"github.com/alertcore/alertcore/server/internal/notify"
	"github.com/alertcore/alertcore/server/internal/store"
)

// Defaults for the worker pool a Manager creates when no Executor is given.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// Options configures a Manager. Zero fields get fresh defaults.
type Options struct {
	Store    *store.Store
	Registry *descriptor.Registry

	// Executor runs receiver calls. When nil the Manager starts and owns a
	// notify.Pool, which Close stops.
	Executor notify.Executor

	Logger zerolog.Logger

	// Retention is how long a CLEARED alert is kept by Run. Zero disables
	// the sweep.
	Retention time.Duration
}

// Summary counts live alerts.
type Summary struct {
	Total   int                 `json:"total"`
	Pending int                 `json:"pending"`
	ByState map[types.State]int `json:"by_state"`
	ByLevel map[types.Level]int `json:"by_level"`
}

// Manager is the single entry point for alert operations. Every mutation is
// committed to the Store and then announced to receivers exactly once with
// the number of alerts still needing attention.
//
// Manager is safe for concurrent use.
type Manager struct {
	store     *store.Store
	registry  *descriptor.Registry
	dispatch  *notify.Dispatcher
	pool      *notify.Pool // non-nil when owned
	retention time.Duration
	log       zerolog.Logger

	// mu orders mutations so receivers see counts in commit order. Reads do
	// not take it.
	mu sync.Mutex
}

// New creates a Manager from opts.
func New(opts Options) *Manager {
	m := &Manager{
		store:     opts.Store,
		registry:  opts.Registry,
		retention: opts.Retention,
		log:       opts.Logger.With().Str("component", "alerts").Logger(),
	}
	if m.store == nil {
		m.store = store.New()
	}
	if m.registry == nil {
		m.registry = descriptor.New()
	}
	exec := opts.Executor
	if exec == nil {
		m.pool = notify.NewPool(DefaultWorkers, DefaultQueueSize, opts.Logger)
		exec = m.pool
	}
	m.dispatch = notify.New(exec, opts.Logger)
	return m
}

// Close stops the worker pool if the Manager created it.
func (m *Manager) Close() {
	if m.pool != nil {
		m.pool.Stop()
	}
}

// --- mutations --------------------------------------------------------------

// Create records a new UNHANDLED alert and notifies receivers.
func (m *Manager) Create(alertType string, level types.Level, description, content string) types.Alert {
	m.mu.Lock()
	a := m.store.Create(alertType, level, description, content)
	schedule := m.dispatch.Enqueue(m.pending())
	m.mu.Unlock()
	schedule()

	m.log.Info().
		Str("alert_id", a.ID.String()).
		Str("type", a.Type).
		Str("level", a.Level.String()).
		Msg("alert created")
	return a
}

// ChangeState appends a state event to the alert identified by a.ID and
// notifies receivers. Any state may follow any other.
func (m *Manager) ChangeState(a types.Alert, state types.State, message string) (types.Alert, error) {
	m.mu.Lock()
	updated, err := m.store.ChangeState(a, state, message)
	if err != nil {
		m.mu.Unlock()
		return types.Alert{}, err
	}
	schedule := m.dispatch.Enqueue(m.pending())
	m.mu.Unlock()
	schedule()

	m.log.Info().
		Str("alert_id", updated.ID.String()).
		Str("state", state.String()).
		Msg("alert state changed")
	return updated, nil
}

// Remove erases an alert, notifies receivers and returns its last snapshot.
func (m *Manager) Remove(id types.AlertID) (types.Alert, error) {
	m.mu.Lock()
	removed, err := m.store.Remove(id)
	if err != nil {
		m.mu.Unlock()
		return types.Alert{}, err
	}
	schedule := m.dispatch.Enqueue(m.pending())
	m.mu.Unlock()
	schedule()

	m.log.Info().Str("alert_id", id.String()).Msg("alert removed")
	return removed, nil
}

// --- queries ----------------------------------------------------------------

// Get returns the current snapshot of an alert.
func (m *Manager) Get(id types.AlertID) (types.Alert, error) { return m.store.Get(id) }

// Resolve parses the string form of an AlertID.
func (m *Manager) Resolve(id string) (types.AlertID, error) { return m.store.Resolve(id) }

// Alerts iterates all live alerts in creation order.
func (m *Manager) Alerts() *store.Iterator { return m.store.Alerts() }

// AlertsSince iterates live alerts created strictly after since.
func (m *Manager) AlertsSince(since time.Time) *store.Iterator { return m.store.AlertsSince(since) }

// AlertsAfter iterates live alerts created after the given alert.
func (m *Manager) AlertsAfter(id types.AlertID) (*store.Iterator, error) {
	return m.store.AlertsAfter(id)
}

// Pending returns the number of alerts whose latest state is not terminal.
func (m *Manager) Pending() int { return m.pending() }

func (m *Manager) pending() int {
	return m.store.Count(func(a types.Alert) bool { return !a.State().Terminal() })
}

// Summary counts live alerts by state and level.
func (m *Manager) Summary() Summary {
	s := Summary{
		ByState: make(map[types.State]int),
		ByLevel: make(map[types.Level]int),
	}
	it := m.store.Alerts()
	for it.Next() {
		a := it.Alert()
		st := a.State()
		s.Total++
		s.ByState[st]++
		s.ByLevel[a.Level]++
		if !st.Terminal() {
			s.Pending++
		}
	}
	return s
}

// --- descriptors and receivers ----------------------------------------------

// AddDescriptor registers d unless its alert type is already known.
func (m *Manager) AddDescriptor(d types.Descriptor) bool {
	ok := m.registry.Add(d)
	if ok {
		m.log.Debug().Str("type", d.AlertType()).Msg("descriptor registered")
	}
	return ok
}

// Descriptors returns every registered descriptor.
func (m *Manager) Descriptors() []types.Descriptor { return m.registry.All() }

// Descriptor returns the descriptor for an alert type, if registered.
func (m *Manager) Descriptor(alertType string) (types.Descriptor, bool) {
	return m.registry.Get(alertType)
}

// AddReceiver subscribes r to future notifications.
func (m *Manager) AddReceiver(r notify.Receiver) { m.dispatch.AddReceiver(r) }

// DispatchStats returns the notification counters.
func (m *Manager) DispatchStats() notify.Stats { return m.dispatch.Stats() }

// --- retention --------------------------------------------------------------

// Sweep removes CLEARED alerts whose last transition is older than the
// retention window ending at now. It returns the number removed. Each alert
// is re-checked at removal, so one reopened since the listing survives.
func (m *Manager) Sweep(now time.Time) int {
	if m.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-m.retention)
	expired := store.ClearedOlderThan(cutoff)
	removed := 0
	for _, id := range m.store.ClearedBefore(cutoff) {
		m.mu.Lock()
		a, ok, err := m.store.RemoveIf(id, expired)
		if err != nil || !ok {
			m.mu.Unlock()
			continue
		}
		schedule := m.dispatch.Enqueue(m.pending())
		m.mu.Unlock()
		schedule()

		m.log.Debug().Str("alert_id", a.ID.String()).Msg("cleared alert expired")
		removed++
	}
	return removed
}

// Run starts the retention loop. It ticks at half the retention window
// (minimum 1 second). Run returns immediately when retention is disabled and
// otherwise blocks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.retention <= 0 {
		m.log.Info().Msg("retention sweep disabled")
		return
	}
	interval := m.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Sweep(now); n > 0 {
				m.log.Debug().Int("count", n).Msg("removed cleared alerts")
			}
		}
	}
}
