package store

import "github.com/alertcore/alertcore/pkg/types"

// Iterator is a forward-only, non-restartable cursor over a fixed set of
// alerts.
//
//	it := st.Alerts()
//	for it.Next() {
//		a := it.Alert()
//	}
type Iterator struct {
	items []types.Alert
	pos   int
	cur   types.Alert
}

// newIterator captures the alerts in entries. The caller holds the store's
// read lock. Event slices are shared with the store, which never mutates
// them in place.
func newIterator(entries []*entry) *Iterator {
	items := make([]types.Alert, len(entries))
	for i, e := range entries {
		items[i] = e.alert
	}
	return &Iterator{items: items}
}

// Next advances to the next alert and reports whether there was one.
func (it *Iterator) Next() bool {
	if it.pos >= len(it.items) {
		it.cur = types.Alert{}
		return false
	}
	it.cur = it.items[it.pos]
	it.items[it.pos] = types.Alert{}
	it.pos++
	return true
}

// Alert returns a copy of the alert at the current position.
func (it *Iterator) Alert() types.Alert {
	return it.cur.Clone()
}

// Len returns the number of alerts not yet visited.
func (it *Iterator) Len() int {
	return len(it.items) - it.pos
}

// Drain consumes the remaining alerts and returns them as a slice.
func Drain(it *Iterator) []types.Alert {
	out := make([]types.Alert, 0, it.Len())
	for it.Next() {
		out = append(out, it.Alert())
	}
	return out
}
