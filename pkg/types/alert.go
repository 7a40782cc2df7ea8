package types

import "time"

// Event is one entry in an alert's state history. Events are never modified
// once appended.
type Event struct {
	State     State     `json:"state"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert is a snapshot of one alert. Type is a URI-like identifier such as
// "urn:alert:disk"; Content is opaque and its format is described by the
// Descriptor registered for Type, if any.
type Alert struct {
	ID          AlertID   `json:"id"`
	Type        string    `json:"type"`
	Level       Level     `json:"level"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	Events      []Event   `json:"events"`
}

// Latest returns the most recent event. It returns the zero Event for an
// Alert that was never created by a store.
func (a Alert) Latest() Event {
	if len(a.Events) == 0 {
		return Event{}
	}
	return a.Events[len(a.Events)-1]
}

// State returns the state of the latest event.
func (a Alert) State() State { return a.Latest().State }

// Clone returns a copy that shares no mutable memory with a.
func (a Alert) Clone() Alert {
	cp := a
	cp.Events = make([]Event, len(a.Events))
	copy(cp.Events, a.Events)
	return cp
}
