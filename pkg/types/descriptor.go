package types

import "encoding/json"

// Descriptor is metadata about one alert type: the content type of its
// payload, a human description, whether responses are accepted, and
// optional per-state content types. Descriptors are equal when their
// AlertType is equal.
//
// A Descriptor is immutable; the state map is copied on the way in and on
// the way out.
type Descriptor struct {
	alertType         string
	contentType       string
	description       string
	respondable       bool
	stateContentTypes map[State]string
}

// NewDescriptor builds a Descriptor. stateContentTypes may be nil.
func NewDescriptor(alertType, contentType, description string, respondable bool, stateContentTypes map[State]string) Descriptor {
	return Descriptor{
		alertType:         alertType,
		contentType:       contentType,
		description:       description,
		respondable:       respondable,
		stateContentTypes: copyStates(stateContentTypes),
	}
}

func (d Descriptor) AlertType() string   { return d.alertType }
func (d Descriptor) ContentType() string { return d.contentType }
func (d Descriptor) Description() string { return d.description }
func (d Descriptor) Respondable() bool   { return d.respondable }

// StateContentTypes returns a copy of the per-state content types.
func (d Descriptor) StateContentTypes() map[State]string {
	return copyStates(d.stateContentTypes)
}

// StateContentType returns the content type registered for s.
func (d Descriptor) StateContentType(s State) (string, bool) {
	ct, ok := d.stateContentTypes[s]
	return ct, ok
}

// Equal reports whether d and other describe the same alert type.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.alertType == other.alertType
}

type descriptorJSON struct {
	AlertType         string           `json:"alert_type"`
	ContentType       string           `json:"content_type"`
	Description       string           `json:"description"`
	Respondable       bool             `json:"respondable"`
	StateContentTypes map[State]string `json:"state_content_types,omitempty"`
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{
		AlertType:         d.alertType,
		ContentType:       d.contentType,
		Description:       d.description,
		Respondable:       d.respondable,
		StateContentTypes: d.stateContentTypes,
	})
}

func (d *Descriptor) UnmarshalJSON(b []byte) error {
	var v descriptorJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = NewDescriptor(v.AlertType, v.ContentType, v.Description, v.Respondable, v.StateContentTypes)
	return nil
}

func copyStates(m map[State]string) map[State]string {
	out := make(map[State]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
