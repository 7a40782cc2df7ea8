package types

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMalformedID is returned when a string is not a valid AlertID encoding.
// It is distinct from any "not found" condition.
var ErrMalformedID = errors.New("malformed alert id")

// AlertID identifies one alert. The zero value is not a valid id.
type AlertID struct {
	u uuid.UUID
}

// NewAlertID returns a fresh time-ordered id. Ids from one process compare
// strictly increasing in allocation order.
func NewAlertID() AlertID {
	return AlertID{u: uuid.Must(uuid.NewV7())}
}

// ParseAlertID resolves the string form produced by AlertID.String.
func ParseAlertID(s string) (AlertID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AlertID{}, fmt.Errorf("%w: %q", ErrMalformedID, s)
	}
	return AlertID{u: u}, nil
}

// String returns the canonical hyphenated form.
func (id AlertID) String() string { return id.u.String() }

// IsZero reports whether id was never assigned.
func (id AlertID) IsZero() bool { return id.u == uuid.Nil }

// Compare orders ids by allocation; it returns -1, 0 or +1.
func (id AlertID) Compare(other AlertID) int {
	return bytes.Compare(id.u[:], other.u[:])
}

func (id AlertID) MarshalText() ([]byte, error) {
	return []byte(id.u.String()), nil
}

func (id *AlertID) UnmarshalText(b []byte) error {
	parsed, err := ParseAlertID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
