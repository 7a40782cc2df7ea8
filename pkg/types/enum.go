package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLevel = errors.New("unknown alert level")
	ErrUnknownState = errors.New("unknown alert state")
)

// Level is the severity of an alert, ordered from least to most severe.
// It never changes for the life of an alert.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelMinor
	LevelMajor
	LevelCritical
	LevelFatal
)

var levelNames = [...]string{"INFO", "WARN", "MINOR", "MAJOR", "CRITICAL", "FATAL"}

func (l Level) String() string {
	if l < LevelInfo || l > LevelFatal {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the level name in any case.
func ParseLevel(s string) (Level, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == up {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

func (l Level) MarshalText() ([]byte, error) {
	if l < LevelInfo || l > LevelFatal {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(l))
	}
	return []byte(levelNames[l]), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// State is one stage of an alert's lifecycle. An alert's states form a
// history; the current state is the state of its latest event.
type State int

const (
	StateUnhandled State = iota
	StateInProgress
	StateHandled
	StateCleared
)

var stateNames = [...]string{"UNHANDLED", "IN_PROGRESS", "HANDLED", "CLEARED"}

// States lists every State in declaration order.
func States() []State {
	return []State{StateUnhandled, StateInProgress, StateHandled, StateCleared}
}

func (s State) String() string {
	if s < StateUnhandled || s > StateCleared {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether an alert in state s no longer needs attention.
func (s State) Terminal() bool {
	return s == StateHandled || s == StateCleared
}

// ParseState accepts the state name in any case.
func ParseState(s string) (State, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range stateNames {
		if n == up {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, s)
}

func (s State) MarshalText() ([]byte, error) {
	if s < StateUnhandled || s > StateCleared {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
