package fsm

import (
	"fmt"
	"time"
)

// Entity is the record capability the machine operates on. Persistence of
// the fields it sets is the caller's concern.
type Entity interface {
	ID() string
	IsNew() bool
	Get(field string) any
	Set(field string, value any)
}

// DisabledField can be used as a field name in Fields to stop the machine
// from maintaining that field.
const DisabledField = "-"

// Fields names the entity fields the machine reads and writes.
type Fields struct {
	State          string `json:"state"           yaml:"state"`
	PreviousState  string `json:"previous_state"  yaml:"previous_state"`
	LastTransition string `json:"last_transition" yaml:"last_transition"`
	History        string `json:"history"         yaml:"history"`
}

// DefaultFields returns the default field names.
func DefaultFields() Fields {
	return Fields{
		State:          "state",
		PreviousState:  "previous_state",
		LastTransition: "last_transition",
		History:        "state_history",
	}
}

// withDefaults fills every empty name with its default. The state field
// cannot be disabled.
func (f Fields) withDefaults() Fields {
	def := DefaultFields()

	if f.State == "" || f.State == DisabledField {
		f.State = def.State
	}

	if f.PreviousState == "" {
		f.PreviousState = def.PreviousState
	}

	if f.LastTransition == "" {
		f.LastTransition = def.LastTransition
	}

	if f.History == "" {
		f.History = def.History
	}

	return f
}

func enabled(field string) bool {
	return field != "" && field != DisabledField
}

// stringField reads a field that may have been loaded as a string, a byte
// slice, a string pointer or a Stringer.
func stringField(e Entity, field string) string {
	switch v := e.Get(field).(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}

		return *v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// timeField reads a timestamp field.
func timeField(e Entity, field string) (time.Time, bool) {
	switch v := e.Get(field).(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}

		return *v, !v.IsZero()
	case string:
		parsed, err := time.Parse(HistoryTimeLayout, v)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339Nano, v)
		}

		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}
