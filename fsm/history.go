package fsm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// HistoryTimeLayout is the ISO-8601 layout used for history timestamps:
// microsecond precision and a numeric offset.
const HistoryTimeLayout = "2006-01-02T15:04:05.000000-07:00"

// HistoryEntry records one state the entity entered and when.
type HistoryEntry struct {
	Date  time.Time
	State string
}

type historyEntryJSON struct {
	Date  string `json:"date"`
	State string `json:"state"`
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(historyEntryJSON{
		Date:  e.Date.Format(HistoryTimeLayout),
		State: e.State,
	})
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	var raw historyEntryJSON

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	date, err := time.Parse(HistoryTimeLayout, raw.Date)
	if err != nil {
		date, err = time.Parse(time.RFC3339Nano, raw.Date)
		if err != nil {
			return fmt.Errorf("%w: date %q: %w", ErrInvalidHistory, raw.Date, err)
		}
	}

	e.Date = date
	e.State = raw.State

	return nil
}

// History is the append-only sequence of states an entity entered. It is
// kept structured in memory and only encoded at the storage boundary.
type History []HistoryEntry

// Append returns a new history with one more entry; the receiver is not modified.
func (h History) Append(entry HistoryEntry) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)

	return append(out, entry)
}

// Last returns the most recent entry.
func (h History) Last() (HistoryEntry, bool) {
	if len(h) == 0 {
		return HistoryEntry{}, false
	}

	return h[len(h)-1], true
}

// States returns the states in the order they were entered.
func (h History) States() []string {
	out := make([]string, len(h))
	for i, entry := range h {
		out[i] = entry.State
	}

	return out
}

// Encode serializes the history to its stored text form.
func (h History) Encode() (string, error) {
	if h == nil {
		h = History{}
	}

	data, err := json.Marshal([]HistoryEntry(h))
	if err != nil {
		return "", fmt.Errorf("encode state history: %w", err)
	}

	return string(data), nil
}

// DecodeHistory parses the stored text form. An empty string is an empty history.
func DecodeHistory(raw string) (History, error) {
	if raw == "" {
		return History{}, nil
	}

	var entries []HistoryEntry

	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHistory, err)
	}

	return History(entries), nil
}

// Value implements driver.Valuer so a History can be written to a text column.
func (h History) Value() (driver.Value, error) {
	return h.Encode()
}

// Scan implements sql.Scanner.
func (h *History) Scan(src any) error {
	var raw string

	switch v := src.(type) {
	case nil:
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidHistory, src)
	}

	decoded, err := DecodeHistory(raw)
	if err != nil {
		return err
	}

	*h = decoded

	return nil
}

// historyOf accepts whatever an entity returns for its history field: a
// structured History or its encoded form.
func historyOf(v any) (History, error) {
	switch h := v.(type) {
	case nil:
		return History{}, nil
	case History:
		return slices.Clone(h), nil
	case []HistoryEntry:
		return slices.Clone(History(h)), nil
	case string:
		return DecodeHistory(h)
	case []byte:
		return DecodeHistory(string(h))
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidHistory, v)
	}
}
