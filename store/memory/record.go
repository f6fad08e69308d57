// Package memory provides an in-memory entity and store for the fsm package.
// It is the reference persistence collaborator and the backbone of the
// tests; other stores hydrate their rows into a Record.
package memory

import (
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Record is a map-backed entity. It is safe for concurrent use.
type Record struct {
	mu     sync.RWMutex
	id     string
	isNew  bool
	fields map[string]any
}

// NewRecord creates an unsaved record with a random ID.
func NewRecord(fields map[string]any) *Record {
	return &Record{
		id:     uuid.NewString(),
		isNew:  true,
		fields: cloneFields(fields),
	}
}

// Hydrate creates a record for a row that already exists in a store.
func Hydrate(id string, fields map[string]any) *Record {
	return &Record{
		id:     id,
		fields: cloneFields(fields),
	}
}

func (r *Record) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.id
}

func (r *Record) IsNew() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.isNew
}

func (r *Record) Get(field string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.fields[field]
}

func (r *Record) Set(field string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fields[field] = value
}

// Snapshot returns a copy of all fields.
func (r *Record) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneFields(r.fields)
}

// Decode copies the record's fields into out, a pointer to a struct whose
// fields carry `mapstructure` tags.
func (r *Record) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05.999999999Z07:00"),
	})
	if err != nil {
		return err
	}

	return decoder.Decode(r.Snapshot())
}

func (r *Record) markSaved() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isNew = false
}

func (r *Record) restore(fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fields = fields
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	maps.Copy(out, fields)

	return out
}
