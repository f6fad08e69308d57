package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/amp-labs/lifecycle/fsm"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// SaveHook is called with a record before it is first inserted. Machine.BeforeSave fits.
type SaveHook func(fsm.Entity) bool

// Store keeps records in insertion order. It implements fsm.Store and
// fsm.Transactor; a transaction holds the store lock and restores every
// record if it fails.
type Store struct {
	mu       sync.RWMutex
	records  []*Record
	byID     map[string]*Record
	beforeFn []SaveHook
}

// NewStore creates an empty store. hooks run before a new record is inserted.
func NewStore(hooks ...SaveHook) *Store {
	return &Store{
		byID:     make(map[string]*Record),
		beforeFn: hooks,
	}
}

// Save inserts a new record or keeps an existing one. The store holds the
// record itself, so later Set calls are visible through Get.
func (s *Store) Save(r *Record) {
	if r.IsNew() {
		for _, hook := range s.beforeFn {
			hook(r)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.ID()
	if _, exists := s.byID[id]; !exists {
		s.records = append(s.records, r)
		s.byID[id] = r
	}

	r.markSaved()
}

// Get returns a record by ID.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return r, nil
}

// All returns every record in insertion order.
func (s *Store) All() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.records))
	copy(out, s.records)

	return out
}

// Find returns the records matching where, in insertion order.
func (s *Store) Find(where fsm.Conditions) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record

	for _, r := range s.records {
		if matches(r, where) {
			out = append(out, r)
		}
	}

	return out
}

// BulkUpdate implements fsm.Store.
func (s *Store) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bulkUpdateLocked(ctx, set, where)
}

// InTransaction implements fsm.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx fsm.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]map[string]any, len(s.records))
	for i, r := range s.records {
		saved[i] = r.Snapshot()
	}

	if err := fn(ctx, txStore{store: s}); err != nil {
		for i, r := range s.records {
			r.restore(saved[i])
		}

		return err
	}

	return nil
}

func (s *Store) bulkUpdateLocked(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var affected int64

	for _, r := range s.records {
		if !matches(r, where) {
			continue
		}

		for field, value := range set {
			r.Set(field, value)
		}

		affected++
	}

	return affected, nil
}

// txStore runs bulk updates while the parent store lock is already held.
type txStore struct {
	store *Store
}

func (t txStore) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	return t.store.bulkUpdateLocked(ctx, set, where)
}

func matches(r *Record, where fsm.Conditions) bool {
	for field, want := range where {
		if !reflect.DeepEqual(r.Get(field), want) {
			return false
		}
	}

	return true
}
