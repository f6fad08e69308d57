// Package mongostore persists fsm entities as MongoDB documents keyed by _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/retry"
	"github.com/amp-labs/lifecycle/store/memory"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	// ErrNotFound is returned by Load when no document has the requested ID.
	ErrNotFound = errors.New("document not found")
	// ErrConnect is returned when no connection could be established.
	ErrConnect = errors.New("failed to connect to mongo")
)

const idField = "_id"

// Config holds connection settings.
type Config struct {
	ConnectionURL  string        `env:"FSM_MONGO_URL,required"`
	ConnectTimeout time.Duration `env:"FSM_MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	RetryAttempts  int           `env:"FSM_MONGO_RETRY_ATTEMPTS"  envDefault:"3"`
	RetryInterval  time.Duration `env:"FSM_MONGO_RETRY_INTERVAL"  envDefault:"2s"`
}

// Connect creates a client and pings the server, retrying on failure.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	client, err := retry.DoValue(ctx, func(ctx context.Context) (*mongo.Client, error) {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout),
		)
		if err != nil {
			return nil, err
		}

		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)

			return nil, err
		}

		return client, nil
	},
		retry.WithAttempts(retry.Attempts(max(cfg.RetryAttempts, 1))),
		retry.WithBackoff(retry.ConstBackoff(cfg.RetryInterval)),
		retry.WithJitter(retry.EqualJitter),
	)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	return client, nil
}

// Store implements fsm.Store on one collection.
type Store struct {
	coll *mongo.Collection
}

// New creates a store for coll.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Transactional returns a view of the store that also implements
// fsm.Transactor. Transactions need a replica set or sharded cluster.
func (s *Store) Transactional() *TransactionalStore {
	return &TransactionalStore{Store: s}
}

// BulkUpdate implements fsm.Store. It returns the documents matched, which
// includes documents already holding the new values.
func (s *Store) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, Filter(where), Update(set))
	if err != nil {
		return 0, fmt.Errorf("update many: %w", err)
	}

	return res.MatchedCount, nil
}

// Save upserts the whole record as one document.
func (s *Store) Save(ctx context.Context, r *memory.Record) error {
	doc := bson.D{{Key: idField, Value: r.ID()}}

	snapshot := r.Snapshot()
	for _, field := range sortedKeys(snapshot) {
		if field == idField {
			continue
		}

		doc = append(doc, bson.E{Key: field, Value: encodeValue(snapshot[field])})
	}

	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: idField, Value: r.ID()}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", r.ID(), err)
	}

	return nil
}

// Load reads one document into a record.
func (s *Store) Load(ctx context.Context, id string) (*memory.Record, error) {
	var doc bson.M

	if err := s.coll.FindOne(ctx, bson.D{{Key: idField, Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("find %s: %w", id, err)
	}

	fields := make(map[string]any, len(doc))

	for k, v := range doc {
		if k != idField {
			fields[k] = decodeValue(v)
		}
	}

	return memory.Hydrate(id, fields), nil
}

// TransactionalStore runs TransitionAll branches in one multi-document transaction.
type TransactionalStore struct {
	*Store
}

// InTransaction implements fsm.Transactor.
func (t *TransactionalStore) InTransaction(ctx context.Context, fn func(ctx context.Context, tx fsm.Store) error) error {
	session, err := t.coll.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, t.Store)
	})

	return err
}

// Filter converts conditions to a filter document with keys in sorted order.
func Filter(where fsm.Conditions) bson.D {
	filter := bson.D{}

	for _, field := range sortedKeys(where) {
		filter = append(filter, bson.E{Key: field, Value: encodeValue(where[field])})
	}

	return filter
}

// Update converts fields to a $set update document.
func Update(set map[string]any) bson.D {
	fields := bson.D{}

	for _, field := range sortedKeys(set) {
		fields = append(fields, bson.E{Key: field, Value: encodeValue(set[field])})
	}

	return bson.D{{Key: "$set", Value: fields}}
}

// encodeValue stores histories in their JSON text form so every store shares one format.
func encodeValue(v any) any {
	if h, ok := v.(fsm.History); ok {
		if encoded, err := h.Encode(); err == nil {
			return encoded
		}
	}

	return v
}

func decodeValue(v any) any {
	if dt, ok := v.(bson.DateTime); ok {
		return dt.Time().UTC()
	}

	return v
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
