// Package redisstore persists fsm entities as Redis hashes. Each record is a
// hash under prefix+"record:"+id and the set prefix+"index" lists every ID.
// All values are stored as strings; a missing field equals "".
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/store/memory"
	backend "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

const defaultPrefix = "fsm:"

// bulkScript applies one bulk update atomically. ARGV holds the record key
// prefix, the condition count, the set count, then field/value pairs for the
// conditions followed by the ones to set.
var bulkScript = backend.NewScript(`
local prefix = ARGV[1]
local nwhere = tonumber(ARGV[2])
local nset = tonumber(ARGV[3])
local matched = 0
for _, id in ipairs(redis.call('SMEMBERS', KEYS[1])) do
  local key = prefix .. id
  local ok = true
  for i = 0, nwhere - 1 do
    local v = redis.call('HGET', key, ARGV[4 + i * 2])
    if (v or '') ~= ARGV[5 + i * 2] then
      ok = false
      break
    end
  end
  if ok then
    for j = 0, nset - 1 do
      local base = 4 + nwhere * 2 + j * 2
      redis.call('HSET', key, ARGV[base], ARGV[base + 1])
    end
    matched = matched + 1
  end
end
return matched
`)

// Store implements fsm.Store on Redis. Each BulkUpdate is atomic; a whole
// TransitionAll is not.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store from an existing client.
func New(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) recordPrefix() string {
	return s.prefix + "record:"
}

func (s *Store) key(id string) string {
	return s.recordPrefix() + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes every field of the record and adds it to the index.
func (s *Store) Save(ctx context.Context, r *memory.Record) error {
	snapshot := r.Snapshot()

	values := make([]any, 0, len(snapshot)*2)

	for field, value := range snapshot {
		encoded, err := encodeValue(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", field, err)
		}

		values = append(values, field, encoded)
	}

	pipe := s.client.TxPipeline()

	if len(values) > 0 {
		pipe.HSet(ctx, s.key(r.ID()), values...)
	}

	pipe.SAdd(ctx, s.indexKey(), r.ID())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	return nil
}

// Load reads a record. Every field comes back as a string.
func (s *Store) Load(ctx context.Context, id string) (*memory.Record, error) {
	values, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	return memory.Hydrate(id, fields), nil
}

// IDs returns every indexed record ID.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return ids, nil
}

// Delete removes a record and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()

	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)

	return err
}

// BulkUpdate implements fsm.Store. Conditions and values are compared as strings.
func (s *Store) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	args := []any{s.recordPrefix(), len(where), len(set)}

	for field, value := range where {
		encoded, err := encodeValue(value)
		if err != nil {
			return 0, fmt.Errorf("condition %s: %w", field, err)
		}

		args = append(args, field, encoded)
	}

	for field, value := range set {
		encoded, err := encodeValue(value)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", field, err)
		}

		args = append(args, field, encoded)
	}

	n, err := bulkScript.Run(ctx, s.client, []string{s.indexKey()}, args...).Int64()
	if err != nil {
		return 0, fmt.Errorf("bulk update: %w", err)
	}

	return n, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func encodeValue(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case []byte:
		return string(value), nil
	case time.Time:
		return value.Format(time.RFC3339Nano), nil
	case fsm.History:
		return value.Encode()
	case bool:
		return strconv.FormatBool(value), nil
	case fmt.Stringer:
		return value.String(), nil
	default:
		return fmt.Sprint(value), nil
	}
}
