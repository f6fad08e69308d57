// Package pgstore persists fsm entities in a PostgreSQL table through a pgx
// connection pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/retry"
	"github.com/amp-labs/lifecycle/store/memory"
	"github.com/amp-labs/lifecycle/store/sqlstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned by Load when no row has the requested ID.
	ErrNotFound = errors.New("row not found")
	// ErrConnect is returned when no connection could be established.
	ErrConnect = errors.New("failed to connect to postgres")
)

// Config holds connection settings.
type Config struct {
	ConnectionString string        `env:"FSM_DB_DSN,required"`
	MaxConns         int32         `env:"FSM_PG_MAX_CONNS"      envDefault:"10"`
	MinConns         int32         `env:"FSM_PG_MIN_CONNS"      envDefault:"0"`
	RetryAttempts    int           `env:"FSM_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"FSM_PG_RETRY_INTERVAL" envDefault:"2s"`
}

// Connect opens a pool and pings it, retrying with a linear backoff.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	poolConfig.MinConns = cfg.MinConns

	pool, err := retry.DoValue(ctx, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, err
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return pool, nil
	},
		retry.WithAttempts(retry.Attempts(max(cfg.RetryAttempts, 1))),
		retry.WithBackoff(retry.LinearBackoff{Step: cfg.RetryInterval}),
		retry.WithJitter(retry.WithoutJitter),
	)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	return pool, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is an fsm.Store and fsm.Transactor over one PostgreSQL table.
type Store struct {
	pool     *pgxpool.Pool
	table    string
	idColumn string
}

// New creates a store for table on pool. Rows are keyed by the "id" column.
func New(pool *pgxpool.Pool, table string) (*Store, error) {
	if _, err := sqlstore.Quote(table); err != nil {
		return nil, err
	}

	return &Store{pool: pool, table: table, idColumn: "id"}, nil
}

// BulkUpdate implements fsm.Store.
func (s *Store) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	return bulkUpdate(ctx, s.pool, s.table, set, where)
}

// InTransaction implements fsm.Transactor.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx fsm.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx, table: s.table})
	})
}

// Load reads one row into a record.
func (s *Store) Load(ctx context.Context, id string) (*memory.Record, error) {
	query, args, err := sqlstore.BuildSelect(sqlstore.Postgres, s.table, fsm.Conditions{s.idColumn: id})
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}

	fields, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}

	return memory.Hydrate(id, fields), nil
}

// Save writes the given fields of a loaded record back to its row. With no
// fields it writes the machine's default state columns.
func (s *Store) Save(ctx context.Context, r *memory.Record, fields ...string) error {
	query, args, err := s.saveStatement(r, fields)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.table, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID())
	}

	return nil
}

func (s *Store) saveStatement(r *memory.Record, fields []string) (string, []any, error) {
	if len(fields) == 0 {
		def := fsm.DefaultFields()
		fields = []string{def.State, def.PreviousState, def.LastTransition, def.History}
	}

	set := make(map[string]any, len(fields))
	for _, field := range fields {
		set[field] = r.Get(field)
	}

	return sqlstore.BuildUpdate(sqlstore.Postgres, s.table, set, fsm.Conditions{s.idColumn: r.ID()})
}

type txStore struct {
	tx    pgx.Tx
	table string
}

func (t *txStore) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	return bulkUpdate(ctx, t.tx, t.table, set, where)
}

func bulkUpdate(ctx context.Context, db execer, table string, set map[string]any, where fsm.Conditions) (int64, error) {
	query, args, err := sqlstore.BuildUpdate(sqlstore.Postgres, table, set, where)
	if err != nil {
		return 0, err
	}

	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}

	return tag.RowsAffected(), nil
}
