package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/lifecycle/config"
	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/store/memory"
	"github.com/amp-labs/lifecycle/store/mongostore"
	"github.com/amp-labs/lifecycle/store/pgstore"
	"github.com/amp-labs/lifecycle/store/redisstore"
	"github.com/amp-labs/lifecycle/store/sqlstore"
	"github.com/redis/go-redis/v9"
)

const (
	mongoConnectTimeout = 10 * time.Second
	pgMaxConns          = 4
	pgRetryInterval     = time.Second
)

var (
	errUnknownDriver = errors.New("unknown database driver")
	errDSNRequired   = errors.New("FSM_DB_DSN is required")
)

// recordStore is what the record commands need from a backend.
type recordStore interface {
	fsm.Store
	Load(ctx context.Context, id string) (*memory.Record, error)
	Save(ctx context.Context, r *memory.Record) error
}

// sqlTable is a SQL backed store that writes a chosen set of columns.
type sqlTable interface {
	fsm.Store
	fsm.Transactor
	Load(ctx context.Context, id string) (*memory.Record, error)
	Save(ctx context.Context, r *memory.Record, fields ...string) error
}

// columnRecords saves the machine's own state columns.
type columnRecords struct {
	sqlTable

	columns []string
}

func (s columnRecords) Save(ctx context.Context, r *memory.Record) error {
	return s.sqlTable.Save(ctx, r, s.columns...)
}

var (
	_ sqlTable = (*sqlstore.Store)(nil)
	_ sqlTable = (*pgstore.Store)(nil)
)

func stateColumns(fields fsm.Fields) []string {
	var columns []string

	for _, field := range []string{fields.State, fields.PreviousState, fields.LastTransition, fields.History} {
		if field != "" && field != fsm.DisabledField {
			columns = append(columns, field)
		}
	}

	return columns
}

// openStore connects to the configured backend. The returned func releases
// the connection.
func openStore(ctx context.Context, db config.Database, fields fsm.Fields) (recordStore, func(), error) {
	if db.DSN == "" {
		return nil, nil, errDSNRequired
	}

	switch db.Driver {
	case "sqlite":
		conn, err := sqlstore.Open(db.DSN)
		if err != nil {
			return nil, nil, err
		}

		store, err := sqlstore.New(conn, db.Table)
		if err != nil {
			_ = conn.Close()

			return nil, nil, err
		}

		return columnRecords{sqlTable: store, columns: stateColumns(fields)}, func() { _ = conn.Close() }, nil

	case "postgres":
		pool, err := pgstore.Connect(ctx, pgstore.Config{
			ConnectionString: db.DSN,
			MaxConns:         pgMaxConns,
			RetryAttempts:    1,
			RetryInterval:    pgRetryInterval,
		})
		if err != nil {
			return nil, nil, err
		}

		store, err := pgstore.New(pool, db.Table)
		if err != nil {
			pool.Close()

			return nil, nil, err
		}

		return columnRecords{sqlTable: store, columns: stateColumns(fields)}, pool.Close, nil

	case "redis":
		opts, err := redis.ParseURL(db.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}

		store := redisstore.New(redis.NewClient(opts), redisstore.WithPrefix(db.Table+":"))

		return store, func() { _ = store.Close() }, nil

	case "mongo":
		client, err := mongostore.Connect(ctx, mongostore.Config{
			ConnectionURL:  db.DSN,
			ConnectTimeout: mongoConnectTimeout,
			RetryAttempts:  1,
		})
		if err != nil {
			return nil, nil, err
		}

		store := mongostore.New(client.Database(db.Name).Collection(db.Table))

		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownDriver, db.Driver)
	}
}
