package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/store/memory"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load when no row has the requested ID.
var ErrNotFound = errors.New("row not found")

const defaultIDColumn = "id"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store is an fsm.Store and fsm.Transactor over one SQL table.
type Store struct {
	db       *sql.DB
	table    string
	idColumn string
	dialect  Dialect
}

// Option configures a Store.
type Option func(*Store)

// WithDialect sets the placeholder dialect. The default is SQLite.
func WithDialect(d Dialect) Option {
	return func(s *Store) {
		s.dialect = d
	}
}

// WithIDColumn sets the primary key column used by Load and Save. The default is "id".
func WithIDColumn(column string) Option {
	return func(s *Store) {
		s.idColumn = column
	}
}

// New creates a store for table on db.
func New(db *sql.DB, table string, opts ...Option) (*Store, error) {
	s := &Store{
		db:       db,
		table:    table,
		idColumn: defaultIDColumn,
	}

	for _, opt := range opts {
		opt(s)
	}

	if _, err := Quote(s.table); err != nil {
		return nil, err
	}

	if _, err := Quote(s.idColumn); err != nil {
		return nil, err
	}

	return s, nil
}

// Open opens a SQLite database at dsn and applies the pragmas suited to a
// single-process workload.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	return nil
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// BulkUpdate implements fsm.Store. It returns the rows matched by where.
func (s *Store) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	return bulkUpdate(ctx, s.db, s.dialect, s.table, set, where)
}

// InTransaction implements fsm.Transactor. fn's updates are committed
// together, or rolled back if fn fails.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx fsm.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, &txStore{tx: tx, store: s}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Load reads one row into a record.
func (s *Store) Load(ctx context.Context, id string) (*memory.Record, error) {
	records, err := s.Find(ctx, fsm.Conditions{s.idColumn: id})
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return records[0], nil
}

// Find reads every row matching where.
func (s *Store) Find(ctx context.Context, where fsm.Conditions) ([]*memory.Record, error) {
	query, args, err := BuildSelect(s.dialect, s.table, where)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []*memory.Record

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}

		fields := make(map[string]any, len(columns))
		for i, column := range columns {
			fields[column] = normalize(values[i])
		}

		records = append(records, memory.Hydrate(fmt.Sprint(fields[s.idColumn]), fields))
	}

	return records, rows.Err()
}

// Save writes the given fields of a loaded record back to its row. With no
// fields it writes the machine's default state columns.
func (s *Store) Save(ctx context.Context, r *memory.Record, fields ...string) error {
	if len(fields) == 0 {
		def := fsm.DefaultFields()
		fields = []string{def.State, def.PreviousState, def.LastTransition, def.History}
	}

	set := make(map[string]any, len(fields))
	for _, field := range fields {
		set[field] = r.Get(field)
	}

	n, err := s.BulkUpdate(ctx, set, fsm.Conditions{s.idColumn: r.ID()})
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, r.ID())
	}

	return nil
}

type txStore struct {
	tx    *sql.Tx
	store *Store
}

func (t *txStore) BulkUpdate(ctx context.Context, set map[string]any, where fsm.Conditions) (int64, error) {
	return bulkUpdate(ctx, t.tx, t.store.dialect, t.store.table, set, where)
}

func bulkUpdate(ctx context.Context, db execer, d Dialect, table string, set map[string]any, where fsm.Conditions) (int64, error) {
	query, args, err := BuildUpdate(d, table, set, where)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}

	return res.RowsAffected()
}

// normalize turns driver byte slices into strings so state fields compare as text.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v
}
