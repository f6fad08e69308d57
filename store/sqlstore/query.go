// Package sqlstore persists fsm entities in a SQL table through database/sql.
// The SQLite driver is registered by this package; any other database/sql
// driver works when its dialect uses "?" or "$n" placeholders.
package sqlstore

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/amp-labs/lifecycle/fsm"
)

var (
	// ErrInvalidIdentifier is returned for table or column names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid SQL identifier")
	// ErrEmptyUpdate is returned when an update sets no columns.
	ErrEmptyUpdate = errors.New("update sets no columns")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect describes how a database spells parameter placeholders.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$1", "$2", ... placeholders.
	Postgres
)

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// Quote validates an identifier and returns it double-quoted.
func Quote(ident string) (string, error) {
	if !identifierPattern.MatchString(ident) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
	}

	return `"` + ident + `"`, nil
}

// BuildUpdate renders an UPDATE statement for a bulk transition. Columns are
// emitted in sorted order so the statement text is stable. A nil condition
// value matches NULL.
func BuildUpdate(d Dialect, table string, set map[string]any, where fsm.Conditions) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, ErrEmptyUpdate
	}

	quotedTable, err := Quote(table)
	if err != nil {
		return "", nil, err
	}

	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("UPDATE ")
	sb.WriteString(quotedTable)
	sb.WriteString(" SET ")

	for i, column := range sortedKeys(set) {
		quoted, err := Quote(column)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			sb.WriteString(", ")
		}

		args = append(args, set[column])
		fmt.Fprintf(&sb, "%s = %s", quoted, d.placeholder(len(args)))
	}

	clause, args, err := buildWhere(d, where, args)
	if err != nil {
		return "", nil, err
	}

	sb.WriteString(clause)

	return sb.String(), args, nil
}

// BuildSelect renders a SELECT of every column for rows matching where.
func BuildSelect(d Dialect, table string, where fsm.Conditions) (string, []any, error) {
	quotedTable, err := Quote(table)
	if err != nil {
		return "", nil, err
	}

	clause, args, err := buildWhere(d, where, nil)
	if err != nil {
		return "", nil, err
	}

	return "SELECT * FROM " + quotedTable + clause, args, nil
}

func buildWhere(d Dialect, where fsm.Conditions, args []any) (string, []any, error) {
	if len(where) == 0 {
		return "", args, nil
	}

	parts := make([]string, 0, len(where))

	for _, column := range sortedKeys(where) {
		quoted, err := Quote(column)
		if err != nil {
			return "", nil, err
		}

		value := where[column]
		if value == nil {
			parts = append(parts, quoted+" IS NULL")

			continue
		}

		args = append(args, value)
		parts = append(parts, quoted+" = "+d.placeholder(len(args)))
	}

	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
