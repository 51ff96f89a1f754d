package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// DefaultTable is the table created by the embedded migrations.
const DefaultTable = "translations"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Querier is the subset of *sql.DB used by SQLStore.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SQLStore reads templates from a table with bundle_id, suffix, key and
// value columns. A suffix without rows is reported as absent.
type SQLStore struct {
	db    Querier
	query string
}

// NewSQLStore creates a store over table, DefaultTable when empty.
func NewSQLStore(db Querier, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLStore{
		db:    db,
		query: "SELECT key, value FROM " + table + " WHERE bundle_id = $1 AND suffix = $2",
	}, nil
}

func (s *SQLStore) Fetch(ctx context.Context, bundleID, suffix string) (Templates, bool, error) {
	rows, err := s.db.QueryContext(ctx, s.query, bundleID, suffix)
	if err != nil {
		return nil, false, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	t := make(Templates)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, false, fmt.Errorf("scan template: %w", err)
		}
		t[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate templates: %w", err)
	}
	if len(t) == 0 {
		return nil, false, nil
	}
	return t, true, nil
}
