package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is the durable, schema-qualified host table backing the catalog:
// <schema>.<table> (name TEXT PRIMARY KEY, definition JSON). It is a regular
// table in the host database, so it is WAL-logged and file-backed by the
// host at no additional cost (spec.md §4.4). Grounded on the teacher's
// sqlite.Source/DuckDbSource construction of a *sql.DB, generalized here to
// a small CRUD surface instead of an ad hoc tool query.
type Store struct {
	db     *sql.DB
	schema string
	table  string
}

// NewStore wraps an already-open connection to the host database. The
// connection is expected to be the same one the defining/dropping host
// function call is running on — unlike the query path, DDL mutations do not
// need the Host Bridge's independent connection (spec.md §4.5).
func NewStore(db *sql.DB, schema, table string) *Store {
	return &Store{db: db, schema: schema, table: table}
}

func (s *Store) qualifiedTable() string {
	return fmt.Sprintf(`"%s"."%s"`, s.schema, s.table)
}

// EnsureSchema creates the schema and definitions table if they do not
// already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, s.schema)); err != nil {
		return fmt.Errorf("unable to create schema %q: %w", s.schema, err)
	}
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, definition JSON)`,
		s.qualifiedTable(),
	)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("unable to create definitions table %s: %w", s.qualifiedTable(), err)
	}
	return nil
}

// Upsert inserts or replaces the row for name with the given raw definition
// JSON.
func (s *Store) Upsert(ctx context.Context, name, definitionJSON string) error {
	stmt := fmt.Sprintf(
		`INSERT INTO %s (name, definition) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET definition = EXCLUDED.definition`,
		s.qualifiedTable(),
	)
	if _, err := s.db.ExecContext(ctx, stmt, name, definitionJSON); err != nil {
		return fmt.Errorf("unable to upsert definition for %q: %w", name, err)
	}
	return nil
}

// Delete removes the row for name, if present.
func (s *Store) Delete(ctx context.Context, name string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, s.qualifiedTable())
	if _, err := s.db.ExecContext(ctx, stmt, name); err != nil {
		return fmt.Errorf("unable to delete definition for %q: %w", name, err)
	}
	return nil
}

// LoadAll returns every persisted name -> raw definition JSON pair.
func (s *Store) LoadAll(ctx context.Context) (map[string]string, error) {
	stmt := fmt.Sprintf(`SELECT name, definition FROM %s`, s.qualifiedTable())
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("unable to load definitions from %s: %w", s.qualifiedTable(), err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("unable to scan definition row: %w", err)
		}
		out[name] = definition
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating definition rows: %w", err)
	}
	return out, nil
}
