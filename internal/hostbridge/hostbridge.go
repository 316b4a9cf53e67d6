// Package hostbridge isolates the FFI-facing concerns of the semantic layer
// extension: discovering the host database's backing file path, and running
// expanded SQL on a connection independent of whatever connection is
// currently invoking a host function. Grounded on the teacher's
// sources/duckdb.initDuckDbConnection (opening a *sql.DB against the same
// configuration string) and tools.Tool.Invoke (the query/inspect/row-
// materialization split).
package hostbridge

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/log"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/telemetry"
)

// InMemorySentinel is the path the bridge records when no attached database
// is file-backed. The Catalog treats it the same as an empty path: sidecar
// writes are disabled for the session.
const InMemorySentinel = "<in-memory>"

// Column describes one result column of an executed or inferred query.
type Column struct {
	Name         string
	DatabaseType string
}

// Result is a fully materialized query result: every value cast to text per
// spec.md §4.5, so the host's result vector never has to reason about
// DuckDB's native type system.
type Result struct {
	Columns []Column
	Rows    [][]string
}

// Bridge owns the independent connection used to execute expanded SQL
// without contending with the caller's own connection-held locks.
type Bridge struct {
	db     *sql.DB
	dbPath string
	logger log.Logger
	tracer trace.Tracer
}

// Open resolves the host database's backing file path via dsn (the same
// connection string the host used to open its own connection) and opens a
// second, independent *sql.DB against it. Passing an empty dsn models an
// in-memory host session.
func Open(ctx context.Context, dsn string, logger log.Logger, tracer trace.Tracer) (*Bridge, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	connName := dsn
	if connName == "" {
		connName = InMemorySentinel
	}
	ctx, span := telemetry.InitConnectionSpan(ctx, tracer, "hostbridge", connName)
	defer span.End()

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("unable to open independent duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("unable to connect to host database: %w", err)
	}

	path, err := resolveDBPath(ctx, db)
	if err != nil {
		logger.WarnContext(ctx, "could not resolve host database path, sidecar will be disabled: "+err.Error())
		path = InMemorySentinel
	}
	span.SetAttributes(attribute.String("db_path", path))

	return &Bridge{db: db, dbPath: path, logger: logger, tracer: tracer}, nil
}

// DBPath is the file path discovered at Open, or InMemorySentinel if no
// attached database was file-backed.
func (b *Bridge) DBPath() string {
	return b.dbPath
}

// Close releases the independent connection.
func (b *Bridge) Close() error {
	return b.db.Close()
}

// resolveDBPath issues the host's catalog-listing pragma and returns the
// first attached database with a non-empty file path, per spec.md §4.5.
func resolveDBPath(ctx context.Context, db *sql.DB) (string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return "", fmt.Errorf("unable to list attached databases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int
		var name string
		var file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return "", fmt.Errorf("unable to scan database_list row: %w", err)
		}
		if file.Valid && file.String != "" {
			return file.String, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating database_list rows: %w", err)
	}
	return "", fmt.Errorf("no file-backed database attached")
}

// Execute runs sqlText on the bridge's independent connection, performing
// eager LIMIT-0 schema inference first. If inference fails (malformed SQL),
// the result falls back to a single text column named "result".
func (b *Bridge) Execute(ctx context.Context, sqlText string) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "hostbridge/execute")
	defer span.End()

	cols, err := b.inferSchema(ctx, sqlText)
	if err != nil {
		b.logger.WarnContext(ctx, "schema inference failed, falling back to single result column: "+err.Error())
		cols = []Column{{Name: "result", DatabaseType: "TEXT"}}
	}

	rows, err := b.db.QueryContext(ctx, sqlText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("unable to execute expanded sql: %w", err)
	}
	defer rows.Close()

	result := &Result{Columns: cols}
	colCount := len(cols)
	scanTargets := make([]any, colCount)
	scanValues := make([]sql.NullString, colCount)
	for i := range scanValues {
		scanTargets[i] = &scanValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("unable to scan result row: %w", err)
		}
		row := make([]string, colCount)
		for i, v := range scanValues {
			if v.Valid {
				row[i] = v.String
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return result, nil
}

// Explain returns the schema the bridge would infer for sqlText without
// executing it, backing the explain_semantic_view host function's
// column-shape discovery and the semantic_query table function's bind step.
func (b *Bridge) Explain(ctx context.Context, sqlText string) ([]Column, error) {
	return b.inferSchema(ctx, sqlText)
}

// inferSchema wraps sqlText in a subquery with LIMIT 0 and runs it on the
// independent connection to discover column names and declared types
// without materializing any rows.
func (b *Bridge) inferSchema(ctx context.Context, sqlText string) ([]Column, error) {
	probe := fmt.Sprintf("SELECT * FROM (%s) AS _probe LIMIT 0", sqlText)
	rows, err := b.db.QueryContext(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("unable to infer schema: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("unable to read column types: %w", err)
	}
	cols := make([]Column, len(types))
	for i, t := range types {
		cols[i] = Column{Name: t.Name(), DatabaseType: t.DatabaseTypeName()}
	}
	return cols, nil
}
