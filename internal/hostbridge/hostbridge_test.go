package hostbridge_test

import (
	"context"
	"testing"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/hostbridge"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/telemetry"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/testutils"
)

func newTestBridge(t *testing.T) *hostbridge.Bridge {
	t.Helper()
	ctx, err := testutils.ContextWithNewLogger()
	if err != nil {
		t.Fatalf("unable to build test context: %s", err)
	}
	b, err := hostbridge.Open(ctx, "", testutils.LoggerFromContext(ctx), telemetry.NewTracer("hostbridge_test"))
	if err != nil {
		t.Fatalf("unable to open bridge: %s", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpenRecordsInMemorySentinelWhenNoFile(t *testing.T) {
	b := newTestBridge(t)
	if b.DBPath() != hostbridge.InMemorySentinel {
		t.Fatalf("got db path %q, want %q", b.DBPath(), hostbridge.InMemorySentinel)
	}
}

func TestExecuteInfersColumnsAndMaterializesText(t *testing.T) {
	b := newTestBridge(t)
	result, err := b.Execute(context.Background(), "SELECT 1 AS n, 'abc' AS s")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(result.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(result.Columns))
	}
	if result.Columns[0].Name != "n" || result.Columns[1].Name != "s" {
		t.Fatalf("unexpected column names: %+v", result.Columns)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(result.Rows))
	}
	if result.Rows[0][0] != "1" || result.Rows[0][1] != "abc" {
		t.Fatalf("unexpected row values: %+v", result.Rows[0])
	}
}

func TestExecuteMalformedSQLReturnsError(t *testing.T) {
	b := newTestBridge(t)
	_, err := b.Execute(context.Background(), "not even remotely valid sql")
	if err == nil {
		t.Fatal("expected an error executing malformed sql")
	}
}

func TestExplainReturnsSchemaWithoutRows(t *testing.T) {
	b := newTestBridge(t)
	cols, err := b.Explain(context.Background(), "SELECT 1 AS n")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(cols) != 1 || cols[0].Name != "n" {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}
