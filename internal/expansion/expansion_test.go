package expansion_test

import (
	"strings"
	"testing"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/expansion"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
)

func simpleDef() model.SemanticViewDefinition {
	return model.SemanticViewDefinition{
		BaseTable:  "orders",
		Dimensions: []model.Dimension{{Name: "region", Expr: "region"}},
		Metrics:    []model.Metric{{Name: "revenue", Expr: "sum(amount)"}},
	}
}

func TestSimpleAggregate(t *testing.T) {
	sql, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Dimensions: []string{"region"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, want := range []string{
		`FROM "orders"`,
		`sum(amount) AS "revenue"`,
		`region AS "region"`,
		"GROUP BY 1",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql missing %q:\n%s", want, sql)
		}
	}
}

func TestDotQualifiedBase(t *testing.T) {
	def := simpleDef()
	def.BaseTable = "jaffle.raw_orders"
	sql, err := expansion.Expand("v1", def, expansion.Request{
		Dimensions: []string{"region"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(sql, `FROM "jaffle"."raw_orders"`) {
		t.Errorf("expected dot-qualified quoting, got:\n%s", sql)
	}
	if strings.Contains(sql, `"jaffle.raw_orders"`) {
		t.Errorf("should not quote the dotted name as a single identifier:\n%s", sql)
	}
}

func defWithJoins() model.SemanticViewDefinition {
	return model.SemanticViewDefinition{
		BaseTable: "orders",
		Dimensions: []model.Dimension{
			{Name: "customer_name", Expr: "customers.name", SourceTable: "customers"},
			{Name: "region_name", Expr: "regions.name", SourceTable: "regions"},
		},
		Metrics: []model.Metric{{Name: "revenue", Expr: "sum(amount)"}},
		Joins: []model.Join{
			{Table: "customers", On: "customers.id = orders.customer_id"},
			{Table: "regions", On: "regions.id = customers.region_id"},
		},
	}
}

func TestJoinPruning(t *testing.T) {
	def := defWithJoins()
	sql, err := expansion.Expand("v1", def, expansion.Request{
		Dimensions: []string{"customer_name"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(sql, `LEFT JOIN "customers"`) {
		t.Errorf("expected customers join present:\n%s", sql)
	}
	if strings.Contains(sql, `LEFT JOIN "regions"`) {
		t.Errorf("expected regions join absent:\n%s", sql)
	}
}

func TestTransitiveJoin(t *testing.T) {
	def := defWithJoins()
	sql, err := expansion.Expand("v1", def, expansion.Request{
		Dimensions: []string{"region_name"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	customerIdx := strings.Index(sql, `LEFT JOIN "customers"`)
	regionIdx := strings.Index(sql, `LEFT JOIN "regions"`)
	if customerIdx == -1 || regionIdx == -1 {
		t.Fatalf("expected both joins present:\n%s", sql)
	}
	if customerIdx > regionIdx {
		t.Errorf("expected joins in declaration order (customers before regions):\n%s", sql)
	}
}

func TestTypoSuggestion(t *testing.T) {
	_, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Dimensions: []string{"reigon"},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	for _, want := range []string{"reigon", "region", "Did you mean"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestEmptyRequest(t *testing.T) {
	_, err := expansion.Expand("v1", simpleDef(), expansion.Request{})
	if err == nil {
		t.Fatal("expected an error")
	}
	var expErr *expansion.Error
	if !asExpansionError(err, &expErr) {
		t.Fatalf("expected *expansion.Error, got %T", err)
	}
	if expErr.Kind != expansion.KindEmptyRequest {
		t.Fatalf("got kind %s, want EmptyRequest", expErr.Kind)
	}
}

func TestDuplicateRequestName(t *testing.T) {
	_, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Dimensions: []string{"region", "region"},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	var expErr *expansion.Error
	if !asExpansionError(err, &expErr) {
		t.Fatalf("expected *expansion.Error, got %T", err)
	}
	if expErr.Kind != expansion.KindDuplicateName {
		t.Fatalf("got kind %s, want DuplicateRequestName", expErr.Kind)
	}
}

func TestDimensionsOnlyUsesDistinctNoGroupBy(t *testing.T) {
	sql, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Dimensions: []string{"region"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(sql, "SELECT DISTINCT") {
		t.Errorf("expected SELECT DISTINCT:\n%s", sql)
	}
	if strings.Contains(sql, "GROUP BY") {
		t.Errorf("did not expect GROUP BY:\n%s", sql)
	}
}

func TestMetricsOnlyGlobalAggregateNoGroupBy(t *testing.T) {
	sql, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Metrics: []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if strings.Contains(sql, "GROUP BY") {
		t.Errorf("did not expect GROUP BY:\n%s", sql)
	}
	if !strings.Contains(sql, `sum(amount) AS "revenue"`) {
		t.Errorf("expected metric projection:\n%s", sql)
	}
}

func TestFiltersAreParenthesizedAndANDed(t *testing.T) {
	def := simpleDef()
	def.Filters = []string{"status = 'completed'", "amount > 0"}
	sql, err := expansion.Expand("v1", def, expansion.Request{
		Dimensions: []string{"region"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.Contains(sql, "WHERE (status = 'completed') AND (amount > 0)") {
		t.Errorf("expected composed filters:\n%s", sql)
	}
}

func TestBeginsWithBaseCTEAndSingleFrom(t *testing.T) {
	sql, err := expansion.Expand("v1", simpleDef(), expansion.Request{
		Dimensions: []string{"region"},
		Metrics:    []string{"revenue"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.HasPrefix(sql, `WITH "_base" AS (`) {
		t.Errorf("expected sql to begin with base CTE:\n%s", sql)
	}
	cteEnd := strings.Index(sql, ")\n")
	cte := sql[:cteEnd]
	if strings.Count(cte, "FROM") != 1 {
		t.Errorf("expected exactly one FROM inside the CTE:\n%s", cte)
	}
}

func asExpansionError(err error, target **expansion.Error) bool {
	if e, ok := err.(*expansion.Error); ok {
		*target = e
		return true
	}
	return false
}
