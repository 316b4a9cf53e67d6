package model_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
)

func TestParseValid(t *testing.T) {
	raw := []byte(`{
		"base_table": "orders",
		"dimensions": [{"name": "region", "expr": "region"}],
		"metrics": [{"name": "revenue", "expr": "sum(amount)"}]
	}`)
	def, err := model.Parse("v1", raw)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := model.SemanticViewDefinition{
		BaseTable:  "orders",
		Dimensions: []model.Dimension{{Name: "region", Expr: "region"}},
		Metrics:    []model.Metric{{Name: "revenue", Expr: "sum(amount)"}},
	}
	if diff := cmp.Diff(want, def); diff != "" {
		t.Fatalf("unexpected definition (-want +got):\n%s", diff)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	raw := []byte(`{
		"base_table": "orders",
		"dimensions": [],
		"metrics": [],
		"join": []
	}`)
	_, err := model.Parse("v1", raw)
	if err == nil {
		t.Fatal("expected an error for unknown top-level field 'join'")
	}
	if !strings.Contains(err.Error(), "v1") {
		t.Fatalf("error should name the view: %s", err)
	}
}

func TestParseRejectsUnknownNestedFields(t *testing.T) {
	raw := []byte(`{
		"base_table": "orders",
		"dimensions": [{"name": "region", "expr": "region", "sourceTable": "regions"}],
		"metrics": []
	}`)
	_, err := model.Parse("v1", raw)
	if err == nil {
		t.Fatal("expected an error for unknown nested field")
	}
}

func TestParseRequiresBaseTable(t *testing.T) {
	raw := []byte(`{"dimensions": [], "metrics": []}`)
	_, err := model.Parse("v1", raw)
	if err == nil {
		t.Fatal("expected an error for missing base_table")
	}
}

func TestParseRejectsDuplicateDimensionNames(t *testing.T) {
	raw := []byte(`{
		"base_table": "orders",
		"dimensions": [{"name": "region", "expr": "a"}, {"name": "Region", "expr": "b"}],
		"metrics": []
	}`)
	_, err := model.Parse("v1", raw)
	if err == nil {
		t.Fatal("expected an error for case-insensitive duplicate dimension name")
	}
}

func TestParseInvalidJSONReturnsParseErrorWithViewName(t *testing.T) {
	_, err := model.Parse("v1", []byte(`not json`))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var pe *model.ParseError
	if !assertAs(t, err, &pe) {
		return
	}
	if pe.ViewName != "v1" {
		t.Fatalf("ParseError.ViewName = %q, want v1", pe.ViewName)
	}
}

func assertAs(t *testing.T, err error, target **model.ParseError) bool {
	t.Helper()
	for e := err; e != nil; {
		if pe, ok := e.(*model.ParseError); ok {
			*target = pe
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	t.Fatalf("error chain does not contain *model.ParseError: %v", err)
	return false
}

func TestRoundTrip(t *testing.T) {
	def := model.SemanticViewDefinition{
		BaseTable: "jaffle.raw_orders",
		Dimensions: []model.Dimension{
			{Name: "region", Expr: "region", SourceTable: "regions"},
		},
		Metrics: []model.Metric{
			{Name: "revenue", Expr: "sum(amount)"},
		},
		Filters: []string{"status = 'completed'"},
		Joins: []model.Join{
			{Table: "regions", On: "regions.id = jaffle.raw_orders.region_id"},
		},
	}
	raw, err := model.Serialize(def)
	if err != nil {
		t.Fatalf("unexpected error serializing: %s", err)
	}
	got, err := model.Parse("v1", raw)
	if err != nil {
		t.Fatalf("unexpected error parsing: %s", err)
	}
	if diff := cmp.Diff(def, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
