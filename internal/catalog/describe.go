package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
)

// DescribeResult is the shape describe_semantic_view projects into its
// table-function output columns (spec.md §6): the name and base table as
// plain text, and the four structural fields pre-serialized to JSON text so
// the host-bridge boundary layer has a ready-made row to emit without
// reaching back into model.SemanticViewDefinition.
type DescribeResult struct {
	Name       string
	BaseTable  string
	Dimensions string // JSON array of model.Dimension
	Metrics    string // JSON array of model.Metric
	Filters    string // JSON array of string
	Joins      string // JSON array of model.Join
}

// DescribeRow builds a DescribeResult for name, or false if name is not
// registered.
func (c *Catalog) DescribeRow(name string) (DescribeResult, bool) {
	def, ok := c.Describe(name)
	if !ok {
		return DescribeResult{}, false
	}
	return toDescribeResult(name, def), true
}

func toDescribeResult(name string, def model.SemanticViewDefinition) DescribeResult {
	// Absent fields decode to nil slices, which json.Marshal renders as
	// null; normalize them so every structural column holds a JSON array.
	if def.Dimensions == nil {
		def.Dimensions = []model.Dimension{}
	}
	if def.Metrics == nil {
		def.Metrics = []model.Metric{}
	}
	if def.Filters == nil {
		def.Filters = []string{}
	}
	if def.Joins == nil {
		def.Joins = []model.Join{}
	}
	return DescribeResult{
		Name:       name,
		BaseTable:  def.BaseTable,
		Dimensions: mustMarshalField(def.Dimensions),
		Metrics:    mustMarshalField(def.Metrics),
		Filters:    mustMarshalField(def.Filters),
		Joins:      mustMarshalField(def.Joins),
	}
}

// mustMarshalField serializes one structural field of an already-validated
// definition. These values were produced by model.Parse and can never fail
// to re-marshal.
func mustMarshalField(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("catalog: marshaling describe field failed: %v", err))
	}
	return string(raw)
}
