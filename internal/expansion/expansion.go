// Package expansion implements the core of the semantic layer: turning a
// SemanticViewDefinition plus a requested set of dimension/metric names into
// a single, concrete SQL string. The package is pure — it has no knowledge
// of the host database, a catalog, or any I/O; every input is a plain value
// and every output is a string or an *Error.
package expansion

import (
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/quoting"
)

// maxSuggestDistance is the edit-distance threshold under which an unknown
// name gets a "did you mean" suggestion. Chosen to catch typos ("reigon" ->
// "region", distance 2) without suggesting unrelated identifiers.
const maxSuggestDistance = 3

// Request is the set of dimension and metric names a caller asked for.
type Request struct {
	Dimensions []string
	Metrics    []string
}

// Expand produces the SQL for viewName/def/req, or an *Error describing why
// it could not.
func Expand(viewName string, def model.SemanticViewDefinition, req Request) (string, error) {
	if len(req.Dimensions) == 0 && len(req.Metrics) == 0 {
		return "", &Error{Kind: KindEmptyRequest, ViewName: viewName}
	}

	dimIndex := newNameIndex(dimensionNames(def.Dimensions))
	metIndex := newNameIndex(metricNames(def.Metrics))

	dims, err := resolve(viewName, req.Dimensions, dimIndex, def.Dimensions, KindUnknownDimension)
	if err != nil {
		return "", err
	}
	metrics, err := resolve(viewName, req.Metrics, metIndex, def.Metrics, KindUnknownMetric)
	if err != nil {
		return "", err
	}

	included := includedJoins(def, dims, metrics)

	var b strings.Builder
	writeBaseCTE(&b, def, included)
	writeOuterSelect(&b, dims, metrics)

	return b.String(), nil
}

func dimensionNames(ds []model.Dimension) []string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}

func metricNames(ms []model.Metric) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Name
	}
	return names
}

// nameIndex supports case-insensitive lookup of a definition's dimension or
// metric names, plus nearest-candidate suggestion for misses.
type nameIndex struct {
	names   []string // original casing, declaration order
	byLower map[string]int
}

func newNameIndex(names []string) nameIndex {
	idx := nameIndex{names: names, byLower: make(map[string]int, len(names))}
	for i, n := range names {
		idx.byLower[strings.ToLower(n)] = i
	}
	return idx
}

func (idx nameIndex) lookup(name string) (int, bool) {
	i, ok := idx.byLower[strings.ToLower(name)]
	return i, ok
}

// closest returns the nearest candidate name within maxSuggestDistance, or
// "" if none qualifies.
func (idx nameIndex) closest(name string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, candidate := range idx.names {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(candidate))
		if d < bestDist {
			bestDist = d
			best = candidate
		}
	}
	if bestDist > maxSuggestDistance {
		return ""
	}
	return best
}

// resolve validates a requested name list against a definition's entries,
// rejecting duplicates and unknown names, and returns the resolved entries
// in request order.
func resolve[T any](viewName string, requested []string, idx nameIndex, defs []T, unknownKind Kind) ([]T, error) {
	seen := make(map[string]bool, len(requested))
	out := make([]T, 0, len(requested))
	for _, name := range requested {
		lower := strings.ToLower(name)
		if seen[lower] {
			return nil, &Error{Kind: KindDuplicateName, ViewName: viewName, Name: name}
		}
		seen[lower] = true

		i, ok := idx.lookup(name)
		if !ok {
			return nil, &Error{Kind: unknownKind, ViewName: viewName, Name: name, Closest: idx.closest(name)}
		}
		out = append(out, defs[i])
	}
	return out, nil
}

// includedJoins determines which of def.Joins are actually needed by the
// request, returned in original declaration order. See spec.md §4.3 for the
// seeding + fixed-point algorithm this implements.
func includedJoins(def model.SemanticViewDefinition, dims []model.Dimension, metrics []model.Metric) []model.Join {
	needed := make(map[string]bool)
	for _, d := range dims {
		if d.SourceTable != "" {
			needed[d.SourceTable] = true
		}
	}
	for _, m := range metrics {
		if m.SourceTable != "" {
			needed[m.SourceTable] = true
		}
	}
	for _, filter := range def.Filters {
		for _, j := range def.Joins {
			if strings.Contains(filter, j.Table) {
				needed[j.Table] = true
			}
		}
	}

	included := make([]bool, len(def.Joins))
	for {
		changed := false
		for i, j := range def.Joins {
			if included[i] || !needed[j.Table] {
				continue
			}
			included[i] = true
			changed = true
			for _, other := range def.Joins {
				if strings.Contains(j.On, other.Table) {
					if !needed[other.Table] {
						needed[other.Table] = true
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}

	result := make([]model.Join, 0, len(def.Joins))
	for i, j := range def.Joins {
		if included[i] {
			result = append(result, j)
		}
	}
	return result
}

func writeBaseCTE(b *strings.Builder, def model.SemanticViewDefinition, joins []model.Join) {
	b.WriteString("WITH \"_base\" AS (\n")
	b.WriteString("  SELECT *\n")
	b.WriteString("  FROM ")
	b.WriteString(quoting.TableRef(def.BaseTable))
	b.WriteString("\n")
	for _, j := range joins {
		b.WriteString("  LEFT JOIN ")
		b.WriteString(quoting.TableRef(j.Table))
		b.WriteString(" ON ")
		b.WriteString(j.On)
		b.WriteString("\n")
	}
	if len(def.Filters) > 0 {
		b.WriteString("  WHERE ")
		parts := make([]string, len(def.Filters))
		for i, f := range def.Filters {
			parts[i] = "(" + f + ")"
		}
		b.WriteString(strings.Join(parts, " AND "))
		b.WriteString("\n")
	}
	b.WriteString(")\n")
}

func writeOuterSelect(b *strings.Builder, dims []model.Dimension, metrics []model.Metric) {
	switch {
	case len(dims) > 0 && len(metrics) > 0:
		b.WriteString("SELECT\n")
		writeProjections(b, dims, metrics)
		b.WriteString("\nFROM \"_base\"\n")
		b.WriteString("GROUP BY ")
		writeOrdinals(b, len(dims))
	case len(metrics) == 0:
		// dimensions only
		b.WriteString("SELECT DISTINCT\n")
		writeProjections(b, dims, nil)
		b.WriteString("\nFROM \"_base\"")
	default:
		// metrics only, no dimensions: global aggregate, no GROUP BY
		b.WriteString("SELECT\n")
		writeProjections(b, nil, metrics)
		b.WriteString("\nFROM \"_base\"")
	}
}

func writeProjections(b *strings.Builder, dims []model.Dimension, metrics []model.Metric) {
	n := len(dims) + len(metrics)
	i := 0
	write := func(expr, name string) {
		b.WriteString("  ")
		b.WriteString(expr)
		b.WriteString(" AS ")
		b.WriteString(quoting.Ident(name))
		i++
		if i < n {
			b.WriteString(",\n")
		}
	}
	for _, d := range dims {
		write(d.Expr, d.Name)
	}
	for _, m := range metrics {
		write(m.Expr, m.Name)
	}
}

func writeOrdinals(b *strings.Builder, k int) {
	for i := 1; i <= k; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(i))
	}
}
