// Package quoting provides the two identifier-quoting primitives the
// expansion engine uses to safely embed catalog/schema/table references and
// column aliases into generated SQL.
package quoting

import "strings"

// Ident double-quotes a single identifier part, escaping any embedded double
// quote by doubling it. It is applied to every output column alias and to
// each dot-separated part of a table reference.
func Ident(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' {
			b.WriteByte('"')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// TableRef splits a possibly dot-qualified table reference on '.', quotes
// each part with Ident, and rejoins with '.'. Splitting is literal: a table
// name containing a literal dot is out of scope (see spec.md §4.1).
//
//	TableRef("orders")              -> `"orders"`
//	TableRef("jaffle.raw_orders")   -> `"jaffle"."raw_orders"`
//	TableRef("cat.sch.tbl")         -> `"cat"."sch"."tbl"`
func TableRef(s string) string {
	parts := strings.Split(s, ".")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = Ident(p)
	}
	return strings.Join(quoted, ".")
}
