// Package model holds the value types that make up a semantic view
// definition, and their strict JSON (de)serialization.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Dimension is a named grouping expression. SourceTable, when set, names a
// joined table that must be included in generated SQL whenever this
// dimension is requested.
type Dimension struct {
	Name        string `json:"name" validate:"required"`
	Expr        string `json:"expr" validate:"required"`
	SourceTable string `json:"source_table,omitempty"`
}

// Metric is a named aggregate expression. Its Expr is expected to be
// aggregate-shaped but that is never validated here; an invalid aggregate
// expression only fails once the host executes the generated SQL.
type Metric struct {
	Name        string `json:"name" validate:"required"`
	Expr        string `json:"expr" validate:"required"`
	SourceTable string `json:"source_table,omitempty"`
}

// Join declares one table to be joined into the base CTE, in the order it
// appears in the definition's Joins slice. That declaration order is
// authoritative: the expansion engine emits included joins in this order,
// never in discovery order.
type Join struct {
	Table string `json:"table" validate:"required"`
	On    string `json:"on" validate:"required"`
}

// SemanticViewDefinition is the full, immutable shape of a registered
// semantic view.
type SemanticViewDefinition struct {
	BaseTable  string      `json:"base_table" validate:"required"`
	Dimensions []Dimension `json:"dimensions" validate:"dive"`
	Metrics    []Metric    `json:"metrics" validate:"dive"`
	Filters    []string    `json:"filters,omitempty"`
	Joins      []Join      `json:"joins,omitempty" validate:"dive"`
}

// ParseError is returned when a definition fails to parse or validate. It
// carries the offending view name so callers can surface it without
// re-threading the name through every call site.
type ParseError struct {
	ViewName string
	Msg      string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid definition for %q: %s: %v", e.ViewName, e.Msg, e.Cause)
	}
	return fmt.Sprintf("invalid definition for %q: %s", e.ViewName, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Parse decodes raw JSON into a SemanticViewDefinition. Parsing is strict:
// unknown fields at any level (top-level or nested) are rejected, required
// fields (base_table, dimensions[].name/expr, metrics[].name/expr,
// joins[].table/on) must be present, and uniqueness of dimension/metric names
// within the view is enforced. No partial definition is ever returned on
// error.
func Parse(viewName string, raw []byte) (SemanticViewDefinition, error) {
	var def SemanticViewDefinition

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&def); err != nil {
		return SemanticViewDefinition{}, &ParseError{ViewName: viewName, Msg: "could not parse JSON", Cause: err}
	}
	// a second token would mean trailing garbage after the object
	if dec.More() {
		return SemanticViewDefinition{}, &ParseError{ViewName: viewName, Msg: "unexpected trailing content after JSON object"}
	}

	if err := validate.Struct(def); err != nil {
		return SemanticViewDefinition{}, &ParseError{ViewName: viewName, Msg: "required field missing", Cause: err}
	}

	if err := checkUniqueNames(def); err != nil {
		return SemanticViewDefinition{}, &ParseError{ViewName: viewName, Msg: err.Error()}
	}

	return def, nil
}

func checkUniqueNames(def SemanticViewDefinition) error {
	seen := make(map[string]bool, len(def.Dimensions))
	for _, d := range def.Dimensions {
		key := lowerASCII(d.Name)
		if seen[key] {
			return fmt.Errorf("duplicate dimension name %q", d.Name)
		}
		seen[key] = true
	}
	seen = make(map[string]bool, len(def.Metrics))
	for _, m := range def.Metrics {
		key := lowerASCII(m.Name)
		if seen[key] {
			return fmt.Errorf("duplicate metric name %q", m.Name)
		}
		seen[key] = true
	}
	return nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Serialize renders a definition back to its canonical JSON form. Round-tripping
// through Parse(name, Serialize(def)) reproduces an equal definition.
func Serialize(def SemanticViewDefinition) ([]byte, error) {
	return json.Marshal(def)
}
