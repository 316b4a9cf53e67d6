package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
)

// sidecarSuffix is appended to the host database's file path to name the
// mirror file, per spec.md §4.4/§6.
const sidecarSuffix = ".semantic_views"

// Sidecar mirrors the catalog to a plain file next to the host database
// file. It exists because the host holds internal execution locks during a
// scalar-function invocation that may prevent same-call SQL execution
// against the host table; the sidecar is plain POSIX file I/O and cannot
// deadlock against those locks. Writes are write-to-temp + atomic rename.
type Sidecar struct {
	path string // empty means disabled (in-memory host database)
}

// NewSidecar derives the sidecar path from the host database's file path.
// An empty dbPath (or the sentinel "<in-memory>" the Host Bridge reports for
// file-less sessions) disables the sidecar: the host table alone remains
// authoritative for that session, which has no cross-process survival
// expectation anyway.
func NewSidecar(dbPath string) *Sidecar {
	if dbPath == "" || dbPath == "<in-memory>" {
		return &Sidecar{}
	}
	return &Sidecar{path: dbPath + sidecarSuffix}
}

// Enabled reports whether this sidecar will actually read or write a file.
func (s *Sidecar) Enabled() bool {
	return s.path != ""
}

// Load reads the mirror file, returning an empty map (not an error) if it
// does not exist yet.
func (s *Sidecar) Load() (map[string]model.SemanticViewDefinition, error) {
	if !s.Enabled() {
		return map[string]model.SemanticViewDefinition{}, nil
	}
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]model.SemanticViewDefinition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read sidecar %q: %w", s.path, err)
	}
	var defs map[string]model.SemanticViewDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("unable to parse sidecar %q: %w", s.path, err)
	}
	return defs, nil
}

// Write atomically replaces the mirror file's contents with defs: write to
// "<path>.tmp", then rename over the original. A crash mid-write leaves
// either the old file or nothing observable, never a half-written one.
func (s *Sidecar) Write(defs map[string]model.SemanticViewDefinition) error {
	if !s.Enabled() {
		return nil
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("unable to serialize sidecar contents: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("unable to write sidecar temp file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to rename sidecar temp file into place: %w", err)
	}
	return nil
}

// Path exposes the resolved sidecar file path, mainly for diagnostics and
// tests; it is meaningless when Enabled() is false.
func (s *Sidecar) Path() string {
	return s.path
}
