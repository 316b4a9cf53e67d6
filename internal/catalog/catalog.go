// Package catalog holds the in-memory, name-indexed registry of semantic
// view definitions, backed by a durable host table and a sidecar file
// mirror. Grounded on the teacher's memoryrepo.MemoryRepository: a
// sync.RWMutex-guarded map is the source of truth for reads, with the same
// read-lock/write-lock split.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/log"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/model"
	"github.com/anentropic/duckdb-semantic-views-sub001/internal/telemetry"
)

// maxSuggestDistance mirrors the expansion package's typo-suggestion
// threshold so "did you mean" behaves consistently whether the miss
// happened resolving a view name or a dimension/metric name within one.
const maxSuggestDistance = 3

// ListEntry is one row of Catalog.List: a (name, base_table) pair, per
// spec.md §4.4's list() return shape.
type ListEntry struct {
	Name      string
	BaseTable string
}

// Catalog is the process-wide registry of semantic view definitions. Reads
// are served from an in-memory map guarded by mu; mutations additionally
// persist to the durable Store and rewrite the Sidecar mirror before
// returning success, so a crash between the two never leaves the sidecar
// ahead of the host table (the host table commits first).
type Catalog struct {
	mu      sync.RWMutex
	defs    map[string]model.SemanticViewDefinition
	store   *Store
	sidecar *Sidecar
	logger  log.Logger
	tracer  trace.Tracer
}

// New loads the catalog's initial state from the host table and the
// sidecar, merging the two (sidecar wins on conflict, per spec.md §4.4,
// since the sidecar is guaranteed unaffected by host transaction rollback)
// and then rewrites both backing stores so they agree going forward.
func New(ctx context.Context, store *Store, sidecar *Sidecar, logger log.Logger, tracer trace.Tracer) (*Catalog, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	c := &Catalog{
		defs:    make(map[string]model.SemanticViewDefinition),
		store:   store,
		sidecar: sidecar,
		logger:  logger,
		tracer:  tracer,
	}

	initCtx, span := telemetry.InitConnectionSpan(ctx, tracer, "catalog/store", store.qualifiedTable())
	err := store.EnsureSchema(initCtx)
	span.End()
	if err != nil {
		return nil, &Error{Kind: KindPersistenceError, Cause: err}
	}

	stored, err := store.LoadAll(ctx)
	if err != nil {
		return nil, &Error{Kind: KindPersistenceError, Cause: err}
	}
	for name, raw := range stored {
		def, parseErr := model.Parse(name, []byte(raw))
		if parseErr != nil {
			logger.ErrorContext(ctx, "skipping unreadable stored definition: "+parseErr.Error())
			continue
		}
		c.defs[name] = def
	}

	sidecarDefs, err := sidecar.Load()
	if err != nil {
		logger.WarnContext(ctx, "skipping unreadable sidecar: "+err.Error())
		sidecarDefs = nil
	}
	for name, def := range sidecarDefs {
		c.defs[name] = def // sidecar wins on conflict
	}

	// Reconcile: whatever the merge produced becomes authoritative in both
	// backing stores, so a future load sees a consistent picture.
	for name, def := range c.defs {
		raw, serErr := model.Serialize(def)
		if serErr != nil {
			continue
		}
		if err := store.Upsert(ctx, name, string(raw)); err != nil {
			logger.WarnContext(ctx, "could not reconcile stored definition for "+name+": "+err.Error())
		}
	}
	if err := sidecar.Write(c.defs); err != nil {
		logger.WarnContext(ctx, "could not reconcile sidecar: "+err.Error())
	}

	return c, nil
}

// Define parses rawJSON and registers it as name. It fails with
// KindAlreadyExists if name is already registered (case-insensitively);
// spec.md §4.4 requires an explicit Drop before redefining.
func (c *Catalog) Define(ctx context.Context, name string, rawJSON []byte) (model.SemanticViewDefinition, error) {
	ctx, span := c.tracer.Start(ctx, "catalog/define", trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	def, err := model.Parse(name, rawJSON)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SemanticViewDefinition{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := lowerASCII(name)
	if _, exists := c.lookupLocked(key); exists {
		err := &Error{Kind: KindAlreadyExists, Name: name}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SemanticViewDefinition{}, err
	}

	raw, err := model.Serialize(def)
	if err != nil {
		return model.SemanticViewDefinition{}, &Error{Kind: KindPersistenceError, Name: name, Cause: err}
	}
	if err := c.store.Upsert(ctx, name, string(raw)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SemanticViewDefinition{}, &Error{Kind: KindPersistenceError, Name: name, Cause: err}
	}

	c.defs[name] = def
	if err := c.sidecar.Write(c.snapshotLocked()); err != nil {
		// Roll back the in-memory registration: the host table and the
		// sidecar must never disagree about which views exist.
		delete(c.defs, name)
		rollbackErr := c.store.Delete(ctx, name)
		if rollbackErr != nil {
			c.logger.ErrorContext(ctx, "failed to roll back store row for "+name+" after sidecar write failure: "+rollbackErr.Error())
		}
		persistErr := &Error{Kind: KindPersistenceError, Name: name, Cause: err}
		span.RecordError(persistErr)
		span.SetStatus(codes.Error, persistErr.Error())
		return model.SemanticViewDefinition{}, persistErr
	}

	c.logger.InfoContext(ctx, "defined semantic view "+name)
	return def, nil
}

// Drop removes name from the catalog. It fails with KindNotFound (carrying
// a "did you mean" suggestion, if any) when name is not registered.
func (c *Catalog) Drop(ctx context.Context, name string) error {
	ctx, span := c.tracer.Start(ctx, "catalog/drop", trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	actualName, exists := c.lookupLocked(lowerASCII(name))
	if !exists {
		err := &Error{Kind: KindNotFound, Name: name, Closest: c.closestLocked(name)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	removed := c.defs[actualName]
	delete(c.defs, actualName)

	if err := c.store.Delete(ctx, actualName); err != nil {
		c.defs[actualName] = removed
		persistErr := &Error{Kind: KindPersistenceError, Name: name, Cause: err}
		span.RecordError(persistErr)
		span.SetStatus(codes.Error, persistErr.Error())
		return persistErr
	}
	if err := c.sidecar.Write(c.snapshotLocked()); err != nil {
		c.defs[actualName] = removed
		rollbackErr := c.store.Upsert(ctx, actualName, mustSerialize(removed))
		if rollbackErr != nil {
			c.logger.ErrorContext(ctx, "failed to roll back store row for "+actualName+" after sidecar write failure: "+rollbackErr.Error())
		}
		persistErr := &Error{Kind: KindPersistenceError, Name: name, Cause: err}
		span.RecordError(persistErr)
		span.SetStatus(codes.Error, persistErr.Error())
		return persistErr
	}

	c.logger.InfoContext(ctx, "dropped semantic view "+actualName)
	return nil
}

// Describe returns the registered definition for name, if any. Lookup is
// case-insensitive, matching Define/Drop.
func (c *Catalog) Describe(name string) (model.SemanticViewDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	actualName, exists := c.lookupLocked(lowerASCII(name))
	if !exists {
		return model.SemanticViewDefinition{}, false
	}
	return c.defs[actualName], true
}

// List returns every registered view as a ListEntry, sorted by name.
func (c *Catalog) List() []ListEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]ListEntry, 0, len(c.defs))
	for name, def := range c.defs {
		entries = append(entries, ListEntry{Name: name, BaseTable: def.BaseTable})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// lookupLocked resolves a lowercased name to the actual registered key.
// Callers must hold mu (read or write).
func (c *Catalog) lookupLocked(lowerName string) (string, bool) {
	for name := range c.defs {
		if lowerASCII(name) == lowerName {
			return name, true
		}
	}
	return "", false
}

func (c *Catalog) closestLocked(name string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for candidate := range c.defs {
		d := levenshtein.ComputeDistance(lowerASCII(name), lowerASCII(candidate))
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

// snapshotLocked copies the current definition map for a sidecar write.
// Callers must hold mu.
func (c *Catalog) snapshotLocked() map[string]model.SemanticViewDefinition {
	out := make(map[string]model.SemanticViewDefinition, len(c.defs))
	for k, v := range c.defs {
		out[k] = v
	}
	return out
}

func lowerASCII(s string) string {
	return strings.ToLower(s)
}

func mustSerialize(def model.SemanticViewDefinition) string {
	raw, err := model.Serialize(def)
	if err != nil {
		// def was already validated by Parse when it entered the catalog;
		// it cannot fail to re-serialize.
		panic("catalog: re-serializing a previously valid definition failed: " + err.Error())
	}
	return string(raw)
}
