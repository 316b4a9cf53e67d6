// Package testutils holds small helpers shared by this repo's tests, mirroring
// the teacher's internal/testutils.ContextWithNewLogger usage in its own
// table-driven tests.
package testutils

import (
	"context"

	"github.com/anentropic/duckdb-semantic-views-sub001/internal/log"
)

type loggerKey struct{}

// ContextWithNewLogger returns a context carrying a no-op logger, for tests
// that need to pass a context through code paths that log.
func ContextWithNewLogger() (context.Context, error) {
	return context.WithValue(context.Background(), loggerKey{}, log.NewNop()), nil
}

// LoggerFromContext retrieves the logger stored by ContextWithNewLogger,
// falling back to a no-op logger if none is present.
func LoggerFromContext(ctx context.Context) log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(log.Logger); ok {
		return l
	}
	return log.NewNop()
}
