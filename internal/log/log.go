// Package log provides the structured logger used across the catalog and
// host bridge. It mirrors the Logger shape the teacher's server and runtime
// packages call against (InfoContext/DebugContext/ErrorContext/WarnContext)
// while backing it with zap instead of a bespoke wrapper.
package log

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface consumed by the catalog and host bridge.
// Each level has a context-aware variant so future callers can attach
// trace/span IDs without changing call sites.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	DebugContext(ctx context.Context, msg string)
	InfoContext(ctx context.Context, msg string)
	WarnContext(ctx context.Context, msg string)
	ErrorContext(ctx context.Context, msg string)
}

type zapLogger struct {
	z *zap.Logger
}

var _ Logger = &zapLogger{}

func (l *zapLogger) Debug(msg string) { l.z.Debug(msg) }
func (l *zapLogger) Info(msg string)  { l.z.Info(msg) }
func (l *zapLogger) Warn(msg string)  { l.z.Warn(msg) }
func (l *zapLogger) Error(msg string) { l.z.Error(msg) }

// Context is currently unused beyond presence, matching the teacher's own
// pattern of plumbing ctx through to a future span-aware logger without
// requiring one today.
func (l *zapLogger) DebugContext(_ context.Context, msg string) { l.z.Debug(msg) }
func (l *zapLogger) InfoContext(_ context.Context, msg string)  { l.z.Info(msg) }
func (l *zapLogger) WarnContext(_ context.Context, msg string)  { l.z.Warn(msg) }
func (l *zapLogger) ErrorContext(_ context.Context, msg string) { l.z.Error(msg) }

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log level must be one of \"debug\", \"info\", \"warn\", or \"error\": %w", err)
	}
	return l, nil
}

// NewStdLogger returns a human-readable console logger writing to out/err at
// the given minimum severity.
func NewStdLogger(out, err io.Writer, level string) (Logger, error) {
	lvl, parseErr := parseLevel(level)
	if parseErr != nil {
		return nil, parseErr
	}
	return newLogger(out, err, lvl, zapcore.NewConsoleEncoder(encoderConfig()))
}

// NewStructuredLogger returns a JSON-encoded logger, for hosts that scrape
// structured logs rather than reading a console.
func NewStructuredLogger(out, err io.Writer, level string) (Logger, error) {
	lvl, parseErr := parseLevel(level)
	if parseErr != nil {
		return nil, parseErr
	}
	return newLogger(out, err, lvl, zapcore.NewJSONEncoder(encoderConfig()))
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	return cfg
}

func newLogger(out, errOut io.Writer, level zapcore.Level, enc zapcore.Encoder) (Logger, error) {
	infoAndBelow := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.ErrorLevel
	})
	errorAndAbove := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.ErrorLevel
	})
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(out), infoAndBelow),
		zapcore.NewCore(enc, zapcore.AddSync(errOut), errorAndAbove),
	)
	return &zapLogger{z: zap.New(core)}, nil
}

// NewNop returns a logger that discards everything, for tests and library
// callers that have not wired up their own logger yet.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}
