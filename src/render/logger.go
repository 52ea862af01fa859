package render

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger shared by render and its sub-packages.
// The default logger is silent; pass nil to restore that.
//
// Levels:
//   - [slog.LevelDebug]: per-phase compiler diagnostics (survivors, allocations, barriers)
//   - [slog.LevelInfo]: device lifecycle (queues selected, frame retired)
//   - [slog.LevelError]: the diagnostic logged right before an unrecoverable panic
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
