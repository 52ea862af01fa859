package render

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		require.False(t, h.Enabled(context.Background(), level), "level %v", level)
	}
	require.NoError(t, h.Handle(context.Background(), slog.Record{}))
	require.IsType(t, nopHandler{}, h.WithAttrs([]slog.Attr{slog.String("k", "v")}))
	require.IsType(t, nopHandler{}, h.WithGroup("g"))
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Debug("compiled", "passes", 3)
	require.Contains(t, buf.String(), "compiled")
	require.Contains(t, buf.String(), "passes=3")

	SetLogger(nil)
	require.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestContextLoggerOverride(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(nil)
	ctx.Log = slog.New(slog.NewTextHandler(&buf, nil))
	ctx.Logger().Info("hello")
	require.Contains(t, buf.String(), "hello")
}
