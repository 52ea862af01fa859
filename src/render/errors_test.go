package render

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/vulkan"
)

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vulkan.Success))
	require.False(t, IsError(vulkan.Success))

	err := NewError(vulkan.ErrorOutOfDeviceMemory)
	require.Error(t, err)
	require.True(t, IsError(vulkan.ErrorOutOfDeviceMemory))
	require.Contains(t, err.Error(), "vulkan error")
	require.Contains(t, err.Error(), "errors_test.go")
}

func TestOrPanic(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NotPanics(t, func() { OrPanic(nil) })

	ran := false
	boom := errors.New("boom")
	require.PanicsWithError(t, "boom", func() {
		OrPanic(boom, func() { ran = true })
	})
	require.True(t, ran)
	require.Contains(t, buf.String(), "boom")
}

func TestCheckError(t *testing.T) {
	fromError := func() (err error) {
		defer CheckError(&err)
		panic(errors.New("device lost"))
	}
	err := fromError()
	require.Error(t, err)
	require.Contains(t, err.Error(), "device lost")

	fromString := func() (err error) {
		defer CheckError(&err)
		panic("framegraph: dangling image handle 7")
	}
	err = fromString()
	require.Error(t, err)
	require.Contains(t, err.Error(), "dangling image handle 7")

	clean := func() (err error) {
		defer CheckError(&err)
		return nil
	}
	require.NoError(t, clean())
}

func TestStackFrame(t *testing.T) {
	require.Equal(t, "unknown", newStackFrame(0).String())
}
