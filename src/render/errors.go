package render

import (
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// NewError converts a Vulkan result into an error carrying the calling
// frame. It returns nil for vulkan.Success.
func NewError(retVal vulkan.Result) error {
	if retVal != vulkan.Success {
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			return fmt.Errorf("vulkan error: %w (%d)", vulkan.Error(retVal), retVal)
		}
		frame := newStackFrame(pc)
		return fmt.Errorf("vulkan error: %w (%d) on %s",
			vulkan.Error(retVal), retVal, frame.String())
	}
	return nil
}

func IsError(retVal vulkan.Result) bool {
	return retVal != vulkan.Success
}

// OrPanic logs err, runs the finalizers and panics. A nil err is a no-op.
func OrPanic(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	Logger().Error("render: unrecoverable error", "err", err)
	for _, fn := range finalizers {
		fn()
	}
	panic(err)
}

// CheckError turns a panic into an error. Use it deferred at API
// boundaries that report failures instead of aborting.
func CheckError(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = errors.WithStack(e)
			return
		}
		*err = errors.Errorf("%+v", v)
	}
}
