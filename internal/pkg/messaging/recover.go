package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/melody/internal/pkg/stacktrace"
)

// invokeHandler runs fn and turns a panic into an error so the broker
// adapter can Nack instead of crashing the consumer loop.
func invokeHandler(ctx context.Context, source string, fn func() error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}
		slog.ErrorContext(ctx, "message handler panicked", "source", source, "panic", rvr, "stack", stacktrace.ForLog(debug.Stack()))
		err = fmt.Errorf("messaging: %s handler panicked: %v", source, rvr)
	}()

	return fn()
}
