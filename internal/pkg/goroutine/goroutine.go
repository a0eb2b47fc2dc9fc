// Package goroutine runs bounded background work (OTP store janitor, broker
// consumers) whose lifetime is tied to the application.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/melody/internal/pkg/stacktrace"
)

// DefaultMaxGoroutine multiplied by NumCPU is the limit when none is given.
const DefaultMaxGoroutine int = 100

// Manager starts at most a fixed number of concurrent tasks and gathers
// their errors. Wait closes it: later calls to Go are refused.
type Manager struct {
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	errs   []error
}

func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * DefaultMaxGoroutine
	}
	return &Manager{slots: make(chan struct{}, limit)}
}

// Go starts f unless the manager is closed or full, and reports whether it did.
// A panic in f is logged and recorded as an error.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	if g == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		slog.WarnContext(ctx, "goroutine manager closed, task rejected")
		return false
	}
	select {
	case g.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "goroutine limit reached, task rejected", "limit", cap(g.slots))
		return false
	}

	g.wg.Go(func() {
		defer func() { <-g.slots }()
		if err := runTask(ctx, f); err != nil {
			g.record(err)
		}
	})
	return true
}

func runTask(ctx context.Context, f func(ctx context.Context) error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "background task panicked", "panic", rvr, "stack", stacktrace.ForLog(debug.Stack()))
			err = fmt.Errorf("goroutine: task panicked: %v", rvr)
		}
	}()

	if ctx.Err() != nil {
		return nil
	}
	return f(ctx)
}

func (g *Manager) record(err error) {
	g.mu.Lock()
	g.errs = append(g.errs, err)
	g.mu.Unlock()
}

// Wait closes the manager, blocks until running tasks return and joins
// their errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.errs...)
}
