package otpstore

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/melody/internal/pkg/clock"
)

type pendingCode struct {
	code      string
	attempts  int
	expiresAt time.Time
}

// Memory is an in-process Store guarded by a single mutex.
//
// Expired entries are treated as absent on access and removed by Sweep.
type Memory struct {
	mu     sync.Mutex
	codes  map[string]pendingCode
	grants map[string]time.Time
	opts   Options
	clock  clock.Clocker
}

// NewMemory returns an empty Memory store. A nil clk uses the system clock.
func NewMemory(opts Options, clk clock.Clocker) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{
		codes:  make(map[string]pendingCode),
		grants: make(map[string]time.Time),
		opts:   opts.withDefaults(),
		clock:  clk,
	}
}

func (m *Memory) Put(_ context.Context, identifier, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.codes[identifier] = pendingCode{code: code, expiresAt: m.clock.Now().Add(m.opts.CodeTTL)}
	return nil
}

func (m *Memory) Get(_ context.Context, identifier string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, ok := m.live(identifier)
	if !ok {
		return "", false, nil
	}
	return pc.code, true, nil
}

func (m *Memory) Consume(_ context.Context, identifier, code string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, ok := m.live(identifier)
	if !ok {
		return ResultNotFound, nil
	}

	if subtle.ConstantTimeCompare([]byte(pc.code), []byte(code)) == 1 {
		delete(m.codes, identifier)
		return ResultMatched, nil
	}

	if m.opts.MaxAttempts == 0 {
		return ResultMismatch, nil
	}

	pc.attempts++
	if pc.attempts >= m.opts.MaxAttempts {
		delete(m.codes, identifier)
		return ResultLocked, nil
	}
	m.codes[identifier] = pc
	return ResultMismatch, nil
}

func (m *Memory) Grant(_ context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants[identifier] = m.clock.Now().Add(m.opts.GrantTTL)
	return nil
}

func (m *Memory) ConsumeGrant(_ context.Context, identifier string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.grants[identifier]
	if !ok {
		return false, nil
	}
	delete(m.grants, identifier)
	return m.clock.Now().Before(expiresAt), nil
}

// live returns the unexpired entry for identifier, dropping it if expired.
// Callers must hold m.mu.
func (m *Memory) live(identifier string) (pendingCode, bool) {
	pc, ok := m.codes[identifier]
	if !ok {
		return pendingCode{}, false
	}
	if !m.clock.Now().Before(pc.expiresAt) {
		delete(m.codes, identifier)
		return pendingCode{}, false
	}
	return pc, true
}

// Sweep removes every expired code and grant and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for id, pc := range m.codes {
		if !now.Before(pc.expiresAt) {
			delete(m.codes, id)
			removed++
		}
	}
	for id, exp := range m.grants {
		if !now.Before(exp) {
			delete(m.grants, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.DebugContext(ctx, "otp store swept expired entries", "removed", n)
			}
		}
	}
}
