// Package idempotency guards handlers that may be invoked more than once for
// the same logical operation, such as broker messages delivered at least once.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
)

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour

	stateInProgress = "in_progress"
	stateCompleted  = "completed"
)

// Idempotency runs fn at most once per key while the completed marker lives.
//
// A failed fn releases the key so a redelivery can try again.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-progress marker blocks other callers.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithStateTTL sets how long the completed marker is remembered.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) { o.stateTTL = d }
}

func buildOptions(opts []Option) execOptions {
	o := execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}
	return o
}

// StateTracker implements Idempotency with Redis SETNX markers.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a Redis-backed tracker.
func New(client redis.UniversalClient) *StateTracker {
	return &StateTracker{client: client, prefix: "idempotency:"}
}

func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := buildOptions(opts)
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, stateInProgress, o.lockDuration).Result()
	if err != nil {
		return err
	}
	if !acquired {
		state, err := s.client.Get(ctx, fk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if state == stateCompleted {
			return ErrAlreadyCompleted
		}
		return ErrAlreadyInProgress
	}

	if err := fn(ctx); err != nil {
		if delErr := s.client.Del(ctx, fk).Err(); delErr != nil {
			return errors.Join(err, delErr)
		}
		return err
	}

	return s.client.Set(ctx, fk, stateCompleted, o.stateTTL).Err()
}

type memoryState struct {
	state     string
	expiresAt time.Time
}

// Memory implements Idempotency in process, for single-instance deployments.
type Memory struct {
	mu    sync.Mutex
	keys  map[string]memoryState
	clock clock.Clocker
}

// NewMemory returns an in-process tracker. A nil clk uses the system clock.
func NewMemory(clk clock.Clocker) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{keys: make(map[string]memoryState), clock: clk}
}

func (m *Memory) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := buildOptions(opts)

	m.mu.Lock()
	now := m.clock.Now()
	if st, ok := m.keys[key]; ok && now.Before(st.expiresAt) {
		m.mu.Unlock()
		if st.state == stateCompleted {
			return ErrAlreadyCompleted
		}
		return ErrAlreadyInProgress
	}
	m.keys[key] = memoryState{state: stateInProgress, expiresAt: now.Add(o.lockDuration)}
	m.mu.Unlock()

	err := fn(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		delete(m.keys, key)
		return err
	}
	m.keys[key] = memoryState{state: stateCompleted, expiresAt: m.clock.Now().Add(o.stateTTL)}
	return nil
}
