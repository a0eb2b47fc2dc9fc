package otpstore

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/melody/internal/pkg/clock"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryContract(t *testing.T) {
	runContract(t, func(_ *testing.T, opts Options) Store {
		return NewMemory(opts, nil)
	})
}

func TestMemoryCodeExpires(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemory(Options{CodeTTL: 5 * time.Minute}, clk)
	mustPut(t, s, "user@example.com", "123456")

	// Act
	clk.advance(5 * time.Minute)

	// Assert
	if got := mustConsume(t, s, "user@example.com", "123456"); got != ResultNotFound {
		t.Fatalf("Consume() after ttl = %v, want %v", got, ResultNotFound)
	}
}

func TestMemoryGrantExpires(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemory(Options{GrantTTL: time.Minute}, clk)

	if err := s.Grant(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	clk.advance(2 * time.Minute)

	ok, err := s.ConsumeGrant(context.Background(), "user@example.com")
	if err != nil || ok {
		t.Fatalf("ConsumeGrant() after ttl = %v, %v; want false, nil", ok, err)
	}
}

func TestMemorySweep(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemory(Options{CodeTTL: time.Minute, GrantTTL: time.Minute}, clk)
	mustPut(t, s, "old@example.com", "111111")
	if err := s.Grant(context.Background(), "old@example.com"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}

	clk.advance(2 * time.Minute)
	mustPut(t, s, "new@example.com", "222222")

	if got := s.Sweep(); got != 2 {
		t.Fatalf("Sweep() = %d, want 2", got)
	}
	if _, found, _ := s.Get(context.Background(), "new@example.com"); !found {
		t.Fatalf("Sweep() removed a live entry")
	}
}

func TestMemoryRunJanitorStopsOnCancel(t *testing.T) {
	s := NewMemory(Options{}, clock.New())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.RunJanitor(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunJanitor() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("RunJanitor() did not return after cancel")
	}
}

func TestNewFromConfig(t *testing.T) {
	if _, err := New(Config{Driver: "memory"}); err != nil {
		t.Fatalf("New(memory) error = %v", err)
	}
	if _, err := New(Config{Driver: "redis"}); err == nil {
		t.Fatalf("New(redis) without client error = nil")
	}
	if _, err := New(Config{Driver: "etcd"}); err == nil {
		t.Fatalf("New(etcd) error = nil")
	}
}
