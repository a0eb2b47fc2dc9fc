package otpstore

import (
	"context"
	"sync"
	"testing"
)

// runContract exercises behavior every Store must share.
func runContract(t *testing.T, newStore func(t *testing.T, opts Options) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("consume is single use", func(t *testing.T) {
		s := newStore(t, Options{})
		mustPut(t, s, "user@example.com", "123456")

		if got := mustConsume(t, s, "user@example.com", "123456"); got != ResultMatched {
			t.Fatalf("first Consume() = %v, want %v", got, ResultMatched)
		}
		if got := mustConsume(t, s, "user@example.com", "123456"); got != ResultNotFound {
			t.Fatalf("second Consume() = %v, want %v", got, ResultNotFound)
		}
	})

	t.Run("put overwrites previous code", func(t *testing.T) {
		s := newStore(t, Options{})
		mustPut(t, s, "user@example.com", "111111")
		mustPut(t, s, "user@example.com", "222222")

		if got := mustConsume(t, s, "user@example.com", "111111"); got != ResultMismatch {
			t.Fatalf("Consume(old) = %v, want %v", got, ResultMismatch)
		}
		if got := mustConsume(t, s, "user@example.com", "222222"); got != ResultMatched {
			t.Fatalf("Consume(new) = %v, want %v", got, ResultMatched)
		}
	})

	t.Run("mismatch leaves entry untouched without a limit", func(t *testing.T) {
		s := newStore(t, Options{})
		mustPut(t, s, "user@example.com", "123456")

		for i := 0; i < 3; i++ {
			if got := mustConsume(t, s, "user@example.com", "000000"); got != ResultMismatch {
				t.Fatalf("Consume(wrong) #%d = %v, want %v", i, got, ResultMismatch)
			}
		}

		code, found, err := s.Get(ctx, "user@example.com")
		if err != nil || !found || code != "123456" {
			t.Fatalf("Get() = %q, %v, %v; want 123456, true, nil", code, found, err)
		}
		if got := mustConsume(t, s, "user@example.com", "123456"); got != ResultMatched {
			t.Fatalf("Consume(right) = %v, want %v", got, ResultMatched)
		}
	})

	t.Run("attempt limit locks the entry", func(t *testing.T) {
		s := newStore(t, Options{MaxAttempts: 3})
		mustPut(t, s, "user@example.com", "123456")

		for i := 0; i < 2; i++ {
			if got := mustConsume(t, s, "user@example.com", "000000"); got != ResultMismatch {
				t.Fatalf("Consume(wrong) #%d = %v, want %v", i, got, ResultMismatch)
			}
		}
		if got := mustConsume(t, s, "user@example.com", "000000"); got != ResultLocked {
			t.Fatalf("Consume(wrong) at limit = %v, want %v", got, ResultLocked)
		}
		if got := mustConsume(t, s, "user@example.com", "123456"); got != ResultNotFound {
			t.Fatalf("Consume(right) after lock = %v, want %v", got, ResultNotFound)
		}
	})

	t.Run("put resets the attempt counter", func(t *testing.T) {
		s := newStore(t, Options{MaxAttempts: 2})
		mustPut(t, s, "user@example.com", "123456")
		mustConsume(t, s, "user@example.com", "000000")
		mustPut(t, s, "user@example.com", "654321")

		if got := mustConsume(t, s, "user@example.com", "000000"); got != ResultMismatch {
			t.Fatalf("Consume(wrong) after re-issue = %v, want %v", got, ResultMismatch)
		}
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		s := newStore(t, Options{})
		mustPut(t, s, "a@example.com", "111111")
		mustPut(t, s, "b@example.com", "222222")

		if got := mustConsume(t, s, "a@example.com", "222222"); got != ResultMismatch {
			t.Fatalf("Consume(a, b's code) = %v, want %v", got, ResultMismatch)
		}
		if got := mustConsume(t, s, "b@example.com", "222222"); got != ResultMatched {
			t.Fatalf("Consume(b) = %v, want %v", got, ResultMatched)
		}
	})

	t.Run("concurrent consume has exactly one winner", func(t *testing.T) {
		s := newStore(t, Options{})
		mustPut(t, s, "race@example.com", "424242")

		const workers = 16
		var wg sync.WaitGroup
		results := make(chan Result, workers)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				res, err := s.Consume(ctx, "race@example.com", "424242")
				if err != nil {
					t.Errorf("Consume() error = %v", err)
					return
				}
				results <- res
			}()
		}
		close(start)
		wg.Wait()
		close(results)

		matched := 0
		for res := range results {
			if res == ResultMatched {
				matched++
			}
		}
		if matched != 1 {
			t.Fatalf("matched = %d, want exactly 1", matched)
		}
	})

	t.Run("grant is single use", func(t *testing.T) {
		s := newStore(t, Options{})

		if ok, err := s.ConsumeGrant(ctx, "user@example.com"); err != nil || ok {
			t.Fatalf("ConsumeGrant() before Grant = %v, %v; want false, nil", ok, err)
		}
		if err := s.Grant(ctx, "user@example.com"); err != nil {
			t.Fatalf("Grant() error = %v", err)
		}
		if ok, err := s.ConsumeGrant(ctx, "user@example.com"); err != nil || !ok {
			t.Fatalf("ConsumeGrant() = %v, %v; want true, nil", ok, err)
		}
		if ok, err := s.ConsumeGrant(ctx, "user@example.com"); err != nil || ok {
			t.Fatalf("second ConsumeGrant() = %v, %v; want false, nil", ok, err)
		}
	})
}

func mustPut(t *testing.T, s Store, id, code string) {
	t.Helper()
	if err := s.Put(context.Background(), id, code); err != nil {
		t.Fatalf("Put(%q) error = %v", id, err)
	}
}

func mustConsume(t *testing.T, s Store, id, code string) Result {
	t.Helper()
	res, err := s.Consume(context.Background(), id, code)
	if err != nil {
		t.Fatalf("Consume(%q) error = %v", id, err)
	}
	return res
}
