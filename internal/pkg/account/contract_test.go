package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/melody/internal/pkg/hash"
)

func testHasher() Hasher {
	return hash.NewBcrypt(4, "pepper")
}

// runContract exercises the behavior every hash-backed Provider shares.
func runContract(t *testing.T, newProvider func(t *testing.T) Provider) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then sign in", func(t *testing.T) {
		// Arrange
		p := newProvider(t)

		// Act
		err := p.CreateAccount(ctx, "User@Example.com ", "secret1")

		// Assert
		if err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}
		if err := p.SignIn(ctx, "user@example.com", "secret1"); err != nil {
			t.Fatalf("SignIn() error = %v, want nil", err)
		}
	})

	t.Run("duplicate account", func(t *testing.T) {
		p := newProvider(t)
		_ = p.CreateAccount(ctx, "a@example.com", "secret1")

		err := p.CreateAccount(ctx, "a@example.com", "other12")

		if !errors.Is(err, ErrAccountExists) {
			t.Fatalf("CreateAccount() error = %v, want %v", err, ErrAccountExists)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		p := newProvider(t)
		_ = p.CreateAccount(ctx, "a@example.com", "secret1")

		err := p.SignIn(ctx, "a@example.com", "secret2")

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("SignIn() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("unknown account signs in as invalid credentials", func(t *testing.T) {
		p := newProvider(t)

		err := p.SignIn(ctx, "ghost@example.com", "secret1")

		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("SignIn() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("update password", func(t *testing.T) {
		// Arrange
		p := newProvider(t)
		_ = p.CreateAccount(ctx, "a@example.com", "secret1")

		// Act
		err := p.UpdatePassword(ctx, "a@example.com", "newpass1")

		// Assert
		if err != nil {
			t.Fatalf("UpdatePassword() error = %v", err)
		}
		if err := p.SignIn(ctx, "a@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("SignIn(old) error = %v, want %v", err, ErrInvalidCredentials)
		}
		if err := p.SignIn(ctx, "a@example.com", "newpass1"); err != nil {
			t.Fatalf("SignIn(new) error = %v, want nil", err)
		}
	})

	t.Run("update unknown account", func(t *testing.T) {
		p := newProvider(t)

		err := p.UpdatePassword(ctx, "ghost@example.com", "newpass1")

		if !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("UpdatePassword() error = %v, want %v", err, ErrAccountNotFound)
		}
	})
}

func TestMemoryContract(t *testing.T) {
	runContract(t, func(*testing.T) Provider { return NewMemory(testHasher()) })
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	p, err := NewFromDriver(ctx, Config{Driver: ""}, testHasher())
	if err != nil {
		t.Fatalf("NewFromDriver(\"\") error = %v", err)
	}
	if _, ok := p.(*Memory); !ok {
		t.Fatalf("NewFromDriver(\"\") = %T, want *Memory", p)
	}

	if _, err := NewFromDriver(ctx, Config{Driver: "ldap"}, testHasher()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("NewFromDriver(ldap) error = %v, want %v", err, ErrUnknownDriver)
	}
	if _, err := NewFromDriver(ctx, Config{Driver: DriverPostgres}, testHasher()); err == nil {
		t.Fatal("NewFromDriver(postgres) without dsn: want error")
	}
	if _, err := NewFromDriver(ctx, Config{Driver: DriverZitadel, Zitadel: ZitadelConfig{Domain: "auth.local"}}, nil); err == nil {
		t.Fatal("NewFromDriver(zitadel) without credentials: want error")
	}
}
