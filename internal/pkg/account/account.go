// Package account runs the privileged actions that sit behind OTP
// verification: confirming a sign-in, creating an account and replacing a
// password. Drivers keep accounts in memory, in Postgres or in Zitadel.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAccountNotFound is returned when no account exists for the email.
	ErrAccountNotFound = errors.New("account: not found")
	// ErrAccountExists is returned when creating an account that already exists.
	ErrAccountExists = errors.New("account: already exists")
	// ErrInvalidCredentials is returned when the email/password pair does not match.
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	// ErrUnknownDriver indicates an unsupported provider driver.
	ErrUnknownDriver = errors.New("account: unknown driver")
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverZitadel  = "zitadel"
)

// Provider is an identity provider keyed by email and password.
type Provider interface {
	SignIn(ctx context.Context, email, password string) error
	CreateAccount(ctx context.Context, email, password string) error
	UpdatePassword(ctx context.Context, email, newPassword string) error
	Close() error
}

// Config groups the settings of every driver.
type Config struct {
	Driver   string
	Postgres PostgresConfig
	Zitadel  ZitadelConfig
}

// NewFromDriver constructs a Provider by driver name. hasher is used by the
// memory and postgres drivers; Zitadel hashes on its side.
func NewFromDriver(ctx context.Context, cfg Config, hasher Hasher) (Provider, error) {
	switch strings.TrimSpace(cfg.Driver) {
	case DriverMemory, "":
		return NewMemory(hasher), nil
	case DriverPostgres:
		return NewPostgres(ctx, cfg.Postgres, hasher)
	case DriverZitadel:
		return NewZitadel(ctx, cfg.Zitadel)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
