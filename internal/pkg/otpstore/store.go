package otpstore

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultCodeTTL bounds how long an issued code stays consumable.
	DefaultCodeTTL = 5 * time.Minute
	// DefaultGrantTTL bounds how long a verification grant stays usable.
	DefaultGrantTTL = 10 * time.Minute
)

// ErrUnknownDriver is returned by New for an unsupported driver name.
var ErrUnknownDriver = errors.New("otpstore: unknown driver")

// Result is the outcome of Consume.
type Result int

const (
	// ResultNotFound means no live code exists for the identifier.
	ResultNotFound Result = iota
	// ResultMatched means the code matched and has been deleted.
	ResultMatched
	// ResultMismatch means the code did not match; the entry is still live.
	ResultMismatch
	// ResultLocked means the attempt limit was reached and the entry was deleted.
	ResultLocked
)

func (r Result) String() string {
	switch r {
	case ResultMatched:
		return "matched"
	case ResultMismatch:
		return "mismatch"
	case ResultLocked:
		return "locked"
	default:
		return "not_found"
	}
}

// Store is a keyed, last-writer-wins, single-use secret store.
type Store interface {
	// Put stores code for identifier, replacing any pending one and resetting
	// its failed-attempt counter.
	Put(ctx context.Context, identifier, code string) error
	// Get returns the pending code without consuming it.
	Get(ctx context.Context, identifier string) (code string, found bool, err error)
	// Consume compares code against the pending one and deletes it on match.
	// Concurrent calls for the same identifier never both return ResultMatched.
	Consume(ctx context.Context, identifier, code string) (Result, error)
	// Grant records that identifier passed verification.
	Grant(ctx context.Context, identifier string) error
	// ConsumeGrant reports whether a live grant existed and removes it.
	ConsumeGrant(ctx context.Context, identifier string) (bool, error)
}

// Options tunes expiry and lockout.
type Options struct {
	// CodeTTL defaults to DefaultCodeTTL when zero.
	CodeTTL time.Duration
	// GrantTTL defaults to DefaultGrantTTL when zero.
	GrantTTL time.Duration
	// MaxAttempts deletes the entry once this many mismatches were recorded.
	// Zero keeps a mismatched code live indefinitely until it expires.
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.CodeTTL <= 0 {
		o.CodeTTL = DefaultCodeTTL
	}
	if o.GrantTTL <= 0 {
		o.GrantTTL = DefaultGrantTTL
	}
	if o.MaxAttempts < 0 {
		o.MaxAttempts = 0
	}
	return o
}
