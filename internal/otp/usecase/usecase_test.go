package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type fakeGenerator struct {
	code string
	err  error
}

func (g fakeGenerator) Generate() (string, error) { return g.code, g.err }

type fakeMail struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (m *fakeMail) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[to] = code
	return nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeMessaging) add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, name)
	return nil
}

func (f *fakeMessaging) PublishOTPIssued(context.Context, string) error     { return f.add("issued") }
func (f *fakeMessaging) PublishOTPVerified(context.Context, string) error   { return f.add("verified") }
func (f *fakeMessaging) PublishPasswordReset(context.Context, string) error { return f.add("reset") }

type fakeAccount struct {
	passwords map[string]string
	err       error
}

func (a *fakeAccount) UpdatePassword(_ context.Context, email, newPassword string) error {
	if a.err != nil {
		return a.err
	}
	if _, ok := a.passwords[email]; !ok {
		return account.ErrAccountNotFound
	}
	a.passwords[email] = newPassword
	return nil
}

type fixture struct {
	uc    *Usecase
	store *otpstore.Memory
	mail  *fakeMail
	mq    *fakeMessaging
	acct  *fakeAccount
}

func newFixture(t *testing.T, yaml string) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	f := &fixture{
		store: otpstore.NewMemory(otpstore.Options{MaxAttempts: 3}, clock.New()),
		mail:  &fakeMail{},
		mq:    &fakeMessaging{},
		acct:  &fakeAccount{passwords: map[string]string{"a@example.com": "old123"}},
	}
	f.uc = New(Dependency{
		Store:         f.store,
		Generator:     fakeGenerator{code: "123456"},
		RepoMail:      f.mail,
		RepoMessaging: f.mq,
		RepoAccount:   f.acct,
		Validator:     v,
		Config:        cfg,
		Instrument:    instrument.NewNoop(),
	})
	return f
}

func statusOf(err error) int {
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return gerr.StatusCode()
	}
	return 0
}

func TestSendOTP(t *testing.T) {
	t.Run("stores then mails the code", func(t *testing.T) {
		// Arrange
		f := newFixture(t, "")

		// Act
		err := f.uc.SendOTP(context.Background(), SendOTPInput{Email: "  A@Example.com "})

		// Assert
		if err != nil {
			t.Fatalf("SendOTP() error = %v", err)
		}
		code, found, _ := f.store.Get(context.Background(), "a@example.com")
		if !found || code != "123456" {
			t.Fatalf("stored code = %q, %v, want 123456, true", code, found)
		}
		if f.mail.sent["a@example.com"] != "123456" {
			t.Fatalf("mailed code = %q, want 123456", f.mail.sent["a@example.com"])
		}
		if len(f.mq.events) != 1 || f.mq.events[0] != "issued" {
			t.Fatalf("events = %v, want [issued]", f.mq.events)
		}
	})

	t.Run("missing email is a 400", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.uc.SendOTP(context.Background(), SendOTPInput{Email: "   "})

		if statusOf(err) != http.StatusBadRequest || goerror.Message(err, "") != "Missing email" {
			t.Fatalf("SendOTP() error = %v (status %d), want 400 Missing email", err, statusOf(err))
		}
	})

	t.Run("malformed email is a 422", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.uc.SendOTP(context.Background(), SendOTPInput{Email: "not-an-email"})

		if statusOf(err) != http.StatusUnprocessableEntity {
			t.Fatalf("SendOTP() status = %d, want 422", statusOf(err))
		}
		if _, found, _ := f.store.Get(context.Background(), "not-an-email"); found {
			t.Fatal("store should not be written for invalid input")
		}
	})

	t.Run("mail failure keeps the stored code", func(t *testing.T) {
		// Arrange
		f := newFixture(t, "")
		f.mail.err = errors.New("smtp down")

		// Act
		err := f.uc.SendOTP(context.Background(), SendOTPInput{Email: "a@example.com"})

		// Assert
		if statusOf(err) != http.StatusInternalServerError || goerror.Message(err, "") != "Failed to send OTP email" {
			t.Fatalf("SendOTP() error = %v, want 500 Failed to send OTP email", err)
		}
		if _, found, _ := f.store.Get(context.Background(), "a@example.com"); !found {
			t.Fatal("stored code should remain after a mail failure")
		}
		if len(f.mq.events) != 0 {
			t.Fatalf("events = %v, want none", f.mq.events)
		}
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		prepare  func(f *fixture)
		in       VerifyOTPInput
		verified bool
		message  string
	}{
		{
			name:    "missing email",
			in:      VerifyOTPInput{Code: "123456"},
			message: MessageMissingEmail,
		},
		{
			name:    "short code",
			in:      VerifyOTPInput{Email: "a@example.com", Code: "12345"},
			message: MessageInvalidFormat,
		},
		{
			name:    "non digit code",
			in:      VerifyOTPInput{Email: "a@example.com", Code: "12a456"},
			message: MessageInvalidFormat,
		},
		{
			name:    "no pending code",
			in:      VerifyOTPInput{Email: "a@example.com", Code: "123456"},
			message: MessageExpiredOrMissing,
		},
		{
			name:    "wrong code",
			prepare: func(f *fixture) { _ = f.store.Put(ctx, "a@example.com", "123456") },
			in:      VerifyOTPInput{Email: "a@example.com", Code: "654321"},
			message: MessageInvalidOTP,
		},
		{
			name: "locked after max attempts",
			prepare: func(f *fixture) {
				_ = f.store.Put(ctx, "a@example.com", "123456")
				_, _ = f.store.Consume(ctx, "a@example.com", "000000")
				_, _ = f.store.Consume(ctx, "a@example.com", "000000")
			},
			in:      VerifyOTPInput{Email: "a@example.com", Code: "000000"},
			message: MessageLocked,
		},
		{
			name:     "matching code",
			prepare:  func(f *fixture) { _ = f.store.Put(ctx, "a@example.com", "123456") },
			in:       VerifyOTPInput{Email: "A@example.com", Code: "123456"},
			verified: true,
			message:  MessageVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, "")
			if tt.prepare != nil {
				tt.prepare(f)
			}

			// Act
			out, err := f.uc.VerifyOTP(ctx, tt.in)

			// Assert
			if err != nil {
				t.Fatalf("VerifyOTP() error = %v", err)
			}
			if out.Verified != tt.verified || out.Message != tt.message {
				t.Fatalf("VerifyOTP() = %+v, want verified=%v message=%q", out, tt.verified, tt.message)
			}
		})
	}
}

func TestVerifyOTPIsSingleUse(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, "")
	_ = f.store.Put(ctx, "a@example.com", "123456")

	// Act
	first, _ := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@example.com", Code: "123456"})
	second, _ := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@example.com", Code: "123456"})

	// Assert
	if !first.Verified {
		t.Fatalf("first VerifyOTP() = %+v, want verified", first)
	}
	if second.Verified || second.Message != MessageExpiredOrMissing {
		t.Fatalf("second VerifyOTP() = %+v, want %q", second, MessageExpiredOrMissing)
	}
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	gated := "modules:\n  otp:\n    reset_requires_verification: true\n"

	t.Run("ungated reset updates the password", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "secret9"})

		if err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		if f.acct.passwords["a@example.com"] != "secret9" {
			t.Fatalf("password = %q, want secret9", f.acct.passwords["a@example.com"])
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "123"})

		if statusOf(err) != http.StatusUnprocessableEntity {
			t.Fatalf("ResetPassword() status = %d, want 422", statusOf(err))
		}
	})

	t.Run("unknown account is a 404", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "ghost@example.com", NewPassword: "secret9"})

		if statusOf(err) != http.StatusNotFound {
			t.Fatalf("ResetPassword() status = %d, want 404", statusOf(err))
		}
	})

	t.Run("gated reset without verification is a 403", func(t *testing.T) {
		f := newFixture(t, gated)

		err := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "secret9"})

		if statusOf(err) != http.StatusForbidden {
			t.Fatalf("ResetPassword() status = %d, want 403", statusOf(err))
		}
	})

	t.Run("gated reset after verification succeeds once", func(t *testing.T) {
		// Arrange
		f := newFixture(t, gated)
		_ = f.store.Put(ctx, "a@example.com", "123456")
		if out, _ := f.uc.VerifyOTP(ctx, VerifyOTPInput{Email: "a@example.com", Code: "123456"}); !out.Verified {
			t.Fatalf("VerifyOTP() = %+v, want verified", out)
		}

		// Act
		first := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "secret9"})
		second := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "secret8"})

		// Assert
		if first != nil {
			t.Fatalf("first ResetPassword() error = %v", first)
		}
		if statusOf(second) != http.StatusForbidden {
			t.Fatalf("second ResetPassword() status = %d, want 403", statusOf(second))
		}
	})

	t.Run("provider failure is a 500", func(t *testing.T) {
		f := newFixture(t, "")
		f.acct.err = errors.New("provider down")

		err := f.uc.ResetPassword(ctx, ResetPasswordInput{Email: "a@example.com", NewPassword: "secret9"})

		if statusOf(err) != http.StatusInternalServerError {
			t.Fatalf("ResetPassword() status = %d, want 500", statusOf(err))
		}
	})
}
