package authflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type fakeCodes struct {
	mu        sync.Mutex
	requested []string
	verified  []string
	resets    []string

	requestErr error
	verifyErr  error
	resetErr   error
	block      chan struct{}
}

func (f *fakeCodes) RequestCode(ctx context.Context, email string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, email)
	return f.requestErr
}

func (f *fakeCodes) VerifyCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, email+":"+code)
	return f.verifyErr
}

func (f *fakeCodes) ResetPassword(_ context.Context, email, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email+":"+newPassword)
	return f.resetErr
}

type fakeIdentity struct {
	signIns []string
	creates []string
	err     error
	panics  bool
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) error {
	if f.panics {
		panic("provider exploded")
	}
	f.signIns = append(f.signIns, email+":"+password)
	return f.err
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, password string) error {
	f.creates = append(f.creates, email+":"+password)
	return f.err
}

type memoryPrefs struct {
	saved   *Remembered
	initial Remembered
}

func (p *memoryPrefs) Load(context.Context) (Remembered, error) { return p.initial, nil }

func (p *memoryPrefs) Save(_ context.Context, r Remembered) error {
	p.saved = &r
	return nil
}

// sequenceCaptcha hands out "C1", "C2", ... so regeneration is observable.
type sequenceCaptcha struct{ n int }

func (s *sequenceCaptcha) Generate() string {
	s.n++
	return "C" + string(rune('0'+s.n))
}

type fixture struct {
	flow     *Flow
	codes    *fakeCodes
	identity *fakeIdentity
	prefs    *memoryPrefs
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	fx := &fixture{codes: &fakeCodes{}, identity: &fakeIdentity{}, prefs: &memoryPrefs{}}
	fx.flow, err = New(context.Background(), Dependency{
		Codes:       fx.codes,
		Identity:    fx.identity,
		Preferences: fx.prefs,
		Captcha:     &sequenceCaptcha{},
		Validator:   v,
		Timeout:     timeout,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return fx
}

func (fx *fixture) form(intent Intent) Form {
	return Form{
		Intent:   intent,
		Email:    " user@example.com ",
		Password: "secret1",
		Confirm:  "secret1",
		Captcha:  fx.flow.Captcha(),
	}
}

func (fx *fixture) toCodeEntry(t *testing.T, form Form) {
	t.Helper()
	st, err := fx.flow.Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, ok := st.(AwaitingCodeEntry); !ok {
		t.Fatalf("Submit() state = %#v, want AwaitingCodeEntry", st)
	}
}

func TestSubmitCaptchaMismatch(t *testing.T) {
	// Arrange
	fx := newFixture(t, 0)
	form := fx.form(IntentLogin)
	form.Captcha = "c1"

	// Act
	st, err := fx.flow.Submit(context.Background(), form)

	// Assert
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	idle, ok := st.(Idle)
	if !ok || idle.Error != MessageCaptchaMismatch {
		t.Fatalf("Submit() state = %#v, want Idle with captcha error", st)
	}
	if got := fx.flow.Captcha(); got != "C2" {
		t.Fatalf("captcha = %s, want regenerated C2", got)
	}
	if len(fx.codes.requested) != 0 {
		t.Fatalf("RequestCode called %d times, want 0", len(fx.codes.requested))
	}
}

func TestSubmitCaptchaIgnoresSurroundingSpace(t *testing.T) {
	fx := newFixture(t, 0)
	form := fx.form(IntentLogin)
	form.Captcha = "  " + form.Captcha + "\t"

	fx.toCodeEntry(t, form)
}

func TestSubmitFieldValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
		want   string
	}{
		{name: "bad email", mutate: func(f *Form) { f.Email = "nope" }, want: MessageInvalidEmail},
		{name: "short password", mutate: func(f *Form) { f.Password = "12345" }, want: MessagePasswordTooShort},
		{name: "register confirm mismatch", mutate: func(f *Form) { f.Intent = IntentRegister; f.Confirm = "other12" }, want: MessagePasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 0)
			form := fx.form(IntentLogin)
			tt.mutate(&form)

			st, err := fx.flow.Submit(context.Background(), form)

			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if idle, ok := st.(Idle); !ok || idle.Error != tt.want {
				t.Fatalf("Submit() state = %#v, want Idle error %q", st, tt.want)
			}
			if len(fx.codes.requested) != 0 {
				t.Fatal("RequestCode must not be called")
			}
		})
	}
}

func TestSubmitForgotPasswordNeedsNoPassword(t *testing.T) {
	fx := newFixture(t, 0)
	form := fx.form(IntentForgotPassword)
	form.Password = ""

	fx.toCodeEntry(t, form)

	if len(fx.codes.requested) != 1 || fx.codes.requested[0] != "user@example.com" {
		t.Fatalf("requested = %v, want [user@example.com]", fx.codes.requested)
	}
}

func TestSubmitRequestFailureReturnsToIdle(t *testing.T) {
	fx := newFixture(t, 0)
	fx.codes.requestErr = goerror.NewBusiness("Failed to send OTP email", goerror.CodeInternal)

	st, _ := fx.flow.Submit(context.Background(), fx.form(IntentLogin))

	if idle, ok := st.(Idle); !ok || idle.Error != "Failed to send OTP email" {
		t.Fatalf("Submit() state = %#v, want Idle with server message", st)
	}
}

func TestSubmitTransportFailureUsesFallback(t *testing.T) {
	fx := newFixture(t, 0)
	fx.codes.requestErr = errors.New("connection refused")

	st, _ := fx.flow.Submit(context.Background(), fx.form(IntentLogin))

	if idle, ok := st.(Idle); !ok || idle.Error != MessageSendFailed {
		t.Fatalf("Submit() state = %#v, want Idle with %q", st, MessageSendFailed)
	}
}

func TestSubmitTimeout(t *testing.T) {
	// Arrange
	fx := newFixture(t, 20*time.Millisecond)
	fx.codes.block = make(chan struct{})

	// Act
	st, _ := fx.flow.Submit(context.Background(), fx.form(IntentLogin))

	// Assert
	if idle, ok := st.(Idle); !ok || idle.Error != MessageTimeout {
		t.Fatalf("Submit() state = %#v, want Idle with %q", st, MessageTimeout)
	}
	if fx.flow.Busy() {
		t.Fatal("flow still busy after timeout")
	}
}

func TestBusyRejectsConcurrentOperation(t *testing.T) {
	// Arrange
	fx := newFixture(t, time.Second)
	fx.codes.block = make(chan struct{})
	form := fx.form(IntentLogin)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fx.flow.Submit(context.Background(), form)
	}()

	deadline := time.Now().Add(time.Second)
	for !fx.flow.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("first Submit never started")
		}
		time.Sleep(time.Millisecond)
	}

	// Act
	_, err := fx.flow.Submit(context.Background(), form)
	_, backErr := fx.flow.Back()

	// Assert
	if !errors.Is(err, ErrBusy) || !errors.Is(backErr, ErrBusy) {
		t.Fatalf("errors = %v, %v, want ErrBusy", err, backErr)
	}

	close(fx.codes.block)
	<-done
	if len(fx.codes.requested) != 1 {
		t.Fatalf("RequestCode called %d times, want 1", len(fx.codes.requested))
	}
}

func TestEnterCodeFormatGate(t *testing.T) {
	fx := newFixture(t, 0)
	fx.toCodeEntry(t, fx.form(IntentLogin))

	for _, digits := range []string{"12345", "abcdef", "1234567"} {
		st, err := fx.flow.EnterCode(context.Background(), digits)
		if err != nil {
			t.Fatalf("EnterCode(%q) error = %v", digits, err)
		}
		if entry, ok := st.(AwaitingCodeEntry); !ok || entry.Error != MessageCodeIncomplete {
			t.Fatalf("EnterCode(%q) state = %#v", digits, st)
		}
	}
	if len(fx.codes.verified) != 0 {
		t.Fatalf("VerifyCode called %d times, want 0", len(fx.codes.verified))
	}
}

func TestEnterCodeRejectedStaysInEntry(t *testing.T) {
	fx := newFixture(t, 0)
	fx.toCodeEntry(t, fx.form(IntentLogin))
	fx.codes.verifyErr = goerror.NewBusiness("Invalid OTP", goerror.CodeUnauthorized)

	st, _ := fx.flow.EnterCode(context.Background(), "000000")

	if entry, ok := st.(AwaitingCodeEntry); !ok || entry.Error != "Invalid OTP" {
		t.Fatalf("EnterCode() state = %#v, want AwaitingCodeEntry with Invalid OTP", st)
	}

	// retry with the right code without requesting a new one
	fx.codes.verifyErr = nil
	st, _ = fx.flow.EnterCode(context.Background(), "123456")
	if _, ok := st.(Authenticated); !ok {
		t.Fatalf("EnterCode() retry state = %#v, want Authenticated", st)
	}
	if len(fx.codes.requested) != 1 {
		t.Fatalf("RequestCode called %d times, want 1", len(fx.codes.requested))
	}
}

func TestDispatchByIntent(t *testing.T) {
	t.Run("login signs in and remembers the email", func(t *testing.T) {
		fx := newFixture(t, 0)
		form := fx.form(IntentLogin)
		form.RememberMe = true
		fx.toCodeEntry(t, form)

		st, _ := fx.flow.EnterCode(context.Background(), "123456")

		if a, ok := st.(Authenticated); !ok || a.Intent != IntentLogin {
			t.Fatalf("state = %#v, want Authenticated login", st)
		}
		if len(fx.identity.signIns) != 1 || len(fx.identity.creates) != 0 {
			t.Fatalf("signIns = %v creates = %v", fx.identity.signIns, fx.identity.creates)
		}
		if fx.prefs.saved == nil || *fx.prefs.saved != (Remembered{RememberLogin: true, Email: "user@example.com"}) {
			t.Fatalf("saved prefs = %+v", fx.prefs.saved)
		}
	})

	t.Run("login without remember me clears the saved email", func(t *testing.T) {
		fx := newFixture(t, 0)
		fx.toCodeEntry(t, fx.form(IntentLogin))

		_, _ = fx.flow.EnterCode(context.Background(), "123456")

		if fx.prefs.saved == nil || *fx.prefs.saved != (Remembered{}) {
			t.Fatalf("saved prefs = %+v, want zero", fx.prefs.saved)
		}
	})

	t.Run("register creates the account", func(t *testing.T) {
		fx := newFixture(t, 0)
		fx.toCodeEntry(t, fx.form(IntentRegister))

		st, _ := fx.flow.EnterCode(context.Background(), "123456")

		if a, ok := st.(Authenticated); !ok || a.Intent != IntentRegister {
			t.Fatalf("state = %#v, want Authenticated register", st)
		}
		if len(fx.identity.creates) != 1 || len(fx.identity.signIns) != 0 {
			t.Fatalf("signIns = %v creates = %v", fx.identity.signIns, fx.identity.creates)
		}
		if fx.prefs.saved == nil || !fx.prefs.saved.RememberLogin {
			t.Fatalf("saved prefs = %+v, want remember login", fx.prefs.saved)
		}
	})

	t.Run("forgot password prompts without account calls", func(t *testing.T) {
		fx := newFixture(t, 0)
		fx.toCodeEntry(t, fx.form(IntentForgotPassword))

		st, _ := fx.flow.EnterCode(context.Background(), "123456")

		if _, ok := st.(PasswordResetPrompt); !ok {
			t.Fatalf("state = %#v, want PasswordResetPrompt", st)
		}
		if len(fx.identity.creates)+len(fx.identity.signIns) != 0 {
			t.Fatal("no identity call expected")
		}
	})

	t.Run("provider failure returns to idle", func(t *testing.T) {
		fx := newFixture(t, 0)
		fx.identity.err = goerror.NewBusiness("Account already exists", goerror.CodeConflict)
		fx.toCodeEntry(t, fx.form(IntentRegister))

		st, _ := fx.flow.EnterCode(context.Background(), "123456")

		if idle, ok := st.(Idle); !ok || idle.Error != "Account already exists" {
			t.Fatalf("state = %#v, want Idle with provider message", st)
		}
	})

	t.Run("provider panic is contained", func(t *testing.T) {
		fx := newFixture(t, 0)
		fx.identity.panics = true
		fx.toCodeEntry(t, fx.form(IntentLogin))

		st, _ := fx.flow.EnterCode(context.Background(), "123456")

		if idle, ok := st.(Idle); !ok || idle.Error != MessageUnexpected {
			t.Fatalf("state = %#v, want Idle with %q", st, MessageUnexpected)
		}
	})
}

func TestResetPassword(t *testing.T) {
	// Arrange
	fx := newFixture(t, 0)
	fx.toCodeEntry(t, fx.form(IntentForgotPassword))
	if _, err := fx.flow.EnterCode(context.Background(), "123456"); err != nil {
		t.Fatalf("EnterCode() error = %v", err)
	}
	before := fx.flow.Captcha()

	// Act + Assert
	st, _ := fx.flow.ResetPassword(context.Background(), "12345", "12345")
	if p, ok := st.(PasswordResetPrompt); !ok || p.Error != MessagePasswordTooShort {
		t.Fatalf("short password state = %#v", st)
	}

	st, _ = fx.flow.ResetPassword(context.Background(), "newpass1", "newpass2")
	if p, ok := st.(PasswordResetPrompt); !ok || p.Error != MessagePasswordMismatch {
		t.Fatalf("mismatch state = %#v", st)
	}

	fx.codes.resetErr = errors.New("boom")
	st, _ = fx.flow.ResetPassword(context.Background(), "newpass1", "newpass1")
	if p, ok := st.(PasswordResetPrompt); !ok || p.Error != MessageResetFailed {
		t.Fatalf("failure state = %#v", st)
	}

	fx.codes.resetErr = nil
	st, _ = fx.flow.ResetPassword(context.Background(), "newpass1", "newpass1")
	idle, ok := st.(Idle)
	if !ok || idle.Intent != IntentLogin || idle.Notice != NoticePasswordUpdated {
		t.Fatalf("success state = %#v", st)
	}
	if fx.flow.Captcha() == before {
		t.Fatal("captcha not regenerated after reset")
	}
	if len(fx.codes.resets) != 2 || fx.codes.resets[1] != "user@example.com:newpass1" {
		t.Fatalf("resets = %v", fx.codes.resets)
	}
}

func TestBackDiscardsAttempt(t *testing.T) {
	fx := newFixture(t, 0)
	fx.toCodeEntry(t, fx.form(IntentRegister))

	st, err := fx.flow.Back()
	if err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if idle, ok := st.(Idle); !ok || idle.Intent != IntentRegister {
		t.Fatalf("Back() state = %#v", st)
	}

	if _, err := fx.flow.EnterCode(context.Background(), "123456"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("EnterCode() after Back error = %v, want ErrInvalidTransition", err)
	}
	if _, err := fx.flow.Back(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Back() from Idle error = %v, want ErrInvalidTransition", err)
	}
}

func TestResend(t *testing.T) {
	fx := newFixture(t, 0)
	fx.toCodeEntry(t, fx.form(IntentLogin))

	st, err := fx.flow.Resend(context.Background())

	if err != nil {
		t.Fatalf("Resend() error = %v", err)
	}
	if e, ok := st.(AwaitingCodeEntry); !ok || e.Notice != NoticeCodeResent {
		t.Fatalf("Resend() state = %#v", st)
	}
	if len(fx.codes.requested) != 2 {
		t.Fatalf("RequestCode called %d times, want 2", len(fx.codes.requested))
	}
}

func TestNewPrefillsRememberedEmail(t *testing.T) {
	v, _ := validator.NewV10Validator()
	prefs := &memoryPrefs{initial: Remembered{RememberLogin: true, Email: "saved@example.com"}}

	f, err := New(context.Background(), Dependency{
		Codes: &fakeCodes{}, Identity: &fakeIdentity{}, Preferences: prefs,
		Captcha: NewRandomCaptcha(), Validator: v,
	})

	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if idle, ok := f.State().(Idle); !ok || idle.Email != "saved@example.com" {
		t.Fatalf("State() = %#v", f.State())
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	v, _ := validator.NewV10Validator()

	if _, err := New(context.Background(), Dependency{Validator: v}); err == nil {
		t.Fatal("New() error = nil, want validation error")
	}
}
