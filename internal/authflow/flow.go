package authflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/otp"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
	"go.uber.org/atomic"
)

// DefaultTimeout bounds every network call made by a Flow.
const DefaultTimeout = 20 * time.Second

const minPasswordLength = 6

const (
	MessageCaptchaMismatch  = "Incorrect CAPTCHA"
	MessageInvalidEmail     = "Invalid email address"
	MessagePasswordTooShort = "Password must be at least 6 characters"
	MessagePasswordMismatch = "Passwords do not match"
	MessageSendFailed       = "Could not send OTP, check your email or network"
	MessageCodeIncomplete   = "Please enter all 6 digits"
	MessageIncorrectCode    = "Incorrect code"
	MessageSignInFailed     = "Sign in failed"
	MessageCreateFailed     = "Could not create account"
	MessageResetFailed      = "Could not update password, please try again"
	MessageTimeout          = "Request timed out, please try again"
	MessageUnexpected       = "Something went wrong, please try again"

	NoticeCodeResent      = "A new code has been sent"
	NoticePasswordUpdated = "Password updated, please sign in again"
)

var (
	// ErrBusy is returned when an operation starts while another one is in flight.
	ErrBusy = errors.New("authflow: operation in progress")
	// ErrInvalidTransition is returned when an operation does not apply to the current state.
	ErrInvalidTransition = errors.New("authflow: operation not allowed in current state")
	// ErrUnknownIntent is returned by Submit for an unrecognised Intent.
	ErrUnknownIntent = errors.New("authflow: unknown intent")

	errUnexpected = errors.New("authflow: unexpected failure")
)

// CodeService issues and verifies one-time codes.
//
// Failures that carry a message for the user are *goerror.Error values.
type CodeService interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// IdentityProvider confirms credentials and creates accounts.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) error
	CreateAccount(ctx context.Context, email, password string) error
}

// Remembered is the persisted "remember me" choice.
type Remembered struct {
	RememberLogin bool
	Email         string
}

type Preferences interface {
	Load(ctx context.Context) (Remembered, error)
	Save(ctx context.Context, r Remembered) error
}

type CaptchaSource interface {
	Generate() string
}

// Form is what the user submits from Idle.
type Form struct {
	Intent     Intent
	Email      string
	Password   string
	Confirm    string
	Captcha    string
	RememberMe bool
}

type Dependency struct {
	Codes       CodeService         `validate:"required"`
	Identity    IdentityProvider    `validate:"required"`
	Preferences Preferences         `validate:"required"`
	Captcha     CaptchaSource       `validate:"required"`
	Validator   validator.Validator `validate:"required"`
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// attempt holds what was captured at submit time for the dispatch after
// verification.
type attempt struct {
	intent   Intent
	email    string
	password string
	remember bool
}

type Flow struct {
	codes     CodeService
	identity  IdentityProvider
	prefs     Preferences
	captcha   CaptchaSource
	validator validator.Validator
	timeout   time.Duration

	busy *atomic.Bool

	mu        sync.Mutex
	state     State
	challenge string
	pending   *attempt
}

// New returns a Flow in Idle. A remembered email is prefilled.
func New(ctx context.Context, dep Dependency) (*Flow, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	timeout := dep.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	f := &Flow{
		codes:     dep.Codes,
		identity:  dep.Identity,
		prefs:     dep.Preferences,
		captcha:   dep.Captcha,
		validator: dep.Validator,
		timeout:   timeout,
		busy:      atomic.NewBool(false),
	}
	f.challenge = f.captcha.Generate()

	idle := Idle{Intent: IntentLogin}
	if r, err := f.prefs.Load(ctx); err != nil {
		slog.WarnContext(ctx, "failed to load auth preferences", "error", err)
	} else if r.RememberLogin {
		idle.Email = r.Email
	}
	f.state = idle

	return f, nil
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Captcha returns the challenge the next Submit must match.
func (f *Flow) Captcha() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challenge
}

// Busy reports whether an operation is in flight.
func (f *Flow) Busy() bool {
	return f.busy.Load()
}

func (f *Flow) begin() error {
	if !f.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (f *Flow) end() {
	f.busy.Store(false)
}

func (f *Flow) set(s State) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	return s
}

func (f *Flow) regenerateCaptcha() {
	c := f.captcha.Generate()
	f.mu.Lock()
	f.challenge = c
	f.mu.Unlock()
}

// call runs fn under the flow timeout. A panic in fn is converted to an error.
func (f *Flow) call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "auth flow call panicked", "because", rvr)
			err = errUnexpected
		}
	}()

	return fn(ctx)
}

func describe(err error, fallback string) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return MessageTimeout
	case errors.Is(err, errUnexpected):
		return MessageUnexpected
	default:
		return goerror.Message(err, fallback)
	}
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (f *Flow) checkForm(form Form) string {
	if err := f.validator.Validate(emailInput{Email: form.Email}); err != nil {
		return MessageInvalidEmail
	}
	if form.Intent == IntentForgotPassword {
		return ""
	}
	if len(form.Password) < minPasswordLength {
		return MessagePasswordTooShort
	}
	if form.Intent == IntentRegister && form.Password != form.Confirm {
		return MessagePasswordMismatch
	}
	return ""
}

// Submit checks the captcha and the form, then requests a code. User facing
// failures are reported through the returned state; the error is only set
// for misuse (ErrBusy, ErrInvalidTransition, ErrUnknownIntent).
func (f *Flow) Submit(ctx context.Context, form Form) (State, error) {
	if err := f.begin(); err != nil {
		return f.State(), err
	}
	defer f.end()

	if _, ok := f.State().(Idle); !ok {
		return f.State(), ErrInvalidTransition
	}
	if !form.Intent.valid() {
		return f.State(), ErrUnknownIntent
	}

	email := strings.TrimSpace(form.Email)
	form.Email = email

	f.set(AwaitingCaptcha{Intent: form.Intent, Email: email})
	if strings.TrimSpace(form.Captcha) != strings.TrimSpace(f.Captcha()) {
		f.regenerateCaptcha()
		return f.set(Idle{Intent: form.Intent, Email: email, Error: MessageCaptchaMismatch}), nil
	}

	if msg := f.checkForm(form); msg != "" {
		return f.set(Idle{Intent: form.Intent, Email: email, Error: msg}), nil
	}

	f.set(AwaitingCodeDelivery{Intent: form.Intent, Email: email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.codes.RequestCode(ctx, email)
	})
	if err != nil {
		return f.set(Idle{Intent: form.Intent, Email: email, Error: describe(err, MessageSendFailed)}), nil
	}

	f.mu.Lock()
	f.pending = &attempt{intent: form.Intent, email: email, password: form.Password, remember: form.RememberMe}
	f.mu.Unlock()

	return f.set(AwaitingCodeEntry{Intent: form.Intent, Email: email}), nil
}

// Resend requests a fresh code for the pending attempt. The previous code
// stops working once the new one is issued.
func (f *Flow) Resend(ctx context.Context) (State, error) {
	if err := f.begin(); err != nil {
		return f.State(), err
	}
	defer f.end()

	cur, ok := f.State().(AwaitingCodeEntry)
	if !ok {
		return f.State(), ErrInvalidTransition
	}

	f.set(AwaitingCodeDelivery{Intent: cur.Intent, Email: cur.Email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.codes.RequestCode(ctx, cur.Email)
	})
	if err != nil {
		return f.set(AwaitingCodeEntry{Intent: cur.Intent, Email: cur.Email, Error: describe(err, MessageSendFailed)}), nil
	}

	return f.set(AwaitingCodeEntry{Intent: cur.Intent, Email: cur.Email, Notice: NoticeCodeResent}), nil
}

// EnterCode verifies digits and, on success, dispatches on the intent
// captured by Submit.
func (f *Flow) EnterCode(ctx context.Context, digits string) (State, error) {
	if err := f.begin(); err != nil {
		return f.State(), err
	}
	defer f.end()

	cur, ok := f.State().(AwaitingCodeEntry)
	if !ok {
		return f.State(), ErrInvalidTransition
	}

	if !otp.IsCode(digits) {
		return f.set(AwaitingCodeEntry{Intent: cur.Intent, Email: cur.Email, Error: MessageCodeIncomplete}), nil
	}

	f.set(Verifying{Intent: cur.Intent, Email: cur.Email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.codes.VerifyCode(ctx, cur.Email, digits)
	})
	if err != nil {
		// the code is still live server side, the user may try again
		return f.set(AwaitingCodeEntry{Intent: cur.Intent, Email: cur.Email, Error: describe(err, MessageIncorrectCode)}), nil
	}

	f.mu.Lock()
	a := f.pending
	f.pending = nil
	f.mu.Unlock()

	switch a.intent {
	case IntentRegister:
		return f.createAccount(ctx, a), nil
	case IntentForgotPassword:
		return f.set(PasswordResetPrompt{Email: a.email}), nil
	default:
		return f.signIn(ctx, a), nil
	}
}

func (f *Flow) signIn(ctx context.Context, a *attempt) State {
	f.set(LoginConfirm{Email: a.email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.identity.SignIn(ctx, a.email, a.password)
	})
	if err != nil {
		return f.set(Idle{Intent: IntentLogin, Email: a.email, Error: describe(err, MessageSignInFailed)})
	}

	r := Remembered{RememberLogin: a.remember}
	if a.remember {
		r.Email = a.email
	}
	f.savePreferences(ctx, r)

	return f.set(Authenticated{Intent: IntentLogin, Email: a.email})
}

func (f *Flow) createAccount(ctx context.Context, a *attempt) State {
	f.set(RegisterCreate{Email: a.email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.identity.CreateAccount(ctx, a.email, a.password)
	})
	if err != nil {
		return f.set(Idle{Intent: IntentRegister, Email: a.email, Error: describe(err, MessageCreateFailed)})
	}

	f.savePreferences(ctx, Remembered{RememberLogin: true, Email: a.email})

	return f.set(Authenticated{Intent: IntentRegister, Email: a.email})
}

// savePreferences never fails the flow; the user is already signed in.
func (f *Flow) savePreferences(ctx context.Context, r Remembered) {
	err := f.call(ctx, func(ctx context.Context) error {
		return f.prefs.Save(ctx, r)
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to save auth preferences", "error", err)
	}
}

// ResetPassword stores a new password for the verified email and returns to
// the login form.
func (f *Flow) ResetPassword(ctx context.Context, newPassword, confirm string) (State, error) {
	if err := f.begin(); err != nil {
		return f.State(), err
	}
	defer f.end()

	cur, ok := f.State().(PasswordResetPrompt)
	if !ok {
		return f.State(), ErrInvalidTransition
	}

	if len(newPassword) < minPasswordLength {
		return f.set(PasswordResetPrompt{Email: cur.Email, Error: MessagePasswordTooShort}), nil
	}
	if newPassword != confirm {
		return f.set(PasswordResetPrompt{Email: cur.Email, Error: MessagePasswordMismatch}), nil
	}

	f.set(ResettingPassword{Email: cur.Email})
	err := f.call(ctx, func(ctx context.Context) error {
		return f.codes.ResetPassword(ctx, cur.Email, newPassword)
	})
	if err != nil {
		return f.set(PasswordResetPrompt{Email: cur.Email, Error: describe(err, MessageResetFailed)}), nil
	}

	f.regenerateCaptcha()
	return f.set(Idle{Intent: IntentLogin, Email: cur.Email, Notice: NoticePasswordUpdated}), nil
}

// Back leaves code entry or the reset prompt for the form. The server side
// code is not revoked.
func (f *Flow) Back() (State, error) {
	if err := f.begin(); err != nil {
		return f.State(), err
	}
	defer f.end()

	switch cur := f.State().(type) {
	case AwaitingCodeEntry:
		f.mu.Lock()
		f.pending = nil
		f.mu.Unlock()
		return f.set(Idle{Intent: cur.Intent, Email: cur.Email}), nil
	case PasswordResetPrompt:
		return f.set(Idle{Intent: IntentForgotPassword, Email: cur.Email}), nil
	default:
		return cur, ErrInvalidTransition
	}
}
