package authflow

// Intent records why a code was requested.
type Intent int

const (
	IntentLogin Intent = iota
	IntentRegister
	IntentForgotPassword
)

func (i Intent) String() string {
	switch i {
	case IntentLogin:
		return "login"
	case IntentRegister:
		return "register"
	case IntentForgotPassword:
		return "forgot_password"
	default:
		return "unknown"
	}
}

func (i Intent) valid() bool {
	return i >= IntentLogin && i <= IntentForgotPassword
}

// State is one of the concrete state values below.
type State interface {
	isState()
}

// Idle is the form. Error and Notice hold the outcome of the previous attempt.
type Idle struct {
	Intent Intent
	Email  string
	Error  string
	Notice string
}

// AwaitingCaptcha is held while the submitted captcha is checked.
type AwaitingCaptcha struct {
	Intent Intent
	Email  string
}

// AwaitingCodeDelivery is held while a code is being requested.
type AwaitingCodeDelivery struct {
	Intent Intent
	Email  string
}

// AwaitingCodeEntry waits for the user to type the code sent to Email.
type AwaitingCodeEntry struct {
	Intent Intent
	Email  string
	Error  string
	Notice string
}

// Verifying is held while the entered code is checked by the server.
type Verifying struct {
	Intent Intent
	Email  string
}

// LoginConfirm is held while the identity provider confirms the sign in.
type LoginConfirm struct {
	Email string
}

// RegisterCreate is held while the identity provider creates the account.
type RegisterCreate struct {
	Email string
}

// PasswordResetPrompt collects a new password after a verified forgot
// password code.
type PasswordResetPrompt struct {
	Email string
	Error string
}

// ResettingPassword is held while the new password is being stored.
type ResettingPassword struct {
	Email string
}

// Authenticated ends a successful login or registration.
type Authenticated struct {
	Intent Intent
	Email  string
}

func (Idle) isState()                 {}
func (AwaitingCaptcha) isState()      {}
func (AwaitingCodeDelivery) isState() {}
func (AwaitingCodeEntry) isState()    {}
func (Verifying) isState()            {}
func (LoginConfirm) isState()         {}
func (RegisterCreate) isState()       {}
func (PasswordResetPrompt) isState()  {}
func (ResettingPassword) isState()    {}
func (Authenticated) isState()        {}
