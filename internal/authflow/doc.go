// Package authflow drives the client side of an OTP backed authentication
// attempt.
//
// A Flow moves through a fixed set of states, each represented by its own
// type so that only the fields meaningful in that state exist:
//
//	Idle -> AwaitingCaptcha -> AwaitingCodeDelivery -> AwaitingCodeEntry -> Verifying
//	     -> LoginConfirm | RegisterCreate | PasswordResetPrompt
//
// The reason a code was requested (the Intent) never leaves the client; the
// server only issues and verifies codes.
package authflow
