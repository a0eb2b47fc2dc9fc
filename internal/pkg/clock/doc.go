// Package clock lets OTP expiry, idempotency windows and event timestamps be
// driven by a substitutable time source. Use Func in tests to pin "now".
package clock
