// Package otp generates short numeric one-time codes sent by email.
//
// Codes are drawn from crypto/rand. Storage, expiry and single-use semantics
// live in package otpstore.
package otp
