// Package hash provides helpers for hashing and verifying secrets.
//
// Password hashers (bcrypt, argon2id) back the self-hosted account store.
// HMACSHA256 derives opaque keys, for example Redis keys that must not expose
// the email address they belong to.
package hash
