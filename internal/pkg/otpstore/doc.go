// Package otpstore keeps pending one-time codes keyed by identifier.
//
// A Store holds at most one pending code per identifier. Put overwrites any
// previous code, Consume atomically compares and deletes, and every entry
// carries a TTL so abandoned codes stop being usable.
//
// After a successful Consume the caller may record a short-lived Grant for
// the same identifier; a follow-up privileged action consumes it exactly once.
//
// Memory is suitable for single-instance deployments; Redis shares state
// across instances and relies on native key expiry.
package otpstore
