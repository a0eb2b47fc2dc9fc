// Package event holds broker destinations and payloads shared by the
// publishing modules and the audit consumer.
package event

import "time"

// HeaderCorrelationID carries the request correlation ID across the broker.
const HeaderCorrelationID string = "cID"

// Message is the payload of every OTP lifecycle event. It never carries the
// code or a password.
type Message struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
