// Package uid generates identifiers for requests, events and rows.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
