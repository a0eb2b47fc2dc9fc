package config

import (
	"io"
	"time"
)

// TimeConfig defines helpers for retrieving time-based configuration values.
type TimeConfig interface {
	// GetMillisecond returns the integer value for key as milliseconds.
	GetMillisecond(key string) time.Duration
	// GetSecond returns the integer value for key as seconds.
	GetSecond(key string) time.Duration
	// GetMinute returns the integer value for key as minutes.
	GetMinute(key string) time.Duration
}

// Config defines a set of methods for retrieving configuration values of various types.
//
// Missing keys yield the zero value of the requested type; callers apply
// their own defaults.
type Config interface {
	io.Closer
	TimeConfig

	GetBool(key string) bool
	GetInt(key string) int
	GetFloat64(key string) float64
	GetString(key string) string

	// GetArray retrieves a comma separated value as a slice of trimmed,
	// non-empty strings.
	GetArray(key string) []string

	// GetMap retrieves a value stored as <key1>:<value1>,<key2>:<value2>.
	GetMap(key string) map[string]string

	// IsSet reports whether key has a value in the file or environment.
	IsSet(key string) bool
}
