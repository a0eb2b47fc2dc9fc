package clock

import "time"

// Clocker reports the current time.
type Clocker interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func New() System { return System{} }

func (System) Now() time.Time { return time.Now() }

// Func turns a closure into a Clocker.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
