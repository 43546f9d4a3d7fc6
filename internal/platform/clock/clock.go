// Package clock provides the device clock used in production.
package clock

import (
	"time"

	"github.com/jsamuelsen/authorclock/internal/ports"
)

// System reads the process wall clock.
type System struct {
	loc *time.Location
}

// New returns a system clock reporting times in loc. A nil loc means time.Local.
func New(loc *time.Location) *System {
	if loc == nil {
		loc = time.Local
	}

	return &System{loc: loc}
}

// Now returns the current time in the clock's location.
func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// After waits for d and then sends the current time.
func (s *System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewTicker returns a ticker firing every d.
func (s *System) NewTicker(d time.Duration) ports.Ticker {
	return ticker{t: time.NewTicker(d)}
}

type ticker struct {
	t *time.Ticker
}

func (t ticker) C() <-chan time.Time { return t.t.C }

func (t ticker) Stop() { t.t.Stop() }
