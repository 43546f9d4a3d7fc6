package ports

import "time"

// Clock abstracts the device clock and timers so the display cycle can be
// driven deterministically in tests.
type Clock interface {
	// Now returns the current device time.
	Now() time.Time

	// After waits for d and then sends the current time on the returned channel.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a ticker that fires every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}
