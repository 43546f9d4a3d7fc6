package domain

import (
	"fmt"
	"time"
)

// MinutesPerDay is the number of distinct quote keys in a day.
const MinutesPerDay = 24 * 60

// TimeSource identifies where a resolved time came from.
type TimeSource int

const (
	// SourceLocal is the device clock.
	SourceLocal TimeSource = iota

	// SourceNetwork is the configured network time endpoint.
	SourceNetwork
)

// String returns a human-readable name for the source.
func (s TimeSource) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ResolvedTime is the authoritative time of day for one refresh.
type ResolvedTime struct {
	Hours   int
	Minutes int
	Seconds int
	Source  TimeSource
}

// ResolvedTimeOf extracts the time of day from t in t's location.
func ResolvedTimeOf(t time.Time, source TimeSource) ResolvedTime {
	return ResolvedTime{
		Hours:   t.Hour(),
		Minutes: t.Minute(),
		Seconds: t.Second(),
		Source:  source,
	}
}

// Key formats the time as the "HH:MM" quote lookup key.
func (r ResolvedTime) Key() string {
	return fmt.Sprintf("%02d:%02d", r.Hours, r.Minutes)
}

// MinutesOfDay returns minutes elapsed since midnight.
func (r ResolvedTime) MinutesOfDay() int {
	return r.Hours*60 + r.Minutes
}

// UntilNextMinute returns the delay until the next wall-clock minute boundary.
// A time exactly on the boundary waits a full minute.
func (r ResolvedTime) UntilNextMinute() time.Duration {
	return time.Duration(60-r.Seconds) * time.Second
}

// On places the resolved time of day on day's calendar date in day's location.
func (r ResolvedTime) On(day time.Time) time.Time {
	y, m, d := day.Date()

	return time.Date(y, m, d, r.Hours, r.Minutes, r.Seconds, 0, day.Location())
}
