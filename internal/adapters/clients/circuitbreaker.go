package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/authorclock/internal/platform/config"
)

// State is the position of a Breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BreakerSnapshot is a point-in-time view of a Breaker.
type BreakerSnapshot struct {
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitzero"`
}

// Breaker skips a downstream after MaxFailures failures in a row. After
// Timeout it admits up to HalfOpenLimit probes; that many successes close it
// again and any probe failure reopens it.
//
// The display cycle polls each downstream on a fixed period, so a dead
// weather or time endpoint costs one fast placeholder per refresh instead of
// a full retry sequence.
type Breaker struct {
	cfg config.CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	inflight  int
	failedAt  time.Time
	notify    func(from, to State)
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg config.CircuitBreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to run on its own goroutine after each
// transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// Allow reports whether a call may go out. The first call after the open
// timeout moves the breaker to half-open and counts as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.failedAt) < b.cfg.Timeout {
			return false
		}

		b.set(StateHalfOpen)
	}

	if b.state == StateHalfOpen {
		if b.inflight >= b.cfg.HalfOpenLimit {
			return false
		}

		b.inflight++
	}

	return true
}

// RecordSuccess ends a call that succeeded.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.inflight--
		if b.successes++; b.successes >= b.cfg.HalfOpenLimit {
			b.set(StateClosed)
		}
	}
}

// RecordFailure ends a call that failed.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failedAt = b.now()

	switch b.state {
	case StateClosed:
		if b.failures++; b.failures >= b.cfg.MaxFailures {
			b.set(StateOpen)
		}
	case StateHalfOpen:
		b.inflight--
		b.set(StateOpen)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{State: b.state, Failures: b.failures, LastFailure: b.failedAt}
}

// set moves to next with fresh counters. b.mu is held.
func (b *Breaker) set(next State) {
	prev := b.state
	if prev == next {
		return
	}

	b.state, b.failures, b.successes, b.inflight = next, 0, 0, 0

	if fn := b.notify; fn != nil {
		go fn(prev, next)
	}
}
