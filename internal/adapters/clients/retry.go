package clients

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jsamuelsen/authorclock/internal/platform/config"
)

// backoff is an exponential retry schedule with symmetric jitter.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	// rand returns a value in [0,1).
	rand func() float64
}

func newBackoff(cfg config.RetryConfig) backoff {
	return backoff{
		initial:    cfg.InitialInterval,
		max:        cfg.MaxInterval,
		multiplier: cfg.Multiplier,
		jitter:     cfg.JitterFactor,
		rand:       rand.Float64, //nolint:gosec // jitter only
	}
}

// delay returns the wait before retry n, counting from zero. The capped base
// is spread by up to jitter in either direction.
func (b backoff) delay(n int) time.Duration {
	base := min(float64(b.initial)*math.Pow(b.multiplier, float64(n)), float64(b.max))

	if b.jitter > 0 {
		base += base * b.jitter * (2*b.rand() - 1)
	}

	return time.Duration(base)
}

// after returns the wait before retry n, preferring a server Retry-After hint
// when one was given. Hints never exceed the schedule's cap.
func (b backoff) after(n int, hint time.Duration) time.Duration {
	if hint > 0 {
		return min(hint, b.max)
	}

	return b.delay(n)
}

// retryAfter reads a Retry-After value as delta seconds or an HTTP date.
func retryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}

		return time.Duration(secs) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}

	return max(at.Sub(now), 0), true
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryable reports whether a transport error is worth another attempt.
// Cancellation never is; timeouts and socket-level failures are.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
