package clients

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/authorclock/internal/platform/config"
)

func testBackoff(jitter float64, roll float64) backoff {
	b := newBackoff(config.RetryConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		JitterFactor:    jitter,
	})
	b.rand = func() float64 { return roll }

	return b
}

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name   string
		jitter float64
		roll   float64
		retry  int
		want   time.Duration
	}{
		{"first retry waits the initial interval", 0, 0, 0, 100 * time.Millisecond},
		{"grows by the multiplier", 0, 0, 2, 400 * time.Millisecond},
		{"capped at the max interval", 0, 0, 5, time.Second},
		{"lowest jitter roll", 0.5, 0, 1, 100 * time.Millisecond},
		{"middle jitter roll is neutral", 0.5, 0.5, 1, 200 * time.Millisecond},
		{"jitter applies after the cap", 0.25, 0.75, 9, 1125 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, testBackoff(tt.jitter, tt.roll).delay(tt.retry))
		})
	}
}

func TestBackoff_After(t *testing.T) {
	b := testBackoff(0, 0)

	assert.Equal(t, 200*time.Millisecond, b.after(1, 0), "no hint uses the schedule")
	assert.Equal(t, 30*time.Millisecond, b.after(1, 30*time.Millisecond))
	assert.Equal(t, time.Second, b.after(1, time.Hour), "hints are capped")
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 41, 0, 0, time.UTC)

	tests := []struct {
		value  string
		want   time.Duration
		wantOK bool
	}{
		{"", 0, false},
		{"7", 7 * time.Second, true},
		{" 0 ", 0, true},
		{"-3", 0, false},
		{"soon", 0, false},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second, true},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			got, ok := retryAfter(tt.value, now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Hour)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

// netErr is a net.Error with a chosen Timeout answer.
type netErr struct{ timeout bool }

func (e netErr) Error() string   { return "net error" }
func (e netErr) Timeout() bool   { return e.timeout }
func (e netErr) Temporary() bool { return false }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), false},
		{"timeout", netErr{timeout: true}, true},
		{"non-timeout net error", netErr{}, false},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}
