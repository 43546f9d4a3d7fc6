package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock reports a settable time. After and ticker channels are driven by the test.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	afters chan time.Duration
	fire   chan time.Time
	ticks  chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{
		now:    now,
		afters: make(chan time.Duration, 16),
		fire:   make(chan time.Time),
		ticks:  make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.afters <- d

	return c.fire
}

func (c *fakeClock) NewTicker(time.Duration) ports.Ticker {
	return fakeTicker{c: c.ticks}
}

type fakeTicker struct {
	c chan time.Time
}

func (t fakeTicker) C() <-chan time.Time { return t.c }

func (t fakeTicker) Stop() {}

// recordingSurface records every call made by the display cycle.
type recordingSurface struct {
	name     string
	measurer textfit.Measurer
	err      error

	mu      sync.Mutex
	frames  []ports.Frame
	errors  []string
	visible []bool
	calls   []string
	renders chan ports.Frame
}

func newRecordingSurface(name string) *recordingSurface {
	return &recordingSurface{name: name, renders: make(chan ports.Frame, 64)}
}

func (s *recordingSurface) Name() string { return s.name }

func (s *recordingSurface) Measurer() textfit.Measurer { return s.measurer }

func (s *recordingSurface) Render(_ context.Context, frame ports.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.calls = append(s.calls, "render")
	s.mu.Unlock()

	s.renders <- frame

	return s.err
}

func (s *recordingSurface) ShowError(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors = append(s.errors, message)
	s.calls = append(s.calls, "error")

	return s.err
}

func (s *recordingSurface) SetVisible(_ context.Context, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = append(s.visible, visible)
	if visible {
		s.calls = append(s.calls, "show")
	} else {
		s.calls = append(s.calls, "hide")
	}

	return nil
}

func (s *recordingSurface) lastFrame() ports.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return ports.Frame{}
	}

	return s.frames[len(s.frames)-1]
}

func (s *recordingSurface) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.calls...)
}

func (s *recordingSurface) errorMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.errors...)
}

func (s *recordingSurface) renderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.frames)
}
