// Package sse implements the web rendering surface: frames pushed by the
// display cycle are fanned out to browsers as server-sent events.
package sse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// Event names sent on the stream.
const (
	EventFrame      = "frame"
	EventError      = "error"
	EventVisibility = "visibility"
)

const (
	// defaultBuffer is the per-subscriber queue length.
	defaultBuffer = 8

	// maxReplay is the most events queued on a new subscriber.
	maxReplay = 2
)

// Event is one server-sent event. Data is encoded as JSON.
type Event struct {
	Name string
	Data any
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// VisibilityData is the payload of a visibility event.
type VisibilityData struct {
	Visible bool `json:"visible"`
}

// BrokerConfig contains configuration for the broker.
type BrokerConfig struct {
	// Buffer is the per-subscriber queue length. Zero uses a default.
	Buffer int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Broker is the web surface. It implements ports.Surface and keeps the
// latest state so a browser that connects late starts from the current
// frame. A subscriber that falls behind loses events rather than stalling
// the display cycle.
type Broker struct {
	buffer int
	logger *slog.Logger

	mu      sync.Mutex
	subs    map[chan Event]struct{}
	frame   *Event
	failure *Event
	visible *Event
	dropped int
	closed  bool
}

// NewBroker creates a broker with no subscribers.
func NewBroker(cfg BrokerConfig) *Broker {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Broker{
		buffer: buffer,
		logger: logger.With(slog.String("component", "sse.Broker")),
		subs:   make(map[chan Event]struct{}),
	}
}

// Name implements ports.Surface.
func (b *Broker) Name() string {
	return "web"
}

// Measurer implements ports.Surface. Browsers lay text out themselves, so
// the web surface is fitted by character budget.
func (b *Broker) Measurer() textfit.Measurer {
	return nil
}

// Render implements ports.Surface.
func (b *Broker) Render(_ context.Context, frame ports.Frame) error {
	ev := Event{Name: EventFrame, Data: frame}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame = &ev
	b.failure = nil
	b.broadcast(ev)

	return nil
}

// ShowError implements ports.Surface.
func (b *Broker) ShowError(_ context.Context, message string) error {
	ev := Event{Name: EventError, Data: ErrorData{Message: message}}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failure = &ev
	b.broadcast(ev)

	return nil
}

// SetVisible implements ports.Surface.
func (b *Broker) SetVisible(_ context.Context, visible bool) error {
	ev := Event{Name: EventVisibility, Data: VisibilityData{Visible: visible}}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.visible = &ev
	b.broadcast(ev)

	return nil
}

// Subscribe registers a subscriber and queues the current state on it.
// The returned cancel func unregisters and closes the channel. It is safe
// to call more than once.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer+maxReplay)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	for _, ev := range b.replayLocked() {
		ch <- ev
	}
	b.subs[ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}

	return ch, cancel
}

// Close ends every open stream. Later subscribers get a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *Broker) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}

// replayLocked returns the events that describe the current state. An error
// banner replaces everything else. Callers hold mu.
func (b *Broker) replayLocked() []Event {
	if b.failure != nil {
		return []Event{*b.failure}
	}

	out := make([]Event, 0, maxReplay)
	if b.frame != nil {
		out = append(out, *b.frame)
	}

	if b.visible != nil {
		out = append(out, *b.visible)
	}

	return out
}

// broadcast sends ev to every subscriber without blocking. Callers hold mu.
func (b *Broker) broadcast(ev Event) {
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
			b.logger.Debug("dropped event for slow subscriber", slog.String("event", ev.Name))
		}
	}
}
