// Package app contains the display cycle and the time resolution policy that
// drive every rendering surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
	"github.com/jsamuelsen/authorclock/internal/platform/telemetry"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

var (
	// ErrAlreadyStarted is returned by Start on a cycle that has left the idle state.
	ErrAlreadyStarted = errors.New("display cycle already started")

	// ErrNotStarted is returned by Run before a successful Start.
	ErrNotStarted = errors.New("display cycle not started")
)

// CycleState is the lifecycle state of a DisplayCycle.
type CycleState int

const (
	// StateIdle is a constructed cycle that has not started.
	StateIdle CycleState = iota

	// StateLoading is shown while the dataset and the first weather reading load.
	StateLoading

	// StateRunning is a cycle that has shown its first quote.
	StateRunning

	// StateFailed is terminal: the dataset could not be loaded and no refresh runs.
	StateFailed
)

// String returns a human-readable name for the state.
func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s CycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Refresh outcomes reported to metrics.
const (
	outcomeQuote           = "quote"
	outcomeNoQuote         = "no_quote"
	outcomeTimeUnavailable = "time_unavailable"
)

// DisplayCycleConfig contains the cycle's dependencies and settings.
type DisplayCycleConfig struct {
	Loader   ports.DatasetLoader
	Resolver *TimeResolver
	Clock    ports.Clock
	Surfaces []ports.Surface

	// Weather is nil when weather is disabled.
	Weather         ports.WeatherProvider
	WeatherInterval time.Duration

	Policy   TimePolicy
	Location *time.Location
	Settings config.ClockConfig
	Messages config.MessagesConfig
	FontSize config.FontSizeConfig

	Metrics *telemetry.ClockMetrics
	Logger  *slog.Logger
}

// DisplayState is a point-in-time view of the cycle for the API.
type DisplayState struct {
	State       CycleState  `json:"state"`
	Frame       ports.Frame `json:"frame"`
	Error       string      `json:"error,omitempty"`
	Quotes      int         `json:"quotes"`
	TimeSource  string      `json:"time_source,omitempty"`
	TimeResult  string      `json:"time_result,omitempty"`
	LastRefresh time.Time   `json:"last_refresh,omitzero"`
}

// DisplayCycle loads the dataset once, then refreshes every surface on each
// minute boundary and updates the weather on its own period.
//
// Refresh and weather jobs hold renderMu for their render stage, so surfaces
// see one writer at a time. mu guards the state read by the API.
type DisplayCycle struct {
	loader          ports.DatasetLoader
	resolver        *TimeResolver
	clock           ports.Clock
	surfaces        []ports.Surface
	weather         ports.WeatherProvider
	weatherInterval time.Duration
	policy          TimePolicy
	loc             *time.Location
	settings        config.ClockConfig
	messages        config.MessagesConfig
	fontSize        config.FontSizeConfig
	metrics         *telemetry.ClockMetrics
	logger          *slog.Logger

	renderMu sync.Mutex

	mu          sync.RWMutex
	state       CycleState
	index       *domain.QuoteIndex
	frame       ports.Frame
	views       map[string]ports.QuoteView
	resolved    domain.Result[domain.ResolvedTime]
	lastRefresh time.Time
	failure     string
}

// NewDisplayCycle creates an idle cycle. It panics without a loader, resolver or clock.
func NewDisplayCycle(cfg DisplayCycleConfig) *DisplayCycle {
	if cfg.Loader == nil || cfg.Resolver == nil || cfg.Clock == nil {
		panic("app: DisplayCycle requires a loader, a resolver and a clock")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &DisplayCycle{
		loader:          cfg.Loader,
		resolver:        cfg.Resolver,
		clock:           cfg.Clock,
		surfaces:        cfg.Surfaces,
		weather:         cfg.Weather,
		weatherInterval: cfg.WeatherInterval,
		policy:          cfg.Policy,
		loc:             loc,
		settings:        cfg.Settings,
		messages:        cfg.Messages,
		fontSize:        cfg.FontSize,
		metrics:         cfg.Metrics,
		logger:          logger.With(slog.String("component", "app.DisplayCycle")),
		views:           make(map[string]ports.QuoteView),
	}
}

// Start loads the dataset and the first weather reading concurrently, shows
// the first quote and moves the cycle to StateRunning.
//
// A dataset failure shows messages.dataset_error on every surface, leaves the
// cycle in StateFailed and is returned. There is no retry.
func (d *DisplayCycle) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}

	d.state = StateLoading
	d.frame = ports.Frame{Quote: d.placeholder("", d.messages.Loading)}
	d.mu.Unlock()

	ctx = d.withCycle(ctx)

	if err := d.publish(ctx, false); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "showing loading state", slog.Any("error", err))
	}

	index, weather, err := Parallel2(ctx, d.loadIndex, d.fetchWeather)
	if err != nil {
		d.fail(ctx, err)

		return fmt.Errorf("starting display cycle: %w", err)
	}

	d.metrics.DatasetLoaded(index.Len())

	d.mu.Lock()
	d.index = index
	d.frame.Weather = weather
	d.mu.Unlock()

	if err := d.refresh(ctx, false); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "first refresh incomplete", slog.Any("error", err))
	}

	d.mu.Lock()
	d.state = StateRunning
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "display cycle started",
		slog.Int("quotes", index.Len()),
		slog.Int("minutes_covered", len(index.Times())),
		slog.Int("surfaces", len(d.surfaces)),
	)

	return nil
}

// Run drives the periodic refresh until ctx is canceled. The first refresh
// waits for the next minute boundary; later ones follow every
// refresh_interval. Weather updates run on their own schedule.
func (d *DisplayCycle) Run(ctx context.Context) error {
	if d.State() != StateRunning {
		return ErrNotStarted
	}

	if d.weather != nil && d.weatherInterval > 0 {
		stop := d.scheduleWeather(ctx)
		defer stop()
	}

	delay := d.untilNextMinute()

	d.logger.InfoContext(ctx, "waiting for minute boundary", slog.Duration("delay", delay))

	select {
	case <-ctx.Done():
		return nil
	case <-d.clock.After(delay):
	}

	d.tick(ctx)

	ticker := d.clock.NewTicker(d.settings.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "display cycle stopped")
			return nil
		case <-ticker.C():
			d.tick(ctx)
		}
	}
}

// Refresh runs one resolve, lookup, fit, fade and render pass.
func (d *DisplayCycle) Refresh(ctx context.Context) error {
	if d.State() != StateRunning {
		return ErrNotStarted
	}

	return d.refresh(d.withCycle(ctx), true)
}

// RefreshWeather fetches the weather and re-renders every surface with it.
// A failed fetch shows messages.weather_unavailable until the next period.
func (d *DisplayCycle) RefreshWeather(ctx context.Context) error {
	ctx = d.withCycle(ctx)

	weather, _ := d.fetchWeather(ctx)

	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	d.mu.Lock()
	d.frame.Weather = weather
	running := d.state == StateRunning
	d.mu.Unlock()

	if !running {
		return nil
	}

	return d.publish(ctx, false)
}

// State returns the lifecycle state.
func (d *DisplayCycle) State() CycleState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.state
}

// Snapshot returns the current display state.
func (d *DisplayCycle) Snapshot() DisplayState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := DisplayState{
		State:       d.state,
		Frame:       d.frame,
		Error:       d.failure,
		Quotes:      d.index.Len(),
		LastRefresh: d.lastRefresh,
	}

	if !d.lastRefresh.IsZero() {
		s.TimeResult = d.resolved.Kind.String()
		if !d.resolved.Failed() {
			s.TimeSource = d.resolved.Value.Source.String()
		}
	}

	return s
}

// Lookup returns the quote for an "HH:MM" key. It is false before the dataset
// has loaded and for minutes with no quote.
func (d *DisplayCycle) Lookup(key string) (domain.Quote, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.index.FindExact(key)
}

// Compose looks up key and fits the quote for a surface measured by m.
// A nil m uses the character budget. The boolean reports whether a quote matched.
func (d *DisplayCycle) Compose(key string, m textfit.Measurer) (ports.QuoteView, bool) {
	q, ok := d.Lookup(key)

	return d.compose(key, q, ok, m), ok
}

func (d *DisplayCycle) refresh(ctx context.Context, fade bool) error {
	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	res := d.resolver.Resolve(ctx, d.policy)
	now := d.clock.Now().In(d.loc)

	d.mu.Lock()
	d.resolved = res
	d.lastRefresh = now

	outcome := outcomeTimeUnavailable

	if res.Failed() {
		// The quote area keeps its previous content.
		d.frame.DateTime = d.messages.TimeUnavailable
		fade = false
	} else {
		rt := res.Value
		key := rt.Key()
		q, ok := d.index.FindExact(key)

		outcome = outcomeNoQuote
		if ok {
			outcome = outcomeQuote

			if !textfit.Contains(q.Text, q.TimeString) {
				logging.FromContext(ctx).DebugContext(ctx, "time string not found in quote", slog.String("time", key))
			}
		}

		d.frame.DateTime = rt.On(now).Format(d.settings.DateLayout)
		d.frame.Quote = d.compose(key, q, ok, nil)

		views := make(map[string]ports.QuoteView, len(d.surfaces))
		for _, s := range d.surfaces {
			if m := s.Measurer(); m != nil {
				views[s.Name()] = d.compose(key, q, ok, m)
			}
		}

		d.views = views
	}
	d.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "refreshing display",
		slog.String("outcome", outcome),
		slog.String("time_result", res.Kind.String()),
	)

	err := d.publish(ctx, fade)

	d.metrics.Refreshed(ctx, outcome, now)

	return err
}

// publish renders the current frame on every surface concurrently.
// Callers hold renderMu.
func (d *DisplayCycle) publish(ctx context.Context, fade bool) error {
	d.mu.RLock()
	frames := make([]ports.Frame, len(d.surfaces))

	for i, s := range d.surfaces {
		frames[i] = d.frame
		if v, ok := d.views[s.Name()]; ok {
			frames[i].Quote = v
		}
	}
	d.mu.RUnlock()

	fns := make([]func(context.Context) (struct{}, error), len(d.surfaces))
	for i, s := range d.surfaces {
		fns[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.show(logging.WithSurface(ctx, s.Name()), s, frames[i], fade)
		}
	}

	return JoinErrors(ParallelPartial(ctx, fns...))
}

// show fades a surface out, waits, renders and fades it back in.
func (d *DisplayCycle) show(ctx context.Context, s ports.Surface, frame ports.Frame, fade bool) error {
	if fade {
		if err := s.SetVisible(ctx, false); err != nil {
			return fmt.Errorf("hiding %s: %w", s.Name(), err)
		}

		if err := d.pause(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	err := s.Render(ctx, frame)
	d.metrics.Rendered(ctx, s.Name(), time.Since(start), err)

	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "render failed", slog.Any("error", err))

		return fmt.Errorf("rendering %s: %w", s.Name(), err)
	}

	if fade {
		if err := s.SetVisible(ctx, true); err != nil {
			return fmt.Errorf("showing %s: %w", s.Name(), err)
		}
	}

	return nil
}

func (d *DisplayCycle) pause(ctx context.Context) error {
	if d.settings.FadeOutDuration <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(d.settings.FadeOutDuration):
		return nil
	}
}

// fail moves the cycle to StateFailed and shows the dataset error everywhere.
func (d *DisplayCycle) fail(ctx context.Context, err error) {
	d.logger.ErrorContext(ctx, "quote dataset unavailable, display halted", slog.Any("error", err))

	d.mu.Lock()
	d.state = StateFailed
	d.failure = d.messages.DatasetError
	d.mu.Unlock()

	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	fns := make([]func(context.Context) (struct{}, error), len(d.surfaces))
	for i, s := range d.surfaces {
		fns[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.ShowError(ctx, d.messages.DatasetError)
		}
	}

	if err := JoinErrors(ParallelPartial(ctx, fns...)); err != nil {
		d.logger.ErrorContext(ctx, "showing dataset error", slog.Any("error", err))
	}
}

func (d *DisplayCycle) tick(ctx context.Context) {
	if err := d.refresh(d.withCycle(ctx), true); err != nil {
		d.logger.WarnContext(ctx, "refresh incomplete", slog.Any("error", err))
	}
}

func (d *DisplayCycle) loadIndex(ctx context.Context) (*domain.QuoteIndex, error) {
	quotes, err := d.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return domain.NewQuoteIndex(quotes), nil
}

// fetchWeather never fails: a failed fetch becomes the placeholder text.
func (d *DisplayCycle) fetchWeather(ctx context.Context) (string, error) {
	if d.weather == nil {
		return "", nil
	}

	w, err := d.weather.Current(ctx)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "weather unavailable", slog.Any("error", err))

		return d.messages.WeatherUnavailable, nil
	}

	return w.String(), nil
}

func (d *DisplayCycle) scheduleWeather(ctx context.Context) (stop func()) {
	logger := cronLogger{logger: d.logger}

	sched := cron.New(
		cron.WithLocation(d.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	sched.Schedule(cron.Every(d.weatherInterval), cron.FuncJob(func() {
		if err := d.RefreshWeather(ctx); err != nil {
			d.logger.WarnContext(ctx, "weather render incomplete", slog.Any("error", err))
		}
	}))

	sched.Start()

	return func() { <-sched.Stop().Done() }
}

func (d *DisplayCycle) untilNextMinute() time.Duration {
	d.mu.RLock()
	res, refreshed := d.resolved, !d.lastRefresh.IsZero()
	d.mu.RUnlock()

	if res.Failed() || !refreshed {
		return domain.ResolvedTimeOf(d.clock.Now().In(d.loc), domain.SourceLocal).UntilNextMinute()
	}

	return res.Value.UntilNextMinute()
}

func (d *DisplayCycle) withCycle(ctx context.Context) context.Context {
	ctx = logging.WithContext(ctx, d.logger)

	return logging.WithCycleID(ctx, uuid.NewString())
}

func (d *DisplayCycle) compose(key string, q domain.Quote, ok bool, m textfit.Measurer) ports.QuoteView {
	if !ok {
		return d.placeholder(key, d.messages.NoQuote)
	}

	fit := d.fit(q.Text, q.TimeString, m)

	return ports.QuoteView{
		Time:      key,
		Text:      fit.DisplayText,
		Spans:     fit.Spans,
		Truncated: fit.IsTruncated,
		Title:     q.Title,
		Author:    q.Author,
		FontSize:  d.fontSize.Pick(utf8.RuneCountInString(q.Text)),
		Matched:   true,
	}
}

func (d *DisplayCycle) placeholder(key, message string) ports.QuoteView {
	return ports.QuoteView{
		Time:     key,
		Text:     message,
		Spans:    textfit.Spans(message, ""),
		FontSize: d.fontSize.Pick(utf8.RuneCountInString(message)),
	}
}

// fit uses geometry when the surface can measure text and the character budget otherwise.
func (d *DisplayCycle) fit(text, token string, m textfit.Measurer) textfit.Result {
	if m != nil {
		return textfit.FitGeometry(text, token, m, d.settings.MaxLines)
	}

	return textfit.FitBudget(text, token, d.settings.CharBudget)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
