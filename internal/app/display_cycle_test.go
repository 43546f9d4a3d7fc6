package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/mocks"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

const orwellText = "It was a bright cold day in April, and the clocks were striking thirteen, " +
	"and at 9:41 Winston Smith, his chin nuzzled into his breast in an effort to escape the vile wind, " +
	"slipped quickly through the glass doors of Victory Mansions."

func testQuotes() []domain.Quote {
	return []domain.Quote{
		{Time: "09:41", Text: orwellText, TimeString: "9:41", Title: "1984", Author: "George Orwell"},
		{Time: "12:00", Text: "It was high noon.", TimeString: "noon", Title: "Noon", Author: "Anon"},
		{Time: "12:00", Text: "A later noon.", TimeString: "noon", Title: "Duplicate", Author: "Anon"},
	}
}

var testMessages = config.MessagesConfig{
	Loading:            "Loading...",
	DatasetError:       "Unable to load quotes.",
	NoQuote:            "No quote for this minute.",
	TimeUnavailable:    "Time unavailable",
	WeatherUnavailable: "Weather unavailable",
}

type cycleFixture struct {
	cycle    *DisplayCycle
	clock    *fakeClock
	loader   *mocks.MockDatasetLoader
	network  *mocks.MockNetworkTimeSource
	weather  *mocks.MockWeatherProvider
	surfaces []*recordingSurface
}

type fixtureOption func(*DisplayCycleConfig)

func withPolicy(p TimePolicy) fixtureOption {
	return func(c *DisplayCycleConfig) { c.Policy = p }
}

func withFade(d time.Duration) fixtureOption {
	return func(c *DisplayCycleConfig) { c.Settings.FadeOutDuration = d }
}

func withLogger(l *slog.Logger) fixtureOption {
	return func(c *DisplayCycleConfig) { c.Logger = l }
}

func withoutWeather() fixtureOption {
	return func(c *DisplayCycleConfig) { c.Weather = nil }
}

func newCycleFixture(t *testing.T, now time.Time, surfaces []*recordingSurface, opts ...fixtureOption) *cycleFixture {
	t.Helper()

	f := &cycleFixture{
		clock:    newFakeClock(now),
		loader:   mocks.NewMockDatasetLoader(t),
		network:  mocks.NewMockNetworkTimeSource(t),
		weather:  mocks.NewMockWeatherProvider(t),
		surfaces: surfaces,
	}

	ss := make([]ports.Surface, len(surfaces))
	for i, s := range surfaces {
		ss[i] = s
	}

	cfg := DisplayCycleConfig{
		Loader: f.loader,
		Resolver: NewTimeResolver(TimeResolverConfig{
			Clock:    f.clock,
			Network:  f.network,
			Location: time.UTC,
			Logger:   discardLogger(),
		}),
		Clock:           f.clock,
		Surfaces:        ss,
		Weather:         f.weather,
		WeatherInterval: 10 * time.Minute,
		Location:        time.UTC,
		Settings: config.ClockConfig{
			RefreshInterval: time.Minute,
			DateLayout:      "2006-01-02 15:04",
			CharBudget:      60,
			MaxLines:        3,
		},
		Messages: testMessages,
		FontSize: config.FontSizeConfig{
			Large:           "2.6rem",
			Medium:          "2.1rem",
			Small:           "1.7rem",
			MediumMinLength: 100,
			SmallMinLength:  200,
		},
		Logger: discardLogger(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	f.cycle = NewDisplayCycle(cfg)

	return f
}

func (f *cycleFixture) expectDataset() {
	f.loader.On("Load", mock.Anything).Return(testQuotes(), nil).Once()
}

func (f *cycleFixture) expectWeather(w domain.Weather, err error) {
	f.weather.On("Current", mock.Anything).Return(w, err)
}

func drain(s *recordingSurface) {
	for {
		select {
		case <-s.renders:
		default:
			return
		}
	}
}

func nextRender(t *testing.T, s *recordingSurface) ports.Frame {
	t.Helper()

	select {
	case f := <-s.renders:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("surface %s was not rendered", s.name)
		return ports.Frame{}
	}
}

func TestNewDisplayCycle_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewDisplayCycle(DisplayCycleConfig{})
	})
}

func TestDisplayCycle_Start(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 30), []*recordingSurface{web})
	f.expectDataset()
	f.expectWeather(domain.Weather{Temperature: 21.6, Code: 0}, nil)

	require.NoError(t, f.cycle.Start(context.Background()))

	assert.Equal(t, StateRunning, f.cycle.State())

	frames := web.frames
	require.Len(t, frames, 2, "loading frame then first quote")
	assert.Equal(t, "Loading...", frames[0].Quote.Text)

	frame := web.lastFrame()
	assert.True(t, frame.Quote.Matched)
	assert.Equal(t, "09:41", frame.Quote.Time)
	assert.Equal(t, "1984", frame.Quote.Title)
	assert.Equal(t, "George Orwell", frame.Quote.Author)
	assert.Equal(t, "2024-03-14 09:41", frame.DateTime)
	assert.Equal(t, "22°C, Clear sky", frame.Weather)
	assert.Equal(t, "1.7rem", frame.Quote.FontSize, "long quote uses the small size")

	want := textfit.FitBudget(orwellText, "9:41", 60)
	assert.Equal(t, want.DisplayText, frame.Quote.Text)
	assert.True(t, frame.Quote.Truncated)
	assert.Contains(t, frame.Quote.Spans, textfit.Span{Text: "9:41", Emphasis: true})
}

func TestDisplayCycle_StartTwice(t *testing.T) {
	f := newCycleFixture(t, at(9, 41, 0), nil, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))
	assert.ErrorIs(t, f.cycle.Start(context.Background()), ErrAlreadyStarted)
}

func TestDisplayCycle_DatasetFailureHaltsDisplay(t *testing.T) {
	web := newRecordingSurface("web")
	tty := newRecordingSurface("terminal")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web, tty})

	notFound := domain.NewDatasetLoadError("https://example.com/quotes.json",
		domain.NewUnavailableError("dataset", "HTTP 404"))
	f.loader.On("Load", mock.Anything).Return(nil, notFound).Once()
	f.weather.On("Current", mock.Anything).Return(domain.Weather{}, nil).Maybe()

	err := f.cycle.Start(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsDatasetLoad(err))
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, StateFailed, f.cycle.State())

	for _, s := range []*recordingSurface{web, tty} {
		assert.Equal(t, []string{"Unable to load quotes."}, s.errorMessages())
		assert.Equal(t, 1, s.renderCount(), "only the loading frame was rendered")
	}

	assert.ErrorIs(t, f.cycle.Run(context.Background()), ErrNotStarted)
	assert.ErrorIs(t, f.cycle.Refresh(context.Background()), ErrNotStarted)
	assert.Empty(t, f.clock.afters, "no refresh was scheduled")

	snap := f.cycle.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "Unable to load quotes.", snap.Error)
	assert.Zero(t, snap.Quotes)
}

func TestDisplayCycle_NoQuote(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 42, 0), []*recordingSurface{web}, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))

	q := web.lastFrame().Quote
	assert.False(t, q.Matched)
	assert.Equal(t, "09:42", q.Time)
	assert.Equal(t, "No quote for this minute.", q.Text)
	assert.Empty(t, q.Title)
	assert.Equal(t, "2.6rem", q.FontSize)
}

func TestDisplayCycle_DuplicateKeyFirstWins(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(12, 0, 0), []*recordingSurface{web}, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))

	q := web.lastFrame().Quote
	assert.Equal(t, "It was high noon.", q.Text)
	assert.Equal(t, []textfit.Span{{Text: "It was high "}, {Text: "noon", Emphasis: true}, {Text: "."}}, q.Spans)
	assert.False(t, q.Truncated)
}

func TestDisplayCycle_MissingTimeStringLoggedWithCycleID(t *testing.T) {
	var logs bytes.Buffer

	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web}, withoutWeather(), withLogger(
		slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	))
	f.loader.On("Load", mock.Anything).Return([]domain.Quote{
		{Time: "09:41", Text: "The train left at nineteen minutes to ten.", TimeString: "9:41"},
	}, nil).Once()

	require.NoError(t, f.cycle.Start(context.Background()))

	var line map[string]any

	for raw := range strings.SplitSeq(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &entry))

		if entry["msg"] == "time string not found in quote" {
			line = entry
		}
	}

	require.NotNil(t, line, "logs: %s", logs.String())
	assert.Equal(t, "09:41", line["time"])
	assert.NotEmpty(t, line["cycle_id"])

	q := web.lastFrame().Quote
	assert.Equal(t, []textfit.Span{{Text: "The train left at nineteen minutes to ten."}}, q.Spans)
}

func TestDisplayCycle_TimeUnavailableKeepsQuote(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web},
		withoutWeather(),
		withPolicy(TimePolicy{UseNetwork: true, MaxDiscrepancySeconds: 30, Source: "https://time.example.com"}),
	)
	f.expectDataset()
	f.network.On("Now", mock.Anything).Return(at(9, 41, 5), nil).Once()
	f.network.On("Now", mock.Anything).Return(time.Time{}, errors.New("connection refused")).Once()

	require.NoError(t, f.cycle.Start(context.Background()))

	before := web.lastFrame()
	require.True(t, before.Quote.Matched)

	f.clock.Set(at(9, 42, 0))
	require.NoError(t, f.cycle.Refresh(context.Background()))

	after := web.lastFrame()
	assert.Equal(t, "Time unavailable", after.DateTime)
	assert.Equal(t, before.Quote, after.Quote, "quote area keeps its previous content")
	assert.NotContains(t, web.callLog(), "hide", "no fade when the quote does not change")

	snap := f.cycle.Snapshot()
	assert.Equal(t, "fail", snap.TimeResult)
	assert.Empty(t, snap.TimeSource)
}

func TestDisplayCycle_WeatherFailure(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web})
	f.expectDataset()
	f.expectWeather(domain.Weather{}, domain.NewWeatherFetchError("open-meteo", errors.New("HTTP 500")))

	require.NoError(t, f.cycle.Start(context.Background()))

	assert.Equal(t, StateRunning, f.cycle.State())
	assert.Equal(t, "Weather unavailable", web.lastFrame().Weather)
	assert.True(t, web.lastFrame().Quote.Matched)
}

func TestDisplayCycle_RefreshWeather(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web})
	f.expectDataset()
	f.weather.On("Current", mock.Anything).Return(domain.Weather{Temperature: 10, Code: 3}, nil).Once()
	f.weather.On("Current", mock.Anything).Return(domain.Weather{Temperature: -4.4, Code: 71}, nil).Once()

	require.NoError(t, f.cycle.Start(context.Background()))
	assert.Equal(t, "10°C, Overcast", web.lastFrame().Weather)

	quote := web.lastFrame().Quote

	require.NoError(t, f.cycle.RefreshWeather(context.Background()))

	assert.Equal(t, "-4°C, Slight snow fall", web.lastFrame().Weather)
	assert.Equal(t, quote, web.lastFrame().Quote)
	assert.NotContains(t, web.callLog(), "hide")
}

func TestDisplayCycle_RefreshOrder(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{web}, withoutWeather(), withFade(time.Second))
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))

	f.clock.Set(at(12, 0, 0))

	done := make(chan error, 1)
	go func() { done <- f.cycle.Refresh(context.Background()) }()

	select {
	case d := <-f.clock.afters:
		assert.Equal(t, time.Second, d, "pause for the fade duration")
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not pause for the fade")
	}

	assert.Equal(t, []string{"render", "render", "hide"}, web.callLog(), "hidden before the pause, not yet rendered")

	f.clock.fire <- at(12, 0, 1)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"render", "render", "hide", "render", "show"}, web.callLog())
	assert.Equal(t, "It was high noon.", web.lastFrame().Quote.Text)
}

func TestDisplayCycle_MeasuredSurfaceUsesGeometry(t *testing.T) {
	plain := newRecordingSurface("web")
	term := newRecordingSurface("terminal")
	term.measurer = textfit.NewCellMeasurer(30, lipgloss.NewStyle().Bold(true))

	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{plain, term}, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))

	assert.Equal(t, textfit.FitBudget(orwellText, "9:41", 60).DisplayText, plain.lastFrame().Quote.Text)
	assert.Equal(t, textfit.FitGeometry(orwellText, "9:41", term.measurer, 3).DisplayText, term.lastFrame().Quote.Text)
	assert.LessOrEqual(t, term.measurer.Height(term.lastFrame().Quote.Spans), 3)

	assert.Equal(t, plain.lastFrame().Quote, f.cycle.Snapshot().Frame.Quote, "snapshot holds the budget fit")
}

func TestDisplayCycle_SurfaceFailureIsolated(t *testing.T) {
	broken := newRecordingSurface("quote0")
	broken.err = errors.New("HTTP 429")
	web := newRecordingSurface("web")

	f := newCycleFixture(t, at(9, 41, 0), []*recordingSurface{broken, web}, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()), "surface errors never abort startup")

	f.clock.Set(at(12, 0, 0))
	err := f.cycle.Refresh(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering quote0")
	assert.Equal(t, "It was high noon.", web.lastFrame().Quote.Text)
}

func TestDisplayCycle_Run(t *testing.T) {
	web := newRecordingSurface("web")
	f := newCycleFixture(t, at(9, 41, 41), []*recordingSurface{web}, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))
	drain(web)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- f.cycle.Run(ctx) }()

	select {
	case d := <-f.clock.afters:
		assert.Equal(t, 19*time.Second, d, "first refresh waits for the minute boundary")
	case <-time.After(2 * time.Second):
		t.Fatal("run did not schedule the first refresh")
	}

	f.clock.Set(at(9, 42, 0))
	f.clock.fire <- at(9, 42, 0)
	assert.Equal(t, "09:42", nextRender(t, web).Quote.Time)

	f.clock.Set(at(12, 0, 0))
	f.clock.ticks <- at(12, 0, 0)
	assert.Equal(t, "It was high noon.", nextRender(t, web).Quote.Text)

	cancel()
	require.NoError(t, <-done)
}

func TestDisplayCycle_RunStopsBeforeFirstRefresh(t *testing.T) {
	f := newCycleFixture(t, at(9, 41, 0), nil, withoutWeather())
	f.expectDataset()

	require.NoError(t, f.cycle.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- f.cycle.Run(ctx) }()

	<-f.clock.afters
	cancel()

	assert.NoError(t, <-done)
}

func TestDisplayCycle_LookupAndCompose(t *testing.T) {
	f := newCycleFixture(t, at(9, 41, 0), nil, withoutWeather())

	_, ok := f.cycle.Lookup("09:41")
	assert.False(t, ok, "nothing before the dataset loads")

	f.expectDataset()
	require.NoError(t, f.cycle.Start(context.Background()))

	q, ok := f.cycle.Lookup("12:00")
	require.True(t, ok)
	assert.Equal(t, "Noon", q.Title)

	view, ok := f.cycle.Compose("09:41", nil)
	require.True(t, ok)
	assert.True(t, view.Truncated)
	assert.True(t, strings.Contains(view.Text, "9:41"))

	view, ok = f.cycle.Compose("03:00", nil)
	assert.False(t, ok)
	assert.Equal(t, "No quote for this minute.", view.Text)
}

func TestDisplayCycle_Snapshot(t *testing.T) {
	f := newCycleFixture(t, at(9, 41, 0), nil, withoutWeather())
	f.expectDataset()

	assert.Equal(t, StateIdle, f.cycle.Snapshot().State)

	require.NoError(t, f.cycle.Start(context.Background()))

	snap := f.cycle.Snapshot()
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, 3, snap.Quotes)
	assert.Equal(t, "ok", snap.TimeResult)
	assert.Equal(t, "local", snap.TimeSource)
	assert.Equal(t, at(9, 41, 0), snap.LastRefresh)

	body, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"state":"running"`)
}

func TestCycleState_String(t *testing.T) {
	tests := map[CycleState]string{
		StateIdle:      "idle",
		StateLoading:   "loading",
		StateRunning:   "running",
		StateFailed:    "failed",
		CycleState(42): "unknown",
	}

	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}
