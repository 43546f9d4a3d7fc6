package handlers

import (
	"cmp"
	"embed"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/jsamuelsen/authorclock/internal/adapters/http/dto"
	"github.com/jsamuelsen/authorclock/internal/adapters/http/sse"
	"github.com/jsamuelsen/authorclock/internal/app"
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

// DefaultHeartbeat is how often an idle event stream sends a keep-alive.
const DefaultHeartbeat = 15 * time.Second

// EventsPath is the route of the server-sent event stream.
const EventsPath = "/api/v1/events"

// eventHeartbeat is the event name of stream keep-alives.
const eventHeartbeat = "heartbeat"

//go:embed templates/display.html
var templateFS embed.FS

// DisplaySource is the display state the handler reads.
// *app.DisplayCycle implements it.
type DisplaySource interface {
	Snapshot() app.DisplayState
	Lookup(key string) (domain.Quote, bool)
	Compose(key string, m textfit.Measurer) (ports.QuoteView, bool)
}

// EventSource streams display events. *sse.Broker implements it.
type EventSource interface {
	Subscribe() (<-chan sse.Event, func())
}

// DisplayHandlerConfig contains the handler's dependencies and settings.
type DisplayHandlerConfig struct {
	Source DisplaySource
	Events EventSource

	// Title is the page title.
	Title string

	Selectors  config.SelectorsConfig
	Fade       time.Duration
	CharBudget int
	MaxLines   int

	// Heartbeat is the keep-alive period of event streams. Zero uses DefaultHeartbeat.
	Heartbeat time.Duration

	Logger *slog.Logger
}

// DisplayHandler serves the clock page, its state and event stream, and the
// quote lookup and text fitting endpoints.
type DisplayHandler struct {
	source     DisplaySource
	events     EventSource
	page       *template.Template
	title      string
	selectors  config.SelectorsConfig
	fade       time.Duration
	charBudget int
	maxLines   int
	heartbeat  time.Duration
	logger     *slog.Logger
}

// NewDisplayHandler creates a display handler. It panics without a source or events.
func NewDisplayHandler(cfg DisplayHandlerConfig) *DisplayHandler {
	if cfg.Source == nil || cfg.Events == nil {
		panic("handlers: DisplayHandler requires a source and an event source")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	page := template.Must(template.New("display.html").
		Funcs(template.FuncMap{"spans": spansHTML}).
		ParseFS(templateFS, "templates/display.html"))

	return &DisplayHandler{
		source:     cfg.Source,
		events:     cfg.Events,
		page:       page,
		title:      cmp.Or(cfg.Title, "Author Clock"),
		selectors:  cfg.Selectors,
		fade:       cfg.Fade,
		charBudget: cmp.Or(cfg.CharBudget, textfit.DefaultBudget),
		maxLines:   cmp.Or(cfg.MaxLines, textfit.DefaultMaxLines),
		heartbeat:  cmp.Or(cfg.Heartbeat, DefaultHeartbeat),
		logger:     logger.With(slog.String("component", "handlers.DisplayHandler")),
	}
}

// pageData is the template input of the clock page.
type pageData struct {
	Title      string
	Selectors  config.SelectorsConfig
	State      app.DisplayState
	FadeMillis int64
	EventsPath string
}

// Page handles GET /. It renders the current frame so the page is complete
// before the event stream connects.
func (h *DisplayHandler) Page(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	c.Render(http.StatusOK, render.HTML{
		Template: h.page,
		Name:     "display.html",
		Data: pageData{
			Title:      h.title,
			Selectors:  h.selectors,
			State:      h.source.Snapshot(),
			FadeMillis: h.fade.Milliseconds(),
			EventsPath: EventsPath,
		},
	})
}

// Display handles GET /api/v1/display.
func (h *DisplayHandler) Display(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Snapshot())
}

// Events handles GET /api/v1/events. The stream opens with the current state
// and then carries every frame, error and visibility change until the client
// disconnects.
func (h *DisplayHandler) Events(c *gin.Context) {
	events, cancel := h.events.Subscribe()
	defer cancel()

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}

			c.SSEvent(ev.Name, ev.Data)

		case now := <-heartbeat.C:
			c.SSEvent(eventHeartbeat, now.UTC().Format(time.RFC3339))
		}

		c.Writer.Flush()
	}
}

// Quote handles GET /api/v1/quotes/:time.
func (h *DisplayHandler) Quote(c *gin.Context) {
	var params dto.QuoteParams
	if err := dto.BindURIAndValidate(c, &params); err != nil {
		dto.WriteBindError(c, err)
		return
	}

	switch snap := h.source.Snapshot(); snap.State {
	case app.StateFailed:
		dto.WriteCode(c, dto.ErrorCodeDataset, snap.Error)
		return
	case app.StateIdle, app.StateLoading:
		dto.WriteCode(c, dto.ErrorCodeUnavailable, "quotes are still loading")
		return
	}

	q, ok := h.source.Lookup(params.Time)
	if !ok {
		dto.WriteError(c, domain.NewNotFoundError("quote", params.Time))
		return
	}

	view, _ := h.source.Compose(params.Time, nil)

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q, view))
}

// Fit handles POST /api/v1/fit. A width selects terminal-cell geometry;
// otherwise the text is fitted to a character budget.
func (h *DisplayHandler) Fit(c *gin.Context) {
	var req dto.FitRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.WriteBindError(c, err)
		return
	}

	var (
		res  textfit.Result
		mode string
	)

	if req.Width > 0 {
		m := textfit.NewCellMeasurer(req.Width, lipgloss.NewStyle().Bold(true))
		res = textfit.FitGeometry(req.Text, req.Token, m, cmp.Or(req.MaxLines, h.maxLines))
		mode = dto.FitModeGeometry
	} else {
		res = textfit.FitBudget(req.Text, req.Token, cmp.Or(req.Budget, h.charBudget))
		mode = dto.FitModeBudget
	}

	c.JSON(http.StatusOK, dto.FitResponse{
		Mode:      mode,
		Text:      res.DisplayText,
		Truncated: res.IsTruncated,
		Spans:     res.Spans,
		HTML:      res.Highlighted(strong, html.EscapeString),
	})
}

// RegisterDisplayRoutes registers the page on engine and the API routes on api.
func (h *DisplayHandler) RegisterDisplayRoutes(engine *gin.Engine, api *gin.RouterGroup) {
	engine.GET("/", h.Page)

	api.GET("/display", h.Display)
	api.GET("/events", h.Events)
	api.GET("/quotes/:time", h.Quote)
	api.POST("/fit", h.Fit)
}

func strong(s string) string {
	return "<strong>" + s + "</strong>"
}

// spansHTML renders spans with the time token in <strong>. Text is escaped.
func spansHTML(spans []textfit.Span) template.HTML {
	return template.HTML(textfit.Render(spans, strong, html.EscapeString)) //nolint:gosec // span text is escaped
}
