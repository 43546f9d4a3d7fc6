package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/ports"
	"github.com/jsamuelsen/authorclock/internal/textfit"
)

const (
	// textPath is the Quote/0 text push endpoint.
	textPath = "/api/open/text"

	// errorTitle heads the error banner on the device.
	errorTitle = "authorclock"

	// titleSeparator joins the datetime and weather on the title line.
	titleSeparator = " · "
)

// textRequest is the /api/open/text payload. The device lays it out as a
// title line, three message lines and a bottom-right signature.
type textRequest struct {
	RefreshNow bool   `json:"refreshNow"`
	DeviceID   string `json:"deviceId"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Signature  string `json:"signature,omitempty"`
}

// apiResponse is the Quote/0 JSON envelope. Code is 0 on success.
type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Quote0ClientConfig contains configuration for the Quote/0 surface.
type Quote0ClientConfig struct {
	// Client is the HTTP client. It carries the bearer token and the rate
	// limiter; see BearerAuth.
	Client *clients.Client

	// DeviceID is the device serial number.
	DeviceID string

	// Width is the message area width in pixels. Zero uses the device default.
	Width int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Quote0Client renders frames on a Quote/0 e-ink device. It implements
// ports.Surface and ports.HealthChecker.
type Quote0Client struct {
	Remote
	deviceID string
	measurer *textfit.FaceMeasurer
	logger   *slog.Logger
}

// NewQuote0Client creates a Quote/0 surface. Panics if Client is nil or
// DeviceID is empty.
func NewQuote0Client(cfg Quote0ClientConfig) *Quote0Client {
	if cfg.Client == nil {
		panic("Quote0Client: Client is required")
	}

	if strings.TrimSpace(cfg.DeviceID) == "" {
		panic("Quote0Client: DeviceID is required")
	}

	width := cfg.Width
	if width <= 0 {
		width = config.DefaultQuote0Width
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Quote0Client{
		Remote:   NewRemote(cfg.Client, "quote0"),
		deviceID: strings.TrimSpace(cfg.DeviceID),
		// The device draws plain text, so emphasis adds no width.
		measurer: textfit.NewFaceMeasurer(nil, width, textfit.WithBoldGain(0)),
		logger:   logger.With(slog.String("component", "acl.Quote0Client")),
	}
}

// BearerAuth returns a clients.Config AuthFunc that sends key as a bearer token.
func BearerAuth(key string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+key)
	}
}

// Name implements ports.Surface and ports.HealthChecker.
func (c *Quote0Client) Name() string {
	return "quote0"
}

// Measurer implements ports.Surface.
func (c *Quote0Client) Measurer() textfit.Measurer {
	return c.measurer
}

// Render implements ports.Surface. The weather joins the title line when
// both fit on it.
func (c *Quote0Client) Render(ctx context.Context, frame ports.Frame) error {
	return c.send(ctx, textRequest{
		Title:     c.title(frame),
		Message:   frame.Quote.Text,
		Signature: frame.Quote.Attribution(),
	})
}

// ShowError implements ports.Surface.
func (c *Quote0Client) ShowError(ctx context.Context, message string) error {
	return c.send(ctx, textRequest{
		Title:   errorTitle,
		Message: message,
	})
}

// SetVisible implements ports.Surface. E-ink has no fade.
func (c *Quote0Client) SetVisible(_ context.Context, _ bool) error {
	return nil
}

func (c *Quote0Client) title(frame ports.Frame) string {
	if frame.Weather == "" {
		return frame.DateTime
	}

	joined := frame.DateTime + titleSeparator + frame.Weather
	if c.measurer.Lines([]textfit.Span{{Text: joined}}) == 1 {
		return joined
	}

	return frame.DateTime
}

func (c *Quote0Client) send(ctx context.Context, req textRequest) error {
	req.RefreshNow = true
	req.DeviceID = c.deviceID

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding quote0 request: %w", err)
	}

	body, err := c.Post(ctx, textPath, bytes.NewReader(payload), "push text")
	if err != nil {
		return err
	}

	resp, err := DecodeResponse[apiResponse](body)
	if err != nil {
		// Some deployments answer with plain text; a 2xx is still a success.
		c.logger.DebugContext(ctx, "non-JSON quote0 response", slog.Any("error", err))
		return nil
	}

	if resp.Code != 0 {
		return domain.NewUnavailableError(c.ServiceName(), fmt.Sprintf("device rejected text: %d %s", resp.Code, resp.Message))
	}

	return nil
}
