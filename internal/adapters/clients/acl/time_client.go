package acl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// zonelessLayout parses timestamps without an offset, as timeapi.io returns them.
const zonelessLayout = "2006-01-02T15:04:05.999999999"

// errNoTimestamp is returned when the response carries no known timestamp field.
var errNoTimestamp = errors.New("response has no datetime field")

// timeResponse covers the WorldTimeAPI and timeapi.io payloads.
type timeResponse struct {
	// WorldTimeAPI
	Datetime    string `json:"datetime"`
	UTCDatetime string `json:"utc_datetime"`
	Timezone    string `json:"timezone"`

	// timeapi.io
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// TimeClientConfig contains configuration for the network time client.
type TimeClientConfig struct {
	// Client is the HTTP client. Its BaseURL is the full time endpoint and it
	// should make a single attempt.
	Client *clients.Client

	// Location interprets zone-less timestamps when the response names no zone.
	// Nil means time.Local.
	Location *time.Location

	// Logger is the structured logger.
	Logger *slog.Logger
}

// TimeClient reads the current time from a network endpoint. It implements
// ports.NetworkTimeSource and ports.HealthChecker.
type TimeClient struct {
	Remote
	loc    *time.Location
	logger *slog.Logger
}

// NewTimeClient creates a network time client. Panics if Client is nil.
func NewTimeClient(cfg TimeClientConfig) *TimeClient {
	if cfg.Client == nil {
		panic("TimeClient: Client is required")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TimeClient{
		Remote: NewRemote(cfg.Client, "network-time"),
		loc:    loc,
		logger: logger.With(slog.String("component", "acl.TimeClient")),
	}
}

// Now returns the network's current time.
func (c *TimeClient) Now(ctx context.Context) (time.Time, error) {
	body, err := c.Get(ctx, "", "get time")
	if err != nil {
		return time.Time{}, err
	}

	resp, err := DecodeResponse[timeResponse](body)
	if err != nil {
		return time.Time{}, domain.NewValidationError("body", err.Error())
	}

	t, err := c.translate(resp)
	if err != nil {
		return time.Time{}, err
	}

	logging.Trace(ctx, c.logger, "network time", slog.Time("now", t))

	return t, nil
}

// translate picks the first timestamp field present and parses it.
func (c *TimeClient) translate(resp *timeResponse) (time.Time, error) {
	raw := firstNonEmpty(resp.Datetime, resp.DateTime, resp.UTCDatetime)
	if raw == "" {
		return time.Time{}, domain.NewValidationError("datetime", errNoTimestamp.Error())
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(zonelessLayout, raw, c.zone(firstNonEmpty(resp.TimeZone, resp.Timezone)))
	if err != nil {
		return time.Time{}, domain.NewValidationErrorWithValue("datetime", fmt.Sprintf("unparseable timestamp: %v", err), raw)
	}

	return t, nil
}

// zone resolves the zone the response names, falling back to the configured one.
func (c *TimeClient) zone(name string) *time.Location {
	if name == "" {
		return c.loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return c.loc
	}

	return loc
}

// Name implements ports.HealthChecker.
func (c *TimeClient) Name() string {
	return "network-time"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
