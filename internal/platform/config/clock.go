package config

import (
	"fmt"
	"time"
)

// ClockConfig drives the display cycle.
type ClockConfig struct {
	// DataURL is the quote dataset: an http(s) URL or a file path.
	DataURL string `koanf:"data_url" validate:"required"`

	// Timezone is the IANA zone for time and date display. Empty is the
	// host zone.
	Timezone string `koanf:"timezone" validate:"omitempty,timezone"`

	RefreshInterval time.Duration `koanf:"refresh_interval"  validate:"required,min=1s"`
	FadeOutDuration time.Duration `koanf:"fade_out_duration" validate:"min=0,max=30s"`
	DateLayout      string        `koanf:"date_layout"       validate:"required"`
	CharBudget      int           `koanf:"char_budget"       validate:"required,min=10,max=1000"`
	MaxLines        int           `koanf:"max_lines"         validate:"required,min=1,max=10"`
}

// Location resolves Timezone.
func (c ClockConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}

	return loc, nil
}

// TimeSyncConfig is the network time policy.
type TimeSyncConfig struct {
	UseWebTime            bool          `koanf:"use_web_time"`
	WebTimeAPI            string        `koanf:"web_time_api"            validate:"required_if=UseWebTime true,omitempty,http_url"`
	MaxDiscrepancySeconds int           `koanf:"max_discrepancy_seconds" validate:"min=0"`
	FallbackToSystemTime  bool          `koanf:"fallback_to_system_time"`
	Timeout               time.Duration `koanf:"timeout"                 validate:"required,min=100ms"`
}

// WeatherConfig is the Open-Meteo location and poll period.
type WeatherConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"        validate:"required_if=Enabled true,omitempty,http_url"`
	Latitude       float64       `koanf:"latitude"        validate:"min=-90,max=90"`
	Longitude      float64       `koanf:"longitude"       validate:"min=-180,max=180"`
	UpdateInterval time.Duration `koanf:"update_interval" validate:"required,min=1m"`
}

// FontSizeConfig picks the quote font size from the quote length.
type FontSizeConfig struct {
	Large           string `koanf:"large"             validate:"required"`
	Medium          string `koanf:"medium"            validate:"required"`
	Small           string `koanf:"small"             validate:"required"`
	MediumMinLength int    `koanf:"medium_min_length" validate:"required,min=1"`
	SmallMinLength  int    `koanf:"small_min_length"  validate:"required,min=1"`
}

// Pick returns the font size for a quote of n characters. Quotes shorter
// than MediumMinLength get Large.
func (f FontSizeConfig) Pick(n int) string {
	switch {
	case n >= f.SmallMinLength:
		return f.Small
	case n >= f.MediumMinLength:
		return f.Medium
	default:
		return f.Large
	}
}

// MessagesConfig is the text shown for each display state.
type MessagesConfig struct {
	Loading            string `koanf:"loading"             validate:"required"`
	DatasetError       string `koanf:"dataset_error"       validate:"required"`
	NoQuote            string `koanf:"no_quote"            validate:"required"`
	TimeUnavailable    string `koanf:"time_unavailable"    validate:"required"`
	WeatherUnavailable string `koanf:"weather_unavailable" validate:"required"`
}

// SelectorsConfig names the page elements each field is written into.
type SelectorsConfig struct {
	Quote       string `koanf:"quote"       validate:"required"`
	Attribution string `koanf:"attribution" validate:"required"`
	DateTime    string `koanf:"datetime"    validate:"required"`
	Weather     string `koanf:"weather"     validate:"required"`
	Error       string `koanf:"error"       validate:"required"`
}

// TerminalConfig is the terminal surface.
type TerminalConfig struct {
	Width  int    `koanf:"width"  validate:"required,min=20,max=400"`
	Accent string `koanf:"accent"`
}

// Quote0Config is the Quote/0 e-ink device.
type Quote0Config struct {
	Enabled   bool    `koanf:"enabled"`
	BaseURL   string  `koanf:"base_url"   validate:"required_if=Enabled true,omitempty,http_url"`
	APIKey    string  `koanf:"api_key"    validate:"required_if=Enabled true"`
	DeviceID  string  `koanf:"device_id"  validate:"required_if=Enabled true"`
	Width     int     `koanf:"width"      validate:"omitempty,min=50,max=2000"`
	RateLimit float64 `koanf:"rate_limit" validate:"min=0,max=100"`
}
