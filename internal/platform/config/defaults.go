package config

// Defaults that other packages fall back on when a value is zero.
const (
	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	// DefaultMaxDiscrepancySeconds is how far the host clock may drift before
	// network time wins.
	DefaultMaxDiscrepancySeconds = 30

	// DefaultCharBudget fills the three lines of the quote area.
	DefaultCharBudget = 120
	DefaultMaxLines   = 3

	// DefaultTerminalWidth is in cells.
	DefaultTerminalWidth = 60

	// DefaultQuote0Width is the device message area in pixels.
	DefaultQuote0Width = 296

	// DefaultQuote0RateLimit is the device API limit in requests per second.
	DefaultQuote0RateLimit = 1.0
)

type section = map[string]any

// defaults is the bottom configuration layer, one map per section.
func defaults() map[string]any {
	return map[string]any{
		"app": section{"name": "authorclock", "version": "dev", "environment": "local"},

		"server": section{
			"host":             "0.0.0.0",
			"port":             8080,
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "2m",
			"shutdown_timeout": "10s",
			"request_timeout":  "15s",
			"max_request_size": 1 << 20,
		},

		"log": section{
			"level":  "info",
			"format": "json",
			"file": section{
				"enabled":     false,
				"path":        "./logs/authorclock.log",
				"max_size":    100,
				"max_backups": 3,
				"max_age":     28,
				"compress":    true,
			},
		},

		"telemetry": section{"enabled": false, "endpoint": "", "service_name": "authorclock", "sampling_rate": 1.0},

		"client": section{
			"timeout": "10s",
			"retry": section{
				"max_attempts":     3,
				"initial_interval": "100ms",
				"max_interval":     "5s",
				"multiplier":       2.0,
				"jitter_factor":    0.25,
			},
			"circuit_breaker": section{"max_failures": 5, "timeout": "30s", "half_open_limit": 3},
			"transport": section{
				"max_idle_conns":          DefaultTransportMaxIdleConns,
				"max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
				"idle_conn_timeout":       "90s",
			},
		},

		"clock": section{
			"data_url":          "./data/quotes.json",
			"timezone":          "",
			"refresh_interval":  "1m",
			"fade_out_duration": "1s",
			"date_layout":       "Monday, January 2, 2006 15:04",
			"char_budget":       DefaultCharBudget,
			"max_lines":         DefaultMaxLines,
		},

		"time_sync": section{
			"use_web_time":            false,
			"web_time_api":            "https://worldtimeapi.org/api/ip",
			"max_discrepancy_seconds": DefaultMaxDiscrepancySeconds,
			"fallback_to_system_time": true,
			"timeout":                 "5s",
		},

		"weather": section{
			"enabled":         true,
			"base_url":        "https://api.open-meteo.com",
			"latitude":        51.5074,
			"longitude":       -0.1278,
			"update_interval": "10m",
		},

		"font_size": section{
			"large":             "2.6rem",
			"medium":            "2.1rem",
			"small":             "1.7rem",
			"medium_min_length": 100,
			"small_min_length":  200,
		},

		"messages": section{
			"loading":             "Loading...",
			"dataset_error":       "Unable to load quotes. Please try again later.",
			"no_quote":            "No quote for this minute.",
			"time_unavailable":    "Time unavailable",
			"weather_unavailable": "Weather unavailable",
		},

		"selectors": section{
			"quote":       "quote",
			"attribution": "attribution",
			"datetime":    "datetime",
			"weather":     "weather",
			"error":       "error",
		},

		"terminal": section{"width": DefaultTerminalWidth, "accent": "#F2B134"},

		"quote0": section{
			"enabled":    false,
			"base_url":   "https://dot.mindreset.tech",
			"api_key":    "",
			"device_id":  "",
			"width":      DefaultQuote0Width,
			"rate_limit": DefaultQuote0RateLimit,
		},
	}
}
