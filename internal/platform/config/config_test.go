package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigs writes name -> YAML into a fresh config dir.
func writeConfigs(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Loader{Dir: t.TempDir()}.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(), "defaults alone must validate")

	tests := []struct {
		key  string
		got  any
		want any
	}{
		{"app.name", cfg.App.Name, "authorclock"},
		{"app.environment", cfg.App.Environment, "local"},
		{"server.port", cfg.Server.Port, 8080},
		{"server.idle_timeout", cfg.Server.IdleTimeout, 2 * time.Minute},
		{"server.max_request_size", cfg.Server.MaxRequestSize, int64(1 << 20)},
		{"log.level", cfg.Log.Level, "info"},
		{"log.file.enabled", cfg.Log.File.Enabled, false},
		{"log.file.path", cfg.Log.File.Path, "./logs/authorclock.log"},
		{"log.file.max_size", cfg.Log.File.MaxSizeMB, 100},
		{"log.file.compress", cfg.Log.File.Compress, true},
		{"client.retry.max_attempts", cfg.Client.Retry.MaxAttempts, 3},
		{"client.retry.jitter_factor", cfg.Client.Retry.JitterFactor, 0.25},
		{"client.circuit_breaker.max_failures", cfg.Client.CircuitBreaker.MaxFailures, 5},
		{"client.transport.max_idle_conns", cfg.Client.Transport.MaxIdleConns, DefaultTransportMaxIdleConns},
		{"clock.refresh_interval", cfg.Clock.RefreshInterval, time.Minute},
		{"clock.fade_out_duration", cfg.Clock.FadeOutDuration, time.Second},
		{"clock.char_budget", cfg.Clock.CharBudget, DefaultCharBudget},
		{"clock.max_lines", cfg.Clock.MaxLines, DefaultMaxLines},
		{"clock.timezone", cfg.Clock.Timezone, ""},
		{"time_sync.use_web_time", cfg.TimeSync.UseWebTime, false},
		{"time_sync.fallback_to_system_time", cfg.TimeSync.FallbackToSystemTime, true},
		{"time_sync.max_discrepancy_seconds", cfg.TimeSync.MaxDiscrepancySeconds, DefaultMaxDiscrepancySeconds},
		{"weather.update_interval", cfg.Weather.UpdateInterval, 10 * time.Minute},
		{"weather.latitude", cfg.Weather.Latitude, 51.5074},
		{"messages.no_quote", cfg.Messages.NoQuote, "No quote for this minute."},
		{"selectors.datetime", cfg.Selectors.DateTime, "datetime"},
		{"terminal.width", cfg.Terminal.Width, DefaultTerminalWidth},
		{"quote0.enabled", cfg.Quote0.Enabled, false},
		{"quote0.width", cfg.Quote0.Width, DefaultQuote0Width},
		{"quote0.rate_limit", cfg.Quote0.RateLimit, DefaultQuote0RateLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got, tt.key)
	}
}

func TestLoad_Layers(t *testing.T) {
	dir := writeConfigs(t, map[string]string{
		"base.yaml": `
server:
  port: 8081
clock:
  data_url: ./base-quotes.json
  timezone: Europe/London
`,
		"kiosk.yaml": `
clock:
  data_url: https://example.com/quotes.json
weather:
  enabled: false
`,
	})

	t.Setenv("APP_SERVER_PORT", "9090")

	cfg, err := Loader{Dir: dir}.Load("kiosk")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env beats base")
	assert.Equal(t, "https://example.com/quotes.json", cfg.Clock.DataURL, "profile beats base")
	assert.Equal(t, "Europe/London", cfg.Clock.Timezone, "base beats defaults")
	assert.False(t, cfg.Weather.Enabled)
	assert.Equal(t, time.Minute, cfg.Clock.RefreshInterval, "untouched keys keep defaults")

	base, err := Loader{Dir: dir}.Load("")
	require.NoError(t, err)
	assert.Equal(t, "./base-quotes.json", base.Clock.DataURL, "no profile reads base only")
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "warn")
	t.Setenv("APP_TIME_SYNC_USE_WEB_TIME", "true")
	t.Setenv("APP_TIME_SYNC_MAX_DISCREPANCY_SECONDS", "90")
	t.Setenv("APP_CLOCK_FADE_OUT_DURATION", "250ms")
	t.Setenv("APP_QUOTE0_API_KEY", "dot_app_secret")
	t.Setenv("CLOCK_TERMINAL_WIDTH", "80")

	cfg, err := Loader{Dir: t.TempDir()}.Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.TimeSync.UseWebTime)
	assert.Equal(t, 90, cfg.TimeSync.MaxDiscrepancySeconds)
	assert.Equal(t, 250*time.Millisecond, cfg.Clock.FadeOutDuration)
	assert.Equal(t, "dot_app_secret", cfg.Quote0.APIKey)
	assert.Equal(t, DefaultTerminalWidth, cfg.Terminal.Width, "other prefixes are ignored")

	custom, err := Loader{Dir: t.TempDir(), EnvPrefix: "CLOCK_"}.Load("")
	require.NoError(t, err)
	assert.Equal(t, 80, custom.Terminal.Width)
}

func TestLoad_Files(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		profile string
		wantErr string
	}{
		{name: "missing profile is skipped", profile: "nonexistent"},
		{name: "missing dir is skipped", profile: "kiosk"},
		{
			name:    "malformed base",
			files:   map[string]string{"base.yaml": "server: [port"},
			wantErr: "loading base config",
		},
		{
			name:    "malformed profile",
			files:   map[string]string{"broken.yaml": "clock: [unclosed"},
			profile: "broken",
			wantErr: `loading profile config "broken"`,
		},
		{
			name:    "wrong type",
			files:   map[string]string{"base.yaml": "server:\n  port: eighty\n"},
			wantErr: "unmarshalling config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "absent")
			if tt.files != nil {
				dir = writeConfigs(t, tt.files)
			}

			cfg, err := Loader{Dir: dir}.Load(tt.profile)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "authorclock", cfg.App.Name)

				return
			}

			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_WorkingDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "configs", "prod.yaml"), []byte("app:\n  environment: prod\n"), 0o600))

	t.Chdir(root)

	cfg, err := Load("prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.App.Environment)
}

func TestEnvKeyMapper(t *testing.T) {
	mapKey := envKeyMapper("APP_", []string{"server.port", "time_sync.web_time_api"})

	for env, want := range map[string]string{
		"APP_SERVER_PORT":            "server.port",
		"APP_TIME_SYNC_WEB_TIME_API": "time_sync.web_time_api",
		"APP_UNKNOWN_KEY":            "unknown.key",
	} {
		assert.Equal(t, want, mapKey(env), env)
	}
}

func TestClockConfig_Location(t *testing.T) {
	loc, err := ClockConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = ClockConfig{Timezone: "Asia/Tokyo"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	_, err = ClockConfig{Timezone: "Nowhere/Special"}.Location()
	require.ErrorContains(t, err, "Nowhere/Special")
}
