// Package config loads the layered authorclock configuration with koanf.
//
// Sources, later ones winning:
//
//	defaults
//	<dir>/base.yaml
//	<dir>/<profile>.yaml
//	APP_* environment variables
package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the whole configuration tree.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Clock     ClockConfig     `koanf:"clock"     validate:"required"`
	TimeSync  TimeSyncConfig  `koanf:"time_sync"`
	Weather   WeatherConfig   `koanf:"weather"`
	FontSize  FontSizeConfig  `koanf:"font_size" validate:"required"`
	Messages  MessagesConfig  `koanf:"messages"  validate:"required"`
	Selectors SelectorsConfig `koanf:"selectors" validate:"required"`
	Terminal  TerminalConfig  `koanf:"terminal"`
	Quote0    Quote0Config    `koanf:"quote0"`
}

// Loader reads the layered sources. The zero value reads ./configs and
// APP_ variables.
type Loader struct {
	// Dir holds base.yaml and the profile files.
	Dir string

	// EnvPrefix selects the environment variables that override keys.
	EnvPrefix string
}

// Load reads the configuration for profile with the zero Loader.
func Load(profile string) (*Config, error) {
	return Loader{}.Load(profile)
}

// Load reads the configuration for profile. Missing files are skipped; an
// empty profile reads only base.yaml.
func (l Loader) Load(profile string) (*Config, error) {
	dir := cmp.Or(l.Dir, "configs")
	prefix := cmp.Or(l.EnvPrefix, "APP_")

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := mergeFile(k, filepath.Join(dir, "base.yaml")); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := mergeFile(k, filepath.Join(dir, profile+".yaml")); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider(prefix, ".", envKeyMapper(prefix, k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := new(Config)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper turns PREFIX_SECTION_KEY into section.key. Keys that contain
// underscores are matched against the known keys first, so
// APP_TIME_SYNC_USE_WEB_TIME reaches time_sync.use_web_time.
func envKeyMapper(prefix string, known []string) func(string) string {
	byEnv := make(map[string]string, len(known))
	for _, key := range known {
		byEnv[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(name string) string {
		name = strings.ToLower(strings.TrimPrefix(name, prefix))
		if key, ok := byEnv[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}

// mergeFile merges a YAML file into k. A missing file is not an error.
func mergeFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
