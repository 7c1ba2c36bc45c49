// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Library  LibraryConfig           `yaml:"library"`
	Playback PlaybackConfig          `yaml:"playback"`
	Backend  BackendConfig           `yaml:"backend"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Log      LogConfig               `yaml:"log"`
}

// LibraryConfig represents library storage and import configuration.
type LibraryConfig struct {
	MusicRoot    string `yaml:"music_root" validate:"required"`
	DatabasePath string `yaml:"database_path" default:"tonefold.db"`
	OnDuplicate  string `yaml:"on_duplicate" default:"overwrite" validate:"oneof=overwrite skip"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	// Prev restarts the current song past this position.
	ScrubBackThresholdSec int `yaml:"scrub_back_threshold_sec" default:"3" validate:"gte=0,lte=60"`
	// Elapsed time before a play-through counts.
	CountThresholdSec int `yaml:"count_threshold_sec" default:"5" validate:"gte=1,lte=600"`
}

// BackendConfig represents the media backend configuration. Settings are
// backend-specific and decoded by the backend itself.
type BackendConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents an import filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for paths. Defaults are applied after
// parsing, so a zero value is indistinguishable from unset and takes
// the field's default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TONEFOLD_MUSIC_ROOT"); v != "" {
		c.Library.MusicRoot = v
	}
	if v := os.Getenv("TONEFOLD_DATABASE_PATH"); v != "" {
		c.Library.DatabasePath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if an import filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for an import filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// ScrubBackThreshold returns the scrub-back threshold as a duration.
func (c *Config) ScrubBackThreshold() time.Duration {
	return time.Duration(c.Playback.ScrubBackThresholdSec) * time.Second
}

// CountThreshold returns the play-count threshold as a duration.
func (c *Config) CountThreshold() time.Duration {
	return time.Duration(c.Playback.CountThresholdSec) * time.Second
}

// DecodeBackendSettings decodes the backend settings map into a
// backend-specific struct, applies its defaults and validates it.
func (c *Config) DecodeBackendSettings(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(c.Backend.Settings); err != nil {
		return errors.Wrap(err, "failed to decode backend settings")
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set backend defaults")
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(err, "backend settings validation failed")
	}

	return nil
}
