package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/ics"
)

// Config is the top-level application configuration.
type Config struct {
	// FeedURL is the ICS subscription endpoint. Shared calendar URLs
	// routinely embed access tokens, so it is never logged verbatim.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// Timezone is the IANA zone used for display and as the weakest
	// timezone-resolution fallback (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// MetricsListen is the Prometheus listen address. Empty disables the
	// metrics endpoint.
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// PollIntervalSeconds is the fixed re-fetch cadence.
	PollIntervalSeconds int `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`

	// IncludePastHours and HorizonDays bound the evaluation window.
	IncludePastHours int `yaml:"include_past_hours" json:"include_past_hours"`
	HorizonDays      int `yaml:"horizon_days" json:"horizon_days"`

	// MaxEvents caps the eligible instance list.
	MaxEvents int `yaml:"max_events" json:"max_events"`

	TriggerAllDay            bool `yaml:"trigger_all_day" json:"trigger_all_day"`
	TriggerBusyOnly          bool `yaml:"trigger_busy_only" json:"trigger_busy_only"`
	ExcludeTentative         bool `yaml:"exclude_tentative" json:"exclude_tentative"`
	ExcludeDeclinedIfPresent bool `yaml:"exclude_declined_if_present" json:"exclude_declined_if_present"`

	// IncludeKeywords/ExcludeKeywords are comma-separated, matched
	// case-insensitively against "summary location".
	IncludeKeywords string `yaml:"include_keywords" json:"include_keywords"`
	ExcludeKeywords string `yaml:"exclude_keywords" json:"exclude_keywords"`

	// StartOffsetMinutes/EndOffsetMinutes shift raw event times into
	// effective switch times (negative start = lead-in).
	StartOffsetMinutes int `yaml:"start_offset_minutes" json:"start_offset_minutes"`
	EndOffsetMinutes   int `yaml:"end_offset_minutes" json:"end_offset_minutes"`

	NextListCount        int  `yaml:"next_list_count" json:"next_list_count"`
	NextListShowLocation bool `yaml:"next_list_show_location" json:"next_list_show_location"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:            "Local",
		Listen:              "127.0.0.1:8080",
		LogLevel:            "info",
		PollIntervalSeconds: 300,
		IncludePastHours:    24,
		HorizonDays:         14,
		MaxEvents:           50,
		NextListCount:       5,
	}
}

// Normalize fills in missing/zero values with the defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 300
	}
	if c.IncludePastHours < 0 {
		c.IncludePastHours = 0
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 14
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = 50
	}
	if c.NextListCount <= 0 {
		c.NextListCount = 5
	}
}

// PollInterval is PollIntervalSeconds as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// EngineOptions maps the file fields onto one evaluation's options:
// keyword CSV is split and lowercased, minute offsets become durations,
// and the configured zone is loaded (a bad zone id is an error rather
// than a silent UTC fallback).
func (c *Config) EngineOptions() (ics.Options, error) {
	zone, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return ics.Options{}, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return ics.Options{
		IncludePastHours:         c.IncludePastHours,
		HorizonDays:              c.HorizonDays,
		MaxEvents:                c.MaxEvents,
		TriggerAllDay:            c.TriggerAllDay,
		TriggerBusyOnly:          c.TriggerBusyOnly,
		ExcludeTentative:         c.ExcludeTentative,
		ExcludeDeclinedIfPresent: c.ExcludeDeclinedIfPresent,
		IncludeKeywords:          splitKeywords(c.IncludeKeywords),
		ExcludeKeywords:          splitKeywords(c.ExcludeKeywords),
		StartOffset:              time.Duration(c.StartOffsetMinutes) * time.Minute,
		EndOffset:                time.Duration(c.EndOffsetMinutes) * time.Minute,
		NextListCount:            c.NextListCount,
		NextListShowLocation:     c.NextListShowLocation,
		HostZone:                 zone,
	}, nil
}

func splitKeywords(csv string) []string {
	var out []string
	for _, kw := range strings.Split(csv, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms, and return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration atomically: temp file in the same
// directory, 0600, then rename over the target.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calswitch-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
