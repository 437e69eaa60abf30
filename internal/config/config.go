package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danpilch/trenopal/internal/api/lefrecce"
	"github.com/danpilch/trenopal/internal/api/viaggiatreno"
	"github.com/danpilch/trenopal/internal/match"
)

// JourneyConfig is a journey the watcher follows on its active days.
type JourneyConfig struct {
	Name      string   `yaml:"name" validate:"required"`
	From      string   `yaml:"from" validate:"required"`
	To        string   `yaml:"to" validate:"required"`
	Departure string   `yaml:"departure" validate:"required,len=4,numeric"` // HHMM
	Days      []string `yaml:"days" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
}

// DepartureOn returns the configured departure time on the day of t, in t's location.
func (j JourneyConfig) DepartureOn(t time.Time) (time.Time, error) {
	parsed, err := time.Parse("1504", j.Departure)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure time %q: %w", j.Departure, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), parsed.Hour(), parsed.Minute(), 0, 0, t.Location()), nil
}

// IsActiveDay returns true if the given weekday is in the configured days list.
// If no days are configured, returns true (runs every day).
func (j JourneyConfig) IsActiveDay(weekday time.Weekday) bool {
	if len(j.Days) == 0 {
		return true
	}
	dayName := strings.ToLower(weekday.String())
	for _, d := range j.Days {
		if strings.ToLower(d) == dayName {
			return true
		}
	}
	return false
}

type StationsConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

type MatchingConfig struct {
	Threshold float64 `yaml:"threshold" validate:"gt=0,lte=1"`
}

type PrimaryConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type SecondaryConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	CacheSize int           `yaml:"cache_size" validate:"gte=1"`
	CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gt=0"`
}

// ReporterConfig configures data-quality reports. An empty BaseURL disables them.
type ReporterConfig struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// NotifyConfig toggles pushover notifications. Credentials come from the
// PUSHOVER_TOKEN and PUSHOVER_USER environment variables.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	LogLevel  string          `yaml:"log_level" validate:"oneof=trace debug info warn warning error"`
	Timezone  string          `yaml:"timezone" validate:"required"`
	Stations  StationsConfig  `yaml:"stations"`
	Matching  MatchingConfig  `yaml:"matching"`
	Primary   PrimaryConfig   `yaml:"primary"`
	Secondary SecondaryConfig `yaml:"secondary"`
	Reporter  ReporterConfig  `yaml:"reporter"`
	Journeys  []JourneyConfig `yaml:"journeys" validate:"dive"`
	Notify    NotifyConfig    `yaml:"notify"`

	location *time.Location
}

// Default returns a configuration that works against the public endpoints
// with reference data in ./data.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Timezone: "Europe/Rome",
		Stations: StationsConfig{Dir: "data"},
		Matching: MatchingConfig{Threshold: match.DefaultThreshold},
		Primary: PrimaryConfig{
			BaseURL: viaggiatreno.DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Secondary: SecondaryConfig{
			BaseURL:   lefrecce.DefaultBaseURL,
			Timeout:   30 * time.Second,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		Reporter: ReporterConfig{Timeout: 5 * time.Second},
	}
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for i := range cfg.Journeys {
		for d := range cfg.Journeys[i].Days {
			cfg.Journeys[i].Days[d] = strings.ToLower(strings.TrimSpace(cfg.Journeys[i].Days[d]))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	c.location = loc

	seen := make(map[string]bool, len(c.Journeys))
	for _, j := range c.Journeys {
		if seen[j.Name] {
			return fmt.Errorf("journeys: duplicate name %q", j.Name)
		}
		seen[j.Name] = true
		if _, err := j.DepartureOn(time.Now()); err != nil {
			return fmt.Errorf("journeys %s: %w", j.Name, err)
		}
	}

	return nil
}

// Location returns the configured time zone. Validate must have succeeded.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
