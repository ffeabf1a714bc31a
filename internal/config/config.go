package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes "30s" style values, which yaml.v3 will not put into a
// bare time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the extraction-strategy file: which source to use, what to ask
// it, and how the worker paces and schedules itself. Everything that kept
// changing between experiments lives here so orchestration code never has
// to be edited to swap strategies.
type Config struct {
	Queries  []string       `yaml:"queries"`
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type SourceConfig struct {
	Type       string           `yaml:"type"` // "generative" | "scrape"
	Generative GenerativeConfig `yaml:"generative"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
}

type GenerativeConfig struct {
	BaseURL   string   `yaml:"base_url"`
	Model     string   `yaml:"model"`
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
	// APIKey is sourced from the environment, never from this file.
	APIKey string `yaml:"-"`
}

// FieldRule extracts one field from a detail page: the text between the
// first occurrence of After and the next occurrence of Until.
type FieldRule struct {
	After string `yaml:"after"`
	Until string `yaml:"until"`
}

type ScrapeConfig struct {
	ListingURL string               `yaml:"listing_url"`
	LinkMarker string               `yaml:"link_marker"` // substring a detail href must contain
	MaxDetails int                  `yaml:"max_details"`
	Timeout    Duration             `yaml:"timeout"`
	UserAgent  string               `yaml:"user_agent"`
	Fields     map[string]FieldRule `yaml:"fields"`
}

type PipelineConfig struct {
	Pacing Duration `yaml:"pacing"`
}

type ScheduleConfig struct {
	At       string `yaml:"at"`       // "HH:MM" local to Timezone
	Timezone string `yaml:"timezone"` // IANA name
}

// The artists the worker was built around. Used when the file names no
// queries of its own.
var DefaultQueries = []string{
	"Eva Yerbabuena", "Marina Heredia", "Estrella Morente", "Sara Baras", "Argentina",
	"Rocío Márquez", "María Terremoto", "Farruquito", "Pedro El Granaíno", "Miguel Poveda",
	"Antonio Reyes", "Rancapino Chico", "Jesús Méndez", "Arcángel", "Israel Fernández",
}

// Load reads and validates the strategy file at path, applying defaults for
// anything it leaves unset.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Queries) == 0 {
		c.Queries = append(c.Queries, DefaultQueries...)
	}
	if c.Source.Type == "" {
		c.Source.Type = "generative"
	}
	if c.Source.Generative.Timeout <= 0 {
		c.Source.Generative.Timeout = Duration(60 * time.Second)
	}
	if c.Source.Generative.UserAgent == "" {
		c.Source.Generative.UserAgent = "duende/1.0"
	}
	if c.Source.Scrape.Timeout <= 0 {
		c.Source.Scrape.Timeout = Duration(20 * time.Second)
	}
	if c.Source.Scrape.UserAgent == "" {
		c.Source.Scrape.UserAgent = "duende/1.0"
	}
	if c.Source.Scrape.MaxDetails <= 0 {
		c.Source.Scrape.MaxDetails = 25
	}
	if c.Pipeline.Pacing <= 0 {
		c.Pipeline.Pacing = Duration(30 * time.Second)
	}
	if c.Schedule.At == "" {
		c.Schedule.At = "03:00"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Madrid"
	}
}

func (c Config) validate() error {
	switch c.Source.Type {
	case "generative":
		if c.Source.Generative.BaseURL == "" {
			return errors.New("source.generative.base_url is required")
		}
	case "scrape":
		if c.Source.Scrape.ListingURL == "" {
			return errors.New("source.scrape.listing_url is required")
		}
	default:
		return fmt.Errorf("unknown source type: %q", c.Source.Type)
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}
