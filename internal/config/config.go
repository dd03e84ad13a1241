// Package config handles chat-history configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/strrl/chat-history/internal/logging"
)

// Config is the root configuration structure.
type Config struct {
	// Server describes the host REST API.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// List controls sorting and pagination.
	List ListConfig `yaml:"list" mapstructure:"list"`

	// Listing selects where raw chat listings come from.
	Listing ListingConfig `yaml:"listing" mapstructure:"listing"`

	// Pager tunes auto-paging.
	Pager PagerConfig `yaml:"pager" mapstructure:"pager"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig describes the host REST API.
type ServerConfig struct {
	// BaseURL is the host origin, e.g. http://127.0.0.1:8000.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds a single request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are added to every request (CSRF token, auth).
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ListConfig controls sorting and pagination.
type ListConfig struct {
	// PageSize is the number of chats per page.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// DefaultSort is one of name-asc, name-desc, time-asc, time-desc,
	// messages-asc, messages-desc.
	DefaultSort string `yaml:"default_sort" mapstructure:"default_sort"`

	// AutoPageMultiplier is the number of pages fetched per auto-load.
	AutoPageMultiplier int `yaml:"auto_page_multiplier" mapstructure:"auto_page_multiplier"`
}

// ListingConfig selects the raw listing source.
type ListingConfig struct {
	// Source is http (host API) or local (jsonl files read through DuckDB).
	Source string `yaml:"source" mapstructure:"source"`

	// LocalRoot is the chats directory used by the local source.
	LocalRoot string `yaml:"local_root" mapstructure:"local_root"`
}

// Pager modes.
const (
	PagerModeObserver = "observer"
	PagerModePoll     = "poll"
)

// PagerConfig tunes auto-paging.
type PagerConfig struct {
	// Mode is observer (the list reports when its end scrolls into view)
	// or poll (the end is checked every PollInterval).
	Mode string `yaml:"mode" mapstructure:"mode"`

	// PollInterval is the visibility check cadence in poll mode.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path; stderr when empty.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 15 * time.Second,
			Headers: map[string]string{},
		},
		List: ListConfig{
			PageSize:           10,
			DefaultSort:        "time-desc",
			AutoPageMultiplier: 1,
		},
		Listing: ListingConfig{
			Source:    "http",
			LocalRoot: "~/SillyTavern/data/default-user/chats",
		},
		Pager: PagerConfig{
			Mode:         PagerModeObserver,
			PollInterval: 250 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL, got %q", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url must use http or https")
	}

	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	if c.List.PageSize < 1 {
		return fmt.Errorf("list.page_size must be at least 1")
	}

	if c.List.AutoPageMultiplier < 1 {
		return fmt.Errorf("list.auto_page_multiplier must be at least 1")
	}

	switch c.List.DefaultSort {
	case "name-asc", "name-desc", "time-asc", "time-desc", "messages-asc", "messages-desc":
	default:
		return fmt.Errorf("list.default_sort %q is not a known sort order", c.List.DefaultSort)
	}

	switch c.Listing.Source {
	case "http":
	case "local":
		if c.Listing.LocalRoot == "" {
			return fmt.Errorf("listing.local_root is required when listing.source is local")
		}
	default:
		return fmt.Errorf("listing.source must be http or local")
	}

	if c.Pager.Mode != PagerModeObserver && c.Pager.Mode != PagerModePoll {
		return fmt.Errorf("pager.mode must be observer or poll")
	}
	if c.Pager.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("pager.poll_interval must be at least 10ms")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be console or json")
	}

	return nil
}
