package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Sync   SyncConfig        `yaml:"sync"`
	Cache  CacheConfig       `yaml:"cache"`
	Notes  NotesConfig       `yaml:"notes"`
	Remote RemoteConfig      `yaml:"remote"`
	HTTP   HTTPConfig        `yaml:"http"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// SyncConfig drives the background synchronizer.
type SyncConfig struct {
	IntervalSeconds        int     `yaml:"interval_seconds"`
	MinimumIntervalSeconds int     `yaml:"minimum_interval_seconds"`
	RebuildThreshold       float64 `yaml:"rebuild_threshold"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IntervalSeconds, validation.Required, validation.Min(10)),
		validation.Field(&c.MinimumIntervalSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.RebuildThreshold, validation.Min(0.0)),
	)
}

// Interval returns the period between sync attempts.
func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MinimumInterval returns the floor for the shortened retry delay.
func (c *SyncConfig) MinimumInterval() time.Duration {
	return time.Duration(c.MinimumIntervalSeconds) * time.Second
}

// CacheConfig holds note cache sizing and startup configuration.
type CacheConfig struct {
	DefaultPageSize    int `yaml:"default_page_size"`
	MaxResults         int `yaml:"max_results"`
	InitTimeoutSeconds int `yaml:"init_timeout_seconds"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DefaultPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxResults, validation.Required, validation.Min(1)),
		validation.Field(&c.InitTimeoutSeconds, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.MaxResults < c.DefaultPageSize {
		return fmt.Errorf("cache: max_results %d is below default_page_size %d", c.MaxResults, c.DefaultPageSize)
	}
	return nil
}

// InitTimeout returns the bound on the initial full cache load.
func (c *CacheConfig) InitTimeout() time.Duration {
	return time.Duration(c.InitTimeoutSeconds) * time.Second
}

// NotesConfig holds note presentation limits.
type NotesConfig struct {
	TitleMaxLength   int `yaml:"title_max_length"`
	SnippetMaxLength int `yaml:"snippet_max_length"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TitleMaxLength, validation.Required, validation.Min(1)),
		validation.Field(&c.SnippetMaxLength, validation.Required, validation.Min(1)),
	)
}

// RemoteConfig points at the upstream note store.
//
// Offline selects the deterministic in-memory store instead of the HTTP
// client, suitable for local development without credentials.
type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Offline        bool   `yaml:"offline"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	if c.Offline {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
	)
}

// Timeout returns the per-request timeout for the HTTP client.
func (c *RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HTTPConfig holds the read API server configuration.
type HTTPConfig struct {
	Enabled bool           `yaml:"enabled"`
	Listen  string         `yaml:"listen"`
	Auth    HTTPAuthConfig `yaml:"auth"`
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Listen, validation.Required),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// HTTPAuthConfig holds bearer token authentication for the read API.
type HTTPAuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *HTTPAuthConfig) Validate() error {
	if c.Enabled && c.Token == "" {
		return fmt.Errorf("http auth: enabled but token is empty")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
// The defaults run offline against the in-memory store.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Sync: SyncConfig{
			IntervalSeconds:        120,
			MinimumIntervalSeconds: 10,
			RebuildThreshold:       0.5,
		},
		Cache: CacheConfig{
			DefaultPageSize:    100,
			MaxResults:         1000,
			InitTimeoutSeconds: 60,
		},
		Notes: NotesConfig{
			TitleMaxLength:   30,
			SnippetMaxLength: 100,
		},
		Remote: RemoteConfig{
			TimeoutSeconds: 30,
			Offline:        true,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  ":8080",
		},
	}
}
