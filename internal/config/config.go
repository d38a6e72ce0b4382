// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "syncd"
	DefaultPGSSLMode       = "disable"
	DefaultGitHubAPIURL    = "https://api.github.com"
	DefaultGitHubUserAgent = "syncd-linear-github"
	DefaultLinearAPIURL    = "https://api.linear.app/graphql"
	DefaultUpstreamTimeout = 15
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	GitHub   GitHubConfig   `toml:"github"`
	Linear   LinearConfig   `toml:"linear"`
	Sync     SyncConfig     `toml:"sync"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address and the externally
// reachable base URL used when registering webhooks on the platforms.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	PublicBaseURL string `toml:"public_base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// GitHubConfig holds GitHub API base URL, the User-Agent required by the
// GitHub API policy, the inbound webhook secret, and the request timeout.
type GitHubConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	UserAgent      string `toml:"user_agent"`
	WebhookSecret  string `toml:"webhook_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LinearConfig holds the Linear GraphQL endpoint, the inbound webhook
// signing secret, and the request timeout.
type LinearConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	WebhookSecret  string `toml:"webhook_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SyncConfig holds cross-platform sync behavior knobs.
type SyncConfig struct {
	// FooterMarker is appended to every outbound body and used to drop
	// echoed webhook deliveries of our own writes. Empty disables the guard.
	FooterMarker string `toml:"footer_marker"`
}

// Timeout returns the configured GitHub request timeout as a duration.
func (c GitHubConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultUpstreamTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the configured Linear request timeout as a duration.
func (c LinearConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultUpstreamTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		GitHub: GitHubConfig{
			APIBaseURL:     DefaultGitHubAPIURL,
			UserAgent:      DefaultGitHubUserAgent,
			TimeoutSeconds: DefaultUpstreamTimeout,
		},
		Linear: LinearConfig{
			APIBaseURL:     DefaultLinearAPIURL,
			TimeoutSeconds: DefaultUpstreamTimeout,
		},
		Sync: SyncConfig{
			FooterMarker: "Synced from Linear-GitHub Sync",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
