// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (last wins).
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Sources  SourcesConfig  `koanf:"sources"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// DatabaseConfig selects and tunes the event store.
type DatabaseConfig struct {
	Backend   string `koanf:"backend"` // duckdb or badger
	Path      string `koanf:"path"`    // ":memory:" for an ephemeral store
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// FetchConfig tunes the shared upstream HTTP client.
type FetchConfig struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	BaseDelay      time.Duration `koanf:"base_delay"`
	Timeout        time.Duration `koanf:"timeout"`
	UserAgent      string        `koanf:"user_agent"`
	RateLimit      float64       `koanf:"rate_limit"` // requests per second per host, 0 = unlimited
	RateBurst      int           `koanf:"rate_burst"`
	BreakerEnabled bool          `koanf:"breaker_enabled"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
}

// RefreshConfig controls refresh cycles. Nothing here schedules them;
// callers trigger refreshes through the API.
type RefreshConfig struct {
	RetentionHorizon   time.Duration `koanf:"retention_horizon"`
	HackathonTTL       time.Duration `koanf:"hackathon_ttl"`
	Timeout            time.Duration `koanf:"timeout"`
	ContestPlatforms   []string      `koanf:"contest_platforms"`
	HackathonPlatforms []string      `koanf:"hackathon_platforms"`
}

// SourcesConfig holds upstream endpoints. MLHURL may contain "{season}",
// replaced with the current year at fetch time.
type SourcesConfig struct {
	CodeforcesURL string `koanf:"codeforces_url"`
	CodeChefURL   string `koanf:"codechef_url"`
	LeetCodeURL   string `koanf:"leetcode_url"`
	AtCoderURL    string `koanf:"atcoder_url"`
	DevfolioURL   string `koanf:"devfolio_url"`
	MLHURL        string `koanf:"mlh_url"`
	DevpostURL    string `koanf:"devpost_url"`
}

// APIConfig holds API pagination settings
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// EventsConfig configures refresh notifications.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend"` // memory or nats
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads an optional .env file and then calls LoadWithKoanf.
func Load() (*Config, error) {
	loadDotEnv()
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
