// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
)

// Validate checks that configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
		return nil
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
}

func (c *Config) validateDatabase() error {
	switch c.Database.Backend {
	case "duckdb", "badger":
	default:
		return fmt.Errorf("DB_BACKEND must be duckdb or badger, got %q", c.Database.Backend)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateFetch() error {
	f := c.Fetch
	if f.MaxAttempts < 1 || f.MaxAttempts > 10 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be between 1 and 10, got %d", f.MaxAttempts)
	}
	if f.BaseDelay < 0 || f.BaseDelay > time.Minute {
		return fmt.Errorf("FETCH_BASE_DELAY must be between 0 and 1m, got %s", f.BaseDelay)
	}
	if f.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if f.RateLimit < 0 {
		return fmt.Errorf("FETCH_RATE_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) validateRefresh() error {
	r := c.Refresh
	if r.RetentionHorizon < 24*time.Hour {
		return fmt.Errorf("RETENTION_HORIZON must be at least 24h, got %s", r.RetentionHorizon)
	}
	if r.HackathonTTL <= 0 {
		return fmt.Errorf("HACKATHON_CACHE_TTL must be positive")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT must be positive")
	}
	if err := validatePlatformList("CONTEST_PLATFORMS", r.ContestPlatforms, models.CategoryContest); err != nil {
		return err
	}
	return validatePlatformList("HACKATHON_PLATFORMS", r.HackathonPlatforms, models.CategoryHackathon)
}

func validatePlatformList(envName string, names []string, want models.Category) error {
	for _, name := range names {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return fmt.Errorf("%s: %w", envName, err)
		}
		if p.Category() != want {
			return fmt.Errorf("%s: %s is a %s source", envName, p, p.Category())
		}
	}
	return nil
}

func (c *Config) validateSources() error {
	s := c.Sources
	for name, raw := range map[string]string{
		"CODEFORCES_URL": s.CodeforcesURL,
		"CODECHEF_URL":   s.CodeChefURL,
		"LEETCODE_URL":   s.LeetCodeURL,
		"ATCODER_URL":    s.AtCoderURL,
		"DEVFOLIO_URL":   s.DevfolioURL,
		"MLH_URL":        strings.ReplaceAll(s.MLHURL, "{season}", "2026"),
		"DEVPOST_URL":    s.DevpostURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE (%d)", c.API.MaxPageSize)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	switch c.Events.Backend {
	case "memory":
	case "nats":
		if c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be memory or nats, got %q", c.Events.Backend)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
