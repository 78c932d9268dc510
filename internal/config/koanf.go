// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/contestwatch/config.yaml",
	"/etc/contestwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env path.
const DotEnvPathEnvVar = "DOTENV_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Backend:   "duckdb",
			Path:      "/data/contestwatch.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Fetch: FetchConfig{
			MaxAttempts:    3,
			BaseDelay:      2 * time.Second,
			Timeout:        20 * time.Second,
			UserAgent:      "contestwatch/1.0 (+https://github.com/tomtom215/contestwatch)",
			RateLimit:      1,
			RateBurst:      2,
			BreakerEnabled: true,
			MaxBodyBytes:   8 << 20,
		},
		Refresh: RefreshConfig{
			RetentionHorizon:   7 * 24 * time.Hour,
			HackathonTTL:       time.Hour,
			Timeout:            2 * time.Minute,
			ContestPlatforms:   []string{"codeforces", "codechef", "leetcode", "atcoder"},
			HackathonPlatforms: []string{"devfolio", "mlh", "devpost"},
		},
		Sources: SourcesConfig{
			CodeforcesURL: "https://codeforces.com/api/contest.list?gym=false",
			CodeChefURL:   "https://www.codechef.com/api/list/contests/all?sort_by=START&sorting_order=asc&offset=0&mode=all",
			LeetCodeURL:   "https://leetcode.com/graphql",
			AtCoderURL:    "https://atcoder.jp/contests/",
			DevfolioURL:   "https://api.devfolio.co/api/search/hackathons",
			MLHURL:        "https://mlh.io/seasons/{season}/events",
			DevpostURL:    "https://devpost.com/api/hackathons?status[]=upcoming&status[]=open&order_by=deadline",
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Events: EventsConfig{
			Enabled: true,
			Backend: "memory",
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "contestwatch.refresh.completed",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf layers defaults, an optional YAML file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv populates the process environment from a .env file without
// overriding variables that are already set. A missing file is fine.
func loadDotEnv() {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config: ignoring unreadable %s: %v\n", path, err)
	}
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"refresh.contest_platforms",
	"refresh.hackathon_platforms",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"db_backend":    "database.backend",
	"db_path":       "database.path",
	"duckdb_path":   "database.path",
	"db_max_memory": "database.max_memory",
	"db_threads":    "database.threads",

	"fetch_max_attempts":    "fetch.max_attempts",
	"fetch_base_delay":      "fetch.base_delay",
	"fetch_timeout":         "fetch.timeout",
	"fetch_user_agent":      "fetch.user_agent",
	"fetch_rate_limit":      "fetch.rate_limit",
	"fetch_rate_burst":      "fetch.rate_burst",
	"fetch_breaker_enabled": "fetch.breaker_enabled",
	"fetch_max_body_bytes":  "fetch.max_body_bytes",

	"retention_horizon":   "refresh.retention_horizon",
	"hackathon_cache_ttl": "refresh.hackathon_ttl",
	"refresh_timeout":     "refresh.timeout",
	"contest_platforms":   "refresh.contest_platforms",
	"hackathon_platforms": "refresh.hackathon_platforms",

	"codeforces_url": "sources.codeforces_url",
	"codechef_url":   "sources.codechef_url",
	"leetcode_url":   "sources.leetcode_url",
	"atcoder_url":    "sources.atcoder_url",
	"devfolio_url":   "sources.devfolio_url",
	"mlh_url":        "sources.mlh_url",
	"devpost_url":    "sources.devpost_url",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"events_enabled": "events.enabled",
	"events_backend": "events.backend",
	"nats_url":       "events.nats_url",
	"events_topic":   "events.topic",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
