// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package main is the entry point for the Contestwatch server.
//
// Contestwatch collects upcoming programming contests (Codeforces, CodeChef,
// LeetCode, AtCoder) and hackathons (Devfolio, MLH, Devpost) into a single
// store and serves them over a small REST API.
//
// # Startup Order
//
//  1. Configuration: defaults, optional config.yaml, then environment (Koanf v2)
//  2. Event store: DuckDB (default) or BadgerDB
//  3. Fetch client, normalizer and the enabled source adapters
//  4. Refresh notifications (in-memory or NATS), when enabled
//  5. Aggregator service and HTTP API
//  6. Supervisor tree (data, messaging and API layers)
//
// Refreshes run only when requested:
//
//	curl -X POST localhost:8080/api/v1/contests/refresh
//	curl -X POST 'localhost:8080/api/v1/hackathons/refresh?force=false'
//
// # Configuration
//
// Commonly used environment variables:
//   - DB_BACKEND: duckdb or badger
//   - DB_PATH: store location, ":memory:" for an ephemeral store
//   - CONTEST_PLATFORMS, HACKATHON_PLATFORMS: comma-separated platform lists
//   - HACKATHON_CACHE_TTL, RETENTION_HORIZON, REFRESH_TIMEOUT
//   - EVENTS_BACKEND, NATS_URL, EVENTS_TOPIC
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
// server (10s drain), the notification router and the checkpoint loop, then
// the store and bus are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/contestwatch/internal/aggregator"
	"github.com/tomtom215/contestwatch/internal/api"
	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/database"
	"github.com/tomtom215/contestwatch/internal/eventbus"
	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/kvstore"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources/registry"
	"github.com/tomtom215/contestwatch/internal/store"
	"github.com/tomtom215/contestwatch/internal/supervisor"
	"github.com/tomtom215/contestwatch/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_backend", cfg.Database.Backend).
		Strs("contest_platforms", cfg.Refresh.ContestPlatforms).
		Strs("hackathon_platforms", cfg.Refresh.HackathonPlatforms).
		Msg("Starting Contestwatch")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, checkpointer, err := openStore(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event store")
		}
	}()

	client := fetch.New(&cfg.Fetch)
	adapters, err := registry.Build(cfg, client, normalize.New(time.Now))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build source adapters")
	}
	logging.Info().Int("count", len(adapters.Enabled())).Msg("Source adapters registered")

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	aggCfg := aggregator.Config{
		Contests:         adapters.Contests,
		Hackathons:       adapters.Hackathons,
		RetentionHorizon: cfg.Refresh.RetentionHorizon,
		HackathonTTL:     cfg.Refresh.HackathonTTL,
		RefreshTimeout:   cfg.Refresh.Timeout,
		DefaultLimit:     cfg.API.DefaultPageSize,
		MaxLimit:         cfg.API.MaxPageSize,
	}

	if cfg.Events.Enabled {
		bus, err := eventbus.New(&cfg.Events)
		if err != nil {
			logging.Fatal().Err(err).Str("backend", cfg.Events.Backend).Msg("Failed to initialize refresh notifications")
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		aggCfg.Publisher = bus
		tree.AddMessagingService(services.NewEventBusService(bus))
		logging.Info().Str("backend", cfg.Events.Backend).Str("topic", bus.Topic()).Msg("Refresh notifications enabled")
	}

	svc := aggregator.New(st, aggCfg)

	router := api.NewRouter(
		api.NewHandler(svc),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Forced refreshes can legitimately run up to the refresh timeout.
		WriteTimeout: cfg.Refresh.Timeout + cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	if checkpointer != nil {
		tree.AddDataService(services.NewCheckpointService(checkpointer, 0))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		stop()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, u := range unstopped {
			logging.Warn().Str("service", u.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Contestwatch stopped")
}

// openStore opens the configured backend. The second return value is non-nil
// only for DuckDB, which needs periodic WAL checkpoints.
func openStore(cfg *config.DatabaseConfig) (store.Store, services.Checkpointer, error) {
	switch cfg.Backend {
	case "badger":
		kv, err := kvstore.Open(kvstore.Options{
			Path:     cfg.Path,
			InMemory: cfg.Path == ":memory:",
		})
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}
