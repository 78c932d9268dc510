// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package aggregator runs refresh cycles and answers queries.
//
// A refresh cycle fans out to every adapter of one category, merges what
// came back, upserts each platform's batch, then prunes events of the
// platforms that answered. Concurrent refreshes of the same category share
// one cycle through singleflight. The cycle is detached from the caller:
// a caller whose context ends stops waiting, and the cycle still finishes
// and persists.
//
// Reads never trigger a refresh, except ListHackathons when the hackathon
// snapshot is empty or expired.
package aggregator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/contestwatch/internal/cache"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/store"
)

const (
	DefaultLimit          = 50
	MaxLimit              = 100
	DefaultRefreshTimeout = 2 * time.Minute

	// reconcileWorkers bounds concurrent per-platform store writers.
	reconcileWorkers = 4
)

// Publisher is notified after every completed refresh cycle.
type Publisher interface {
	PublishRefresh(ctx context.Context, result models.RefreshResult) error
}

// Config wires a Service. Zero values fall back to the package defaults.
type Config struct {
	Contests   []sources.ContestSource
	Hackathons []sources.HackathonSource

	RetentionHorizon time.Duration
	HackathonTTL     time.Duration
	RefreshTimeout   time.Duration
	DefaultLimit     int
	MaxLimit         int

	Publisher Publisher
	Now       func() time.Time
}

// Service is the query façade and refresh coordinator.
type Service struct {
	store      store.Store
	contests   []sources.ContestSource
	hackathons []sources.HackathonSource
	reconciler *Reconciler
	snapshot   *cache.Snapshot
	publisher  Publisher
	now        func() time.Time
	timeout    time.Duration

	defaultLimit int
	maxLimit     int

	group singleflight.Group

	mu   sync.RWMutex
	last map[models.Category]models.RefreshResult

	logger zerolog.Logger
}

func New(st store.Store, cfg Config) *Service {
	s := &Service{
		store:        st,
		contests:     cfg.Contests,
		hackathons:   cfg.Hackathons,
		reconciler:   NewReconciler(st, cfg.RetentionHorizon),
		publisher:    cfg.Publisher,
		now:          cfg.Now,
		timeout:      cfg.RefreshTimeout,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		last:         make(map[models.Category]models.RefreshResult),
		logger:       logging.WithComponent("aggregator"),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.timeout <= 0 {
		s.timeout = DefaultRefreshTimeout
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxLimit
	}
	if s.defaultLimit <= 0 || s.defaultLimit > s.maxLimit {
		s.defaultLimit = min(DefaultLimit, s.maxLimit)
	}
	s.snapshot = cache.NewSnapshot(cfg.HackathonTTL, s.loadHackathons, s.now)
	return s
}

// Query is a read over the store. From defaults to now.
type Query struct {
	Platforms []models.Platform
	Category  models.Category
	From      time.Time
	To        time.Time
	Location  string
	Limit     int
	Offset    int
}

// Find returns stored events ascending by start time with status derived
// at the current time.
func (s *Service) Find(ctx context.Context, q Query) ([]models.Event, error) {
	now := s.now().UTC()
	from := q.From
	if from.IsZero() {
		from = now
	}
	events, err := s.store.Find(ctx, store.Filter{
		Platforms:   q.Platforms,
		Category:    q.Category,
		StartAfter:  from,
		StartBefore: q.To,
		Location:    q.Location,
		Offset:      max(q.Offset, 0),
	}, store.SortStartAsc, s.ClampLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	for i := range events {
		events[i].Status = events[i].StatusAt(now)
	}
	return events, nil
}

// ClampLimit applies the default page size and the maximum.
func (s *Service) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// ListContests returns stored contests starting at or after now, optionally
// for one platform.
func (s *Service) ListContests(ctx context.Context, platform string, limit int) ([]models.Event, error) {
	q := Query{Category: models.CategoryContest, Limit: limit}
	if platform != "" {
		p, err := ParsePlatformIn(platform, models.CategoryContest)
		if err != nil {
			return nil, err
		}
		q.Platforms = []models.Platform{p}
	}
	return s.Find(ctx, q)
}

// ListHackathons serves the hackathon snapshot, loading it when empty,
// expired or forced. Ended hackathons are never returned. location matches
// the location text or the attendance mode.
func (s *Service) ListHackathons(ctx context.Context, location string, force bool) ([]models.Event, error) {
	return s.snapshot.Get(ctx, force, location)
}

// RefreshContests runs a contest cycle and returns its counts.
func (s *Service) RefreshContests(ctx context.Context) (models.RefreshResult, error) {
	return s.refresh(ctx, models.CategoryContest)
}

// RefreshHackathons runs a hackathon cycle. Without force, a snapshot
// within its TTL answers instead and no source is contacted.
func (s *Service) RefreshHackathons(ctx context.Context, force bool) (models.RefreshResult, error) {
	if !force {
		if events, ok := s.snapshot.Cached(""); ok {
			return models.RefreshResult{
				Category:    models.CategoryHackathon,
				Fetched:     len(events),
				CompletedAt: s.snapshot.FetchedAt(),
				Cached:      true,
			}, nil
		}
	}
	return s.refresh(ctx, models.CategoryHackathon)
}

// StatsSummary counts upcoming stored events per platform. Enabled
// platforms are always listed, even at zero.
func (s *Service) StatsSummary(ctx context.Context) (models.StatsSummary, error) {
	now := s.now().UTC()
	stored, err := s.store.Distinct(ctx, store.FieldPlatform, store.Filter{StartAfter: now})
	if err != nil {
		return models.StatsSummary{}, fmt.Errorf("stats platforms: %w", err)
	}
	enabled := s.enabled()

	summary := models.StatsSummary{Platforms: []models.PlatformCount{}, GeneratedAt: now}
	for _, p := range models.AllPlatforms() {
		if !enabled[p] && !slices.Contains(stored, string(p)) {
			continue
		}
		n, err := s.store.CountDocuments(ctx, store.Filter{Platforms: []models.Platform{p}, StartAfter: now})
		if err != nil {
			return models.StatsSummary{}, fmt.Errorf("stats count %s: %w", p, err)
		}
		summary.Platforms = append(summary.Platforms, models.PlatformCount{Platform: p, Category: p.Category(), Upcoming: n})
		summary.TotalUpcoming += n
	}
	return summary, nil
}

// Platforms describes every known platform.
func (s *Service) Platforms(ctx context.Context) ([]models.PlatformInfo, error) {
	stored, err := s.store.Distinct(ctx, store.FieldPlatform, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list stored platforms: %w", err)
	}
	enabled := s.enabled()
	out := make([]models.PlatformInfo, 0, len(models.AllPlatforms()))
	for _, p := range models.AllPlatforms() {
		out = append(out, models.PlatformInfo{
			Platform: p,
			Category: p.Category(),
			Enabled:  enabled[p],
			Stored:   slices.Contains(stored, string(p)),
		})
	}
	return out, nil
}

// LastRefresh returns the most recent successful cycle of a category.
func (s *Service) LastRefresh(cat models.Category) (models.RefreshResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.last[cat]
	return r, ok
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ParsePlatformIn parses name and checks it belongs to cat.
func ParsePlatformIn(name string, cat models.Category) (models.Platform, error) {
	p, err := models.ParsePlatform(name)
	if err != nil || p.Category() != cat {
		return "", fmt.Errorf("%w: %q is not a %s platform", ErrUnknownPlatform, name, cat)
	}
	return p, nil
}

func (s *Service) enabled() map[models.Platform]bool {
	out := make(map[models.Platform]bool, len(s.contests)+len(s.hackathons))
	for _, c := range s.contests {
		out[c.Platform()] = true
	}
	for _, h := range s.hackathons {
		out[h.Platform()] = true
	}
	return out
}

// loadHackathons backs the snapshot. The cycle itself installs the new
// events, so the snapshot never replaces them a second time.
func (s *Service) loadHackathons(ctx context.Context) error {
	_, err := s.refresh(ctx, models.CategoryHackathon)
	return err
}

// refresh joins or starts the cycle for cat and waits for it, at most until
// ctx ends or the refresh timeout passes.
func (s *Service) refresh(ctx context.Context, cat models.Category) (models.RefreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(string(cat), func() (any, error) {
		return s.runCycle(detached, cat)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return models.RefreshResult{}, r.Err
		}
		res, _ := r.Val.(models.RefreshResult)
		return res, nil
	case <-ctx.Done():
		logging.CtxFrom(ctx, s.logger).Warn().
			Str("category", string(cat)).
			Err(ctx.Err()).
			Msg("Stopped waiting for refresh; cycle continues in background")
		return models.RefreshResult{}, ctx.Err()
	}
}

func (s *Service) jobs(cat models.Category) []job {
	if cat == models.CategoryContest {
		return contestJobs(s.contests)
	}
	return hackathonJobs(s.hackathons)
}

// runCycle performs one fetch, reconcile and prune pass.
func (s *Service) runCycle(ctx context.Context, cat models.Category) (models.RefreshResult, error) {
	cycleID := logging.GenerateCycleID()
	ctx = logging.ContextWithCycleID(ctx, cycleID)
	logger := logging.CtxFrom(ctx, s.logger)

	started := time.Now()
	cycleStart := s.now().UTC().Truncate(time.Millisecond)
	jobs := s.jobs(cat)
	logger.Info().Str("category", string(cat)).Int("sources", len(jobs)).Msg("Refresh started")

	col := collect(ctx, jobs)
	if len(jobs) > 0 && len(col.succeeded) == 0 {
		metrics.RecordRefresh(string(cat), time.Since(started), false)
		logger.Error().Str("category", string(cat)).Msg("Refresh failed: every source failed")
		return models.RefreshResult{}, fmt.Errorf("%w: %s", ErrAllSourcesFailed, joinPlatforms(col.failed))
	}

	results := make([]models.ReconcileResult, len(col.succeeded))
	var g errgroup.Group
	g.SetLimit(reconcileWorkers)
	for i, p := range col.succeeded {
		g.Go(func() error {
			results[i] = s.reconciler.Reconcile(ctx, p, col.byPlatform[p], cycleStart)
			return nil
		})
	}
	_ = g.Wait()

	res := models.RefreshResult{
		Category:        cat,
		Fetched:         len(col.events),
		FailedPlatforms: col.failed,
		CycleID:         cycleID,
	}
	for _, r := range results {
		res.Upserted += r.Upserted
		res.UpsertErrors += len(r.Errors)
	}

	deleted, err := s.reconciler.Prune(ctx, cycleStart)
	if err != nil {
		logger.Error().Err(err).Msg("Prune failed")
	}
	res.Deleted = deleted

	elapsed := time.Since(started)
	res.DurationMs = elapsed.Milliseconds()
	res.CompletedAt = s.now().UTC()

	// The hackathon snapshot has exactly one writer: this cycle.
	if cat == models.CategoryHackathon {
		events := make([]models.Event, len(col.events))
		for i, e := range col.events {
			e.LastSeenAt = cycleStart
			events[i] = e
		}
		s.snapshot.Replace(events)
	}

	s.mu.Lock()
	s.last[cat] = res
	s.mu.Unlock()
	metrics.RecordRefresh(string(cat), elapsed, true)

	logger.Info().
		Str("category", string(cat)).
		Int("fetched", res.Fetched).
		Int("upserted", res.Upserted).
		Int("deleted", res.Deleted).
		Int("failed_sources", len(res.FailedPlatforms)).
		Dur("elapsed", elapsed).
		Msg("Refresh completed")

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx, res); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish refresh notification")
		}
	}
	return res, nil
}

func joinPlatforms(ps []models.Platform) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
