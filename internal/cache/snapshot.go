// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package cache holds the TTL snapshot that fronts the hackathon sources.
//
// A Snapshot is one immutable slice of events plus the time it was fetched.
// Reads inside the TTL never touch the loader. A refresh replaces the whole
// slice under the write lock; when two refreshes race, the last one to
// finish wins, which is harmless because the contents are re-derivable.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
	"github.com/tomtom215/contestwatch/internal/models"
)

// DefaultTTL is used when NewSnapshot gets a non-positive ttl.
const DefaultTTL = time.Hour

// Loader refreshes the snapshot. On success it has already installed the
// new events with Replace; Get only reads them back.
type Loader func(ctx context.Context) error

// Snapshot is safe for concurrent use.
type Snapshot struct {
	mu        sync.RWMutex
	events    []models.Event
	fetchedAt time.Time

	ttl  time.Duration
	load Loader
	now  func() time.Time
}

// NewSnapshot returns an empty snapshot. A nil clock means time.Now.
func NewSnapshot(ttl time.Duration, load Loader, now func() time.Time) *Snapshot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Snapshot{ttl: ttl, load: load, now: now}
}

// Get returns the snapshot filtered by filterKey, refreshing first when it
// is empty, older than the TTL, or force is set.
//
// If a non-forced refresh fails and an older snapshot exists, the stale
// snapshot is served and the failure is logged. Forced refresh errors are
// always returned.
func (s *Snapshot) Get(ctx context.Context, force bool, filterKey string) ([]models.Event, error) {
	if !force {
		if events, ok := s.fresh(); ok {
			metrics.RecordSnapshot(true)
			return s.view(events, filterKey), nil
		}
	}
	metrics.RecordSnapshot(false)

	if err := s.load(ctx); err != nil {
		stale, fetchedAt := s.current()
		if force || fetchedAt.IsZero() {
			return nil, err
		}
		logging.Ctx(ctx).Warn().Err(err).Time("fetched_at", fetchedAt).Msg("Snapshot refresh failed, serving stale events")
		return s.view(stale, filterKey), nil
	}
	events, _ := s.current()
	return s.view(events, filterKey), nil
}

// Cached returns the filtered snapshot when it is within the TTL, without
// ever loading.
func (s *Snapshot) Cached(filterKey string) ([]models.Event, bool) {
	events, ok := s.fresh()
	if !ok {
		return nil, false
	}
	return s.view(events, filterKey), true
}

// Replace stores events, minus those already ended, as the new snapshot
// and returns what was stored.
func (s *Snapshot) Replace(events []models.Event) []models.Event {
	now := s.now().UTC()
	kept := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.StatusAt(now) == models.StatusEnded {
			continue
		}
		kept = append(kept, e)
	}

	s.mu.Lock()
	s.events = kept
	s.fetchedAt = now
	s.mu.Unlock()

	metrics.SnapshotEvents.Set(float64(len(kept)))
	return kept
}

// Invalidate drops the snapshot so the next Get reloads.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.events = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// FetchedAt returns when the snapshot was last replaced, or zero.
func (s *Snapshot) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// TTL returns the configured time to live.
func (s *Snapshot) TTL() time.Duration { return s.ttl }

func (s *Snapshot) fresh() ([]models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return s.events, true
}

func (s *Snapshot) current() ([]models.Event, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events, s.fetchedAt
}

// view copies events that have not ended and match filterKey, with status
// derived at the current time. The stored slice is never handed out.
func (s *Snapshot) view(events []models.Event, filterKey string) []models.Event {
	now := s.now().UTC()
	key := strings.ToLower(strings.TrimSpace(filterKey))
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		e = e.WithStatus(now)
		if e.Status == models.StatusEnded {
			continue
		}
		if key != "" && !matchesKey(&e, key) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// matchesKey matches a lowercased key against the mode exactly or the
// location as a substring.
func matchesKey(e *models.Event, key string) bool {
	if string(e.Mode) == key {
		return true
	}
	return strings.Contains(strings.ToLower(e.Location), key)
}
