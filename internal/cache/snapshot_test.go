// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contestwatch/internal/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func hackathon(id, location string, mode models.Mode, startOffset, length time.Duration) models.Event {
	return models.Event{
		Platform:   models.PlatformDevpost,
		ExternalID: id,
		Name:       id,
		StartTime:  t0.Add(startOffset),
		EndTime:    t0.Add(startOffset + length),
		Location:   location,
		Mode:       mode,
	}
}

func fixtures() []models.Event {
	return []models.Event{
		hackathon("berlin", "Berlin, Germany", models.ModeInPerson, 24*time.Hour, 48*time.Hour),
		hackathon("online", "Online", models.ModeOnline, -24*time.Hour, 72*time.Hour),
		hackathon("over", "Online", models.ModeOnline, -72*time.Hour, 24*time.Hour),
	}
}

// countingSnapshot returns a snapshot whose loader installs events() the
// way the aggregator does, counting each call.
func countingSnapshot(ttl time.Duration, calls *atomic.Int32, events func() []models.Event, now func() time.Time) *Snapshot {
	var s *Snapshot
	s = NewSnapshot(ttl, func(context.Context) error {
		calls.Add(1)
		s.Replace(events())
		return nil
	}, now)
	return s
}

func TestSnapshot_ServesWithinTTL(t *testing.T) {
	t.Parallel()

	clk := &clock{now: t0}
	var calls atomic.Int32
	s := countingSnapshot(time.Hour, &calls, fixtures, clk.Now)
	ctx := context.Background()

	first, err := s.Get(ctx, false, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	clk.Advance(30 * time.Minute)
	second, err := s.Get(ctx, false, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", calls.Load())
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("snapshots differ within TTL:\n%s\n%s", a, b)
	}
	if len(first) != 2 {
		t.Errorf("ended event not filtered: %d events", len(first))
	}
}

func TestSnapshot_ReloadsAfterTTLOrForce(t *testing.T) {
	t.Parallel()

	clk := &clock{now: t0}
	var calls atomic.Int32
	s := countingSnapshot(time.Hour, &calls, fixtures, clk.Now)
	ctx := context.Background()

	_, _ = s.Get(ctx, false, "")
	_, _ = s.Get(ctx, true, "")
	if calls.Load() != 2 {
		t.Errorf("force: loader calls = %d, want 2", calls.Load())
	}

	clk.Advance(time.Hour)
	_, _ = s.Get(ctx, false, "")
	if calls.Load() != 3 {
		t.Errorf("expiry: loader calls = %d, want 3", calls.Load())
	}
	if !s.FetchedAt().Equal(t0.Add(time.Hour)) {
		t.Errorf("FetchedAt() = %v", s.FetchedAt())
	}
}

func TestSnapshot_FilterKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := countingSnapshot(time.Hour, &calls, fixtures, func() time.Time { return t0 })

	tests := []struct {
		key  string
		want []string
	}{
		{"", []string{"berlin", "online"}},
		{"BERLIN", []string{"berlin"}},
		{"online", []string{"online"}},
		{"in-person", []string{"berlin"}},
		{"tokyo", []string{}},
	}
	for _, tt := range tests {
		got, err := s.Get(context.Background(), false, tt.key)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", tt.key, err)
		}
		ids := make([]string, 0, len(got))
		for _, e := range got {
			ids = append(ids, e.ExternalID)
		}
		if !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("Get(%q) = %v, want %v", tt.key, ids, tt.want)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("filtering should not reload, calls = %d", calls.Load())
	}
}

func TestSnapshot_LoaderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("every source failed")
	clk := &clock{now: t0}
	fail := false
	var s *Snapshot
	s = NewSnapshot(time.Hour, func(context.Context) error {
		if fail {
			return boom
		}
		s.Replace(fixtures())
		return nil
	}, clk.Now)
	ctx := context.Background()

	fail = true
	if _, err := s.Get(ctx, false, ""); !errors.Is(err, boom) {
		t.Fatalf("empty snapshot: err = %v, want %v", err, boom)
	}

	fail = false
	if _, err := s.Get(ctx, false, ""); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	fail = true
	clk.Advance(2 * time.Hour)
	stale, err := s.Get(ctx, false, "")
	if err != nil {
		t.Fatalf("expired snapshot should be served stale, err = %v", err)
	}
	if len(stale) != 2 {
		t.Errorf("stale events = %d", len(stale))
	}
	if _, err := s.Get(ctx, true, ""); !errors.Is(err, boom) {
		t.Errorf("forced refresh err = %v, want %v", err, boom)
	}
}

func TestSnapshot_GetNeverWrites(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := NewSnapshot(time.Hour, func(context.Context) error {
		calls.Add(1)
		return nil
	}, func() time.Time { return t0 })

	got, err := s.Get(context.Background(), false, "")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get() = %d events from a loader that installed none", len(got))
	}
	if !s.FetchedAt().IsZero() {
		t.Errorf("FetchedAt() = %v, want zero", s.FetchedAt())
	}
	// Nothing was installed, so the next read loads again.
	_, _ = s.Get(context.Background(), false, "")
	if calls.Load() != 2 {
		t.Errorf("loader calls = %d, want 2", calls.Load())
	}
}

func TestSnapshot_ReplaceDropsEnded(t *testing.T) {
	t.Parallel()

	s := NewSnapshot(0, nil, func() time.Time { return t0 })
	if s.TTL() != DefaultTTL {
		t.Errorf("TTL() = %s", s.TTL())
	}
	kept := s.Replace(fixtures())
	if len(kept) != 2 {
		t.Fatalf("kept %d events, want 2", len(kept))
	}
	s.Invalidate()
	if !s.FetchedAt().IsZero() {
		t.Error("Invalidate() did not reset FetchedAt")
	}
}
