// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
	"github.com/tomtom215/contestwatch/internal/store/storetest"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, func(t *testing.T) store.Store { return openTest(t) })
}

func TestGet(t *testing.T) {
	t.Parallel()

	s := openTest(t)
	ctx := context.Background()

	e := storetest.Event(models.PlatformDevfolio, "9f1c", time.Hour)
	e.Status = models.StatusUpcoming
	if err := s.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, ok, err := s.Get(ctx, e.Key())
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Status != "" {
		t.Errorf("status persisted: %q", got.Status)
	}
	if !got.StartTime.Equal(e.StartTime) || got.Name != e.Name {
		t.Errorf("got %+v", got)
	}

	if _, ok, err := s.Get(ctx, "devfolio:missing"); ok || err != nil {
		t.Errorf("missing key = %v, %v", ok, err)
	}
}

func TestOpen_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(Options{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Upsert(context.Background(), storetest.Event(models.PlatformMLH, "hacknyu", time.Hour)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if n, err := s.CountDocuments(context.Background(), store.Filter{}); err != nil || n != 1 {
		t.Errorf("count after reopen = %d, %v", n, err)
	}
}
