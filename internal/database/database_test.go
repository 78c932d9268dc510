// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
	"github.com/tomtom215/contestwatch/internal/store/storetest"
)

// testDBSemaphore serializes DuckDB instances across tests. Concurrent CGO
// connections from many parallel tests can hang under CI pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database held exclusively until the test
// completes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 2})
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() { _ = res.db.Close() })
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return setupTestDB(t) })
}

func TestUpsert_KeepsFirstSeen(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := storetest.Event(models.PlatformCodeChef, "START200", time.Hour)
	if err := db.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	e.LastSeenAt = e.LastSeenAt.Add(time.Hour)
	if err := db.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var first, last time.Time
	var category string
	row := db.Conn().QueryRowContext(ctx,
		`SELECT first_seen_at, last_seen_at, category FROM events WHERE platform = ? AND external_id = ?`,
		"codechef", "START200")
	if err := row.Scan(&first, &last, &category); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !first.Equal(storetest.Now) || !last.Equal(storetest.Now.Add(time.Hour)) {
		t.Errorf("first=%v last=%v", first, last)
	}
	if category != string(models.CategoryContest) {
		t.Errorf("category = %q", category)
	}
}

func TestUpsert_ConcurrentDifferentKeys(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := storetest.Event(models.PlatformAtCoder, "abc"+string(rune('a'+i)), time.Duration(i)*time.Hour)
			if err := db.Upsert(ctx, e); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Upsert() error = %v", err)
	}

	n, err := db.CountDocuments(ctx, store.Filter{})
	if err != nil || n != 20 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestNew_FileBackedReopen(t *testing.T) {
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	path := filepath.Join(t.TempDir(), "nested", "events.duckdb")
	cfg := &config.DatabaseConfig{Path: path, MaxMemory: "128MB", Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Upsert(context.Background(), storetest.Event(models.PlatformLeetCode, "weekly-1", time.Hour)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	n, err := reopened.CountDocuments(context.Background(), store.Filter{})
	if err != nil || n != 1 {
		t.Errorf("count after reopen = %d, %v", n, err)
	}
}

func TestBuildWhere(t *testing.T) {
	t.Parallel()

	where, args := buildWhere(store.Filter{})
	if where != "" || args != nil {
		t.Errorf("empty filter = %q %v", where, args)
	}

	where, args = buildWhere(store.Filter{
		Platforms: []models.Platform{models.PlatformMLH, models.PlatformDevpost},
		Location:  "NYC",
	})
	want := " WHERE platform IN (?, ?) AND contains(lower(location), ?)"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 3 || args[2] != "nyc" {
		t.Errorf("args = %v", args)
	}
}

func TestIsTransactionConflict(t *testing.T) {
	t.Parallel()

	if !isTransactionConflict(errors.New("TransactionContext Error: Transaction conflict: cannot update")) {
		t.Error("expected conflict")
	}
	if isTransactionConflict(errors.New("Binder Error")) || isTransactionConflict(nil) {
		t.Error("unexpected conflict")
	}
}
