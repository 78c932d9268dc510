// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/models"
)

func newMemoryBus(t *testing.T) *Bus {
	t.Helper()
	b, err := New(&config.EventsConfig{Enabled: true, Backend: "memory", Topic: "test.refresh"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func runBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = b.Run(ctx) }()
	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

func TestPublishRefresh_DeliversToHandlers(t *testing.T) {
	t.Parallel()

	b := newMemoryBus(t)
	got := make(chan models.RefreshResult, 1)
	b.Handle("capture", func(_ context.Context, r models.RefreshResult) error {
		got <- r
		return nil
	})
	runBus(t, b)

	want := models.RefreshResult{
		Category:        models.CategoryContest,
		Fetched:         5,
		Upserted:        5,
		FailedPlatforms: []models.Platform{models.PlatformLeetCode},
		CycleID:         "abcd1234",
	}
	if err := b.PublishRefresh(context.Background(), want); err != nil {
		t.Fatalf("PublishRefresh() error = %v", err)
	}

	select {
	case r := <-got:
		if r.CycleID != want.CycleID || r.Fetched != 5 || len(r.FailedPlatforms) != 1 {
			t.Errorf("received %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestHandle_RetriesFailures(t *testing.T) {
	t.Parallel()

	b := newMemoryBus(t)
	var attempts atomic.Int32
	done := make(chan struct{})
	b.Handle("flaky", func(context.Context, models.RefreshResult) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	runBus(t, b)

	if err := b.PublishRefresh(context.Background(), models.RefreshResult{Category: models.CategoryHackathon}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler succeeded after %d attempts, want 3", attempts.Load())
	}
}

func TestPublishRefresh_AfterClose(t *testing.T) {
	t.Parallel()

	b := newMemoryBus(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.PublishRefresh(context.Background(), models.RefreshResult{}); !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestClose_NeverRunReturnsPromptly(t *testing.T) {
	t.Parallel()

	b := newMemoryBus(t)
	start := time.Now()
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close() took %v", elapsed)
	}
	if err := b.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close error = %v, want ErrClosed", err)
	}
}

func TestRun_RestartsAfterStop(t *testing.T) {
	t.Parallel()

	b := newMemoryBus(t)
	got := make(chan string, 64)
	b.Handle("capture", func(_ context.Context, r models.RefreshResult) error {
		got <- r.CycleID
		return nil
	})

	for i, id := range []string{"first", "second"} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- b.Run(ctx) }()

		// The first run signals Running; later runs need a moment to subscribe.
		if i == 0 {
			select {
			case <-b.Running():
			case <-time.After(5 * time.Second):
				t.Fatal("router did not start")
			}
		}

		deadline := time.After(5 * time.Second)
	publish:
		for {
			if err := b.PublishRefresh(context.Background(), models.RefreshResult{CycleID: id}); err != nil {
				t.Fatalf("run %d: PublishRefresh() error = %v", i, err)
			}
			select {
			case cid := <-got:
				if cid == id {
					break publish
				}
			case <-time.After(100 * time.Millisecond):
			case <-deadline:
				t.Fatalf("run %d: handler not called", i)
			}
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run %d: Run() error = %v", i, err)
			}
		case <-time.After(15 * time.Second):
			t.Fatalf("run %d: Run() did not return", i)
		}
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := New(&config.EventsConfig{Backend: "kafka", Topic: "x"}); err == nil {
		t.Error("expected error")
	}
}
