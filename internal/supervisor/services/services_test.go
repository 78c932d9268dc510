// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
	shutdowns atomic.Int32
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.once.Do(func() { close(f.stop) })
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if srv.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times", srv.shutdowns.Load())
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(newFakeServer(errors.New("address in use")), 0)
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeBus struct{ err error }

func (b fakeBus) Run(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	<-ctx.Done()
	return nil
}

func TestEventBusService(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewEventBusService(fakeBus{}).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Serve() = %v", err)
	}
	if err := NewEventBusService(fakeBus{err: errors.New("nats down")}).Serve(context.Background()); err == nil {
		t.Error("router failure not reported")
	}
}

type fakeCheckpointer struct{ calls atomic.Int32 }

func (f *fakeCheckpointer) Checkpoint(context.Context) error {
	f.calls.Add(1)
	return nil
}

func TestCheckpointService(t *testing.T) {
	t.Parallel()

	db := &fakeCheckpointer{}
	svc := NewCheckpointService(db, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for db.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	before := db.calls.Load()
	cancel()
	<-errCh

	if before < 2 {
		t.Errorf("ticks = %d, want at least 2", before)
	}
	if db.calls.Load() <= before {
		t.Error("no checkpoint on shutdown")
	}
}
