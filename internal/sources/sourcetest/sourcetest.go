// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package sourcetest provides fixtures shared by adapter tests.
package sourcetest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/normalize"
)

// Now is the fixed clock used across adapter tests.
var Now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// Normalizer returns a normalizer pinned to Now.
func Normalizer() *normalize.Normalizer {
	return normalize.New(func() time.Time { return Now })
}

// Client returns a fetch client that never sleeps and makes a single attempt.
func Client() *fetch.Client {
	return fetch.New(&config.FetchConfig{MaxAttempts: 1, Timeout: 5 * time.Second},
		fetch.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

// Serve starts a server that answers every request with body.
func Serve(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	return ServeFunc(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	})
}

// ServeStatus starts a server that always answers with status.
func ServeStatus(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return ServeFunc(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// ServeFunc starts a server with a custom handler, closed on cleanup.
func ServeFunc(t *testing.T, fn http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return srv
}
