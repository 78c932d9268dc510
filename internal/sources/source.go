// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package sources defines the adapter contracts implemented by the
// per-platform packages below it.
//
// An adapter owns everything source-specific: building the request,
// locating records in whatever the upstream returns, and handing typed raw
// records to the normalizer. Nothing source-shaped escapes an adapter;
// callers only ever see models.Event.
package sources

import (
	"context"

	"github.com/tomtom215/contestwatch/internal/models"
)

// Fetcher is the subset of *fetch.Client adapters use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
	GetJSON(ctx context.Context, rawURL string, v any) error
	PostJSON(ctx context.Context, rawURL string, payload, v any) error
}

// Source is implemented by every adapter.
type Source interface {
	Platform() models.Platform
}

// ContestSource lists upcoming and running contests.
type ContestSource interface {
	Source
	FetchUpcoming(ctx context.Context) ([]models.Event, error)
}

// HackathonSource lists hackathons that have not ended.
type HackathonSource interface {
	Source
	FetchListing(ctx context.Context) ([]models.Event, error)
}

// Func adapts a plain function to both adapter interfaces. Used by tests
// and for wiring ad-hoc sources.
type Func struct {
	P  models.Platform
	Fn func(ctx context.Context) ([]models.Event, error)
}

func (f Func) Platform() models.Platform { return f.P }

func (f Func) FetchUpcoming(ctx context.Context) ([]models.Event, error) { return f.Fn(ctx) }

func (f Func) FetchListing(ctx context.Context) ([]models.Event, error) { return f.Fn(ctx) }
