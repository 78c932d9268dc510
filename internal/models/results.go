// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package models

import "time"

// ReconcileResult is the outcome of merging one platform's batch into the store.
type ReconcileResult struct {
	Platform Platform `json:"platform"`
	Upserted int      `json:"upserted"`
	Errors   []error  `json:"-"`
}

// RefreshResult summarizes one refresh cycle.
type RefreshResult struct {
	Category        Category   `json:"category"`
	Fetched         int        `json:"fetched"`
	Upserted        int        `json:"upserted"`
	Deleted         int        `json:"deleted"`
	FailedPlatforms []Platform `json:"failed_platforms,omitempty"`
	UpsertErrors    int        `json:"upsert_errors"`
	DurationMs      int64      `json:"duration_ms"`
	CompletedAt     time.Time  `json:"completed_at"`
	CycleID         string     `json:"cycle_id,omitempty"`

	// Cached is set when a hackathon refresh was answered from a fresh
	// snapshot without contacting any source.
	Cached bool `json:"cached,omitempty"`
}

// PlatformCount is one row of the stats summary.
type PlatformCount struct {
	Platform Platform `json:"platform"`
	Category Category `json:"category"`
	Upcoming int      `json:"upcoming"`
}

// StatsSummary counts upcoming events per platform.
type StatsSummary struct {
	Platforms     []PlatformCount `json:"platforms"`
	TotalUpcoming int             `json:"total_upcoming"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// PlatformInfo describes a configured source.
type PlatformInfo struct {
	Platform Platform `json:"platform"`
	Category Category `json:"category"`
	Enabled  bool     `json:"enabled"`
	Stored   bool     `json:"stored"`
}
