// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

/*
database_schema.go - Event Table

One row per (platform, external_id). Status is never stored; it is derived
from the time window at read time. first_seen_at is written once on insert
and kept on update, last_seen_at is bumped by every reconciliation and
drives pruning.

Only the primary key is indexed. start_time range scans rely on zone maps.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS events (
			platform      TEXT NOT NULL,
			external_id   TEXT NOT NULL,
			category      TEXT NOT NULL,
			name          TEXT NOT NULL,
			start_time    TIMESTAMP NOT NULL,
			end_time      TIMESTAMP NOT NULL,
			url           TEXT NOT NULL DEFAULT '',
			mode          TEXT NOT NULL DEFAULT 'unknown',
			location      TEXT NOT NULL DEFAULT '',
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at  TIMESTAMP NOT NULL,
			PRIMARY KEY (platform, external_id)
		)`,
	}
}
