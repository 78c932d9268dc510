// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package services

import (
	"context"
	"time"

	"github.com/tomtom215/contestwatch/internal/logging"
)

// Checkpointer is satisfied by *database.DB.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointService flushes the DuckDB WAL into the database file on an
// interval and once more at shutdown. Failures are logged, not fatal.
type CheckpointService struct {
	db       Checkpointer
	interval time.Duration
}

func NewCheckpointService(db Checkpointer, interval time.Duration) *CheckpointService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CheckpointService{db: db, interval: interval}
}

func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkpoint(ctx)
		case <-ctx.Done():
			s.checkpoint(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

func (s *CheckpointService) checkpoint(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Database checkpoint failed")
	}
}

func (s *CheckpointService) String() string { return "db-checkpoint" }
