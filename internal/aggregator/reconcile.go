// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package aggregator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
)

// DefaultRetentionHorizon is how far in the past an event must have started
// before it can be pruned.
const DefaultRetentionHorizon = 7 * 24 * time.Hour

// Reconciler merges fetched batches into the store and prunes stale events.
type Reconciler struct {
	store   store.Store
	horizon time.Duration
	logger  zerolog.Logger
}

func NewReconciler(st store.Store, horizon time.Duration) *Reconciler {
	if horizon <= 0 {
		horizon = DefaultRetentionHorizon
	}
	return &Reconciler{store: st, horizon: horizon, logger: logging.WithComponent("reconciler")}
}

// Reconcile upserts each event with LastSeenAt set to cycleStart. A failed
// upsert is recorded and the rest of the batch continues.
func (r *Reconciler) Reconcile(ctx context.Context, platform models.Platform, events []models.Event, cycleStart time.Time) models.ReconcileResult {
	res := models.ReconcileResult{Platform: platform}
	logger := logging.CtxFrom(ctx, r.logger)

	for _, e := range events {
		e.LastSeenAt = cycleStart
		e.Status = ""
		if err := r.store.Upsert(ctx, e); err != nil {
			logger.Warn().Err(err).Str("key", e.Key()).Msg("Upsert failed")
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Upserted++
	}

	metrics.RecordReconcile(string(platform), res.Upserted, len(res.Errors))
	logger.Debug().
		Str("platform", string(platform)).
		Int("upserted", res.Upserted).
		Int("errors", len(res.Errors)).
		Msg("Reconciled batch")
	return res
}

// Prune deletes events of every platform that started before cycleStart
// minus the horizon and were not seen in this cycle. Events re-supplied
// during the cycle carry LastSeenAt == cycleStart and survive.
func (r *Reconciler) Prune(ctx context.Context, cycleStart time.Time) (int, error) {
	n, err := r.store.DeleteMany(ctx, store.Predicate{
		StartBefore:    cycleStart.Add(-r.horizon),
		LastSeenBefore: cycleStart,
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordPrune(n)
	if n > 0 {
		logging.CtxFrom(ctx, r.logger).Info().Int("deleted", n).Msg("Pruned stale events")
	}
	return n, nil
}
