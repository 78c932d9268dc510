// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package aggregator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/metrics"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/store"
)

// job is one adapter call in a fan-out.
type job struct {
	platform models.Platform
	fetch    func(ctx context.Context) ([]models.Event, error)
}

func contestJobs(adapters []sources.ContestSource) []job {
	jobs := make([]job, len(adapters))
	for i, a := range adapters {
		jobs[i] = job{platform: a.Platform(), fetch: a.FetchUpcoming}
	}
	return jobs
}

func hackathonJobs(adapters []sources.HackathonSource) []job {
	jobs := make([]job, len(adapters))
	for i, a := range adapters {
		jobs[i] = job{platform: a.Platform(), fetch: a.FetchListing}
	}
	return jobs
}

// collection is the merged outcome of a fan-out.
type collection struct {
	// events is deduplicated by key and ordered by (start, platform, id).
	events     []models.Event
	byPlatform map[models.Platform][]models.Event
	succeeded  []models.Platform
	failed     []models.Platform
}

type jobResult struct {
	events []models.Event
	err    error
}

// collect runs every job concurrently and waits for all of them. A failing
// or panicking job contributes nothing and is recorded in failed; it never
// cancels or delays its siblings beyond the shared barrier. Results are
// merged in job order, then sorted, so completion order cannot leak into
// the output.
func collect(ctx context.Context, jobs []job) collection {
	results := make([]jobResult, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runJob(ctx, j)
		}()
	}
	wg.Wait()

	col := collection{byPlatform: make(map[models.Platform][]models.Event, len(jobs))}
	seen := make(map[string]bool)
	for i, j := range jobs {
		r := results[i]
		metrics.RecordSource(string(j.platform), len(r.events), r.err != nil)
		if r.err != nil {
			col.failed = append(col.failed, j.platform)
			continue
		}
		col.succeeded = append(col.succeeded, j.platform)
		for _, e := range r.events {
			key := e.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			col.events = append(col.events, e)
			col.byPlatform[j.platform] = append(col.byPlatform[j.platform], e)
		}
	}
	store.SortEvents(col.events, store.SortStartAsc)
	return col
}

func runJob(ctx context.Context, j job) (res jobResult) {
	logger := logging.CtxFrom(ctx, logging.WithPlatform(string(j.platform)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Source adapter panicked")
			res = jobResult{err: fmt.Errorf("%s adapter panic: %v", j.platform, r)}
		}
	}()

	events, err := j.fetch(ctx)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Source adapter failed")
		return jobResult{err: err}
	}
	for _, e := range events {
		if e.Platform != j.platform {
			logger.Warn().Str("event_platform", string(e.Platform)).Msg("Adapter returned foreign platform, dropping batch")
			return jobResult{err: fmt.Errorf("%s adapter returned %s events", j.platform, e.Platform)}
		}
	}
	logger.Info().Int("events", len(events)).Dur("elapsed", time.Since(start)).Msg("Source adapter finished")
	return jobResult{events: events}
}
