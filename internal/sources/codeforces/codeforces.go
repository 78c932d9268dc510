// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package codeforces reads the public contest.list API.
package codeforces

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
)

const contestURLBase = "https://codeforces.com/contests/"

type contestListResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment"`
	Result  []rawContest `json:"result"`
}

type rawContest struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Phase               string `json:"phase"`
	DurationSeconds     int64  `json:"durationSeconds"`
	StartTimeSeconds    *int64 `json:"startTimeSeconds"`
	RelativeTimeSeconds *int64 `json:"relativeTimeSeconds"`
}

// Adapter implements sources.ContestSource.
type Adapter struct {
	client sources.Fetcher
	norm   *normalize.Normalizer
	url    string
	logger zerolog.Logger
}

func New(client sources.Fetcher, norm *normalize.Normalizer, url string) *Adapter {
	return &Adapter{
		client: client,
		norm:   norm,
		url:    url,
		logger: logging.WithPlatform(string(models.PlatformCodeforces)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformCodeforces }

// FetchUpcoming returns contests in the BEFORE or CODING phase.
func (a *Adapter) FetchUpcoming(ctx context.Context) ([]models.Event, error) {
	var resp contestListResponse
	if err := a.client.GetJSON(ctx, a.url, &resp); err != nil {
		return nil, fmt.Errorf("codeforces contest.list: %w", err)
	}
	if resp.Status != "OK" {
		return nil, fetch.ShapeError(a.url, "status %q: %s", resp.Status, resp.Comment)
	}

	events := make([]models.Event, 0, 8)
	for _, rc := range resp.Result {
		if rc.Phase != "BEFORE" && rc.Phase != "CODING" {
			continue
		}
		e, err := a.toEvent(rc)
		if err != nil {
			a.logger.Warn().Err(err).Int64("contest_id", rc.ID).Msg("Skipping contest")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (a *Adapter) toEvent(rc rawContest) (models.Event, error) {
	e := models.Event{
		Platform: models.PlatformCodeforces,
		Name:     rc.Name,
		Mode:     models.ModeOnline,
	}
	if rc.ID > 0 {
		e.ExternalID = strconv.FormatInt(rc.ID, 10)
		e.URL = contestURLBase + e.ExternalID
	}

	// relativeTimeSeconds counts up to the start, so it is negative for
	// contests that have not begun.
	switch {
	case rc.StartTimeSeconds != nil:
		e.StartTime, e.EndTime = normalize.FromStartDuration(*rc.StartTimeSeconds, rc.DurationSeconds)
	case rc.RelativeTimeSeconds != nil:
		now := a.norm.Now()
		start := now.Unix() - *rc.RelativeTimeSeconds
		e.StartTime, e.EndTime = normalize.FromStartDuration(start, rc.DurationSeconds)
	default:
		e.StartTime, _ = a.norm.Time(models.PlatformCodeforces, "startTimeSeconds", "", nil)
	}

	return a.norm.Finalize(e)
}
