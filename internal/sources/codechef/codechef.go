// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package codechef reads the contest listing endpoint used by codechef.com.
package codechef

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
)

const contestURLBase = "https://www.codechef.com/"

// ist is the zone of the non-ISO date strings.
var ist = time.FixedZone("IST", 5*3600+30*60)

type listResponse struct {
	Status          string       `json:"status"`
	Message         string       `json:"message"`
	PresentContests []rawContest `json:"present_contests"`
	FutureContests  []rawContest `json:"future_contests"`
}

type rawContest struct {
	Code         string `json:"contest_code"`
	Name         string `json:"contest_name"`
	StartISO     string `json:"contest_start_date_iso"`
	EndISO       string `json:"contest_end_date_iso"`
	StartText    string `json:"contest_start_date"`
	EndText      string `json:"contest_end_date"`
	DurationMins string `json:"contest_duration"`
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
		logger: logging.WithPlatform(string(models.PlatformCodeChef)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformCodeChef }

// FetchUpcoming returns running and future contests.
func (a *Adapter) FetchUpcoming(ctx context.Context) ([]models.Event, error) {
	var resp listResponse
	if err := a.client.GetJSON(ctx, a.url, &resp); err != nil {
		return nil, fmt.Errorf("codechef contest list: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fetch.ShapeError(a.url, "status %q: %s", resp.Status, resp.Message)
	}
	if resp.PresentContests == nil && resp.FutureContests == nil {
		return nil, fetch.ShapeError(a.url, "no contest arrays in payload")
	}

	raw := append(append([]rawContest{}, resp.PresentContests...), resp.FutureContests...)
	events := make([]models.Event, 0, len(raw))
	for _, rc := range raw {
		e, err := a.toEvent(rc)
		if err != nil {
			a.logger.Warn().Err(err).Str("contest_code", rc.Code).Msg("Skipping contest")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (a *Adapter) toEvent(rc rawContest) (models.Event, error) {
	e := models.Event{
		Platform:   models.PlatformCodeChef,
		ExternalID: rc.Code,
		Name:       rc.Name,
		Mode:       models.ModeOnline,
	}
	if rc.Code != "" {
		e.URL = contestURLBase + rc.Code
	}

	e.StartTime = a.parse("contest_start_date", rc.StartISO, rc.StartText)

	switch {
	case rc.EndISO != "" || rc.EndText != "":
		e.EndTime = a.parse("contest_end_date", rc.EndISO, rc.EndText)
	default:
		if mins, err := strconv.Atoi(strings.TrimSpace(rc.DurationMins)); err == nil {
			e.EndTime = e.StartTime.Add(time.Duration(mins) * time.Minute)
		}
	}

	return a.norm.Finalize(e)
}

// parse tries the ISO field first and the IST display text second.
func (a *Adapter) parse(field, iso, text string) time.Time {
	if iso != "" {
		if t, err := normalize.ParseTime(iso); err == nil {
			return t
		}
	}
	raw := text
	if raw == "" {
		raw = iso
	}
	t, _ := a.norm.Time(models.PlatformCodeChef, field, raw, ist)
	return t
}
