// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package devpost reads the JSON endpoint behind devpost.com/hackathons.
// Dates only come as display text ("Jan 10 - Feb 02, 2026") and are parsed
// with normalize.ParseRange.
package devpost

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/sources/extract"
)

// MaxPages bounds pagination per listing call.
const MaxPages = 3

var (
	listPaths     = []string{"hackathons", "data", "results"}
	datePaths     = []string{"submission_period_dates", "dates", "date_range"}
	locationPaths = []string{"displayed_location.location", "location"}
	iconPaths     = []string{"displayed_location.icon"}
)

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
		logger: logging.WithPlatform(string(models.PlatformDevpost)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformDevpost }

// FetchListing walks up to MaxPages pages. A failure after the first page
// keeps what was already collected.
func (a *Adapter) FetchListing(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	seen := make(map[string]bool)

	for page := 1; page <= MaxPages; page++ {
		pageURL, err := withPage(a.url, page)
		if err != nil {
			return nil, fmt.Errorf("devpost url: %w", err)
		}

		var resp map[string]any
		if err := a.client.GetJSON(ctx, pageURL, &resp); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("devpost hackathons: %w", err)
			}
			a.logger.Warn().Err(err).Int("page", page).Msg("Stopping pagination early")
			break
		}

		items := extract.FirstList(resp, listPaths...)
		if items == nil {
			if page == 1 {
				if _, ok := extract.Lookup(resp, "hackathons"); !ok {
					return nil, fetch.ShapeError(pageURL, "no hackathons array")
				}
			}
			break
		}
		for _, item := range items {
			e, err := a.toEvent(item)
			if err != nil {
				a.logger.Warn().Err(err).Msg("Skipping hackathon")
				continue
			}
			if seen[e.ExternalID] {
				continue
			}
			seen[e.ExternalID] = true
			events = append(events, e)
		}

		if !hasMore(resp, page, len(items)) {
			break
		}
	}
	return events, nil
}

func (a *Adapter) toEvent(item map[string]any) (models.Event, error) {
	e := models.Event{
		Platform:   models.PlatformDevpost,
		ExternalID: extract.FirstString(item, "id", "url"),
		Name:       extract.FirstString(item, "title", "name"),
		URL:        extract.FirstString(item, "url"),
		Location:   extract.FirstString(item, locationPaths...),
	}
	e.StartTime, e.EndTime, _ = a.norm.Range(models.PlatformDevpost, "submission_period_dates", extract.FirstString(item, datePaths...))
	e.Mode = normalize.Mode(extract.FirstString(item, iconPaths...), e.Location)
	return a.norm.Finalize(e)
}

// hasMore reports whether another page exists according to meta.
func hasMore(resp map[string]any, page, got int) bool {
	total, ok := extract.FirstInt64(resp, "meta.total_count")
	if !ok || got == 0 {
		return false
	}
	perPage, ok := extract.FirstInt64(resp, "meta.per_page")
	if !ok || perPage <= 0 {
		perPage = int64(got)
	}
	return int64(page)*perPage < total
}

func withPage(raw string, page int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
