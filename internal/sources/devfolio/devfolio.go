// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package devfolio reads the search endpoint behind devfolio.co's hackathon
// listing. The endpoint is undocumented and its document shape has moved
// between releases, so every field is looked up through ordered fallbacks.
package devfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/sources/extract"
)

// PageSize is the number of hits requested per call.
const PageSize = 100

type searchRequest struct {
	Type string `json:"type"`
	From int    `json:"from"`
	Size int    `json:"size"`
}

// Field fallbacks, most specific first.
var (
	hitPaths      = []string{"hits.hits", "hits", "results"}
	idPaths       = []string{"_source.uuid", "_source.slug", "_id", "uuid", "slug"}
	namePaths     = []string{"_source.name", "name"}
	startPaths    = []string{"_source.starts_at", "_source.hackathon_setting.starts_at", "starts_at"}
	endPaths      = []string{"_source.ends_at", "_source.hackathon_setting.ends_at", "ends_at"}
	onlinePaths   = []string{"_source.is_online", "is_online"}
	modePaths     = []string{"_source.type", "_source.hackathon_setting.type", "type"}
	locationPaths = []string{"_source.location", "_source.city", "location", "city"}
	sitePaths     = []string{"_source.hackathon_setting.site", "_source.site", "site"}
	subPaths      = []string{"_source.hackathon_setting.subdomain", "_source.subdomain", "_source.slug", "slug"}
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
		logger: logging.WithPlatform(string(models.PlatformDevfolio)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformDevfolio }

// FetchListing returns hackathons currently accepting applications.
func (a *Adapter) FetchListing(ctx context.Context) ([]models.Event, error) {
	var resp map[string]any
	req := searchRequest{Type: "application_open", From: 0, Size: PageSize}
	if err := a.client.PostJSON(ctx, a.url, req, &resp); err != nil {
		return nil, fmt.Errorf("devfolio search: %w", err)
	}

	hits := extract.FirstList(resp, hitPaths...)
	if hits == nil {
		if _, ok := extract.Lookup(resp, "hits"); !ok {
			return nil, fetch.ShapeError(a.url, "no hits in search response")
		}
		return nil, nil
	}

	events := make([]models.Event, 0, len(hits))
	for _, hit := range hits {
		e, err := a.toEvent(hit)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Skipping hackathon")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (a *Adapter) toEvent(hit map[string]any) (models.Event, error) {
	e := models.Event{
		Platform:   models.PlatformDevfolio,
		ExternalID: extract.FirstString(hit, idPaths...),
		Name:       extract.FirstString(hit, namePaths...),
		Location:   extract.FirstString(hit, locationPaths...),
		URL:        extract.FirstString(hit, sitePaths...),
	}
	if e.URL == "" {
		if sub := extract.FirstString(hit, subPaths...); sub != "" {
			e.URL = "https://" + sub + ".devfolio.co"
		}
	}

	e.StartTime, _ = a.norm.Time(models.PlatformDevfolio, "starts_at", extract.FirstString(hit, startPaths...), nil)
	if raw := extract.FirstString(hit, endPaths...); raw != "" {
		e.EndTime, _ = a.norm.Time(models.PlatformDevfolio, "ends_at", raw, nil)
	}

	e.Mode = normalize.Mode(extract.FirstString(hit, modePaths...))
	if e.Mode == models.ModeUnknown {
		if online, ok := extract.FirstBool(hit, onlinePaths...); ok {
			e.Mode = normalize.ModeFromFlags(online, !online)
		} else {
			e.Mode = normalize.Mode(e.Location)
		}
	}

	return a.norm.Finalize(e)
}
