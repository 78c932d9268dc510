// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package leetcode queries the leetcode.com GraphQL endpoint for the next
// scheduled contests.
package leetcode

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
)

const upcomingQuery = `query upcomingContests { topTwoContests { title titleSlug startTime duration } }`

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data *struct {
		TopTwoContests []rawContest `json:"topTwoContests"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type rawContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime int64  `json:"startTime"`
	Duration  int64  `json:"duration"`
}

// Adapter implements sources.ContestSource.
type Adapter struct {
	client  sources.Fetcher
	norm    *normalize.Normalizer
	url     string
	baseURL string
	logger  zerolog.Logger
}

// New returns an adapter posting to endpoint. Contest links are built on the
// endpoint's scheme and host.
func New(client sources.Fetcher, norm *normalize.Normalizer, endpoint string) *Adapter {
	base := "https://leetcode.com"
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		base = u.Scheme + "://" + u.Host
	}
	return &Adapter{
		client:  client,
		norm:    norm,
		url:     endpoint,
		baseURL: base,
		logger:  logging.WithPlatform(string(models.PlatformLeetCode)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformLeetCode }

func (a *Adapter) FetchUpcoming(ctx context.Context) ([]models.Event, error) {
	req := graphQLRequest{Query: upcomingQuery, OperationName: "upcomingContests", Variables: map[string]any{}}

	var resp graphQLResponse
	if err := a.client.PostJSON(ctx, a.url, req, &resp); err != nil {
		return nil, fmt.Errorf("leetcode graphql: %w", err)
	}
	if resp.Data == nil {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fetch.ShapeError(a.url, "no data in response: %s", strings.Join(msgs, "; "))
	}
	if len(resp.Errors) > 0 {
		a.logger.Warn().Str("error", resp.Errors[0].Message).Msg("Partial GraphQL response")
	}

	events := make([]models.Event, 0, len(resp.Data.TopTwoContests))
	for _, rc := range resp.Data.TopTwoContests {
		start, end := normalize.FromStartDuration(rc.StartTime, rc.Duration)
		if rc.StartTime <= 0 {
			start, end = a.norm.Now(), a.norm.Now()
			a.logger.Warn().Str("slug", rc.TitleSlug).Msg("Contest without start time, using current time")
		}
		e, err := a.norm.Finalize(models.Event{
			Platform:   models.PlatformLeetCode,
			ExternalID: rc.TitleSlug,
			Name:       rc.Title,
			StartTime:  start,
			EndTime:    end,
			URL:        a.baseURL + "/contest/" + rc.TitleSlug,
			Mode:       models.ModeOnline,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("Skipping contest")
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
