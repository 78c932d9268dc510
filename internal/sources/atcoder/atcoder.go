// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package atcoder scrapes the atcoder.jp contest index. AtCoder has no
// public listing API, so rows are read out of the "active" and "upcoming"
// tables, falling back to any table headed by a "Start Time" column.
package atcoder

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/sources/extract"
)

// jst is assumed for timestamps rendered without an offset.
var jst = time.FixedZone("JST", 9*3600)

const primaryRows = "#contest-table-action tbody tr, #contest-table-upcoming tbody tr"

type Adapter struct {
	client  sources.Fetcher
	norm    *normalize.Normalizer
	url     string
	baseURL string
	logger  zerolog.Logger
}

func New(client sources.Fetcher, norm *normalize.Normalizer, pageURL string) *Adapter {
	base := "https://atcoder.jp"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		base = u.Scheme + "://" + u.Host
	}
	return &Adapter{
		client:  client,
		norm:    norm,
		url:     pageURL,
		baseURL: base,
		logger:  logging.WithPlatform(string(models.PlatformAtCoder)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformAtCoder }

func (a *Adapter) FetchUpcoming(ctx context.Context) ([]models.Event, error) {
	body, err := a.client.Fetch(ctx, a.url)
	if err != nil {
		return nil, fmt.Errorf("atcoder contests page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fetch.ShapeError(a.url, "parse html: %v", err)
	}

	rows := doc.Find(primaryRows)
	if rows.Length() == 0 {
		rows = a.fallbackRows(doc)
		if rows.Length() > 0 {
			a.logger.Debug().Int("rows", rows.Length()).Msg("Primary tables missing, using header match")
		}
	}
	if rows.Length() == 0 {
		return nil, fetch.ShapeError(a.url, "no contest tables found")
	}

	seen := make(map[string]bool)
	events := make([]models.Event, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		e, err := a.rowToEvent(row)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Skipping contest row")
			return
		}
		if seen[e.ExternalID] {
			return
		}
		seen[e.ExternalID] = true
		events = append(events, e)
	})
	return events, nil
}

// fallbackRows finds body rows of tables whose first header cell reads
// "Start Time" and which are not the archive of ended contests.
func (a *Adapter) fallbackRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table").FilterFunction(func(_ int, table *goquery.Selection) bool {
		if table.ParentsFiltered("#contest-table-recent, #contest-table-permanent").Length() > 0 {
			return false
		}
		head := strings.ToLower(table.Find("thead th").First().Text())
		return strings.Contains(head, "start time")
	}).Find("tbody tr")
}

func (a *Adapter) rowToEvent(row *goquery.Selection) (models.Event, error) {
	cells := row.Find("td")
	if cells.Length() < 3 {
		return models.Event{}, fmt.Errorf("row has %d cells", cells.Length())
	}

	href := extract.FirstAttr(cells.Eq(1), "href", `a[href*="/contests/"]`, "a")
	slug := extract.LastPathSegment(href)

	e := models.Event{
		Platform:   models.PlatformAtCoder,
		ExternalID: slug,
		Name:       extract.FirstText(cells.Eq(1), `a[href*="/contests/"]`, "a"),
		Mode:       models.ModeOnline,
	}
	if slug != "" {
		e.URL = a.baseURL + "/contests/" + slug
	}

	rawStart := extract.FirstText(cells.Eq(0), "time", "a")
	if rawStart == "" {
		rawStart = strings.TrimSpace(cells.Eq(0).Text())
	}
	e.StartTime, _ = a.norm.Time(models.PlatformAtCoder, "start_time", rawStart, jst)

	if d, ok := parseDuration(cells.Eq(2).Text()); ok {
		e.EndTime = e.StartTime.Add(d)
	} else {
		a.logger.Debug().Str("contest", slug).Str("raw", cells.Eq(2).Text()).Msg("Unparseable duration")
	}

	return a.norm.Finalize(e)
}

// parseDuration reads "hh:mm" where hh may exceed 24.
func parseDuration(s string) (time.Duration, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hours, err1 := strconv.Atoi(h)
	mins, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hours < 0 || mins < 0 || mins >= 60 {
		return 0, false
	}
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute, true
}
