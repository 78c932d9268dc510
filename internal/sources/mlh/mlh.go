// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package mlh scrapes the Major League Hacking season listing.
//
// Newer pages embed the event list as JSON in the data-page attribute of
// the #app element. Older pages render one .event-wrapper per event with
// schema.org microdata. Both are tried, in that order. Dates on the DOM
// path come from the startDate/endDate meta tags, then from the visible
// date text, then from any date-looking substring of the card.
package mlh

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/sources/extract"
)

// SeasonPlaceholder in the configured URL is replaced by the season year.
const SeasonPlaceholder = "{season}"

var (
	dateTextRe = regexp.MustCompile(`(?i)\b((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?` +
		`(?:\s*(?:-|–|—|to)\s*(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+)?\d{1,2}(?:st|nd|rd|th)?)?` +
		`(?:,?\s+\d{4})?)`)
	slugRe = regexp.MustCompile(`[^a-z0-9]+`)

	eventListPaths = []string{"props.upcomingEvents", "props.events", "props.upcoming_events", "events"}
	idPaths        = []string{"slug", "id", "uuid"}
	startPaths     = []string{"startsAt", "starts_at", "startDate", "start_date"}
	endPaths       = []string{"endsAt", "ends_at", "endDate", "end_date"}
	modePaths      = []string{"formatType", "format_type", "eventType", "format"}
	locationPaths  = []string{"location", "venueAddress.city", "city"}
	urlPaths       = []string{"url", "websiteUrl", "website"}
)

type Adapter struct {
	client      sources.Fetcher
	norm        *normalize.Normalizer
	urlTemplate string
	logger      zerolog.Logger
}

func New(client sources.Fetcher, norm *normalize.Normalizer, urlTemplate string) *Adapter {
	return &Adapter{
		client:      client,
		norm:        norm,
		urlTemplate: urlTemplate,
		logger:      logging.WithPlatform(string(models.PlatformMLH)),
	}
}

func (a *Adapter) Platform() models.Platform { return models.PlatformMLH }

// Season returns the MLH season year for t. Seasons roll over in August.
func Season(t time.Time) int {
	if t.Month() >= time.August {
		return t.Year() + 1
	}
	return t.Year()
}

// URL returns the listing URL for the current season.
func (a *Adapter) URL() string {
	return strings.ReplaceAll(a.urlTemplate, SeasonPlaceholder, strconv.Itoa(Season(a.norm.Now())))
}

func (a *Adapter) FetchListing(ctx context.Context) ([]models.Event, error) {
	pageURL := a.URL()
	body, err := a.client.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("mlh season page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fetch.ShapeError(pageURL, "parse html: %v", err)
	}

	events, ok := a.fromDataPage(doc)
	if !ok {
		events, ok = a.fromDOM(doc)
	}
	if !ok {
		return nil, fetch.ShapeError(pageURL, "no event data found")
	}
	return events, nil
}

// fromDataPage reads the embedded page props. ok is false when the
// attribute is absent or holds no recognizable event list.
func (a *Adapter) fromDataPage(doc *goquery.Document) ([]models.Event, bool) {
	raw := extract.FirstAttr(doc.Selection, "data-page", "#app", "[data-page]")
	if raw == "" {
		return nil, false
	}
	var page map[string]any
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		a.logger.Warn().Err(err).Msg("Invalid data-page JSON, trying DOM")
		return nil, false
	}
	items := extract.FirstList(page, eventListPaths...)
	if items == nil {
		return nil, false
	}

	events := make([]models.Event, 0, len(items))
	for _, item := range items {
		e := models.Event{
			Platform: models.PlatformMLH,
			Name:     extract.FirstString(item, "name", "title"),
			URL:      extract.FirstString(item, urlPaths...),
			Location: extract.FirstString(item, locationPaths...),
		}
		e.ExternalID = extract.FirstString(item, idPaths...)
		e.StartTime, _ = a.norm.Time(models.PlatformMLH, "startsAt", extract.FirstString(item, startPaths...), nil)
		if end := extract.FirstString(item, endPaths...); end != "" {
			e.EndTime, _ = a.norm.Time(models.PlatformMLH, "endsAt", end, nil)
			e.EndTime = inclusiveDayEnd(end, e.EndTime)
		}
		e.Mode = normalize.Mode(extract.FirstString(item, modePaths...), e.Location)
		if e.ExternalID == "" {
			e.ExternalID = stableID(e.URL, e.Name)
		}
		a.appendFinal(&events, e)
	}
	return events, true
}

func (a *Adapter) fromDOM(doc *goquery.Document) ([]models.Event, bool) {
	cards := doc.Find(".event-wrapper, .event")
	if cards.Length() == 0 {
		return nil, false
	}
	events := make([]models.Event, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if card.ParentsFiltered(".event-wrapper").Length() > 0 {
			return
		}
		e := models.Event{
			Platform: models.PlatformMLH,
			Name:     extract.FirstText(card, ".event-name", "h3", "[itemprop=name]"),
			URL:      extract.FirstAttr(card, "href", "a.event-link", "a[itemprop=url]", "a"),
		}

		start, end := a.domDates(card)
		e.StartTime, e.EndTime = start, end

		city := extract.FirstText(card, "[itemprop=city]", "[itemprop=addressLocality]")
		state := extract.FirstText(card, "[itemprop=state]", "[itemprop=addressRegion]")
		e.Location = strings.Trim(strings.Join([]string{city, state}, ", "), ", ")
		if e.Location == "" {
			e.Location = extract.FirstText(card, ".event-location")
		}

		e.Mode = normalize.Mode(
			extract.FirstText(card, ".event-hybrid-notes", ".event-format"),
			extract.FirstAttr(card, "content", "meta[itemprop=eventAttendanceMode]"),
			e.Location,
		)
		e.ExternalID = extract.FirstAttr(card, "id", "")
		if e.ExternalID == "" {
			e.ExternalID = stableID(e.URL, e.Name)
		}
		a.appendFinal(&events, e)
	})
	return events, true
}

// domDates walks the date fallbacks of a DOM card.
func (a *Adapter) domDates(card *goquery.Selection) (time.Time, time.Time) {
	startMeta := extract.FirstAttr(card, "content", "meta[itemprop=startDate]")
	endMeta := extract.FirstAttr(card, "content", "meta[itemprop=endDate]")
	if startMeta != "" {
		if start, err := normalize.ParseTime(startMeta); err == nil {
			end := start
			if t, err := normalize.ParseTime(endMeta); err == nil {
				end = inclusiveDayEnd(endMeta, t)
			}
			return start, end
		}
	}

	text := extract.FirstText(card, ".event-date", "[itemprop=startDate]")
	if text == "" {
		text = extract.FirstMatch(strings.Join(strings.Fields(card.Text()), " "), dateTextRe)
	}
	start, end, _ := a.norm.Range(models.PlatformMLH, "event-date", text)
	return start, end
}

func (a *Adapter) appendFinal(events *[]models.Event, e models.Event) {
	final, err := a.norm.Finalize(e)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Skipping event")
		return
	}
	*events = append(*events, final)
}

// inclusiveDayEnd turns a bare end date into midnight after that day.
func inclusiveDayEnd(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// stableID keys events that carry no identifier of their own. It is derived
// from the event link (host and path, without query), falling back to the
// name, and never from dates, which MLH revises as events get scheduled.
func stableID(rawURL, name string) string {
	basis := name
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u.Host != "" {
		basis = strings.TrimPrefix(strings.ToLower(u.Host), "www.") + u.Path
	}
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(basis), "-"), "-")
}
