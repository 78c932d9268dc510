// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package normalize turns source-specific values into canonical Event fields.
//
// Parsing never fails a record because of a bad date: the value degrades to
// the current time and a warning carrying the raw text is logged.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/contestwatch/internal/logging"
	"github.com/tomtom215/contestwatch/internal/models"
)

// ErrInvalidRecord is returned by Finalize for records that cannot be keyed.
var ErrInvalidRecord = errors.New("invalid record")

// Normalizer carries the clock used for fallbacks and status derivation.
type Normalizer struct {
	now    func() time.Time
	logger zerolog.Logger
}

// New returns a Normalizer. A nil clock means time.Now.
func New(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now, logger: logging.WithComponent("normalize")}
}

// Now returns the normalizer's current time in UTC.
func (n *Normalizer) Now() time.Time {
	return n.now().UTC()
}

// Time parses raw in loc. On failure it returns now and ok=false after
// logging the raw value.
func (n *Normalizer) Time(platform models.Platform, field, raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := ParseTimeIn(raw, loc)
	if err != nil {
		return n.fallback(platform, field, raw, err), false
	}
	return t, true
}

// Range parses a text date range. On failure both ends fall back to now.
func (n *Normalizer) Range(platform models.Platform, field, raw string) (time.Time, time.Time, bool) {
	now := n.Now()
	start, end, err := ParseRange(raw, now)
	if err != nil {
		fb := n.fallback(platform, field, raw, err)
		return fb, fb, false
	}
	return start, end, true
}

func (n *Normalizer) fallback(platform models.Platform, field, raw string, err error) time.Time {
	now := n.Now()
	n.logger.Warn().
		Str("platform", string(platform)).
		Str("field", field).
		Str("raw", truncate(raw, 120)).
		Err(err).
		Time("fallback", now).
		Msg("Unparseable date, falling back to current time")
	return now
}

// Finalize validates and completes an event: trims text, forces UTC,
// fills a missing or inverted end from the start, and derives Status.
func (n *Normalizer) Finalize(e models.Event) (models.Event, error) {
	e.ExternalID = strings.TrimSpace(e.ExternalID)
	e.Name = strings.Join(strings.Fields(e.Name), " ")
	e.URL = strings.TrimSpace(e.URL)
	e.Location = strings.Join(strings.Fields(e.Location), " ")

	if !e.Platform.Valid() {
		return e, fmt.Errorf("%w: unknown platform %q", ErrInvalidRecord, e.Platform)
	}
	if e.ExternalID == "" {
		return e, fmt.Errorf("%w: %s record without id (name %q)", ErrInvalidRecord, e.Platform, e.Name)
	}
	if e.Name == "" {
		e.Name = e.ExternalID
	}
	if e.StartTime.IsZero() {
		e.StartTime = n.fallback(e.Platform, "start_time", "", errors.New("missing"))
	}

	e.StartTime = e.StartTime.UTC().Truncate(time.Second)
	e.EndTime = e.EndTime.UTC().Truncate(time.Second)
	if e.EndTime.IsZero() || e.EndTime.Before(e.StartTime) {
		e.EndTime = e.StartTime
	}
	if e.Mode == "" {
		e.Mode = models.ModeUnknown
	}
	if e.Platform.Category() == models.CategoryContest && e.Mode == models.ModeUnknown {
		e.Mode = models.ModeOnline
	}

	e.Status = e.StatusAt(n.Now())
	return e, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
