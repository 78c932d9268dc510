// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	time.RFC1123Z,
	time.RFC1123,
}

// naiveLayouts are interpreted in the caller's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02 Jan 2006 15:04:05",
	"02 Jan 2006 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseTime parses an absolute timestamp in UTC. Naive layouts are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	return ParseTimeIn(s, time.UTC)
}

// ParseTimeIn parses s, interpreting layouts without an offset in loc.
// Accepted: RFC3339 variants, epoch seconds or milliseconds, and a handful
// of common date/time layouts. The result is always UTC.
func ParseTimeIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, ok := parseEpoch(s); ok {
		return t, nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(stripOrdinals(s), ",", " ")), " ")
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %q", s)
}

// parseEpoch accepts 10-digit seconds or 13-digit milliseconds.
func parseEpoch(s string) (time.Time, bool) {
	if len(s) != 10 && len(s) != 13 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if len(s) == 13 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

// FromStartDuration converts epoch seconds plus a duration in seconds into
// a UTC window.
func FromStartDuration(startEpoch, durationSeconds int64) (time.Time, time.Time) {
	start := time.Unix(startEpoch, 0).UTC()
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return start, start.Add(time.Duration(durationSeconds) * time.Second)
}

var (
	ordinalRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	rangeSepRe  = regexp.MustCompile(`(?i)\s*(?:\s-\s|-|–|—|\bto\b|\buntil\b|\bthrough\b)\s*`)
	dashNormRe  = regexp.MustCompile(`[‐‑‒–—―]`)
	yearTokenRe = regexp.MustCompile(`^\d{4}$`)
	dayTokenRe  = regexp.MustCompile(`^\d{1,2}$`)
)

func stripOrdinals(s string) string {
	return ordinalRe.ReplaceAllString(s, "$1")
}

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// partialDate is one side of a text range; zero fields are unknown.
type partialDate struct {
	year  int
	month time.Month
	day   int
}

func parsePartial(side string) partialDate {
	var p partialDate
	for _, tok := range strings.Fields(side) {
		tok = strings.Trim(tok, ".")
		lower := strings.ToLower(tok)
		switch {
		case yearTokenRe.MatchString(tok):
			p.year, _ = strconv.Atoi(tok)
		case dayTokenRe.MatchString(tok):
			d, _ := strconv.Atoi(tok)
			if d >= 1 && d <= 31 {
				p.day = d
			}
		case len(lower) >= 3:
			if m, ok := monthsByPrefix[lower[:3]]; ok {
				p.month = m
			}
		}
	}
	return p
}

// ParseRange parses loosely formatted date ranges such as
// "Jan 10th – 12th, 2026", "Dec 30, 2025 - Jan 2, 2026" or "Mar 3 - Apr 1".
// Ordinal suffixes are stripped and the text is split on the first range
// separator; missing month or year on one side is taken from the other, and
// a missing year on both sides comes from ref. A single date yields a
// one-day window. The end is exclusive: midnight after the last day.
func ParseRange(text string, ref time.Time) (time.Time, time.Time, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("empty date range")
	}
	if t, err := ParseTime(raw); err == nil {
		return t, t.AddDate(0, 0, 1), nil
	}

	cleaned := dashNormRe.ReplaceAllString(raw, "-")
	cleaned = strings.ReplaceAll(stripOrdinals(cleaned), ",", " ")

	parts := rangeSepRe.Split(cleaned, 2)
	startP := parsePartial(parts[0])
	endP := startP
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		endP = parsePartial(parts[1])
	}

	if startP.day == 0 && startP.month == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no date found in %q", raw)
	}

	if endP.month == 0 {
		endP.month = startP.month
	}
	if startP.month == 0 {
		startP.month = endP.month
	}
	if endP.day == 0 {
		endP.day = startP.day
	}
	if startP.day == 0 {
		startP.day = 1
	}
	if startP.month == 0 || endP.month == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no month found in %q", raw)
	}

	bothInherited := startP.year == 0 && endP.year == 0
	startYearInherited := startP.year == 0
	endYearInherited := endP.year == 0
	switch {
	case startP.year == 0 && endP.year == 0:
		startP.year, endP.year = ref.Year(), ref.Year()
	case startP.year == 0:
		startP.year = endP.year
	case endP.year == 0:
		endP.year = startP.year
	}

	start := time.Date(startP.year, startP.month, startP.day, 0, 0, 0, 0, time.UTC)
	end := time.Date(endP.year, endP.month, endP.day, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		switch {
		case bothInherited:
			end = end.AddDate(1, 0, 0)
		case startYearInherited:
			start = start.AddDate(-1, 0, 0)
		case endYearInherited:
			end = end.AddDate(1, 0, 0)
		default:
			return time.Time{}, time.Time{}, fmt.Errorf("range %q ends before it starts", raw)
		}
	}
	if !validDay(startP) || !validDay(endP) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day in %q", raw)
	}
	return start, end.AddDate(0, 0, 1), nil
}

// validDay rejects dates that time.Date would silently roll over, like Feb 31.
func validDay(p partialDate) bool {
	t := time.Date(p.year, p.month, p.day, 0, 0, 0, 0, time.UTC)
	return t.Day() == p.day
}
