// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/contestwatch/internal/validation"
)

// ListContestsRequest is the query of GET /api/v1/contests.
type ListContestsRequest struct {
	Platform string `query:"platform" validate:"omitempty,contest_platform"`
	Limit    int    `query:"limit" validate:"min=0"`
}

// ListHackathonsRequest is the query of GET /api/v1/hackathons.
type ListHackathonsRequest struct {
	Location string `query:"location" validate:"max=100"`
	Refresh  bool   `query:"refresh"`
}

// EventsRequest is the query of GET /api/v1/events and the calendar feed.
type EventsRequest struct {
	Platforms []string `query:"platform" validate:"dive,platform"`
	Category  string   `query:"category" validate:"omitempty,category"`
	From      string   `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string   `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Location  string   `query:"location" validate:"max=100"`
	Limit     int      `query:"limit" validate:"min=0"`
	Offset    int      `query:"offset" validate:"min=0,max=100000"`
}

// TimeRange parses From and To. Validation has already checked the format.
func (r *EventsRequest) TimeRange() (from, to time.Time, err error) {
	if r.From != "" {
		if from, err = time.Parse(time.RFC3339, r.From); err != nil {
			return from, to, err
		}
	}
	if r.To != "" {
		if to, err = time.Parse(time.RFC3339, r.To); err != nil {
			return from, to, err
		}
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return from, to, fmt.Errorf("to must be after from")
	}
	return from, to, nil
}

// paramError is a query value that could not be converted at all.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s: invalid value %q", e.name, e.value)
}

func parseListContests(q url.Values) (ListContestsRequest, error) {
	limit, err := intParam(q, "limit")
	if err != nil {
		return ListContestsRequest{}, err
	}
	req := ListContestsRequest{Platform: strings.TrimSpace(q.Get("platform")), Limit: limit}
	return req, validation.Struct(&req)
}

func parseListHackathons(q url.Values) (ListHackathonsRequest, error) {
	refresh, err := boolParam(q, "refresh")
	if err != nil {
		return ListHackathonsRequest{}, err
	}
	req := ListHackathonsRequest{Location: strings.TrimSpace(q.Get("location")), Refresh: refresh}
	return req, validation.Struct(&req)
}

func parseEvents(q url.Values) (EventsRequest, error) {
	limit, err := intParam(q, "limit")
	if err != nil {
		return EventsRequest{}, err
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		return EventsRequest{}, err
	}
	req := EventsRequest{
		Platforms: listParam(q, "platform"),
		Category:  strings.ToLower(strings.TrimSpace(q.Get("category"))),
		From:      strings.TrimSpace(q.Get("from")),
		To:        strings.TrimSpace(q.Get("to")),
		Location:  strings.TrimSpace(q.Get("location")),
		Limit:     limit,
		Offset:    offset,
	}
	return req, validation.Struct(&req)
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, value: raw}
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &paramError{name: name, value: raw}
	}
	return b, nil
}

// listParam accepts both repeated and comma-separated values.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
