// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package models

import (
	"fmt"
	"strings"
	"time"
)

// Category groups platforms by the kind of event they list.
type Category string

const (
	CategoryContest   Category = "contest"
	CategoryHackathon Category = "hackathon"
)

// Platform identifies an upstream source. The set is closed.
type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformCodeChef   Platform = "codechef"
	PlatformLeetCode   Platform = "leetcode"
	PlatformAtCoder    Platform = "atcoder"

	PlatformDevfolio Platform = "devfolio"
	PlatformMLH      Platform = "mlh"
	PlatformDevpost  Platform = "devpost"
)

// ContestPlatforms lists contest sources in display order.
var ContestPlatforms = []Platform{PlatformCodeforces, PlatformCodeChef, PlatformLeetCode, PlatformAtCoder}

// HackathonPlatforms lists hackathon sources in display order.
var HackathonPlatforms = []Platform{PlatformDevfolio, PlatformMLH, PlatformDevpost}

// AllPlatforms returns contest platforms followed by hackathon platforms.
func AllPlatforms() []Platform {
	out := make([]Platform, 0, len(ContestPlatforms)+len(HackathonPlatforms))
	out = append(out, ContestPlatforms...)
	return append(out, HackathonPlatforms...)
}

// Category returns the category of a known platform, or "" for unknown ones.
func (p Platform) Category() Category {
	switch p {
	case PlatformCodeforces, PlatformCodeChef, PlatformLeetCode, PlatformAtCoder:
		return CategoryContest
	case PlatformDevfolio, PlatformMLH, PlatformDevpost:
		return CategoryHackathon
	default:
		return ""
	}
}

func (p Platform) Valid() bool { return p.Category() != "" }

func (p Platform) String() string { return string(p) }

// ParsePlatform accepts a case-insensitive platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Mode says whether a hackathon happens online, at a venue, or both.
type Mode string

const (
	ModeUnknown  Mode = "unknown"
	ModeOnline   Mode = "online"
	ModeInPerson Mode = "in-person"
	ModeHybrid   Mode = "hybrid"
)

// Status is always derived from the clock; sources' own status strings are ignored.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOpen     Status = "open"
	StatusEnded    Status = "ended"
)

// Event is the canonical record for both contests and hackathons.
// (Platform, ExternalID) is the natural key.
type Event struct {
	Platform   Platform  `json:"platform"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	URL        string    `json:"url"`
	Mode       Mode      `json:"mode,omitempty"`
	Location   string    `json:"location,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`

	// Status is filled in at read time and never persisted.
	Status Status `json:"status,omitempty"`
}

// Key returns "platform:externalId".
func (e *Event) Key() string {
	return EventKey(e.Platform, e.ExternalID)
}

// EventKey builds the natural key without an Event value.
func EventKey(p Platform, externalID string) string {
	return string(p) + ":" + externalID
}

// Duration is EndTime-StartTime, or zero when EndTime is unset.
func (e *Event) Duration() time.Duration {
	if e.EndTime.IsZero() || e.EndTime.Before(e.StartTime) {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// StatusAt derives the lifecycle status at now. An event without an end
// time is treated as instantaneous.
func (e *Event) StatusAt(now time.Time) Status {
	end := e.EndTime
	if end.IsZero() {
		end = e.StartTime
	}
	switch {
	case now.Before(e.StartTime):
		return StatusUpcoming
	case now.Before(end):
		return StatusOpen
	default:
		return StatusEnded
	}
}

// WithStatus returns a copy with Status derived at now.
func (e Event) WithStatus(now time.Time) Event {
	e.Status = e.StatusAt(now)
	return e
}
