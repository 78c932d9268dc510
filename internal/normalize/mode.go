// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package normalize

import (
	"strings"

	"github.com/tomtom215/contestwatch/internal/models"
)

// Each source words attendance differently. Keys are matched as substrings
// of the lowercased signal; hybrid is checked first because hybrid labels
// usually mention both of the other vocabularies.
var (
	hybridWords   = []string{"hybrid", "digital & in-person", "online & offline", "online and offline"}
	onlineWords   = []string{"online", "virtual", "digital", "remote", "globe", "everywhere", "worldwide"}
	inPersonWords = []string{"in-person", "in person", "inperson", "offline", "physical", "onsite", "on-site", "venue", "map-marker"}
)

// Mode maps the first recognizable signal onto the Mode enum. Signals are
// tried in order, so callers pass their most reliable field first.
func Mode(signals ...string) models.Mode {
	for _, s := range signals {
		if m := modeOf(s); m != models.ModeUnknown {
			return m
		}
	}
	return models.ModeUnknown
}

func modeOf(signal string) models.Mode {
	s := strings.ToLower(strings.TrimSpace(signal))
	if s == "" {
		return models.ModeUnknown
	}
	switch {
	case containsAny(s, hybridWords):
		return models.ModeHybrid
	case containsAny(s, inPersonWords):
		return models.ModeInPerson
	case containsAny(s, onlineWords):
		return models.ModeOnline
	}
	return models.ModeUnknown
}

// ModeFromFlags maps boolean attendance flags as exposed by JSON APIs.
func ModeFromFlags(online, inPerson bool) models.Mode {
	switch {
	case online && inPerson:
		return models.ModeHybrid
	case online:
		return models.ModeOnline
	case inPerson:
		return models.ModeInPerson
	default:
		return models.ModeUnknown
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
