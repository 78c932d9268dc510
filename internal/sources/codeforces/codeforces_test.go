// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package codeforces

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/sources/sourcetest"
)

const contestList = `{
  "status": "OK",
  "result": [
    {"id": 1999, "name": "Codeforces Round 999 (Div. 2)", "type": "CF", "phase": "BEFORE", "frozen": false,
     "durationSeconds": 7200, "startTimeSeconds": 1768050000, "relativeTimeSeconds": -1000},
    {"id": 2001, "name": "Educational Round 180", "type": "ICPC", "phase": "BEFORE",
     "durationSeconds": 7200, "relativeTimeSeconds": -3600},
    {"id": 1998, "name": "Running Round", "type": "CF", "phase": "CODING",
     "durationSeconds": 7200, "startTimeSeconds": 1768045000},
    {"id": 1990, "name": "Old Round", "type": "CF", "phase": "FINISHED",
     "durationSeconds": 7200, "startTimeSeconds": 1700000000}
  ]
}`

func TestFetchUpcoming(t *testing.T) {
	t.Parallel()

	srv := sourcetest.Serve(t, "application/json", contestList)
	a := New(sourcetest.Client(), sourcetest.Normalizer(), srv.URL)

	events, err := a.FetchUpcoming(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcoming() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (finished excluded)", len(events))
	}

	first := events[0]
	if first.ExternalID != "1999" || first.Platform != models.PlatformCodeforces {
		t.Errorf("key = %s", first.Key())
	}
	if first.URL != "https://codeforces.com/contests/1999" {
		t.Errorf("url = %s", first.URL)
	}
	if first.Duration() != 2*time.Hour {
		t.Errorf("duration = %s", first.Duration())
	}
	if !first.StartTime.Equal(time.Unix(1768050000, 0)) {
		t.Errorf("start = %v", first.StartTime)
	}

	// relativeTimeSeconds fallback: -3600 means one hour from now.
	second := events[1]
	if want := sourcetest.Now.Add(time.Hour); !second.StartTime.Equal(want) {
		t.Errorf("relative start = %v, want %v", second.StartTime, want)
	}

	if events[2].Status != models.StatusOpen {
		t.Errorf("CODING contest status = %s, want open", events[2].Status)
	}
}

func TestFetchUpcoming_BadStatus(t *testing.T) {
	t.Parallel()

	srv := sourcetest.Serve(t, "application/json", `{"status":"FAILED","comment":"Call limit exceeded"}`)
	a := New(sourcetest.Client(), sourcetest.Normalizer(), srv.URL)

	if _, err := a.FetchUpcoming(context.Background()); !fetch.IsShape(err) {
		t.Errorf("expected shape error, got %v", err)
	}
}

func TestFetchUpcoming_NotFound(t *testing.T) {
	t.Parallel()

	srv := sourcetest.ServeStatus(t, http.StatusNotFound)
	a := New(sourcetest.Client(), sourcetest.Normalizer(), srv.URL)

	if _, err := a.FetchUpcoming(context.Background()); !fetch.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
