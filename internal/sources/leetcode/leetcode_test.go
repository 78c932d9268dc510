// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package leetcode

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/contestwatch/internal/fetch"
	"github.com/tomtom215/contestwatch/internal/sources/sourcetest"
)

func TestFetchUpcoming(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := sourcetest.ServeFunc(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery, _ = body["query"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"topTwoContests":[
			{"title":"Weekly Contest 484","titleSlug":"weekly-contest-484","startTime":1768098600,"duration":5400},
			{"title":"","titleSlug":"biweekly-contest-174","startTime":1768141800,"duration":5400},
			{"title":"No slug","titleSlug":"","startTime":1768141800,"duration":5400}
		]}}`))
	})

	a := New(sourcetest.Client(), sourcetest.Normalizer(), srv.URL+"/graphql")
	events, err := a.FetchUpcoming(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcoming() error = %v", err)
	}
	if !strings.Contains(gotQuery, "topTwoContests") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	weekly := events[0]
	if weekly.URL != srv.URL+"/contest/weekly-contest-484" {
		t.Errorf("url = %s", weekly.URL)
	}
	if weekly.Duration() != 90*time.Minute {
		t.Errorf("duration = %s", weekly.Duration())
	}
	if events[1].Name != "biweekly-contest-174" {
		t.Errorf("name fallback = %q", events[1].Name)
	}
}

func TestFetchUpcoming_GraphQLErrors(t *testing.T) {
	t.Parallel()

	srv := sourcetest.Serve(t, "application/json", `{"errors":[{"message":"rate limited"}]}`)
	a := New(sourcetest.Client(), sourcetest.Normalizer(), srv.URL)
	if _, err := a.FetchUpcoming(context.Background()); !fetch.IsShape(err) {
		t.Fatalf("expected shape error, got %v", err)
	}
}
