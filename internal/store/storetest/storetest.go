// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package storetest is a conformance suite run against every store.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/store"
)

// Now anchors every fixture.
var Now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Event builds a fixture starting at Now+offset and lasting two hours.
func Event(p models.Platform, id string, offset time.Duration) models.Event {
	start := Now.Add(offset)
	mode := models.ModeOnline
	if p.Category() == models.CategoryHackathon {
		mode = models.ModeUnknown
	}
	return models.Event{
		Platform:   p,
		ExternalID: id,
		Name:       string(p) + " " + id,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		URL:        "https://example.org/" + id,
		Mode:       mode,
		LastSeenAt: Now,
	}
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UpsertIsIdempotent", testUpsertIsIdempotent},
		{"FindFiltersAndSorts", testFindFiltersAndSorts},
		{"FindPaginates", testFindPaginates},
		{"CountDocuments", testCountDocuments},
		{"DeleteManyPrunesStaleOnly", testDeleteManyPrunesStaleOnly},
		{"DeleteManyRejectsOpenPredicate", testDeleteManyRejectsOpenPredicate},
		{"DeleteManyScopedToPlatforms", testDeleteManyScopedToPlatforms},
		{"Distinct", testDistinct},
		{"ClosedStoreErrors", testClosedStoreErrors},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func mustUpsert(t *testing.T, s store.Store, events ...models.Event) {
	t.Helper()
	for _, e := range events {
		if err := s.Upsert(context.Background(), e); err != nil {
			t.Fatalf("Upsert(%s) error = %v", e.Key(), err)
		}
	}
}

func keys(events []models.Event) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].Key()
	}
	return out
}

func testUpsertIsIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := Event(models.PlatformCodeforces, "1999", time.Hour)
	mustUpsert(t, s, e)

	e.Name = "Renamed Round"
	e.StartTime = e.StartTime.Add(30 * time.Minute)
	e.LastSeenAt = Now.Add(time.Minute)
	mustUpsert(t, s, e)

	got, err := s.Find(ctx, store.Filter{}, store.SortStartAsc, 0)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after double upsert, want 1", len(got))
	}
	if got[0].Name != "Renamed Round" {
		t.Errorf("name = %q, want overwrite", got[0].Name)
	}
	if !got[0].StartTime.Equal(e.StartTime) || !got[0].LastSeenAt.Equal(e.LastSeenAt) {
		t.Errorf("start=%v lastSeen=%v, want %v / %v", got[0].StartTime, got[0].LastSeenAt, e.StartTime, e.LastSeenAt)
	}
	if got[0].URL != e.URL || got[0].Mode != e.Mode {
		t.Errorf("round trip lost fields: %+v", got[0])
	}
}

func testFindFiltersAndSorts(t *testing.T, s store.Store) {
	ctx := context.Background()
	paris := Event(models.PlatformDevpost, "paris", 5*time.Hour)
	paris.Location = "Paris, France"
	mustUpsert(t, s,
		Event(models.PlatformCodeforces, "b", 3*time.Hour),
		Event(models.PlatformCodeforces, "a", 3*time.Hour),
		Event(models.PlatformCodeChef, "c", time.Hour),
		Event(models.PlatformAtCoder, "old", -48*time.Hour),
		paris,
	)

	tests := []struct {
		name   string
		filter store.Filter
		sort   store.Sort
		limit  int
		want   []string
	}{
		{
			name:   "upcoming ascending with tie break",
			filter: store.Filter{StartAfter: Now},
			want:   []string{"codechef:c", "codeforces:a", "codeforces:b", "devpost:paris"},
		},
		{
			name:   "descending",
			filter: store.Filter{StartAfter: Now},
			sort:   store.SortStartDesc,
			want:   []string{"devpost:paris", "codeforces:a", "codeforces:b", "codechef:c"},
		},
		{
			name:   "platform",
			filter: store.Filter{Platforms: []models.Platform{models.PlatformCodeforces}},
			want:   []string{"codeforces:a", "codeforces:b"},
		},
		{
			name:   "category",
			filter: store.Filter{Category: models.CategoryHackathon},
			want:   []string{"devpost:paris"},
		},
		{
			name:   "location is case insensitive",
			filter: store.Filter{Location: "paris"},
			want:   []string{"devpost:paris"},
		},
		{
			name:   "window",
			filter: store.Filter{StartAfter: Now.Add(-72 * time.Hour), StartBefore: Now.Add(2 * time.Hour)},
			want:   []string{"atcoder:old", "codechef:c"},
		},
		{
			name:   "not ended",
			filter: store.Filter{EndAfter: Now.Add(4 * time.Hour)},
			want:   []string{"codeforces:a", "codeforces:b", "devpost:paris"},
		},
		{
			name:  "limit",
			limit: 2,
			want:  []string{"atcoder:old", "codechef:c"},
		},
	}
	for _, tt := range tests {
		got, err := s.Find(ctx, tt.filter, tt.sort, tt.limit)
		if err != nil {
			t.Fatalf("%s: Find() error = %v", tt.name, err)
		}
		if !reflect.DeepEqual(keys(got), tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, keys(got), tt.want)
		}
	}
}

func testFindPaginates(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		mustUpsert(t, s, Event(models.PlatformLeetCode, id, time.Duration(i+1)*time.Hour))
	}
	got, err := s.Find(ctx, store.Filter{Offset: 2}, store.SortStartAsc, 2)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if want := []string{"leetcode:p3", "leetcode:p4"}; !reflect.DeepEqual(keys(got), want) {
		t.Errorf("page = %v, want %v", keys(got), want)
	}

	got, err = s.Find(ctx, store.Filter{Offset: 10}, store.SortStartAsc, 2)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("offset past end returned %v", keys(got))
	}
}

func testCountDocuments(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustUpsert(t, s,
		Event(models.PlatformCodeforces, "1", time.Hour),
		Event(models.PlatformCodeforces, "2", 2*time.Hour),
		Event(models.PlatformMLH, "3", -time.Hour),
	)
	n, err := s.CountDocuments(ctx, store.Filter{})
	if err != nil || n != 3 {
		t.Errorf("count all = %d, %v", n, err)
	}
	n, err = s.CountDocuments(ctx, store.Filter{Platforms: []models.Platform{models.PlatformCodeforces}, StartAfter: Now})
	if err != nil || n != 2 {
		t.Errorf("count upcoming codeforces = %d, %v", n, err)
	}
}

func testDeleteManyPrunesStaleOnly(t *testing.T, s store.Store) {
	ctx := context.Background()
	cycleStart := Now
	horizon := Now.Add(-7 * 24 * time.Hour)

	stale := Event(models.PlatformCodeforces, "stale", -8*24*time.Hour)
	stale.LastSeenAt = Now.Add(-time.Hour)

	resupplied := Event(models.PlatformCodeforces, "resupplied", -8*24*time.Hour)
	resupplied.LastSeenAt = cycleStart

	recent := Event(models.PlatformCodeforces, "recent", -2*24*time.Hour)
	recent.LastSeenAt = Now.Add(-time.Hour)

	mustUpsert(t, s, stale, resupplied, recent)

	n, err := s.DeleteMany(ctx, store.Predicate{StartBefore: horizon, LastSeenBefore: cycleStart})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	got, err := s.Find(ctx, store.Filter{}, store.SortStartAsc, 0)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if want := []string{"codeforces:resupplied", "codeforces:recent"}; !reflect.DeepEqual(keys(got), want) {
		t.Errorf("remaining = %v, want %v", keys(got), want)
	}
}

func testDeleteManyRejectsOpenPredicate(t *testing.T, s store.Store) {
	mustUpsert(t, s, Event(models.PlatformCodeforces, "keep", -30*24*time.Hour))
	if _, err := s.DeleteMany(context.Background(), store.Predicate{StartBefore: Now}); err == nil {
		t.Fatal("expected error for predicate without LastSeenBefore")
	}
	n, err := s.CountDocuments(context.Background(), store.Filter{})
	if err != nil || n != 1 {
		t.Errorf("count = %d, %v; nothing should be deleted", n, err)
	}
}

func testDistinct(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Event(models.PlatformDevpost, "a", time.Hour)
	a.Location = "Berlin"
	b := Event(models.PlatformDevfolio, "b", time.Hour)
	b.Location = "Berlin"
	c := Event(models.PlatformCodeforces, "c", -time.Hour)
	mustUpsert(t, s, a, b, c)

	got, err := s.Distinct(ctx, store.FieldPlatform, store.Filter{})
	if err != nil {
		t.Fatalf("Distinct() error = %v", err)
	}
	if want := []string{"codeforces", "devfolio", "devpost"}; !reflect.DeepEqual(got, want) {
		t.Errorf("platforms = %v, want %v", got, want)
	}

	got, err = s.Distinct(ctx, store.FieldLocation, store.Filter{StartAfter: Now})
	if err != nil {
		t.Fatalf("Distinct() error = %v", err)
	}
	if want := []string{"Berlin"}; !reflect.DeepEqual(got, want) {
		t.Errorf("locations = %v, want %v", got, want)
	}

	if _, err := s.Distinct(ctx, store.Field("name; DROP TABLE events"), store.Filter{}); !errors.Is(err, store.ErrUnknownField) {
		t.Errorf("unknown field error = %v", err)
	}
}

func testClosedStoreErrors(t *testing.T, s store.Store) {
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close should fail")
	}
	if err := s.Upsert(context.Background(), Event(models.PlatformCodeforces, "x", time.Hour)); !store.IsStoreError(err) {
		t.Errorf("Upsert() after Close = %v, want *store.Error", err)
	}
}

func testDeleteManyScopedToPlatforms(t *testing.T, s store.Store) {
	ctx := context.Background()
	oldContest := Event(models.PlatformCodeforces, "old", -10*24*time.Hour)
	oldContest.LastSeenAt = Now.Add(-time.Hour)
	longHackathon := Event(models.PlatformDevpost, "month-long", -10*24*time.Hour)
	longHackathon.EndTime = Now.Add(20 * 24 * time.Hour)
	longHackathon.LastSeenAt = Now.Add(-time.Hour)
	mustUpsert(t, s, oldContest, longHackathon)

	n, err := s.DeleteMany(ctx, store.Predicate{
		StartBefore:    Now.Add(-7 * 24 * time.Hour),
		LastSeenBefore: Now,
		Platforms:      []models.Platform{models.PlatformCodeforces, models.PlatformAtCoder},
	})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	got, err := s.Find(ctx, store.Filter{}, store.SortStartAsc, 0)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if want := []string{"devpost:month-long"}; !reflect.DeepEqual(keys(got), want) {
		t.Errorf("remaining = %v, want %v", keys(got), want)
	}
}
