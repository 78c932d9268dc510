// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/store/memstore"
)

var testNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func event(p models.Platform, id string, offset time.Duration) models.Event {
	start := testNow.Add(offset)
	return models.Event{
		Platform:   p,
		ExternalID: id,
		Name:       string(p) + " " + id,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
		URL:        "https://example.org/" + id,
		Mode:       models.ModeOnline,
	}
}

func static(p models.Platform, events ...models.Event) sources.Func {
	return sources.Func{P: p, Fn: func(context.Context) ([]models.Event, error) { return events, nil }}
}

func failing(p models.Platform) sources.Func {
	return sources.Func{P: p, Fn: func(context.Context) ([]models.Event, error) {
		return nil, errors.New("upstream 503")
	}}
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []models.RefreshResult
}

func (r *recordingPublisher) PublishRefresh(_ context.Context, res models.RefreshResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func newService(t *testing.T, cfg Config) (*Service, *memstore.Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testNow}
	if cfg.Now == nil {
		cfg.Now = clock.Now
	}
	st := memstore.New()
	t.Cleanup(func() { _ = st.Close() })
	return New(st, cfg), st, clock
}

func TestRefreshContests_MergesSortedAcrossSources(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	svc, _, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeChef, event(models.PlatformCodeChef, "ABC1", 2*time.Hour)),
			static(models.PlatformCodeforces, event(models.PlatformCodeforces, "1999", time.Hour)),
		},
		Publisher: pub,
	})

	res, err := svc.RefreshContests(context.Background())
	if err != nil {
		t.Fatalf("RefreshContests() error = %v", err)
	}
	if res.Fetched != 2 || res.Upserted != 2 || res.Deleted != 0 {
		t.Errorf("result = %+v, want fetched=2 upserted=2 deleted=0", res)
	}
	if len(res.FailedPlatforms) != 0 {
		t.Errorf("FailedPlatforms = %v", res.FailedPlatforms)
	}
	if res.CycleID == "" {
		t.Error("CycleID is empty")
	}

	events, err := svc.Find(context.Background(), Query{Category: models.CategoryContest})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Key() != "codeforces:1999" || events[1].Key() != "codechef:ABC1" {
		t.Errorf("order = %s, %s", events[0].Key(), events[1].Key())
	}
	if events[0].Status != models.StatusUpcoming {
		t.Errorf("status = %s", events[0].Status)
	}

	if last, ok := svc.LastRefresh(models.CategoryContest); !ok || last.CycleID != res.CycleID {
		t.Errorf("LastRefresh() = %+v, %v", last, ok)
	}
	if len(pub.results) != 1 {
		t.Errorf("published %d results, want 1", len(pub.results))
	}
}

func TestRefreshContests_Idempotent(t *testing.T) {
	t.Parallel()

	svc, st, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces,
				event(models.PlatformCodeforces, "1", time.Hour),
				event(models.PlatformCodeforces, "2", 3*time.Hour)),
		},
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.RefreshContests(context.Background()); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if st.Len() != 2 {
		t.Errorf("store has %d events, want 2", st.Len())
	}
}

func TestRefreshContests_PartialFailureIsolated(t *testing.T) {
	t.Parallel()

	svc, st, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces, event(models.PlatformCodeforces, "1", time.Hour)),
			failing(models.PlatformLeetCode),
			static(models.PlatformAtCoder, event(models.PlatformAtCoder, "abc440", 2*time.Hour)),
		},
	})

	res, err := svc.RefreshContests(context.Background())
	if err != nil {
		t.Fatalf("RefreshContests() error = %v", err)
	}
	if len(res.FailedPlatforms) != 1 || res.FailedPlatforms[0] != models.PlatformLeetCode {
		t.Errorf("FailedPlatforms = %v", res.FailedPlatforms)
	}
	if st.Len() != 2 {
		t.Errorf("store has %d events, want 2", st.Len())
	}
}

func TestRefreshContests_AllSourcesFailed(t *testing.T) {
	t.Parallel()

	svc, st, _ := newService(t, Config{
		Contests: []sources.ContestSource{failing(models.PlatformCodeforces), failing(models.PlatformCodeChef)},
	})

	_, err := svc.RefreshContests(context.Background())
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("error = %v, want ErrAllSourcesFailed", err)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d events, want 0", st.Len())
	}
	if _, ok := svc.LastRefresh(models.CategoryContest); ok {
		t.Error("failed cycle recorded as last refresh")
	}
}

func TestRefreshContests_PanickingAdapterIsAFailure(t *testing.T) {
	t.Parallel()

	svc, st, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			sources.Func{P: models.PlatformLeetCode, Fn: func(context.Context) ([]models.Event, error) {
				panic("nil map")
			}},
			static(models.PlatformCodeforces, event(models.PlatformCodeforces, "1", time.Hour)),
		},
	})

	res, err := svc.RefreshContests(context.Background())
	if err != nil {
		t.Fatalf("RefreshContests() error = %v", err)
	}
	if len(res.FailedPlatforms) != 1 || st.Len() != 1 {
		t.Errorf("failed = %v, stored = %d", res.FailedPlatforms, st.Len())
	}
}

func TestRefreshContests_PrunesStaleEvents(t *testing.T) {
	t.Parallel()

	const eightDays = 8 * 24 * time.Hour
	resupplied := event(models.PlatformCodeforces, "resupplied", -eightDays)
	svc, st, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces, resupplied, event(models.PlatformCodeforces, "new", time.Hour)),
			failing(models.PlatformCodeChef),
		},
	})

	seed := []models.Event{
		event(models.PlatformCodeforces, "gone", -eightDays),
		event(models.PlatformCodeforces, "recent", -2*24*time.Hour),
		event(models.PlatformCodeChef, "unreachable", -eightDays),
		resupplied,
	}
	for _, e := range seed {
		e.LastSeenAt = testNow.Add(-eightDays)
		if err := st.Upsert(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.RefreshContests(context.Background())
	if err != nil {
		t.Fatalf("RefreshContests() error = %v", err)
	}
	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}

	tests := []struct {
		key  string
		kept bool
	}{
		{"codeforces:gone", false},
		{"codeforces:recent", true},
		{"codeforces:resupplied", true},
		{"codeforces:new", true},
		{"codechef:unreachable", false},
	}
	for _, tt := range tests {
		if _, ok := st.Get(tt.key); ok != tt.kept {
			t.Errorf("%s kept = %v, want %v", tt.key, ok, tt.kept)
		}
	}
	if e, _ := st.Get("codeforces:resupplied"); !e.LastSeenAt.Equal(testNow) {
		t.Errorf("resupplied LastSeenAt = %v, want %v", e.LastSeenAt, testNow)
	}
}

func TestRefreshContests_PrunesFailingAndOtherCategoryPlatforms(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	codechef := sources.Func{P: models.PlatformCodeChef, Fn: func(context.Context) ([]models.Event, error) {
		if down.Load() {
			return nil, errors.New("upstream 503")
		}
		return []models.Event{event(models.PlatformCodeChef, "OLD", time.Hour)}, nil
	}}
	svc, st, clock := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces, event(models.PlatformCodeforces, "later", 10*24*time.Hour)),
			codechef,
		},
	})

	if _, err := svc.RefreshContests(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, ok := st.Get("codechef:OLD"); !ok {
		t.Fatal("codechef:OLD not stored by first refresh")
	}

	hack := event(models.PlatformDevpost, "expired", -8*24*time.Hour)
	hack.LastSeenAt = testNow.Add(-8 * 24 * time.Hour)
	if err := st.Upsert(context.Background(), hack); err != nil {
		t.Fatal(err)
	}

	down.Store(true)
	clock.Advance(9 * 24 * time.Hour)

	res, err := svc.RefreshContests(context.Background())
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if len(res.FailedPlatforms) != 1 || res.FailedPlatforms[0] != models.PlatformCodeChef {
		t.Errorf("FailedPlatforms = %v, want [codechef]", res.FailedPlatforms)
	}
	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	for _, key := range []string{"codechef:OLD", "devpost:expired"} {
		if _, ok := st.Get(key); ok {
			t.Errorf("%s still stored after prune", key)
		}
	}
	if _, ok := st.Get("codeforces:later"); !ok {
		t.Error("codeforces:later was pruned")
	}
}

func TestRefreshContests_CoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	svc, _, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			sources.Func{P: models.PlatformCodeforces, Fn: func(context.Context) ([]models.Event, error) {
				if calls.Add(1) == 1 {
					close(started)
				}
				<-release
				return []models.Event{event(models.PlatformCodeforces, "1", time.Hour)}, nil
			}},
		},
	})

	results := make([]models.RefreshResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = svc.RefreshContests(context.Background())
		}()
		if i == 0 {
			<-started
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("adapter called %d times, want 1", calls.Load())
	}
	if results[0].CycleID == "" || results[0].CycleID != results[1].CycleID {
		t.Errorf("cycle ids = %q, %q, want shared", results[0].CycleID, results[1].CycleID)
	}
}

func TestRefreshContests_CallerTimeoutDoesNotAbortCycle(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	svc, st, _ := newService(t, Config{
		RefreshTimeout: 20 * time.Millisecond,
		Contests: []sources.ContestSource{
			sources.Func{P: models.PlatformCodeforces, Fn: func(context.Context) ([]models.Event, error) {
				<-release
				return []models.Event{event(models.PlatformCodeforces, "1", time.Hour)}, nil
			}},
		},
	})

	_, err := svc.RefreshContests(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for st.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d events after detached cycle, want 1", st.Len())
	}
}

func TestListHackathons_ServedFromSnapshot(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	hack := event(models.PlatformDevpost, "h1", 24*time.Hour)
	hack.Mode = models.ModeInPerson
	hack.Location = "Berlin, Germany"
	ended := event(models.PlatformDevpost, "h0", -48*time.Hour)

	svc, _, clock := newService(t, Config{
		HackathonTTL: time.Hour,
		Hackathons: []sources.HackathonSource{
			sources.Func{P: models.PlatformDevpost, Fn: func(context.Context) ([]models.Event, error) {
				calls.Add(1)
				return []models.Event{hack, ended}, nil
			}},
		},
	})
	ctx := context.Background()

	got, err := svc.ListHackathons(ctx, "", false)
	if err != nil {
		t.Fatalf("ListHackathons() error = %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "h1" {
		t.Fatalf("got %+v, want only h1", got)
	}

	if got, _ := svc.ListHackathons(ctx, "berlin", false); len(got) != 1 {
		t.Errorf("location filter returned %d", len(got))
	}
	if got, _ := svc.ListHackathons(ctx, "online", false); len(got) != 0 {
		t.Errorf("mode filter returned %d", len(got))
	}

	res, err := svc.RefreshHackathons(ctx, false)
	if err != nil {
		t.Fatalf("RefreshHackathons() error = %v", err)
	}
	if !res.Cached || res.Fetched != 1 {
		t.Errorf("result = %+v, want cached with 1 event", res)
	}
	if calls.Load() != 1 {
		t.Errorf("adapter called %d times within TTL, want 1", calls.Load())
	}

	clock.Advance(61 * time.Minute)
	if _, err := svc.ListHackathons(ctx, "", false); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("adapter called %d times after expiry, want 2", calls.Load())
	}

	if res, _ := svc.RefreshHackathons(ctx, true); res.Cached {
		t.Error("forced refresh answered from snapshot")
	}
	if calls.Load() != 3 {
		t.Errorf("adapter called %d times after force, want 3", calls.Load())
	}
}

func TestListHackathons_SnapshotInstalledByCycle(t *testing.T) {
	t.Parallel()

	svc, _, clock := newService(t, Config{
		HackathonTTL: time.Hour,
		Hackathons:   []sources.HackathonSource{static(models.PlatformDevpost, event(models.PlatformDevpost, "h1", 24*time.Hour))},
	})
	clock.Advance(90 * time.Second)
	cycleStart := clock.Now().UTC()

	got, err := svc.ListHackathons(context.Background(), "", false)
	if err != nil {
		t.Fatalf("ListHackathons() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if !got[0].LastSeenAt.Equal(cycleStart) {
		t.Errorf("LastSeenAt = %v, want cycle start %v", got[0].LastSeenAt, cycleStart)
	}
	if !svc.snapshot.FetchedAt().Equal(cycleStart) {
		t.Errorf("FetchedAt() = %v, want %v", svc.snapshot.FetchedAt(), cycleStart)
	}
	if last, ok := svc.LastRefresh(models.CategoryHackathon); !ok || last.Fetched != 1 {
		t.Errorf("LastRefresh() = %+v, %v", last, ok)
	}
}

func TestListHackathons_StaleOnFailure(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	svc, _, clock := newService(t, Config{
		HackathonTTL: time.Hour,
		Hackathons: []sources.HackathonSource{
			sources.Func{P: models.PlatformMLH, Fn: func(context.Context) ([]models.Event, error) {
				if fail.Load() {
					return nil, errors.New("mlh down")
				}
				return []models.Event{event(models.PlatformMLH, "m1", 72*time.Hour)}, nil
			}},
		},
	})
	ctx := context.Background()

	if _, err := svc.ListHackathons(ctx, "", false); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	clock.Advance(2 * time.Hour)

	got, err := svc.ListHackathons(ctx, "", false)
	if err != nil || len(got) != 1 {
		t.Errorf("stale read = %d events, %v", len(got), err)
	}
	if _, err := svc.ListHackathons(ctx, "", true); !errors.Is(err, ErrAllSourcesFailed) {
		t.Errorf("forced read error = %v, want ErrAllSourcesFailed", err)
	}
}

func TestListContests_Platform(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces, event(models.PlatformCodeforces, "1", time.Hour)),
			static(models.PlatformAtCoder, event(models.PlatformAtCoder, "abc1", time.Hour)),
		},
	})
	ctx := context.Background()
	if _, err := svc.RefreshContests(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := svc.ListContests(ctx, "AtCoder", 0)
	if err != nil {
		t.Fatalf("ListContests() error = %v", err)
	}
	if len(got) != 1 || got[0].Platform != models.PlatformAtCoder {
		t.Errorf("got %+v", got)
	}

	for _, name := range []string{"mlh", "topcoder"} {
		if _, err := svc.ListContests(ctx, name, 0); !errors.Is(err, ErrUnknownPlatform) {
			t.Errorf("ListContests(%q) error = %v, want ErrUnknownPlatform", name, err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, Config{DefaultLimit: 20, MaxLimit: 40})
	tests := []struct {
		in, want int
	}{
		{0, 20},
		{-5, 20},
		{10, 10},
		{40, 40},
		{500, 40},
	}
	for _, tt := range tests {
		if got := svc.ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStatsAndPlatforms(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t, Config{
		Contests: []sources.ContestSource{
			static(models.PlatformCodeforces,
				event(models.PlatformCodeforces, "1", time.Hour),
				event(models.PlatformCodeforces, "2", 2*time.Hour)),
			static(models.PlatformLeetCode),
		},
	})
	ctx := context.Background()
	if _, err := svc.RefreshContests(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.StatsSummary(ctx)
	if err != nil {
		t.Fatalf("StatsSummary() error = %v", err)
	}
	if stats.TotalUpcoming != 2 || len(stats.Platforms) != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Platforms[1].Platform != models.PlatformLeetCode || stats.Platforms[1].Upcoming != 0 {
		t.Errorf("enabled empty platform missing: %+v", stats.Platforms)
	}

	infos, err := svc.Platforms(ctx)
	if err != nil {
		t.Fatalf("Platforms() error = %v", err)
	}
	if len(infos) != len(models.AllPlatforms()) {
		t.Fatalf("got %d platforms", len(infos))
	}
	if !infos[0].Enabled || !infos[0].Stored {
		t.Errorf("codeforces = %+v", infos[0])
	}
	if infos[4].Enabled || infos[4].Stored {
		t.Errorf("devfolio = %+v", infos[4])
	}
}
