package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"prayat/internal/cache"
	"prayat/schedule"
)

const today = "2025-03-10"

// fixedClock pins the wall clock to noon on the given date.
func fixedClock(date string) func() time.Time {
	day, _ := time.Parse(schedule.DateLayout, date)
	return func() time.Time { return day.Add(12 * time.Hour) }
}

// fakeProvider is a scriptable schedule source.
type fakeProvider struct {
	name     string
	pingErr  error
	fetchErr error
	source   schedule.Source
	fetches  int
	pings    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Ping(ctx context.Context) error {
	f.pings++
	return f.pingErr
}

func (f *fakeProvider) Fetch(ctx context.Context, date string) (*schedule.Schedule, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &schedule.Schedule{
		Date:    date,
		Fajr:    "05:00",
		Sunrise: "06:15",
		Dhuhr:   "13:00",
		Asr:     "16:30",
		Maghrib: "18:45",
		Isha:    "20:00",
		Source:  f.source,
	}, nil
}

// countingStore wraps a real cache store and counts writes.
type countingStore struct {
	*cache.Store
	puts int
}

func (c *countingStore) Put(ctx context.Context, date string, s *schedule.Schedule) {
	c.puts++
	c.Store.Put(ctx, date, s)
}

// newTestResolver builds a resolver over an in-memory cache with
// scriptable sources, everything pinned to the test date.
func newTestResolver(t *testing.T, primary, secondary *fakeProvider) (*Resolver, *countingStore) {
	t.Helper()
	store, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("cache.Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	store.SetClock(fixedClock(today))

	cs := &countingStore{Store: store}
	r := New(cs, primary, secondary)
	r.SetClock(fixedClock(today))
	r.SetProbeTimeout(time.Second)
	return r, cs
}

// TestResolveFromPrimary verifies a healthy primary source wins and writes
// through to the cache.
func TestResolveFromPrimary(t *testing.T) {
	primary := &fakeProvider{name: "backend", source: schedule.SourceBackend}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, cs := newTestResolver(t, primary, secondary)
	ctx := context.Background()

	s, err := r.Resolve(ctx, today)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if s.Source != schedule.SourceBackend {
		t.Errorf("Source = %q, want %q", s.Source, schedule.SourceBackend)
	}
	if secondary.fetches != 0 {
		t.Error("secondary source queried although primary succeeded")
	}
	if cs.puts != 1 {
		t.Errorf("cache writes = %d, want 1", cs.puts)
	}
	if _, ok := cs.Get(ctx, today); !ok {
		t.Error("cache missing entry after primary resolution")
	}
}

// TestResolveTwiceIsIdempotent verifies the second call with healthy
// sources serves the identical fresh cache entry without a second write.
func TestResolveTwiceIsIdempotent(t *testing.T) {
	primary := &fakeProvider{name: "backend", source: schedule.SourceBackend}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, cs := newTestResolver(t, primary, secondary)
	ctx := context.Background()

	first, err := r.Resolve(ctx, today)
	if err != nil {
		t.Fatalf("first Resolve error: %v", err)
	}
	second, err := r.Resolve(ctx, today)
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}

	if cs.puts != 1 {
		t.Errorf("cache writes = %d across two resolves, want 1", cs.puts)
	}
	if primary.fetches != 1 {
		t.Errorf("primary fetches = %d, want 1", primary.fetches)
	}
	if second.Source != schedule.SourceCache {
		t.Errorf("second Source = %q, want %q", second.Source, schedule.SourceCache)
	}
	for i, e := range second.Entries() {
		if e != first.Entries()[i] {
			t.Errorf("entry %d differs between resolves: %v vs %v", i, e, first.Entries()[i])
		}
	}
}

// TestResolveNonTodayDateCachedForever verifies a non-today date is served
// from cache without a freshness gate once fetched.
func TestResolveNonTodayDateCachedForever(t *testing.T) {
	primary := &fakeProvider{name: "backend", source: schedule.SourceBackend}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, _ := newTestResolver(t, primary, secondary)
	ctx := context.Background()

	past := "2025-03-01"
	if _, err := r.Resolve(ctx, past); err != nil {
		t.Fatalf("first Resolve error: %v", err)
	}
	s, err := r.Resolve(ctx, past)
	if err != nil {
		t.Fatalf("second Resolve error: %v", err)
	}
	if s.Source != schedule.SourceCache {
		t.Errorf("Source = %q, want %q", s.Source, schedule.SourceCache)
	}
	if primary.fetches != 1 {
		t.Errorf("primary fetches = %d, want 1", primary.fetches)
	}
}

// TestResolveFallsBackToSecondary verifies an unreachable primary degrades
// to the secondary source, whose result is cached.
func TestResolveFallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "backend", pingErr: schedule.ErrSourceUnreachable}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, cs := newTestResolver(t, primary, secondary)
	ctx := context.Background()

	s, err := r.Resolve(ctx, today)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if s.Source != schedule.SourceAladhan {
		t.Errorf("Source = %q, want %q", s.Source, schedule.SourceAladhan)
	}
	if primary.fetches != 0 {
		t.Error("primary fetched although probe failed")
	}
	if _, ok := cs.Get(ctx, today); !ok {
		t.Error("cache missing entry after secondary resolution")
	}
}

// TestResolvePrimaryFetchFailure verifies a reachable primary whose fetch
// fails still falls back to the secondary.
func TestResolvePrimaryFetchFailure(t *testing.T) {
	primary := &fakeProvider{name: "backend", fetchErr: schedule.ErrMalformed}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, _ := newTestResolver(t, primary, secondary)

	s, err := r.Resolve(context.Background(), today)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if s.Source != schedule.SourceAladhan {
		t.Errorf("Source = %q, want %q", s.Source, schedule.SourceAladhan)
	}
}

// TestResolveServesStaleCache verifies both sources failing degrades to a
// stale cache entry with no error.
func TestResolveServesStaleCache(t *testing.T) {
	primary := &fakeProvider{name: "backend", source: schedule.SourceBackend}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, cs := newTestResolver(t, primary, secondary)
	ctx := context.Background()

	// Populate today's entry, then strip the refresh marker so the entry
	// is cached but stale, and kill both sources.
	if _, err := r.Resolve(ctx, today); err != nil {
		t.Fatalf("seed Resolve error: %v", err)
	}
	cs.makeStale(ctx, t)

	primary.pingErr = schedule.ErrSourceUnreachable
	secondary.fetchErr = schedule.ErrSourceUnreachable

	s, err := r.Resolve(ctx, today)
	if err != nil {
		t.Fatalf("Resolve error with stale cache present: %v", err)
	}
	if s.Source != schedule.SourceCache {
		t.Errorf("Source = %q, want %q", s.Source, schedule.SourceCache)
	}
}

// makeStale drops the refresh marker while keeping today's record cached,
// simulating a cache populated on an earlier day.
func (c *countingStore) makeStale(ctx context.Context, t *testing.T) {
	t.Helper()
	s, ok := c.Get(ctx, today)
	if !ok {
		t.Fatal("expected a cached record to make stale")
	}
	c.Store.ClearAll(ctx)
	// Re-insert under a past-date clock so Put does not re-arm the marker.
	c.Store.SetClock(fixedClock("2025-01-01"))
	c.Store.Put(ctx, today, s)
	c.Store.SetClock(fixedClock(today))
}

// TestResolveUnavailable verifies total failure surfaces UnavailableError
// carrying the last tier failure.
func TestResolveUnavailable(t *testing.T) {
	primary := &fakeProvider{name: "backend", pingErr: schedule.ErrSourceUnreachable}
	secondary := &fakeProvider{name: "aladhan", fetchErr: schedule.ErrMalformed}
	r, _ := newTestResolver(t, primary, secondary)

	_, err := r.Resolve(context.Background(), today)
	if err == nil {
		t.Fatal("Resolve succeeded with all tiers down")
	}
	var unavailable *schedule.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Resolve error = %T, want *schedule.UnavailableError", err)
	}
	if !errors.Is(err, schedule.ErrMalformed) {
		t.Errorf("UnavailableError does not carry the last tier failure: %v", err)
	}
}

// TestResolveRejectsBadDate verifies non-ISO date keys are rejected before
// any tier runs.
func TestResolveRejectsBadDate(t *testing.T) {
	primary := &fakeProvider{name: "backend"}
	secondary := &fakeProvider{name: "aladhan"}
	r, _ := newTestResolver(t, primary, secondary)

	if _, err := r.Resolve(context.Background(), "03/10/2025"); err == nil {
		t.Fatal("Resolve accepted a malformed date key")
	}
	if primary.pings != 0 {
		t.Error("primary probed for a malformed date")
	}
}

// TestResolveTodayUsesClock verifies ResolveToday derives its key from the
// injected clock.
func TestResolveTodayUsesClock(t *testing.T) {
	primary := &fakeProvider{name: "backend", source: schedule.SourceBackend}
	secondary := &fakeProvider{name: "aladhan", source: schedule.SourceAladhan}
	r, _ := newTestResolver(t, primary, secondary)

	s, err := r.ResolveToday(context.Background())
	if err != nil {
		t.Fatalf("ResolveToday error: %v", err)
	}
	if s.Date != today {
		t.Errorf("Date = %q, want %q", s.Date, today)
	}
}
