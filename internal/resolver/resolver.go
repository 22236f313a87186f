// Package resolver decides, for a requested date, between serving the
// cached schedule, querying the primary source, querying the secondary
// source, or degrading to a stale cache entry.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prayat/internal/utils"
	"prayat/schedule"
)

// Store is the cache surface the resolver needs. Reads report misses, not
// errors; writes absorb faults internally.
type Store interface {
	Get(ctx context.Context, date string) (*schedule.Schedule, bool)
	Put(ctx context.Context, date string, s *schedule.Schedule)
	IsFreshForToday(ctx context.Context, date string) bool
}

// errCacheMiss marks a cache tier that produced nothing; it only drives
// fallback and is never surfaced.
var errCacheMiss = errors.New("no cached entry")

// DefaultProbeTimeout bounds the primary-source availability probe.
const DefaultProbeTimeout = 5 * time.Second

// Resolver orchestrates the tiered resolution chain. Concurrent Resolve
// calls for the same date run independently; the cache's last writer wins,
// which is safe because schedules are idempotent per date.
type Resolver struct {
	store        Store
	primary      schedule.Provider
	secondary    schedule.Provider
	probeTimeout time.Duration
	now          func() time.Time
}

// New creates a resolver over the given store and sources.
func New(store Store, primary, secondary schedule.Provider) *Resolver {
	return &Resolver{
		store:        store,
		primary:      primary,
		secondary:    secondary,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
	}
}

// SetProbeTimeout overrides the availability probe timeout.
func (r *Resolver) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		r.probeTimeout = d
	}
}

// SetClock overrides the wall clock, for testing.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// tier is one candidate data source in the fallback chain.
type tier struct {
	name    string
	resolve func(ctx context.Context, date string) (*schedule.Schedule, error)
}

// tiers returns the chain in resolution order: fresh cache, primary
// source, secondary source, stale cache.
func (r *Resolver) tiers() []tier {
	return []tier{
		{"fresh-cache", r.fromFreshCache},
		{"primary", r.fromPrimary},
		{"secondary", r.fromSecondary},
		{"stale-cache", r.fromStaleCache},
	}
}

// ResolveToday resolves the schedule for the current date.
func (r *Resolver) ResolveToday(ctx context.Context) (*schedule.Schedule, error) {
	return r.Resolve(ctx, schedule.DateKey(r.now()))
}

// Resolve returns the schedule for the given date key, walking the tier
// chain in order and stopping at the first success. Failures within a tier
// drive fallback and are not surfaced; only total failure returns an
// error, as *schedule.UnavailableError carrying the last tier failure.
func (r *Resolver) Resolve(ctx context.Context, date string) (*schedule.Schedule, error) {
	if _, err := time.Parse(schedule.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	var last error
	for _, t := range r.tiers() {
		s, err := t.resolve(ctx, date)
		if err == nil {
			utils.Debugf("resolved %s via %s tier", date, t.name)
			return s, nil
		}
		if !errors.Is(err, errCacheMiss) {
			utils.Debugf("%s tier failed for %s: %v", t.name, date, err)
			last = err
		}
	}

	return nil, &schedule.UnavailableError{Date: date, Last: last}
}

// fromFreshCache serves a cached entry when it needs no revalidation:
// any hit for a non-today date, or a today hit behind an advanced refresh
// marker.
func (r *Resolver) fromFreshCache(ctx context.Context, date string) (*schedule.Schedule, error) {
	s, ok := r.store.Get(ctx, date)
	if !ok {
		return nil, errCacheMiss
	}
	if date == schedule.DateKey(r.now()) && !r.store.IsFreshForToday(ctx, date) {
		return nil, errCacheMiss
	}
	return s, nil
}

// fromPrimary probes the primary source and, when reachable, fetches the
// date through its access patterns. Successful results are written through
// to the cache.
func (r *Resolver) fromPrimary(ctx context.Context, date string) (*schedule.Schedule, error) {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	if err := r.primary.Ping(probeCtx); err != nil {
		return nil, fmt.Errorf("%s probe: %w", r.primary.Name(), err)
	}

	s, err := r.primary.Fetch(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", r.primary.Name(), err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s fetch: %w", r.primary.Name(), err)
	}

	r.store.Put(ctx, date, s)
	return s, nil
}

// fromSecondary fetches the date from the secondary source and writes
// through to the cache.
func (r *Resolver) fromSecondary(ctx context.Context, date string) (*schedule.Schedule, error) {
	s, err := r.secondary.Fetch(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", r.secondary.Name(), err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s fetch: %w", r.secondary.Name(), err)
	}

	r.store.Put(ctx, date, s)
	return s, nil
}

// fromStaleCache serves whatever the cache holds for the date regardless
// of freshness; a stale hit is strictly better than no data.
func (r *Resolver) fromStaleCache(ctx context.Context, date string) (*schedule.Schedule, error) {
	s, ok := r.store.Get(ctx, date)
	if !ok {
		return nil, errCacheMiss
	}
	return s, nil
}
