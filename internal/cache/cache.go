// Package cache provides the persistent prayer-schedule cache.
//
// The cache is an optimization, not a source of truth: every storage fault
// is logged and absorbed as a miss so resolution can fall through to the
// network tiers.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"prayat/internal/utils"
	"prayat/schedule"
)

// lastFetchKey is the meta row holding the refresh marker: the date of the
// most recent resolution considered fresh for same-day reuse.
const lastFetchKey = "last_fetch_date"

// Store is a sqlite-backed cache keyed by calendar date, with a singleton
// refresh marker. One record per distinct date ever resolved; records are
// never evicted automatically.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the cache database at the given path and
// initializes the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates the cache tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schedules (
			date TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			stored_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetClock overrides the wall clock, for testing.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the cached schedule for the exact date key. The second
// return value reports whether an entry was found; absence is a normal
// outcome, never an error. Corrupt rows count as misses.
func (s *Store) Get(ctx context.Context, date string) (*schedule.Schedule, bool) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM schedules WHERE date = ?", date,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		utils.Warnf("cache read for %s failed: %v", date, err)
		return nil, false
	}

	var sched schedule.Schedule
	if err := json.Unmarshal([]byte(payload), &sched); err != nil {
		utils.Warnf("cache entry for %s is corrupt: %v", date, err)
		return nil, false
	}

	sched.Source = schedule.SourceCache
	return &sched, true
}

// Put persists the schedule under its date key, overwriting any previous
// entry. When the date is today at call time, the refresh marker is
// advanced so the entry counts as fresh for same-day reuse. Faults are
// logged and absorbed.
func (s *Store) Put(ctx context.Context, date string, sched *schedule.Schedule) {
	payload, err := json.Marshal(sched)
	if err != nil {
		utils.Warnf("cache write for %s failed to serialize: %v", date, err)
		return
	}

	storedAt := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO schedules (date, payload, stored_at) VALUES (?, ?, ?)",
		date, string(payload), storedAt,
	)
	if err != nil {
		utils.Warnf("cache write for %s failed: %v", date, err)
		return
	}

	if date == schedule.DateKey(s.now()) {
		_, err = s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
			lastFetchKey, date,
		)
		if err != nil {
			utils.Warnf("refresh marker update failed: %v", err)
		}
	}
}

// IsFreshForToday reports whether the date is today and today's data has
// already been fetched once. Dates other than today are never fresh under
// this check; they are resolved once and reused without a freshness gate.
func (s *Store) IsFreshForToday(ctx context.Context, date string) bool {
	if date != schedule.DateKey(s.now()) {
		return false
	}

	var marker string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", lastFetchKey,
	).Scan(&marker)

	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		utils.Warnf("refresh marker read failed: %v", err)
		return false
	}
	return marker == date
}

// ClearAll removes every cached schedule and the refresh marker.
// Subsequent lookups for any date miss until repopulated.
func (s *Store) ClearAll(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schedules"); err != nil {
		utils.Warnf("cache clear failed: %v", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", lastFetchKey); err != nil {
		utils.Warnf("refresh marker clear failed: %v", err)
	}
}

// Info describes the cache contents.
type Info struct {
	LastFetchDate string   `json:"last_fetch_date"`
	CachedDates   []string `json:"cached_dates"`
	Total         int      `json:"total_cached_items"`
}

// GetInfo returns the refresh marker and the sorted list of cached dates.
// Faults degrade to an empty Info.
func (s *Store) GetInfo(ctx context.Context) Info {
	info := Info{CachedDates: []string{}}

	var marker string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", lastFetchKey,
	).Scan(&marker)
	if err == nil {
		info.LastFetchDate = marker
	} else if err != sql.ErrNoRows {
		utils.Warnf("refresh marker read failed: %v", err)
		return info
	}

	rows, err := s.db.QueryContext(ctx, "SELECT date FROM schedules ORDER BY date")
	if err != nil {
		utils.Warnf("cache listing failed: %v", err)
		return info
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			utils.Warnf("cache listing failed: %v", err)
			return info
		}
		info.CachedDates = append(info.CachedDates, date)
	}
	if err := rows.Err(); err != nil {
		utils.Warnf("cache listing failed: %v", err)
	}

	info.Total = len(info.CachedDates)
	return info
}
