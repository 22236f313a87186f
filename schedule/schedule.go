// Package schedule defines the daily prayer schedule entity and the
// interface implemented by remote schedule sources.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date key format (ISO, date only).
const DateLayout = "2006-01-02"

// ClockLayout is the canonical time-of-day format for the six schedule times.
const ClockLayout = "15:04"

// Source identifies which tier produced a schedule.
type Source string

const (
	SourceCache   Source = "cache"
	SourceBackend Source = "backend"
	SourceAladhan Source = "aladhan"
)

// Schedule holds the six prayer times for one calendar date.
// The Date field acts as the primary key; times are "HH:MM" strings in
// canonical order. A schedule is immutable once constructed; a later
// resolution for the same date supersedes it rather than mutating it.
type Schedule struct {
	Date      string `json:"date"`
	Fajr      string `json:"fajr"`
	Sunrise   string `json:"sunrise"`
	Dhuhr     string `json:"dhuhr"`
	Asr       string `json:"asr"`
	Maghrib   string `json:"maghrib"`
	Isha      string `json:"isha"`
	HijriDate string `json:"hijri_date,omitempty"`

	// Source records the tier that produced this schedule. It is
	// diagnostic only and never persisted.
	Source Source `json:"-"`
}

// Entry is one named time-of-day value of a schedule.
type Entry struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

// Entries returns the six times in canonical order, exactly as stored.
// The order is never re-derived from the time values.
func (s *Schedule) Entries() []Entry {
	return []Entry{
		{Name: "Fajr", Time: s.Fajr},
		{Name: "Sunrise", Time: s.Sunrise},
		{Name: "Dhuhr", Time: s.Dhuhr},
		{Name: "Asr", Time: s.Asr},
		{Name: "Maghrib", Time: s.Maghrib},
		{Name: "Isha", Time: s.Isha},
	}
}

// Validate checks that the schedule carries a well-formed date key and six
// parseable times. It does not enforce ascending order between the times;
// source data is preserved as given.
func (s *Schedule) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil schedule", ErrMalformed)
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrMalformed, s.Date)
	}
	for _, e := range s.Entries() {
		if _, err := time.Parse(ClockLayout, e.Time); err != nil {
			return fmt.Errorf("%w: bad %s time %q", ErrMalformed, e.Name, e.Time)
		}
	}
	return nil
}

// DateKey formats a time as a canonical calendar-date key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Provider is implemented by remote schedule sources.
type Provider interface {
	// Name identifies the source in logs and provenance.
	Name() string
	// Ping is a lightweight availability probe.
	Ping(ctx context.Context) error
	// Fetch returns the schedule for the given date key.
	Fetch(ctx context.Context, date string) (*Schedule, error)
}

// Sentinel errors for source failures. Both drive fallback to the next
// tier and are never surfaced to callers individually.
var (
	// ErrSourceUnreachable reports a network or timeout failure talking
	// to a source.
	ErrSourceUnreachable = errors.New("schedule source unreachable")

	// ErrMalformed reports a source response that did not yield six
	// valid times.
	ErrMalformed = errors.New("malformed schedule response")
)

// UnavailableError is the terminal resolution failure: no tier, including
// stale cache, produced a schedule for the date.
type UnavailableError struct {
	Date string
	Last error // last underlying tier failure, may be nil
}

func (e *UnavailableError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("no prayer times available for %s: %v", e.Date, e.Last)
	}
	return fmt.Sprintf("no prayer times available for %s", e.Date)
}

func (e *UnavailableError) Unwrap() error { return e.Last }
