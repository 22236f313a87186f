// Package prayer computes derived views of a daily schedule: the next
// upcoming entry and the countdown to it. All functions are pure.
package prayer

import (
	"fmt"
	"time"

	"prayat/schedule"
)

// Unavailable is returned by Remaining when the target time cannot be
// parsed.
const Unavailable = "N/A"

// Occurrence is the next upcoming schedule entry relative to some instant.
type Occurrence struct {
	Name string `json:"name"`
	Time string `json:"time"`
	// NextDay is set when every entry has already passed and the
	// occurrence wraps to the first entry of the following day.
	NextDay bool `json:"next_day"`
}

// Next returns the first entry whose time-of-day is strictly after now's
// time-of-day, scanning the six entries in their stored order. If all have
// passed, it returns the first entry tagged as next-day. Entries that fail
// to parse are skipped; Next returns nil only when no entry parses at all.
//
// The scan trusts the stored order. A source returning entries out of
// canonical order yields an out-of-order scan rather than an error.
func Next(s *schedule.Schedule, now time.Time) *Occurrence {
	if s == nil {
		return nil
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	var first *Occurrence

	for _, e := range s.Entries() {
		minutes, err := clockMinutes(e.Time)
		if err != nil {
			continue
		}
		if first == nil {
			first = &Occurrence{Name: e.Name, Time: e.Time, NextDay: true}
		}
		if minutes > nowMinutes {
			return &Occurrence{Name: e.Name, Time: e.Time}
		}
	}

	// Everything today has passed; wrap to the first entry of tomorrow.
	return first
}

// Remaining formats the time left from now until the next occurrence of
// target ("HH:MM"), rolling to the next calendar day when target has
// already passed. Hours are included only when non-zero. Malformed targets
// yield the Unavailable sentinel rather than an error.
func Remaining(now time.Time, target string) string {
	clock, err := time.Parse(schedule.ClockLayout, target)
	if err != nil {
		return Unavailable
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		clock.Hour(), clock.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	diff := next.Sub(now)
	hours := int(diff.Hours())
	minutes := int(diff.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Format12h renders an "HH:MM" time in 12-hour form, e.g. "18:45" becomes
// "6:45 PM". Unparseable input is returned unchanged.
func Format12h(t string) string {
	clock, err := time.Parse(schedule.ClockLayout, t)
	if err != nil {
		return t
	}

	period := "AM"
	hours := clock.Hour()
	if hours >= 12 {
		period = "PM"
	}
	hours = hours % 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%d:%02d %s", hours, clock.Minute(), period)
}

// clockMinutes parses an "HH:MM" value into minutes since midnight.
func clockMinutes(v string) (int, error) {
	clock, err := time.Parse(schedule.ClockLayout, v)
	if err != nil {
		return 0, err
	}
	return clock.Hour()*60 + clock.Minute(), nil
}
