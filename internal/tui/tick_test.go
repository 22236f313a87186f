package tui

import (
	"context"
	"testing"
	"time"

	"prayat/schedule"
)

// countResolver counts Resolve invocations.
type countResolver struct {
	calls int
}

func (c *countResolver) Resolve(_ context.Context, date string) (*schedule.Schedule, error) {
	c.calls++
	return &schedule.Schedule{
		Date: date, Fajr: "05:00", Sunrise: "06:15", Dhuhr: "13:00",
		Asr: "16:30", Maghrib: "18:45", Isha: "20:00",
	}, nil
}

// TestTickRecomputesWithoutResolving verifies the minute tick refreshes
// only the countdown: no resolver traffic, and the next tick is scheduled.
func TestTickRecomputesWithoutResolving(t *testing.T) {
	cr := &countResolver{}
	m := New(cr)

	day, _ := time.Parse(schedule.DateLayout, "2025-03-10")
	now := day.Add(14 * time.Hour)
	m.SetClock(func() time.Time { return now })

	// Seed the model as if the initial resolve already landed.
	updated, _ := m.Update(resolvedMsg{sched: &schedule.Schedule{
		Date: "2025-03-10", Fajr: "05:00", Sunrise: "06:15", Dhuhr: "13:00",
		Asr: "16:30", Maghrib: "18:45", Isha: "20:00",
	}})
	m = updated.(*Model)
	if m.next == nil || m.next.Name != "Asr" {
		t.Fatalf("next = %+v after resolve, want Asr", m.next)
	}
	if m.remaining != "2h 30m" {
		t.Fatalf("remaining = %q, want 2h 30m", m.remaining)
	}

	// A minute passes; the tick must update the countdown locally.
	now = now.Add(time.Minute)
	updated, cmd := m.Update(tickMsg(now))
	m = updated.(*Model)

	if cr.calls != 0 {
		t.Errorf("resolver calls = %d after tick, want 0", cr.calls)
	}
	if m.remaining != "2h 29m" {
		t.Errorf("remaining = %q after tick, want 2h 29m", m.remaining)
	}
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
}

// TestTickAfterLastPrayerWrapsToNextDay verifies the countdown follows
// the wraparound occurrence late at night.
func TestTickAfterLastPrayerWrapsToNextDay(t *testing.T) {
	cr := &countResolver{}
	m := New(cr)

	day, _ := time.Parse(schedule.DateLayout, "2025-03-10")
	now := day.Add(23 * time.Hour)
	m.SetClock(func() time.Time { return now })

	updated, _ := m.Update(resolvedMsg{sched: &schedule.Schedule{
		Date: "2025-03-10", Fajr: "05:00", Sunrise: "06:15", Dhuhr: "13:00",
		Asr: "16:30", Maghrib: "18:45", Isha: "20:00",
	}})
	m = updated.(*Model)

	if m.next == nil || !m.next.NextDay || m.next.Name != "Fajr" {
		t.Fatalf("next = %+v at 23:00, want next-day Fajr", m.next)
	}
	if m.remaining != "6h 0m" {
		t.Errorf("remaining = %q, want 6h 0m", m.remaining)
	}
}
