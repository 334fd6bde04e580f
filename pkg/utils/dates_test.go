package utils

import (
	"testing"
	"time"
)

func TestUTCDay(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 3, 9, 23, 30, 0, 0, loc)
	if got := UTCDay(ts); got != "2026-03-10" {
		t.Errorf("UTCDay = %q, want 2026-03-10", got)
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2026-03-10")
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDay = %v, want %v", got, want)
	}

	if _, err := ParseDay("10/03/2026"); err == nil {
		t.Error("expected error for wrong format")
	}
}

func TestDayRange(t *testing.T) {
	from, to := DayRange("2026-03-01", "2026-03-10", 30)
	if UTCDay(from) != "2026-03-01" || UTCDay(to) != "2026-03-10" {
		t.Errorf("range = %s..%s", UTCDay(from), UTCDay(to))
	}

	// Reversed bounds are swapped.
	from, to = DayRange("2026-03-10", "2026-03-01", 30)
	if UTCDay(from) != "2026-03-01" || UTCDay(to) != "2026-03-10" {
		t.Errorf("reversed range = %s..%s", UTCDay(from), UTCDay(to))
	}
}

func TestDayRangeDefaults(t *testing.T) {
	from, to := DayRange("", "", 30)
	now := time.Now().UTC()
	if UTCDay(to) != UTCDay(now) {
		t.Errorf("default to = %s, want today", UTCDay(to))
	}
	if UTCDay(from) != UTCDay(now.AddDate(0, 0, -30)) {
		t.Errorf("default from = %s, want 30 days ago", UTCDay(from))
	}

	// Garbage input falls back to the defaults too.
	from2, _ := DayRange("not-a-date", "", 30)
	if UTCDay(from2) != UTCDay(from) {
		t.Errorf("invalid from = %s, want default", UTCDay(from2))
	}
}

func TestFriendlyDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	if got := FriendlyDate(now.Add(-2*time.Hour), now); got != "Today" {
		t.Errorf("got %q, want Today", got)
	}
	if got := FriendlyDate(now.AddDate(0, 0, -1), now); got != "Yesterday" {
		t.Errorf("got %q, want Yesterday", got)
	}
	if got := FriendlyDate(now.AddDate(0, 0, -5), now); got != "Mar 5, 2026" {
		t.Errorf("got %q, want Mar 5, 2026", got)
	}
}
