package utils

import (
	"time"
)

// DayFormat is the wire format for calendar-day fields ("2006-01-02").
const DayFormat = "2006-01-02"

// UTCDay returns t's calendar day in UTC as "2006-01-02".
func UTCDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// ParseDay parses a "2006-01-02" string as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayFormat, s, time.UTC)
}

// DayRange parses optional from/to day strings into an inclusive day
// range, defaulting to the last defaultDays days ending today (UTC).
// A reversed range is swapped rather than rejected.
func DayRange(fromStr, toStr string, defaultDays int) (from, to time.Time) {
	now := time.Now().UTC()
	to = now
	from = now.AddDate(0, 0, -defaultDays)
	if fromStr != "" {
		if t, err := ParseDay(fromStr); err == nil {
			from = t
		}
	}
	if toStr != "" {
		if t, err := ParseDay(toStr); err == nil {
			to = t
		}
	}
	if from.After(to) {
		from, to = to, from
	}
	return from, to
}

// FriendlyDate renders a timestamp the way the journal UI labels entries:
// "Today", "Yesterday", or "Jan 2, 2006" (relative to now, in UTC).
func FriendlyDate(t time.Time, now time.Time) string {
	day := UTCDay(t)
	switch day {
	case UTCDay(now):
		return "Today"
	case UTCDay(now.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return t.UTC().Format("Jan 2, 2006")
}
