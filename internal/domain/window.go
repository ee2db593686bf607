package domain

import "time"

// Window is an inclusive date range used by aggregations. Times are
// normalized to UTC midnight; a record belongs to the window when its
// timestamp falls on any day from Start through End.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window from two timestamps, truncating both to UTC
// midnight. If end precedes start the bounds are swapped.
func NewWindow(start, end time.Time) Window {
	s, e := DayOf(start), DayOf(end)
	if e.Before(s) {
		s, e = e, s
	}
	return Window{Start: s, End: e}
}

// LastNDays returns the window covering today (per now) and the n-1
// preceding days.
func LastNDays(now time.Time, n int) Window {
	if n < 1 {
		n = 1
	}
	end := DayOf(now)
	return Window{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	day := DayOf(ts)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Days returns every day in the window in ascending order. Aggregations use
// this to emit explicit zero entries for days with no records.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayOf truncates a timestamp to UTC midnight.
func DayOf(ts time.Time) time.Time {
	t := ts.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
