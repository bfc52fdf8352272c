package store

import "time"

// DateLayout is the canonical calendar-date format used as record keys.
const DateLayout = "2006-01-02"

// DateKey formats a timestamp as the calendar date it falls on, in its own
// location. Attendance and presence rows are keyed by this value.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
