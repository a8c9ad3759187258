package reminder

import "time"

// QuietHours is a daily window, in whole local hours, during which reminders are muted.
// Start == End covers the whole day.
type QuietHours struct {
	Start    int
	End      int
	Location *time.Location
}

// Contains reports whether hour (0-23) falls inside the window.
// A window with Start >= End wraps past midnight.
func (q QuietHours) Contains(hour int) bool {
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

// ContainsTime reports whether t, converted to the window's location, is quiet.
func (q QuietHours) ContainsTime(t time.Time) bool {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	return q.Contains(t.In(loc).Hour())
}
