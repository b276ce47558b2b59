package model

import "time"

// DailyCounter is a per-user counter that resets implicitly on a new local day.
type DailyCounter struct {
	Count    int
	LastDate *time.Time
}

// CountOn returns the effective count for the day of now.
func (c DailyCounter) CountOn(now time.Time) int {
	if c.LastDate == nil || !SameDay(*c.LastDate, now) {
		return 0
	}
	return c.Count
}

// Reached reports whether the counter is at or above limit today.
func (c DailyCounter) Reached(now time.Time, limit int) bool {
	return c.CountOn(now) >= limit
}

// Increment returns the counter after one more event at now.
func (c DailyCounter) Increment(now time.Time) DailyCounter {
	t := now
	return DailyCounter{Count: c.CountOn(now) + 1, LastDate: &t}
}

// SameDay compares calendar days in the location of b.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
