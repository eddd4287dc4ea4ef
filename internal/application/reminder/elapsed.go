package reminder

import "time"

// ElapsedDays counts calendar days between the dates of anchor and now in loc.
// Wall-clock hours are ignored, so 23:59 to 00:01 the next day is one day.
func ElapsedDays(anchor, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	a := anchor.In(loc)
	n := now.In(loc)

	start := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
