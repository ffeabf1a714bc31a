package event

import "time"

// Upcoming reports whether the record's date is on or after ref, compared at
// day granularity. Pure: the reference date is always injected, never read
// from a clock, so runs are reproducible under test.
func Upcoming(r Record, ref time.Time) bool {
	d, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return false
	}
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(refDay)
}
