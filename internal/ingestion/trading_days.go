package ingestion

import "time"

// LastNTradingDays returns the last n weekday dates strictly before
// now's date, most recent first. Exchange holidays are not modeled;
// the source publishes no file on them, so ProcessDirectory skips
// those dates when their file is absent.
func LastNTradingDays(n int, now time.Time) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for len(out) < n {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}
