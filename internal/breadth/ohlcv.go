package breadth

import (
	"sort"
	"time"

	"github.com/quantgems/marketbreadth/internal/domain/models"
)

// Bucket selects the price-history aggregation granularity.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// Bar is one aggregated OHLCV bucket. Date carries the last
// constituent date for display; BucketKey is the sort key (the date
// itself, the Monday of the ISO week, or YYYY-MM).
type Bar struct {
	BucketKey string
	Date      string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// AggregateOHLCV folds daily rows into day/week/month bars:
// open = first row, high/low = extremes, close = last row,
// volume = sum. Output is ascending by bucket key. Day-bucketing an
// already daily series is the identity.
func AggregateOHLCV(rows []models.DailyPrice, bucket Bucket) []Bar {
	sorted := make([]models.DailyPrice, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byKey := map[string]*Bar{}
	var keys []string

	for _, row := range sorted {
		dateStr := row.Date.Format("2006-01-02")
		key := bucketKey(row.Date, bucket)

		b, ok := byKey[key]
		if !ok {
			byKey[key] = &Bar{
				BucketKey: key,
				Date:      dateStr,
				Open:      row.Open,
				High:      row.High,
				Low:       row.Low,
				Close:     row.Close,
				Volume:    row.Volume,
			}
			keys = append(keys, key)
			continue
		}

		if row.High > b.High {
			b.High = row.High
		}
		if row.Low < b.Low {
			b.Low = row.Low
		}
		b.Close = row.Close
		b.Volume += row.Volume
		b.Date = dateStr
	}

	sort.Strings(keys)
	out := make([]Bar, 0, len(keys))
	for _, key := range keys {
		out = append(out, *byKey[key])
	}
	return out
}

func bucketKey(date time.Time, bucket Bucket) string {
	switch bucket {
	case BucketWeek:
		return mondayOf(date).Format("2006-01-02")
	case BucketMonth:
		return date.Format("2006-01")
	default:
		return date.Format("2006-01-02")
	}
}

// mondayOf returns the Monday starting the ISO week of d.
func mondayOf(d time.Time) time.Time {
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset = 6 // Sunday belongs to the preceding Monday
	}
	return d.AddDate(0, 0, -offset)
}
