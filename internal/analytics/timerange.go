package analytics

import (
	"fmt"
	"time"
)

const (
	DefaultRangeDays = 30
	DefaultMaxDays   = 366
	hourlyThreshold  = 48 * time.Hour
	day              = 24 * time.Hour
)

// NormalizeRange applies defaults and bounds to a requested range. The
// result is half-open: Start is included and End is not.
func NormalizeRange(start, end *time.Time, now time.Time, maxDays int) (Range, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}

	r := Range{End: now.UTC()}
	if end != nil {
		r.End = end.UTC()
	}
	r.Start = r.End.AddDate(0, 0, -DefaultRangeDays)
	if start != nil {
		r.Start = start.UTC()
	}

	if !r.Start.Before(r.End) {
		return Range{}, fmt.Errorf("start_date must be before end_date")
	}
	if r.End.Sub(r.Start) > time.Duration(maxDays)*day {
		return Range{}, fmt.Errorf("date range cannot exceed %d days", maxDays)
	}

	r.Bucket = Daily
	if r.End.Sub(r.Start) <= hourlyThreshold {
		r.Bucket = Hourly
	}
	return r, nil
}

// Days is the range length in days, at least one.
func (r Range) Days() float64 {
	d := r.End.Sub(r.Start).Hours() / 24
	if d < 1 {
		return 1
	}
	return d
}

// Midpoint splits the range into two halves for trend comparison.
func (r Range) Midpoint() time.Time {
	return r.Start.Add(r.End.Sub(r.Start) / 2)
}

func (r Range) step() time.Duration {
	if r.Bucket == Hourly {
		return time.Hour
	}
	return day
}

func (r Range) floor(t time.Time) time.Time {
	t = t.UTC()
	if r.Bucket == Hourly {
		return t.Truncate(time.Hour)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// bucketStarts lists every bucket overlapping the range, oldest first.
func (r Range) bucketStarts() []time.Time {
	var out []time.Time
	for t := r.floor(r.Start); t.Before(r.End); t = t.Add(r.step()) {
		out = append(out, t)
	}
	return out
}

// fillBuckets returns one bucket per step, zero where rows has none.
func fillBuckets(r Range, rows []Bucket) []Bucket {
	byStart := make(map[int64]Bucket, len(rows))
	for _, b := range rows {
		byStart[r.floor(b.Start).Unix()] = b
	}
	starts := r.bucketStarts()
	out := make([]Bucket, 0, len(starts))
	for _, s := range starts {
		b := byStart[s.Unix()]
		b.Start = s
		out = append(out, b)
	}
	return out
}

func fillLinkBuckets(r Range, rows []LinkBucket) []LinkBucket {
	byStart := make(map[int64]int64, len(rows))
	for _, b := range rows {
		byStart[r.floor(b.Start).Unix()] = b.Links
	}
	starts := r.bucketStarts()
	out := make([]LinkBucket, 0, len(starts))
	for _, s := range starts {
		out = append(out, LinkBucket{Start: s, Links: byStart[s.Unix()]})
	}
	return out
}

// fillHours returns all 24 hours of the day.
func fillHours(rows []HourCount) []HourCount {
	out := make([]HourCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			out[row.Hour].Clicks = row.Clicks
		}
	}
	return out
}
