package analytics

import (
	"math"
	"strings"

	"github.com/sundayezeilo/linkmetrics/internal/links"
)

// trendBand is the relative change below which a trend is stable.
const trendBand = 0.10

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rate is links.Rate, kept local so every percentage in a report is
// computed the same way.
func rate(part, total int64) float64 {
	return links.Rate(part, total)
}

func overviewOf(t ClickTotals) Overview {
	return Overview{
		TotalClicks:      t.TotalClicks,
		UniqueClicks:     t.UniqueClicks,
		UniqueVisitors:   t.UniqueVisitors,
		BotClicks:        t.BotClicks,
		ClickThroughRate: rate(t.UniqueClicks, t.TotalClicks),
	}
}

func trendOf(first, second int64) Trend {
	t := Trend{Direction: TrendStable, FirstHalf: first, SecondHalf: second}
	if first > 0 {
		change := round2(float64(second-first) / float64(first) * 100)
		t.ChangePercent = &change
	}
	switch {
	case first == 0 && second > 0:
		t.Direction = TrendUp
	case first == 0:
	case float64(second) > float64(first)*(1+trendBand):
		t.Direction = TrendUp
	case float64(second) < float64(first)*(1-trendBand):
		t.Direction = TrendDown
	}
	return t
}

// peakOf returns the earliest bucket with the most clicks, or nil when
// nothing was clicked.
func peakOf(series []Bucket) *Bucket {
	var peak *Bucket
	for i := range series {
		if series[i].Clicks == 0 {
			continue
		}
		if peak == nil || series[i].Clicks > peak.Clicks {
			b := series[i]
			peak = &b
		}
	}
	return peak
}

func performanceOf(r Range, totals ClickTotals, first, second int64, series []Bucket) Performance {
	return Performance{
		ClicksPerDay:   round2(float64(totals.TotalClicks) / r.Days()),
		ConversionRate: rate(totals.UniqueClicks, totals.TotalClicks),
		Trend:          trendOf(first, second),
		PeakBucket:     peakOf(series),
	}
}

// withShares fills Percentage as each group's share of total.
func withShares(counts []Count, total int64) []Count {
	for i := range counts {
		counts[i].Percentage = rate(counts[i].Clicks, total)
	}
	return counts
}

func geoOf(counts []Count, total int64, cities bool) []GeoCount {
	out := make([]GeoCount, 0, len(counts))
	for _, c := range counts {
		g := GeoCount{
			Country:      c.Key,
			Clicks:       c.Clicks,
			UniqueClicks: c.UniqueClicks,
			Percentage:   rate(c.Clicks, total),
		}
		if cities {
			g.Country, g.City, _ = strings.Cut(c.Key, "/")
		}
		out = append(out, g)
	}
	return out
}
