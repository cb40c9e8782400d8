package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Granularity is the width of a time-series bucket.
type Granularity string

const (
	Hourly Granularity = "hour"
	Daily  Granularity = "day"
)

// Dimension is a click attribute results can be grouped by.
type Dimension string

const (
	ByCountry     Dimension = "country"
	ByCity        Dimension = "city"
	ByDeviceType  Dimension = "device_type"
	ByBrowser     Dimension = "browser"
	ByOS          Dimension = "os"
	ByReferrer    Dimension = "referrer"
	ByUTMSource   Dimension = "utm_source"
	ByUTMCampaign Dimension = "utm_campaign"
)

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Filter narrows an aggregation. Nil bounds take defaults: End is now and
// Start is thirty days before End.
type Filter struct {
	Start       *time.Time
	End         *time.Time
	ExcludeBots bool
	IncludeCity bool
	Limit       int
}

// Range is a normalized half-open interval [Start, End).
type Range struct {
	Start  time.Time   `json:"start_date"`
	End    time.Time   `json:"end_date"`
	Bucket Granularity `json:"bucket"`
}

// Scope selects the clicks an aggregation covers. Both nil means all data.
type Scope struct {
	LinkID  *uuid.UUID
	OwnerID *uuid.UUID
}

// ClickTotals are raw counts over a scope and range.
type ClickTotals struct {
	TotalClicks    int64 `json:"total_clicks"`
	UniqueClicks   int64 `json:"unique_clicks"`
	BotClicks      int64 `json:"bot_clicks"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// Count is one group of a breakdown.
type Count struct {
	Key          string  `json:"key"`
	Clicks       int64   `json:"clicks"`
	UniqueClicks int64   `json:"unique_clicks"`
	Percentage   float64 `json:"percentage"`
}

// GeoCount is a country, or a city within a country.
type GeoCount struct {
	Country      string  `json:"country"`
	City         string  `json:"city,omitempty"`
	Clicks       int64   `json:"clicks"`
	UniqueClicks int64   `json:"unique_clicks"`
	Percentage   float64 `json:"percentage"`
}

// Bucket is one time-series point. Buckets with no activity are present
// with zero counts.
type Bucket struct {
	Start        time.Time `json:"start"`
	Clicks       int64     `json:"clicks"`
	UniqueClicks int64     `json:"unique_clicks"`
}

// LinkBucket counts links created in one bucket.
type LinkBucket struct {
	Start time.Time `json:"start"`
	Links int64     `json:"links"`
}

// HourCount is clicks in one UTC hour of the day, 0 to 23.
type HourCount struct {
	Hour   int   `json:"hour"`
	Clicks int64 `json:"clicks"`
}

// RecentClick is a click as shown in activity feeds. The IP is not exposed.
type RecentClick struct {
	ID         uuid.UUID `json:"id"`
	LinkID     uuid.UUID `json:"link_id"`
	ShortCode  string    `json:"short_code"`
	Country    *string   `json:"country"`
	City       *string   `json:"city"`
	Browser    string    `json:"browser"`
	OS         string    `json:"os"`
	DeviceType string    `json:"device_type"`
	Referrer   string    `json:"referrer"`
	IsBot      bool      `json:"is_bot"`
	IsUnique   bool      `json:"is_unique"`
	ClickedAt  time.Time `json:"clicked_at"`
}

// ActiveLink is a link ranked by clicks inside a window.
type ActiveLink struct {
	LinkID      uuid.UUID `json:"link_id"`
	ShortCode   string    `json:"short_code"`
	OriginalURL string    `json:"original_url"`
	Clicks      int64     `json:"clicks"`
	Visitors    int64     `json:"visitors"`
}

// LinkTotals are lifetime link counters summed over a scope.
type LinkTotals struct {
	TotalLinks   int64 `json:"total_links"`
	ActiveLinks  int64 `json:"active_links"`
	ClickCount   int64 `json:"click_count"`
	UniqueClicks int64 `json:"unique_clicks"`
}

// TopLink is a link ranked by its lifetime click counter.
type TopLink struct {
	ID               uuid.UUID `json:"id"`
	ShortCode        string    `json:"short_code"`
	CustomAlias      string    `json:"custom_alias,omitempty"`
	OriginalURL      string    `json:"original_url"`
	Title            string    `json:"title"`
	IsActive         bool      `json:"is_active"`
	ClickCount       int64     `json:"click_count"`
	UniqueClicks     int64     `json:"unique_clicks"`
	ClickThroughRate float64   `json:"click_through_rate"`
	CreatedAt        time.Time `json:"created_at"`
}

// Trend compares the first and second halves of a range.
type Trend struct {
	Direction     string   `json:"direction"`
	FirstHalf     int64    `json:"first_half_clicks"`
	SecondHalf    int64    `json:"second_half_clicks"`
	ChangePercent *float64 `json:"change_percent"`
}

// Performance holds derived metrics over a range.
type Performance struct {
	ClicksPerDay   float64 `json:"clicks_per_day"`
	ConversionRate float64 `json:"conversion_rate"`
	Trend          Trend   `json:"trend"`
	PeakBucket     *Bucket `json:"peak_bucket"`
}

// RealTimeCounts are the fixed short windows reported with link analytics.
type RealTimeCounts struct {
	LastFiveMinutes int64 `json:"last_5_minutes"`
	LastHour        int64 `json:"last_hour"`
}

// LinkInfo identifies the analysed link.
type LinkInfo struct {
	ID          uuid.UUID  `json:"id"`
	ShortCode   string     `json:"short_code"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Overview summarises clicks over a range.
type Overview struct {
	TotalClicks      int64   `json:"total_clicks"`
	UniqueClicks     int64   `json:"unique_clicks"`
	UniqueVisitors   int64   `json:"unique_visitors"`
	BotClicks        int64   `json:"bot_clicks"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// Geographic groups clicks by location.
type Geographic struct {
	Countries []GeoCount `json:"countries"`
	Cities    []GeoCount `json:"cities,omitempty"`
}

// Technology groups clicks by client.
type Technology struct {
	Devices  []Count `json:"devices"`
	Browsers []Count `json:"browsers"`
	OS       []Count `json:"operating_systems"`
}

// Traffic groups clicks by source and time.
type Traffic struct {
	Referrers  []Count     `json:"referrers"`
	Campaigns  []Count     `json:"campaigns"`
	Sources    []Count     `json:"utm_sources"`
	TimeSeries []Bucket    `json:"time_series"`
	HourOfDay  []HourCount `json:"hour_of_day"`
}

// URLAnalytics is the full report for one link.
type URLAnalytics struct {
	Link        LinkInfo       `json:"link"`
	Range       Range          `json:"range"`
	Overview    Overview       `json:"overview"`
	Geographic  Geographic     `json:"geographic"`
	Technology  Technology     `json:"technology"`
	Traffic     Traffic        `json:"traffic"`
	Performance Performance    `json:"performance"`
	RealTime    RealTimeCounts `json:"real_time"`
}

// DashboardOverview combines lifetime link counters with in-range clicks.
type DashboardOverview struct {
	TotalLinks       int64   `json:"total_links"`
	ActiveLinks      int64   `json:"active_links"`
	LifetimeClicks   int64   `json:"lifetime_clicks"`
	LifetimeUnique   int64   `json:"lifetime_unique_clicks"`
	ClicksInRange    int64   `json:"clicks_in_range"`
	UniqueInRange    int64   `json:"unique_clicks_in_range"`
	UniqueVisitors   int64   `json:"unique_visitors"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// UserDashboard aggregates every link of one owner.
type UserDashboard struct {
	OwnerID        uuid.UUID         `json:"owner_id"`
	Range          Range             `json:"range"`
	Overview       DashboardOverview `json:"overview"`
	TopURLs        []TopLink         `json:"top_urls"`
	Geographic     Geographic        `json:"geographic"`
	Activity       []Bucket          `json:"activity"`
	RecentActivity []RecentClick     `json:"recent_activity"`
}

// PlatformOverview is the global counterpart of DashboardOverview.
type PlatformOverview struct {
	TotalLinks     int64   `json:"total_links"`
	ActiveLinks    int64   `json:"active_links"`
	LifetimeClicks int64   `json:"lifetime_clicks"`
	ClicksInRange  int64   `json:"clicks_in_range"`
	UniqueInRange  int64   `json:"unique_clicks_in_range"`
	UniqueVisitors int64   `json:"unique_visitors"`
	BotClicks      int64   `json:"bot_clicks"`
	BotRate        float64 `json:"bot_rate"`
}

// Growth tracks link creation and clicks over time.
type Growth struct {
	Links  []LinkBucket `json:"links"`
	Clicks []Bucket     `json:"clicks"`
}

// PlatformPerformance adds per-link averages to Performance.
type PlatformPerformance struct {
	Performance
	AvgClicksPerLink float64 `json:"avg_clicks_per_link"`
}

// Trends lists what dominates platform traffic in the range.
type Trends struct {
	TopCountries []GeoCount   `json:"top_countries"`
	TopBrowsers  []Count      `json:"top_browsers"`
	TopDevices   []Count      `json:"top_devices"`
	TopReferrers []Count      `json:"top_referrers"`
	TopLinks     []ActiveLink `json:"top_links"`
}

// PlatformAnalytics covers all owners and anonymous links.
type PlatformAnalytics struct {
	Range       Range               `json:"range"`
	Overview    PlatformOverview    `json:"overview"`
	Growth      Growth              `json:"growth"`
	Performance PlatformPerformance `json:"performance"`
	Trends      Trends              `json:"trends"`
}

// RealTimeOptions selects the sliding window. Minutes defaults to 60 and
// must lie in 1..1440. A nil OwnerID covers all data.
type RealTimeOptions struct {
	Minutes int
	OwnerID *uuid.UUID
}

// TimeWindow is the concrete window a real-time query covered.
type TimeWindow struct {
	Minutes int       `json:"minutes"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// RealTimeStatistics are click counts inside the window.
type RealTimeStatistics struct {
	TotalClicks  int64   `json:"total_clicks"`
	UniqueClicks int64   `json:"unique_clicks"`
	BotClicks    int64   `json:"bot_clicks"`
	ClicksPerMin float64 `json:"clicks_per_minute"`
}

// RealTime is a sliding-window snapshot.
type RealTime struct {
	TimeWindow   TimeWindow         `json:"time_window"`
	Statistics   RealTimeStatistics `json:"statistics"`
	ActiveURLs   []ActiveLink       `json:"active_urls"`
	LiveVisitors int64              `json:"live_visitors"`
	RecentClicks []RecentClick      `json:"recent_clicks"`
}

// Report types and formats.
const (
	ReportURL      = "url"
	ReportUser     = "user"
	ReportPlatform = "platform"

	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ReportCriteria selects a report. Requester is the caller's owner id; nil
// means the caller has platform scope.
type ReportCriteria struct {
	Type        string
	TargetID    *uuid.UUID
	Requester   *uuid.UUID
	Start       *time.Time
	End         *time.Time
	ExcludeBots bool
	Format      string
}

// Report wraps one of URLAnalytics, UserDashboard or PlatformAnalytics.
type Report struct {
	Type        string     `json:"type"`
	Format      string     `json:"format"`
	TargetID    *uuid.UUID `json:"target_id,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
	Data        any        `json:"data"`
}

// SummaryItem is the outcome for one requested link.
type SummaryItem struct {
	LinkID   string    `json:"link_id"`
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Link     *LinkInfo `json:"link,omitempty"`
	Overview *Overview `json:"overview,omitempty"`
}

// Summary holds per-link results. One failing link never fails the batch.
type Summary struct {
	Range     Range         `json:"range"`
	Items     []SummaryItem `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// CleanupOptions drive retention cleanup.
type CleanupOptions struct {
	RetentionDays int
	DryRun        bool
}

// CleanupResult reports what cleanup did, or would do on a dry run.
type CleanupResult struct {
	CutoffDate      time.Time `json:"cutoff_date"`
	DryRun          bool      `json:"dry_run"`
	RecordsToDelete *int64    `json:"records_to_delete,omitempty"`
	DeletedCount    *int64    `json:"deleted_count,omitempty"`
}
