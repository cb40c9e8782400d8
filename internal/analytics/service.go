package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

const (
	DefaultQueryTimeout    = 10 * time.Second
	DefaultMaxGroups       = 50
	DefaultMaxSummaryItems = 50
	DefaultDashboardLimit  = 10
	DefaultRealTimeMinutes = 60
	MaxRealTimeMinutes     = 1440
	recentActivityLimit    = 20
	activeLinksLimit       = 10
	maxParallelQueries     = 4
)

// Aggregator answers analytics questions over the click and link stores.
type Aggregator interface {
	URLAnalytics(ctx context.Context, linkID uuid.UUID, ownerID *uuid.UUID, f Filter) (URLAnalytics, error)
	UserDashboard(ctx context.Context, ownerID uuid.UUID, f Filter) (UserDashboard, error)
	PlatformAnalytics(ctx context.Context, f Filter) (PlatformAnalytics, error)
	RealTime(ctx context.Context, opts RealTimeOptions) (RealTime, error)
	Report(ctx context.Context, c ReportCriteria) (Report, error)
	Summary(ctx context.Context, ownerID *uuid.UUID, linkIDs []string, f Filter) (Summary, error)
	Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error)
}

// LinkLookup loads a link by id. links.Repository satisfies it.
type LinkLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (links.Link, error)
}

type service struct {
	repo       Repository
	links      LinkLookup
	timeout    time.Duration
	maxDays    int
	maxGroups  int
	maxSummary int
	logger     *slog.Logger
	now        func() time.Time
}

// ServiceConfig holds the aggregator's bounds.
type ServiceConfig struct {
	QueryTimeout    time.Duration
	MaxRangeDays    int
	MaxGroups       int
	MaxSummaryItems int
	Logger          *slog.Logger
	Now             func() time.Time
}

// NewService creates an Aggregator.
func NewService(repo Repository, lookup LinkLookup, cfg *ServiceConfig) Aggregator {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &service{
		repo:       repo,
		links:      lookup,
		timeout:    timeout,
		maxDays:    positiveOr(cfg.MaxRangeDays, DefaultMaxDays),
		maxGroups:  positiveOr(cfg.MaxGroups, DefaultMaxGroups),
		maxSummary: positiveOr(cfg.MaxSummaryItems, DefaultMaxSummaryItems),
		logger:     logger,
		now:        now,
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (s *service) rangeOf(op string, f Filter) (Range, error) {
	r, err := NormalizeRange(f.Start, f.End, s.now(), s.maxDays)
	if err != nil {
		return Range{}, errx.E(op, errx.Invalid, err)
	}
	return r, nil
}

// fanOut runs fns concurrently under the query timeout and returns the
// first error.
func (s *service) fanOut(ctx context.Context, fns ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQueries)
	for _, fn := range fns {
		g.Go(func() error { return fn(ctx) })
	}
	return g.Wait()
}

// ownedLink loads a link, hiding links of other owners. A nil ownerID
// skips the ownership check.
func (s *service) ownedLink(ctx context.Context, op string, linkID uuid.UUID, ownerID *uuid.UUID) (links.Link, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return links.Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if ownerID != nil && !link.OwnedBy(*ownerID) {
		return links.Link{}, errx.E(op, errx.NotFound, errors.New("link not found"))
	}
	return link, nil
}

func linkInfo(l links.Link) LinkInfo {
	return LinkInfo{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		CustomAlias: l.CustomAlias,
		OriginalURL: l.OriginalURL,
		Title:       l.Title,
		IsActive:    l.IsActive,
		ExpiresAt:   l.ExpiresAt,
		CreatedAt:   l.CreatedAt,
	}
}

// URLAnalytics reports on one link. A range before the link existed is
// not an error; it simply has no clicks.
func (s *service) URLAnalytics(ctx context.Context, linkID uuid.UUID, ownerID *uuid.UUID, f Filter) (URLAnalytics, error) {
	const op = "analytics.service.URLAnalytics"

	r, err := s.rangeOf(op, f)
	if err != nil {
		return URLAnalytics{}, err
	}
	link, err := s.ownedLink(ctx, op, linkID, ownerID)
	if err != nil {
		return URLAnalytics{}, err
	}

	scope := Scope{LinkID: &link.ID}
	bots := f.ExcludeBots
	now := s.now().UTC()
	firstHalf := Range{Start: r.Start, End: r.Midpoint()}
	secondHalf := Range{Start: r.Midpoint(), End: r.End}

	var (
		out                           = URLAnalytics{Link: linkInfo(link), Range: r}
		totals, first, second         ClickTotals
		last5, lastHour               ClickTotals
		countries, cities             []Count
		devices, browsers, systems    []Count
		referrers, campaigns, sources []Count
		series                        []Bucket
		hours                         []HourCount
	)

	breakdown := func(dim Dimension, dst *[]Count) func(context.Context) error {
		return func(ctx context.Context) error {
			rows, err := s.repo.Breakdown(ctx, scope, r, dim, bots, s.maxGroups)
			*dst = rows
			return err
		}
	}
	totalsOf := func(rg Range, dst *ClickTotals) func(context.Context) error {
		return func(ctx context.Context) error {
			t, err := s.repo.ClickTotals(ctx, scope, rg, bots)
			*dst = t
			return err
		}
	}

	fns := []func(context.Context) error{
		totalsOf(r, &totals),
		totalsOf(firstHalf, &first),
		totalsOf(secondHalf, &second),
		totalsOf(Range{Start: now.Add(-5 * time.Minute), End: now}, &last5),
		totalsOf(Range{Start: now.Add(-time.Hour), End: now}, &lastHour),
		breakdown(ByCountry, &countries),
		breakdown(ByDeviceType, &devices),
		breakdown(ByBrowser, &browsers),
		breakdown(ByOS, &systems),
		breakdown(ByReferrer, &referrers),
		breakdown(ByUTMCampaign, &campaigns),
		breakdown(ByUTMSource, &sources),
		func(ctx context.Context) error {
			rows, err := s.repo.TimeSeries(ctx, scope, r, bots)
			series = rows
			return err
		},
		func(ctx context.Context) error {
			rows, err := s.repo.HourOfDay(ctx, scope, r, bots)
			hours = rows
			return err
		},
	}
	if f.IncludeCity {
		fns = append(fns, breakdown(ByCity, &cities))
	}

	if err := s.fanOut(ctx, fns...); err != nil {
		return URLAnalytics{}, errx.E(op, errx.KindOf(err), err)
	}

	series = fillBuckets(r, series)
	out.Overview = overviewOf(totals)
	out.Geographic = Geographic{Countries: geoOf(countries, totals.TotalClicks, false)}
	if f.IncludeCity {
		out.Geographic.Cities = geoOf(cities, totals.TotalClicks, true)
	}
	out.Technology = Technology{
		Devices:  withShares(devices, totals.TotalClicks),
		Browsers: withShares(browsers, totals.TotalClicks),
		OS:       withShares(systems, totals.TotalClicks),
	}
	out.Traffic = Traffic{
		Referrers:  withShares(referrers, totals.TotalClicks),
		Campaigns:  withShares(campaigns, totals.TotalClicks),
		Sources:    withShares(sources, totals.TotalClicks),
		TimeSeries: series,
		HourOfDay:  fillHours(hours),
	}
	out.Performance = performanceOf(r, totals, first.TotalClicks, second.TotalClicks, series)
	out.RealTime = RealTimeCounts{LastFiveMinutes: last5.TotalClicks, LastHour: lastHour.TotalClicks}
	return out, nil
}

func (s *service) UserDashboard(ctx context.Context, ownerID uuid.UUID, f Filter) (UserDashboard, error) {
	const op = "analytics.service.UserDashboard"

	r, err := s.rangeOf(op, f)
	if err != nil {
		return UserDashboard{}, err
	}
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultDashboardLimit
	case limit > s.maxGroups:
		limit = s.maxGroups
	}

	scope := Scope{OwnerID: &ownerID}
	var (
		linkTotals LinkTotals
		totals     ClickTotals
		top        []TopLink
		countries  []Count
		series     []Bucket
		recent     []RecentClick
	)
	err = s.fanOut(ctx,
		func(ctx context.Context) (err error) {
			linkTotals, err = s.repo.LinkTotals(ctx, &ownerID)
			return err
		},
		func(ctx context.Context) (err error) {
			totals, err = s.repo.ClickTotals(ctx, scope, r, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			top, err = s.repo.TopLinks(ctx, &ownerID, limit)
			return err
		},
		func(ctx context.Context) (err error) {
			countries, err = s.repo.Breakdown(ctx, scope, r, ByCountry, f.ExcludeBots, s.maxGroups)
			return err
		},
		func(ctx context.Context) (err error) {
			series, err = s.repo.TimeSeries(ctx, scope, r, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			recent, err = s.repo.RecentClicks(ctx, scope, r, recentActivityLimit)
			return err
		},
	)
	if err != nil {
		return UserDashboard{}, errx.E(op, errx.KindOf(err), err)
	}

	return UserDashboard{
		OwnerID: ownerID,
		Range:   r,
		Overview: DashboardOverview{
			TotalLinks:       linkTotals.TotalLinks,
			ActiveLinks:      linkTotals.ActiveLinks,
			LifetimeClicks:   linkTotals.ClickCount,
			LifetimeUnique:   linkTotals.UniqueClicks,
			ClicksInRange:    totals.TotalClicks,
			UniqueInRange:    totals.UniqueClicks,
			UniqueVisitors:   totals.UniqueVisitors,
			ClickThroughRate: rate(linkTotals.UniqueClicks, linkTotals.ClickCount),
		},
		TopURLs:        top,
		Geographic:     Geographic{Countries: geoOf(countries, totals.TotalClicks, false)},
		Activity:       fillBuckets(r, series),
		RecentActivity: recent,
	}, nil
}

func (s *service) PlatformAnalytics(ctx context.Context, f Filter) (PlatformAnalytics, error) {
	const op = "analytics.service.PlatformAnalytics"

	r, err := s.rangeOf(op, f)
	if err != nil {
		return PlatformAnalytics{}, err
	}

	var (
		all                                Scope
		linkTotals                         LinkTotals
		totals, first, second              ClickTotals
		created                            []LinkBucket
		series                             []Bucket
		countries, browsers, devices, refs []Count
		active                             []ActiveLink
	)
	err = s.fanOut(ctx,
		func(ctx context.Context) (err error) {
			linkTotals, err = s.repo.LinkTotals(ctx, nil)
			return err
		},
		func(ctx context.Context) (err error) {
			totals, err = s.repo.ClickTotals(ctx, all, r, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			first, err = s.repo.ClickTotals(ctx, all, Range{Start: r.Start, End: r.Midpoint()}, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			second, err = s.repo.ClickTotals(ctx, all, Range{Start: r.Midpoint(), End: r.End}, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			created, err = s.repo.LinksCreated(ctx, nil, r)
			return err
		},
		func(ctx context.Context) (err error) {
			series, err = s.repo.TimeSeries(ctx, all, r, f.ExcludeBots)
			return err
		},
		func(ctx context.Context) (err error) {
			countries, err = s.repo.Breakdown(ctx, all, r, ByCountry, f.ExcludeBots, s.maxGroups)
			return err
		},
		func(ctx context.Context) (err error) {
			browsers, err = s.repo.Breakdown(ctx, all, r, ByBrowser, f.ExcludeBots, s.maxGroups)
			return err
		},
		func(ctx context.Context) (err error) {
			devices, err = s.repo.Breakdown(ctx, all, r, ByDeviceType, f.ExcludeBots, s.maxGroups)
			return err
		},
		func(ctx context.Context) (err error) {
			refs, err = s.repo.Breakdown(ctx, all, r, ByReferrer, f.ExcludeBots, s.maxGroups)
			return err
		},
		func(ctx context.Context) (err error) {
			active, err = s.repo.ActiveLinks(ctx, nil, r, activeLinksLimit)
			return err
		},
	)
	if err != nil {
		return PlatformAnalytics{}, errx.E(op, errx.KindOf(err), err)
	}

	series = fillBuckets(r, series)
	var avgPerLink float64
	if linkTotals.TotalLinks > 0 {
		avgPerLink = round2(float64(linkTotals.ClickCount) / float64(linkTotals.TotalLinks))
	}

	return PlatformAnalytics{
		Range: r,
		Overview: PlatformOverview{
			TotalLinks:     linkTotals.TotalLinks,
			ActiveLinks:    linkTotals.ActiveLinks,
			LifetimeClicks: linkTotals.ClickCount,
			ClicksInRange:  totals.TotalClicks,
			UniqueInRange:  totals.UniqueClicks,
			UniqueVisitors: totals.UniqueVisitors,
			BotClicks:      totals.BotClicks,
			BotRate:        rate(totals.BotClicks, totals.TotalClicks),
		},
		Growth: Growth{
			Links:  fillLinkBuckets(r, created),
			Clicks: series,
		},
		Performance: PlatformPerformance{
			Performance:      performanceOf(r, totals, first.TotalClicks, second.TotalClicks, series),
			AvgClicksPerLink: avgPerLink,
		},
		Trends: Trends{
			TopCountries: geoOf(countries, totals.TotalClicks, false),
			TopBrowsers:  withShares(browsers, totals.TotalClicks),
			TopDevices:   withShares(devices, totals.TotalClicks),
			TopReferrers: withShares(refs, totals.TotalClicks),
			TopLinks:     active,
		},
	}, nil
}

func (s *service) RealTime(ctx context.Context, opts RealTimeOptions) (RealTime, error) {
	const op = "analytics.service.RealTime"

	minutes := opts.Minutes
	if minutes == 0 {
		minutes = DefaultRealTimeMinutes
	}
	if minutes < 1 || minutes > MaxRealTimeMinutes {
		return RealTime{}, errx.E(op, errx.Invalid,
			fmt.Errorf("minutes must be between 1 and %d", MaxRealTimeMinutes))
	}

	end := s.now().UTC()
	window := Range{Start: end.Add(-time.Duration(minutes) * time.Minute), End: end, Bucket: Hourly}
	scope := Scope{OwnerID: opts.OwnerID}

	var (
		totals ClickTotals
		active []ActiveLink
		recent []RecentClick
	)
	err := s.fanOut(ctx,
		func(ctx context.Context) (err error) {
			totals, err = s.repo.ClickTotals(ctx, scope, window, false)
			return err
		},
		func(ctx context.Context) (err error) {
			active, err = s.repo.ActiveLinks(ctx, opts.OwnerID, window, activeLinksLimit)
			return err
		},
		func(ctx context.Context) (err error) {
			recent, err = s.repo.RecentClicks(ctx, scope, window, recentActivityLimit)
			return err
		},
	)
	if err != nil {
		return RealTime{}, errx.E(op, errx.KindOf(err), err)
	}

	return RealTime{
		TimeWindow: TimeWindow{Minutes: minutes, Start: window.Start, End: window.End},
		Statistics: RealTimeStatistics{
			TotalClicks:  totals.TotalClicks,
			UniqueClicks: totals.UniqueClicks,
			BotClicks:    totals.BotClicks,
			ClicksPerMin: round2(float64(totals.TotalClicks) / float64(minutes)),
		},
		ActiveURLs:   active,
		LiveVisitors: totals.UniqueVisitors,
		RecentClicks: recent,
	}, nil
}

// Report routes to the same methods the direct endpoints use, so numbers
// never differ between a report and its live counterpart.
func (s *service) Report(ctx context.Context, c ReportCriteria) (Report, error) {
	const op = "analytics.service.Report"

	format := strings.ToLower(strings.TrimSpace(c.Format))
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return Report{}, errx.E(op, errx.Invalid, fmt.Errorf("unsupported format %q (json or yaml)", c.Format))
	}

	f := Filter{Start: c.Start, End: c.End, ExcludeBots: c.ExcludeBots}
	rep := Report{Type: c.Type, Format: format, TargetID: c.TargetID}

	var (
		data any
		err  error
	)
	switch c.Type {
	case ReportURL:
		if c.TargetID == nil {
			return Report{}, errx.E(op, errx.Invalid, errors.New("target_id is required for url reports"))
		}
		data, err = s.URLAnalytics(ctx, *c.TargetID, c.Requester, f)
	case ReportUser:
		target := c.TargetID
		if target == nil {
			target = c.Requester
		}
		if target == nil {
			return Report{}, errx.E(op, errx.Invalid, errors.New("target_id is required for user reports"))
		}
		if c.Requester != nil && *target != *c.Requester {
			return Report{}, errx.E(op, errx.Forbidden, errors.New("cannot report on another owner"))
		}
		rep.TargetID = target
		data, err = s.UserDashboard(ctx, *target, f)
	case ReportPlatform:
		if c.Requester != nil {
			return Report{}, errx.E(op, errx.Forbidden, errors.New("platform reports require admin scope"))
		}
		data, err = s.PlatformAnalytics(ctx, f)
	default:
		return Report{}, errx.E(op, errx.Invalid, fmt.Errorf("unknown report type %q (url, user or platform)", c.Type))
	}
	if err != nil {
		return Report{}, errx.E(op, errx.KindOf(err), err)
	}

	rep.Data = data
	rep.GeneratedAt = s.now().UTC()
	return rep, nil
}

// Summary reports an overview per link. Malformed, missing and foreign ids
// fail only their own item.
func (s *service) Summary(ctx context.Context, ownerID *uuid.UUID, linkIDs []string, f Filter) (Summary, error) {
	const op = "analytics.service.Summary"

	if len(linkIDs) == 0 {
		return Summary{}, errx.E(op, errx.Invalid, errors.New("link_ids cannot be empty"))
	}
	if len(linkIDs) > s.maxSummary {
		return Summary{}, errx.E(op, errx.Invalid, fmt.Errorf("at most %d link_ids per summary", s.maxSummary))
	}
	r, err := s.rangeOf(op, f)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Range: r, Items: make([]SummaryItem, 0, len(linkIDs))}
	seen := make(map[string]bool, len(linkIDs))
	for _, raw := range linkIDs {
		raw = strings.TrimSpace(raw)
		if seen[raw] {
			continue
		}
		seen[raw] = true

		item := s.summaryItem(ctx, raw, ownerID, r, f.ExcludeBots)
		if item.OK {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (s *service) summaryItem(ctx context.Context, raw string, ownerID *uuid.UUID, r Range, excludeBots bool) SummaryItem {
	const op = "analytics.service.Summary"
	item := SummaryItem{LinkID: raw}

	id, err := uuid.Parse(raw)
	if err != nil {
		item.Error = "invalid link id"
		return item
	}
	link, err := s.ownedLink(ctx, op, id, ownerID)
	if err != nil {
		item.Error = itemError(err)
		return item
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	totals, err := s.repo.ClickTotals(qctx, Scope{LinkID: &link.ID}, r, excludeBots)
	if err != nil {
		s.logger.WarnContext(ctx, "summary item failed",
			"link_id", raw,
			"error", err.Error(),
		)
		item.Error = itemError(err)
		return item
	}

	info := linkInfo(link)
	overview := overviewOf(totals)
	item.OK = true
	item.Link = &info
	item.Overview = &overview
	return item
}

func itemError(err error) string {
	switch errx.KindOf(err) {
	case errx.NotFound:
		return "link not found"
	case errx.Unavailable:
		return "temporarily unavailable"
	default:
		return "internal error"
	}
}

// Cleanup removes clicks older than the retention period. A dry run only
// counts them. Link and owner counters are lifetime totals and are left
// untouched.
func (s *service) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error) {
	const op = "analytics.service.Cleanup"

	if opts.RetentionDays < 1 {
		return CleanupResult{}, errx.E(op, errx.Invalid, errors.New("retention_days must be at least 1"))
	}
	cutoff := s.now().UTC().AddDate(0, 0, -opts.RetentionDays)
	res := CleanupResult{CutoffDate: cutoff, DryRun: opts.DryRun}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if opts.DryRun {
		n, err := s.repo.CountClicksBefore(ctx, cutoff)
		if err != nil {
			return CleanupResult{}, errx.E(op, errx.KindOf(err), err)
		}
		res.RecordsToDelete = &n
		return res, nil
	}

	n, err := s.repo.DeleteClicksBefore(ctx, cutoff)
	if err != nil {
		return CleanupResult{}, errx.E(op, errx.KindOf(err), err)
	}
	res.DeletedCount = &n
	s.logger.InfoContext(ctx, "click retention cleanup",
		"cutoff", cutoff,
		"deleted", n,
	)
	return res, nil
}
