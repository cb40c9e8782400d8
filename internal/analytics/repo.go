package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/linkmetrics/internal/db/sqlc"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

// Repository is the read side of the click and link stores, plus the
// retention delete.
type Repository interface {
	ClickTotals(ctx context.Context, s Scope, r Range, excludeBots bool) (ClickTotals, error)
	Breakdown(ctx context.Context, s Scope, r Range, dim Dimension, excludeBots bool, limit int) ([]Count, error)
	TimeSeries(ctx context.Context, s Scope, r Range, excludeBots bool) ([]Bucket, error)
	HourOfDay(ctx context.Context, s Scope, r Range, excludeBots bool) ([]HourCount, error)
	RecentClicks(ctx context.Context, s Scope, r Range, limit int) ([]RecentClick, error)
	ActiveLinks(ctx context.Context, ownerID *uuid.UUID, r Range, limit int) ([]ActiveLink, error)
	LinkTotals(ctx context.Context, ownerID *uuid.UUID) (LinkTotals, error)
	TopLinks(ctx context.Context, ownerID *uuid.UUID, limit int) ([]TopLink, error)
	LinksCreated(ctx context.Context, ownerID *uuid.UUID, r Range) ([]LinkBucket, error)
	CountClicksBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteClicksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgRepository struct {
	q *db.Queries
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(dbtx db.DBTX) Repository {
	return &pgRepository{q: db.New(dbtx)}
}

func mapQueryError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errx.E(op, errx.Unavailable, fmt.Errorf("analytics query timed out: %w", err))
	}
	return errx.E(op, errx.Unavailable, err)
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func (r *pgRepository) ClickTotals(ctx context.Context, s Scope, rg Range, excludeBots bool) (ClickTotals, error) {
	const op = "analytics.repo.ClickTotals"

	row, err := r.q.ClickTotals(ctx, db.ClickTotalsParams{
		LinkID:      nullUUID(s.LinkID),
		OwnerID:     nullUUID(s.OwnerID),
		StartAt:     ts(rg.Start),
		EndAt:       ts(rg.End),
		ExcludeBots: excludeBots,
	})
	if err != nil {
		return ClickTotals{}, mapQueryError(op, err)
	}
	return ClickTotals{
		TotalClicks:    row.TotalClicks,
		UniqueClicks:   row.UniqueClicks,
		BotClicks:      row.BotClicks,
		UniqueVisitors: row.UniqueVisitors,
	}, nil
}

func (r *pgRepository) Breakdown(ctx context.Context, s Scope, rg Range, dim Dimension, excludeBots bool, limit int) ([]Count, error) {
	const op = "analytics.repo.Breakdown"

	rows, err := r.q.ClickBreakdown(ctx, db.ClickBreakdownParams{
		Dimension:   string(dim),
		LinkID:      nullUUID(s.LinkID),
		OwnerID:     nullUUID(s.OwnerID),
		StartAt:     ts(rg.Start),
		EndAt:       ts(rg.End),
		ExcludeBots: excludeBots,
		RowLimit:    int32(limit),
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]Count, 0, len(rows))
	for _, row := range rows {
		out = append(out, Count{Key: row.Key, Clicks: row.Clicks, UniqueClicks: row.UniqueClicks})
	}
	return out, nil
}

func (r *pgRepository) TimeSeries(ctx context.Context, s Scope, rg Range, excludeBots bool) ([]Bucket, error) {
	const op = "analytics.repo.TimeSeries"

	rows, err := r.q.ClickTimeSeries(ctx, db.ClickTimeSeriesParams{
		Bucket:      string(rg.Bucket),
		LinkID:      nullUUID(s.LinkID),
		OwnerID:     nullUUID(s.OwnerID),
		StartAt:     ts(rg.Start),
		EndAt:       ts(rg.End),
		ExcludeBots: excludeBots,
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		out = append(out, Bucket{Start: row.BucketStart.Time.UTC(), Clicks: row.Clicks, UniqueClicks: row.UniqueClicks})
	}
	return out, nil
}

func (r *pgRepository) HourOfDay(ctx context.Context, s Scope, rg Range, excludeBots bool) ([]HourCount, error) {
	const op = "analytics.repo.HourOfDay"

	rows, err := r.q.ClicksByHourOfDay(ctx, db.ClicksByHourOfDayParams{
		LinkID:      nullUUID(s.LinkID),
		OwnerID:     nullUUID(s.OwnerID),
		StartAt:     ts(rg.Start),
		EndAt:       ts(rg.End),
		ExcludeBots: excludeBots,
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]HourCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, HourCount{Hour: int(row.Hour), Clicks: row.Clicks})
	}
	return out, nil
}

func (r *pgRepository) RecentClicks(ctx context.Context, s Scope, rg Range, limit int) ([]RecentClick, error) {
	const op = "analytics.repo.RecentClicks"

	rows, err := r.q.RecentClicks(ctx, db.RecentClicksParams{
		LinkID:   nullUUID(s.LinkID),
		OwnerID:  nullUUID(s.OwnerID),
		StartAt:  ts(rg.Start),
		EndAt:    ts(rg.End),
		RowLimit: int32(limit),
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]RecentClick, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecentClick{
			ID:         row.ID,
			LinkID:     row.LinkID,
			ShortCode:  row.ShortCode,
			Country:    textPtr(row.Country),
			City:       textPtr(row.City),
			Browser:    row.Browser,
			OS:         row.Os,
			DeviceType: row.DeviceType,
			Referrer:   row.Referrer,
			IsBot:      row.IsBot,
			IsUnique:   row.IsUnique,
			ClickedAt:  row.ClickedAt.Time.UTC(),
		})
	}
	return out, nil
}

func (r *pgRepository) ActiveLinks(ctx context.Context, ownerID *uuid.UUID, rg Range, limit int) ([]ActiveLink, error) {
	const op = "analytics.repo.ActiveLinks"

	rows, err := r.q.TopClickedLinks(ctx, db.TopClickedLinksParams{
		OwnerID:  nullUUID(ownerID),
		StartAt:  ts(rg.Start),
		EndAt:    ts(rg.End),
		RowLimit: int32(limit),
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]ActiveLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActiveLink{
			LinkID:      row.LinkID,
			ShortCode:   row.ShortCode,
			OriginalURL: row.OriginalUrl,
			Clicks:      row.Clicks,
			Visitors:    row.Visitors,
		})
	}
	return out, nil
}

func (r *pgRepository) LinkTotals(ctx context.Context, ownerID *uuid.UUID) (LinkTotals, error) {
	const op = "analytics.repo.LinkTotals"

	row, err := r.q.LinkTotals(ctx, nullUUID(ownerID))
	if err != nil {
		return LinkTotals{}, mapQueryError(op, err)
	}
	return LinkTotals{
		TotalLinks:   row.TotalLinks,
		ActiveLinks:  row.ActiveLinks,
		ClickCount:   row.ClickCount,
		UniqueClicks: row.UniqueClicks,
	}, nil
}

func (r *pgRepository) TopLinks(ctx context.Context, ownerID *uuid.UUID, limit int) ([]TopLink, error) {
	const op = "analytics.repo.TopLinks"

	rows, err := r.q.TopLinksByClicks(ctx, db.TopLinksByClicksParams{
		OwnerID:  nullUUID(ownerID),
		RowLimit: int32(limit),
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]TopLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, TopLink{
			ID:               row.ID,
			ShortCode:        row.ShortCode,
			CustomAlias:      row.CustomAlias.String,
			OriginalURL:      row.OriginalUrl,
			Title:            row.Title,
			IsActive:         row.IsActive,
			ClickCount:       row.ClickCount,
			UniqueClicks:     row.UniqueClicks,
			ClickThroughRate: rate(row.UniqueClicks, row.ClickCount),
			CreatedAt:        row.CreatedAt.Time.UTC(),
		})
	}
	return out, nil
}

func (r *pgRepository) LinksCreated(ctx context.Context, ownerID *uuid.UUID, rg Range) ([]LinkBucket, error) {
	const op = "analytics.repo.LinksCreated"

	rows, err := r.q.LinksCreatedSeries(ctx, db.LinksCreatedSeriesParams{
		Bucket:  string(rg.Bucket),
		OwnerID: nullUUID(ownerID),
		StartAt: ts(rg.Start),
		EndAt:   ts(rg.End),
	})
	if err != nil {
		return nil, mapQueryError(op, err)
	}
	out := make([]LinkBucket, 0, len(rows))
	for _, row := range rows {
		out = append(out, LinkBucket{Start: row.BucketStart.Time.UTC(), Links: row.Links})
	}
	return out, nil
}

func (r *pgRepository) CountClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "analytics.repo.CountClicksBefore"

	n, err := r.q.CountClicksBefore(ctx, ts(cutoff))
	if err != nil {
		return 0, mapQueryError(op, err)
	}
	return n, nil
}

func (r *pgRepository) DeleteClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "analytics.repo.DeleteClicksBefore"

	n, err := r.q.DeleteClicksBefore(ctx, ts(cutoff))
	if err != nil {
		return 0, mapQueryError(op, err)
	}
	return n, nil
}
