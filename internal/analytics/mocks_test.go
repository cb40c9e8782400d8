package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRepository struct {
	ClickTotalsFunc        func(ctx context.Context, s Scope, r Range, excludeBots bool) (ClickTotals, error)
	BreakdownFunc          func(ctx context.Context, s Scope, r Range, dim Dimension, excludeBots bool, limit int) ([]Count, error)
	TimeSeriesFunc         func(ctx context.Context, s Scope, r Range, excludeBots bool) ([]Bucket, error)
	HourOfDayFunc          func(ctx context.Context, s Scope, r Range, excludeBots bool) ([]HourCount, error)
	RecentClicksFunc       func(ctx context.Context, s Scope, r Range, limit int) ([]RecentClick, error)
	ActiveLinksFunc        func(ctx context.Context, ownerID *uuid.UUID, r Range, limit int) ([]ActiveLink, error)
	LinkTotalsFunc         func(ctx context.Context, ownerID *uuid.UUID) (LinkTotals, error)
	TopLinksFunc           func(ctx context.Context, ownerID *uuid.UUID, limit int) ([]TopLink, error)
	LinksCreatedFunc       func(ctx context.Context, ownerID *uuid.UUID, r Range) ([]LinkBucket, error)
	CountClicksBeforeFunc  func(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteClicksBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *mockRepository) called(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *mockRepository) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockRepository) ClickTotals(ctx context.Context, s Scope, r Range, excludeBots bool) (ClickTotals, error) {
	m.called("ClickTotals")
	if m.ClickTotalsFunc != nil {
		return m.ClickTotalsFunc(ctx, s, r, excludeBots)
	}
	return ClickTotals{}, nil
}

func (m *mockRepository) Breakdown(ctx context.Context, s Scope, r Range, dim Dimension, excludeBots bool, limit int) ([]Count, error) {
	m.called("Breakdown")
	if m.BreakdownFunc != nil {
		return m.BreakdownFunc(ctx, s, r, dim, excludeBots, limit)
	}
	return nil, nil
}

func (m *mockRepository) TimeSeries(ctx context.Context, s Scope, r Range, excludeBots bool) ([]Bucket, error) {
	m.called("TimeSeries")
	if m.TimeSeriesFunc != nil {
		return m.TimeSeriesFunc(ctx, s, r, excludeBots)
	}
	return nil, nil
}

func (m *mockRepository) HourOfDay(ctx context.Context, s Scope, r Range, excludeBots bool) ([]HourCount, error) {
	m.called("HourOfDay")
	if m.HourOfDayFunc != nil {
		return m.HourOfDayFunc(ctx, s, r, excludeBots)
	}
	return nil, nil
}

func (m *mockRepository) RecentClicks(ctx context.Context, s Scope, r Range, limit int) ([]RecentClick, error) {
	m.called("RecentClicks")
	if m.RecentClicksFunc != nil {
		return m.RecentClicksFunc(ctx, s, r, limit)
	}
	return nil, nil
}

func (m *mockRepository) ActiveLinks(ctx context.Context, ownerID *uuid.UUID, r Range, limit int) ([]ActiveLink, error) {
	m.called("ActiveLinks")
	if m.ActiveLinksFunc != nil {
		return m.ActiveLinksFunc(ctx, ownerID, r, limit)
	}
	return nil, nil
}

func (m *mockRepository) LinkTotals(ctx context.Context, ownerID *uuid.UUID) (LinkTotals, error) {
	m.called("LinkTotals")
	if m.LinkTotalsFunc != nil {
		return m.LinkTotalsFunc(ctx, ownerID)
	}
	return LinkTotals{}, nil
}

func (m *mockRepository) TopLinks(ctx context.Context, ownerID *uuid.UUID, limit int) ([]TopLink, error) {
	m.called("TopLinks")
	if m.TopLinksFunc != nil {
		return m.TopLinksFunc(ctx, ownerID, limit)
	}
	return nil, nil
}

func (m *mockRepository) LinksCreated(ctx context.Context, ownerID *uuid.UUID, r Range) ([]LinkBucket, error) {
	m.called("LinksCreated")
	if m.LinksCreatedFunc != nil {
		return m.LinksCreatedFunc(ctx, ownerID, r)
	}
	return nil, nil
}

func (m *mockRepository) CountClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.called("CountClicksBefore")
	if m.CountClicksBeforeFunc != nil {
		return m.CountClicksBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

func (m *mockRepository) DeleteClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.called("DeleteClicksBefore")
	if m.DeleteClicksBeforeFunc != nil {
		return m.DeleteClicksBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

type lookupFunc func(ctx context.Context, id uuid.UUID) (links.Link, error)

func (f lookupFunc) GetByID(ctx context.Context, id uuid.UUID) (links.Link, error) { return f(ctx, id) }

func lookupOf(ls ...links.Link) LinkLookup {
	byID := make(map[uuid.UUID]links.Link, len(ls))
	for _, l := range ls {
		byID[l.ID] = l
	}
	return lookupFunc(func(_ context.Context, id uuid.UUID) (links.Link, error) {
		if l, ok := byID[id]; ok {
			return l, nil
		}
		return links.Link{}, errx.E("mock.GetByID", errx.NotFound, errors.New("link not found"))
	})
}

func testLink(owner uuid.UUID) links.Link {
	return links.Link{
		ID:          uuid.New(),
		OriginalURL: "https://example.com/report",
		ShortCode:   "Rp0rt12",
		OwnerID:     &owner,
		IsActive:    true,
		CreatedAt:   fixedNow.AddDate(0, 0, -10),
		UpdatedAt:   fixedNow.AddDate(0, 0, -10),
	}
}

func newTestService(repo Repository, lookup LinkLookup) Aggregator {
	return NewService(repo, lookup, &ServiceConfig{
		Logger: discardLogger(),
		Now:    func() time.Time { return fixedNow },
	})
}

func ptr[T any](v T) *T { return &v }
