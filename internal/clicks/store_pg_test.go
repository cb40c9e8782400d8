package clicks_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/linkmetrics/internal/clicks"
	"github.com/sundayezeilo/linkmetrics/internal/dbtest"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

type fixture struct {
	db       *dbtest.DB
	links    links.Service
	recorder *clicks.Recorder
}

func newFixture(t *testing.T, unique func(d *dbtest.DB) clicks.UniqueTracker) fixture {
	t.Helper()
	d := dbtest.Start(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := links.NewRepository(d.Pool, nil)

	tracker := clicks.UniqueTracker(clicks.NewPostgresUniqueTracker(d.Pool, clicks.DefaultUniqueWindow))
	if unique != nil {
		tracker = unique(d)
	}

	return fixture{
		db:    d,
		links: links.NewService(repo, &links.ServiceConfig{Logger: logger}),
		recorder: clicks.NewRecorder(repo, clicks.NewStore(d.Pool), clicks.RecorderConfig{
			UniqueTracker: tracker,
			Logger:        logger,
		}),
	}
}

func (f fixture) createLink(t *testing.T, owner *uuid.UUID) links.Link {
	t.Helper()
	res, err := f.links.Create(context.Background(), links.CreateLinkRequest{
		OriginalURL: "https://example.com/" + uuid.NewString(),
		OwnerID:     owner,
	})
	require.NoError(t, err)
	return res.Link
}

func (f fixture) counters(t *testing.T, linkID uuid.UUID) (clickCount, uniqueClicks int64, lastClicked *time.Time) {
	t.Helper()
	require.NoError(t, f.db.Pool.QueryRow(context.Background(),
		"SELECT click_count, unique_clicks, last_clicked_at FROM links WHERE id = $1", linkID,
	).Scan(&clickCount, &uniqueClicks, &lastClicked))
	return clickCount, uniqueClicks, lastClicked
}

func TestPostgres_RecordUpdatesCounters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	link := f.createLink(t, &owner)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	ips := []string{"203.0.113.1", "203.0.113.2", "203.0.113.1", "203.0.113.3", "203.0.113.2"}
	for i, ip := range ips {
		_, err := f.recorder.Record(ctx, clicks.ClickInput{
			LinkID:    link.ID,
			IPAddress: ip,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			ClickedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	total, unique, last := f.counters(t, link.ID)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, int64(3), unique)
	require.NotNil(t, last)
	assert.True(t, last.Equal(base.Add(4*time.Minute)))

	var ownerClicks int64
	require.NoError(t, f.db.Pool.QueryRow(ctx,
		"SELECT total_clicks FROM owners WHERE id = $1", owner).Scan(&ownerClicks))
	assert.Equal(t, int64(5), ownerClicks)
}

func TestPostgres_RecordIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	link := f.createLink(t, nil)

	in := clicks.ClickInput{ID: uuid.New(), LinkID: link.ID, IPAddress: "203.0.113.1"}
	first, err := f.recorder.Record(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := f.recorder.Record(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	total, _, _ := f.counters(t, link.ID)
	assert.Equal(t, int64(1), total)
}

func TestPostgres_RecordRejectsInactiveLink(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	link := f.createLink(t, &owner)
	require.NoError(t, f.links.Delete(ctx, link.ID, owner, false))

	_, err := f.recorder.Record(ctx, clicks.ClickInput{LinkID: link.ID, IPAddress: "203.0.113.1"})
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.ErrorIs(t, err, links.ErrLinkUnavailable)

	total, _, _ := f.counters(t, link.ID)
	assert.Zero(t, total)
}

func TestPostgres_ConcurrentClicks(t *testing.T) {
	f := newFixture(t, nil)
	link := f.createLink(t, nil)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.recorder.Record(context.Background(), clicks.ClickInput{
				LinkID:    link.ID,
				IPAddress: fmt.Sprintf("198.51.100.%d", i+1),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, unique, _ := f.counters(t, link.ID)
	assert.Equal(t, int64(workers), total)
	assert.Equal(t, int64(workers), unique)
}

func TestRedis_ConcurrentFirstClicksCountOnce(t *testing.T) {
	f := newFixture(t, func(*dbtest.DB) clicks.UniqueTracker {
		return clicks.NewRedisUniqueTracker(dbtest.StartRedis(t), time.Hour)
	})
	link := f.createLink(t, nil)

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.recorder.Record(context.Background(), clicks.ClickInput{
				LinkID:    link.ID,
				IPAddress: "203.0.113.50",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, unique, _ := f.counters(t, link.ID)
	assert.Equal(t, int64(workers), total)
	assert.Equal(t, int64(1), unique)
}
