package links_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/linkmetrics/internal/dbtest"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

func newPostgresService(t *testing.T, quota int) (links.Service, *dbtest.DB) {
	t.Helper()
	d := dbtest.Start(t)
	repo := links.NewRepository(d.Pool, nil)
	svc := links.NewService(repo, &links.ServiceConfig{
		OwnerQuota: quota,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, d
}

func ownerURLCount(t *testing.T, d *dbtest.DB, owner uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.Pool.QueryRow(context.Background(),
		"SELECT url_count FROM owners WHERE id = $1", owner).Scan(&n))
	return n
}

func TestPostgres_CreateAndResolve(t *testing.T) {
	svc, _ := newPostgresService(t, 0)
	ctx := context.Background()

	res, err := svc.Create(ctx, links.CreateLinkRequest{
		OriginalURL: "https://example.com/launch",
		CustomAlias: "launch",
		Title:       "Launch",
	})
	require.NoError(t, err)
	require.True(t, res.IsNew)
	assert.Len(t, res.Link.ShortCode, links.DefaultCodeLength)

	for _, code := range []string{"launch", res.Link.ShortCode} {
		got, err := svc.Resolve(ctx, code)
		require.NoError(t, err, code)
		assert.Equal(t, res.Link.ID, got.ID)
	}

	_, err = svc.Resolve(ctx, "missing")
	assert.True(t, errors.Is(err, links.ErrLinkUnavailable))

	_, err = svc.Create(ctx, links.CreateLinkRequest{
		OriginalURL: "https://example.com/other",
		CustomAlias: res.Link.ShortCode,
	})
	assert.True(t, errors.Is(err, links.ErrAliasTaken), "alias may not shadow a generated code: %v", err)
}

func TestPostgres_Dedup(t *testing.T) {
	svc, _ := newPostgresService(t, 0)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	first, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/a", OwnerID: &owner})
	require.NoError(t, err)

	again, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/a", OwnerID: &owner})
	require.NoError(t, err)
	assert.False(t, again.IsNew)
	assert.Equal(t, first.Link.ID, again.Link.ID)

	theirs, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/a", OwnerID: &other})
	require.NoError(t, err)
	assert.True(t, theirs.IsNew)

	aliased, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/a", OwnerID: &owner, CustomAlias: "a-again"})
	require.NoError(t, err)
	assert.True(t, aliased.IsNew, "an alias always creates a new link")
}

func TestPostgres_ConcurrentAlias(t *testing.T) {
	svc, _ := newPostgresService(t, 0)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, links.CreateLinkRequest{
				OriginalURL: fmt.Sprintf("https://example.com/race/%d", i),
				CustomAlias: "contested",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errx.KindOf(err) == errx.Conflict && errors.Is(err, links.ErrAliasTaken):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestPostgres_QuotaAndCounters(t *testing.T) {
	svc, d := newPostgresService(t, 2)
	ctx := context.Background()
	owner := uuid.New()

	a, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/1", OwnerID: &owner})
	require.NoError(t, err)
	_, err = svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/2", OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ownerURLCount(t, d, owner))

	_, err = svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/3", OwnerID: &owner})
	var qe *links.QuotaError
	require.True(t, errors.As(err, &qe), "want quota error, got %v", err)
	assert.Equal(t, 2, qe.Limit)
	assert.Equal(t, errx.QuotaExceeded, errx.KindOf(err))

	// soft delete frees a slot
	require.NoError(t, svc.Delete(ctx, a.Link.ID, owner, false))
	assert.Equal(t, int64(1), ownerURLCount(t, d, owner))
	_, err = svc.Resolve(ctx, a.Link.ShortCode)
	assert.True(t, errors.Is(err, links.ErrLinkUnavailable))

	_, err = svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/3", OwnerID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ownerURLCount(t, d, owner))

	// reactivation is held to the same quota as create
	_, err = svc.Update(ctx, a.Link.ID, owner, links.LinkPatch{IsActive: ptr(true)})
	require.True(t, errors.As(err, &qe), "want quota error, got %v", err)
	assert.Equal(t, errx.QuotaExceeded, errx.KindOf(err))
	assert.Equal(t, int64(2), ownerURLCount(t, d, owner))
	got, err := svc.Get(ctx, a.Link.ID, owner)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	d.Exec(t, "UPDATE owners SET url_count = 99 WHERE id = $1", owner)
	counters, err := svc.ReconcileOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters.URLCount)

	// hard delete removes the codes with the row
	require.NoError(t, svc.Delete(ctx, a.Link.ID, owner, true))
	_, err = svc.Get(ctx, a.Link.ID, owner)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.Equal(t, int64(2), ownerURLCount(t, d, owner))
}

func TestPostgres_UpdateKeepsOneActiveLinkPerURL(t *testing.T) {
	svc, d := newPostgresService(t, 3)
	ctx := context.Background()
	owner := uuid.New()
	create := func(url string) links.Link {
		t.Helper()
		res, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: url, OwnerID: &owner})
		require.NoError(t, err)
		require.True(t, res.IsNew)
		return res.Link
	}

	first := create("https://example.com/dup")
	require.NoError(t, svc.Delete(ctx, first.ID, owner, false))
	second := create("https://example.com/dup")

	_, err := svc.Update(ctx, first.ID, owner, links.LinkPatch{IsActive: ptr(true)})
	assert.ErrorIs(t, err, links.ErrDuplicateURL)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))

	other := create("https://example.com/other")
	_, err = svc.Update(ctx, other.ID, owner, links.LinkPatch{OriginalURL: ptr("https://example.com/dup")})
	assert.ErrorIs(t, err, links.ErrDuplicateURL)

	moved, err := svc.Update(ctx, other.ID, owner, links.LinkPatch{OriginalURL: ptr("https://example.com/moved")})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/moved", moved.OriginalURL)

	// an inactive link may point anywhere
	_, err = svc.Update(ctx, first.ID, owner, links.LinkPatch{Title: ptr("archived")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, second.ID, owner, false))
	back, err := svc.Update(ctx, first.ID, owner, links.LinkPatch{IsActive: ptr(true)})
	require.NoError(t, err)
	assert.True(t, back.IsActive)
	assert.Equal(t, int64(2), ownerURLCount(t, d, owner))
}

func TestPostgres_OwnerScoping(t *testing.T) {
	svc, _ := newPostgresService(t, 0)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()

	res, err := svc.Create(ctx, links.CreateLinkRequest{OriginalURL: "https://example.com/private", OwnerID: &owner})
	require.NoError(t, err)

	_, err = svc.Get(ctx, res.Link.ID, intruder)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	_, err = svc.Update(ctx, res.Link.ID, intruder, links.LinkPatch{Title: ptr("mine")})
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	err = svc.Delete(ctx, res.Link.ID, intruder, true)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestPostgres_ListAndExpiry(t *testing.T) {
	svc, d := newPostgresService(t, 0)
	ctx := context.Background()
	owner := uuid.New()

	for i, title := range []string{"Spring promo", "Docs", "Summer promo"} {
		_, err := svc.Create(ctx, links.CreateLinkRequest{
			OriginalURL: fmt.Sprintf("https://example.com/list/%d", i),
			OwnerID:     &owner,
			Title:       title,
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, owner, links.ListOptions{Search: "PROMO", SortBy: "title", SortOrder: "asc", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Spring promo", page.Items[0].Title)

	expiring, err := svc.Create(ctx, links.CreateLinkRequest{
		OriginalURL:   "https://example.com/flash",
		ExpiresInDays: ptr(1),
	})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, expiring.Link.ShortCode)
	require.NoError(t, err)

	d.Exec(t, "UPDATE links SET expires_at = $1 WHERE id = $2", time.Now().Add(-time.Minute), expiring.Link.ID)
	_, err = svc.Resolve(ctx, expiring.Link.ShortCode)
	assert.True(t, errors.Is(err, links.ErrLinkUnavailable))
}

func TestPostgres_PopularSkipsExpiredLinks(t *testing.T) {
	svc, d := newPostgresService(t, 0)
	ctx := context.Background()
	owner := uuid.New()

	var ids []uuid.UUID
	for i := range 3 {
		res, err := svc.Create(ctx, links.CreateLinkRequest{
			OriginalURL: fmt.Sprintf("https://example.com/popular/%d", i),
			OwnerID:     &owner,
		})
		require.NoError(t, err)
		ids = append(ids, res.Link.ID)
		d.Exec(t, "UPDATE links SET click_count = $1, last_clicked_at = now() WHERE id = $2", int64(10*(i+1)), res.Link.ID)
	}
	// the most clicked link is past its expiry
	d.Exec(t, "UPDATE links SET expires_at = now() - interval '1 minute' WHERE id = $1", ids[2])

	got, err := svc.Popular(ctx, links.PopularOptions{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[1], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)
}

func ptr[T any](v T) *T { return &v }
