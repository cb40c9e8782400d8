package clicks

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

type mockLookup struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (links.Link, error)
}

func (m *mockLookup) GetByID(ctx context.Context, id uuid.UUID) (links.Link, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return links.Link{}, errx.E("mock.GetByID", errx.NotFound, errors.New("link not found"))
}

func lookupOf(ls ...links.Link) *mockLookup {
	byID := make(map[uuid.UUID]links.Link, len(ls))
	for _, l := range ls {
		byID[l.ID] = l
	}
	return &mockLookup{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (links.Link, error) {
			if l, ok := byID[id]; ok {
				return l, nil
			}
			return links.Link{}, errx.E("mock.GetByID", errx.NotFound, errors.New("link not found"))
		},
	}
}

// memoryStore keeps clicks in insertion order and ignores repeated ids.
type memoryStore struct {
	mu     sync.Mutex
	clicks []Click
	seen   map[uuid.UUID]bool
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{seen: make(map[uuid.UUID]bool)}
}

func (s *memoryStore) Insert(_ context.Context, c Click) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.seen[c.ID] {
		return false, nil
	}
	s.seen[c.ID] = true
	s.clicks = append(s.clicks, c)
	return true, nil
}

func (s *memoryStore) all() []Click {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Click(nil), s.clicks...)
}

// windowTracker applies a rolling window over what it has seen.
type windowTracker struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

func newWindowTracker(window time.Duration) *windowTracker {
	return &windowTracker{window: window, last: make(map[string]time.Time)}
}

func (t *windowTracker) IsUnique(_ context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := linkID.String() + "|" + ip
	prev, ok := t.last[key]
	t.last[key] = at
	return !ok || !prev.After(at.Add(-t.window)), nil
}

type trackerFunc func(ctx context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error)

func (f trackerFunc) IsUnique(ctx context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error) {
	return f(ctx, linkID, ip, at)
}

type locatorFunc func(ctx context.Context, ip string) (Location, error)

func (f locatorFunc) Locate(ctx context.Context, ip string) (Location, error) { return f(ctx, ip) }

type recorderFunc func(ctx context.Context, in ClickInput) (ClickResult, error)

func (f recorderFunc) Record(ctx context.Context, in ClickInput) (ClickResult, error) {
	return f(ctx, in)
}

func activeLink(owner *uuid.UUID) links.Link {
	return links.Link{
		ID:          uuid.New(),
		OriginalURL: "https://example.com/landing",
		ShortCode:   "aB3dE5g",
		OwnerID:     owner,
		IsActive:    true,
		CreatedAt:   fixedNow.Add(-48 * time.Hour),
		UpdatedAt:   fixedNow.Add(-48 * time.Hour),
	}
}

func ptr[T any](v T) *T { return &v }
