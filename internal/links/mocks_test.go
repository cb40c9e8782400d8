package links

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

// mockRepository implements Repository with overridable behaviour.
type mockRepository struct {
	codeExistsFunc     func(ctx context.Context, code string) (bool, error)
	createFunc         func(ctx context.Context, nl NewLink) (Link, bool, error)
	getByCodeFunc      func(ctx context.Context, code string) (Link, error)
	getByIDFunc        func(ctx context.Context, id uuid.UUID) (Link, error)
	updateFunc         func(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error)
	deleteFunc         func(ctx context.Context, id, ownerID uuid.UUID, hard bool) (Link, error)
	listFunc           func(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error)
	popularFunc        func(ctx context.Context, opts PopularOptions) ([]Link, error)
	reconcileOwnerFunc func(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error)
}

func (m *mockRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	if m.codeExistsFunc != nil {
		return m.codeExistsFunc(ctx, code)
	}
	return false, nil
}

func (m *mockRepository) Create(ctx context.Context, nl NewLink) (Link, bool, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, nl)
	}
	return linkFrom(nl), true, nil
}

func (m *mockRepository) GetByCode(ctx context.Context, code string) (Link, error) {
	if m.getByCodeFunc != nil {
		return m.getByCodeFunc(ctx, code)
	}
	return Link{}, errx.E("repo.GetByCode", errx.NotFound, errors.New("not found"))
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (Link, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return Link{}, errx.E("repo.GetByID", errx.NotFound, errors.New("not found"))
}

func (m *mockRepository) Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, ownerID, patch)
	}
	return Link{ID: id, OwnerID: &ownerID, IsActive: true}, nil
}

func (m *mockRepository) Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) (Link, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, ownerID, hard)
	}
	return Link{ID: id, OwnerID: &ownerID}, nil
}

func (m *mockRepository) List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, ownerID, opts)
	}
	return newPage[Link](nil, opts.Page, opts.Limit, 0), nil
}

func (m *mockRepository) Popular(ctx context.Context, opts PopularOptions) ([]Link, error) {
	if m.popularFunc != nil {
		return m.popularFunc(ctx, opts)
	}
	return nil, nil
}

func (m *mockRepository) ReconcileOwner(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error) {
	if m.reconcileOwnerFunc != nil {
		return m.reconcileOwnerFunc(ctx, ownerID)
	}
	return OwnerCounters{OwnerID: ownerID}, nil
}

// sequenceGenerator returns codes in order, repeating the last one.
type sequenceGenerator struct {
	codes []string
	err   error
	calls int
}

func (g *sequenceGenerator) Generate(length int) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.codes) == 0 {
		return "abc1234", nil
	}
	idx := min(g.calls-1, len(g.codes)-1)
	return g.codes[idx], nil
}

func linkFrom(nl NewLink) Link {
	id := nl.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	return Link{
		ID:          id,
		OriginalURL: nl.OriginalURL,
		ShortCode:   nl.ShortCode,
		CustomAlias: nl.CustomAlias,
		OwnerID:     nl.OwnerID,
		Title:       nl.Title,
		Description: nl.Description,
		IsActive:    true,
		ExpiresAt:   nl.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ptr[T any](v T) *T { return &v }
