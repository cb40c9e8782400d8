package links

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/linkmetrics/internal/db/sqlc"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/idgen"
)

// Pool is the subset of *pgxpool.Pool the repositories use.
type Pool interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgRepository struct {
	pool Pool
	q    *db.Queries
	ids  idgen.Generator
}

// RepositoryConfig holds configuration for the repository.
type RepositoryConfig struct {
	IDGenerator idgen.Generator
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool Pool, cfg *RepositoryConfig) Repository {
	if cfg == nil {
		cfg = &RepositoryConfig{}
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(idgen.WithRetries(1))
	}
	return &pgRepository{
		pool: pool,
		q:    db.New(pool),
		ids:  ids,
	}
}

// inTx runs fn in a transaction. Errors fn already classified pass through.
func (r *pgRepository) inTx(ctx context.Context, op string, fn func(q *db.Queries) error) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(r.q.WithTx(tx))
	})
	if err == nil {
		return nil
	}
	var e *errx.Error
	if errors.As(err, &e) {
		return err
	}
	return mapRepoError(op, err)
}

func (r *pgRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const op = "links.repo.CodeExists"

	exists, err := r.q.CodeExists(ctx, code)
	if err != nil {
		return false, mapRepoError(op, err)
	}
	return exists, nil
}

func (r *pgRepository) Create(ctx context.Context, nl NewLink) (Link, bool, error) {
	const op = "links.repo.Create"

	if nl.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Link{}, false, errx.E(op, errx.Unavailable, err)
		}
		nl.ID = id
	}

	var (
		out     Link
		created bool
	)
	err := r.inTx(ctx, op, func(q *db.Queries) error {
		owner := nullUUID(nl.OwnerID)

		if nl.OwnerID != nil {
			if err := q.UpsertOwner(ctx, *nl.OwnerID); err != nil {
				return mapRepoError(op, err)
			}
			// Serializes quota and dedup decisions per owner.
			if err := q.LockOwner(ctx, *nl.OwnerID); err != nil {
				return mapRepoError(op, err)
			}
		}

		if nl.Dedup {
			existing, err := q.FindActiveLinkByURL(ctx, db.FindActiveLinkByURLParams{
				OriginalUrl: nl.OriginalURL,
				OwnerID:     owner,
			})
			switch {
			case err == nil:
				out, err = toDomainLink(existing)
				if err != nil {
					return errx.E(op, errx.Internal, err)
				}
				return nil
			case !errors.Is(err, pgx.ErrNoRows):
				return mapRepoError(op, err)
			}
		}

		if nl.OwnerID != nil && nl.Quota > 0 {
			active, err := q.CountActiveLinksByOwner(ctx, owner)
			if err != nil {
				return mapRepoError(op, err)
			}
			if active >= int64(nl.Quota) {
				return errx.E(op, errx.QuotaExceeded, &QuotaError{Limit: nl.Quota})
			}
		}

		row, err := q.CreateLink(ctx, db.CreateLinkParams{
			ID:          nl.ID,
			OriginalUrl: nl.OriginalURL,
			ShortCode:   nl.ShortCode,
			CustomAlias: optText(nl.CustomAlias),
			OwnerID:     owner,
			Title:       nl.Title,
			Description: nl.Description,
			ExpiresAt:   optTime(nl.ExpiresAt),
		})
		if err != nil {
			return codeConflict(op, "", err)
		}

		if nl.CustomAlias != "" {
			if err := q.CreateLinkCode(ctx, db.CreateLinkCodeParams{
				Code: nl.CustomAlias, LinkID: row.ID, Kind: codeKindAlias,
			}); err != nil {
				return codeConflict(op, codeKindAlias, err)
			}
		}
		if err := q.CreateLinkCode(ctx, db.CreateLinkCodeParams{
			Code: nl.ShortCode, LinkID: row.ID, Kind: codeKindShort,
		}); err != nil {
			return codeConflict(op, codeKindShort, err)
		}

		if nl.OwnerID != nil {
			if err := q.AdjustOwnerURLCount(ctx, db.AdjustOwnerURLCountParams{
				Delta: 1, ID: *nl.OwnerID,
			}); err != nil {
				return mapRepoError(op, err)
			}
		}

		out, err = toDomainLink(row)
		if err != nil {
			return errx.E(op, errx.Internal, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return Link{}, false, err
	}
	return out, created, nil
}

func (r *pgRepository) GetByCode(ctx context.Context, code string) (Link, error) {
	const op = "links.repo.GetByCode"

	row, err := r.q.GetLinkByCode(ctx, code)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	link, err := toDomainLink(row)
	if err != nil {
		return Link{}, errx.E(op, errx.Internal, err)
	}
	return link, nil
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "links.repo.GetByID"

	row, err := r.q.GetLinkByID(ctx, id)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	link, err := toDomainLink(row)
	if err != nil {
		return Link{}, errx.E(op, errx.Internal, err)
	}
	return link, nil
}

func (r *pgRepository) Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error) {
	const op = "links.repo.Update"

	var out Link
	err := r.inTx(ctx, op, func(q *db.Queries) error {
		key := db.GetOwnedLinkForUpdateParams{ID: id, OwnerID: uuid.NullUUID{UUID: ownerID, Valid: true}}
		before, err := q.GetOwnedLinkForUpdate(ctx, key)
		if err != nil {
			return mapRepoError(op, err)
		}
		if err := checkActivation(ctx, q, op, before, patch); err != nil {
			return err
		}

		row, err := q.UpdateLink(ctx, db.UpdateLinkParams{
			Title:       optTextPtr(patch.Title),
			Description: optTextPtr(patch.Description),
			OriginalUrl: optTextPtr(patch.OriginalURL),
			IsActive:    optBool(patch.IsActive),
			ClearExpiry: patch.ClearExpiry,
			ExpiresAt:   optTime(patch.ExpiresAt),
			ID:          id,
			OwnerID:     key.OwnerID,
		})
		if err != nil {
			return mapRepoError(op, err)
		}

		if delta := activeDelta(before.IsActive, row.IsActive); delta != 0 {
			if err := q.AdjustOwnerURLCount(ctx, db.AdjustOwnerURLCountParams{Delta: delta, ID: ownerID}); err != nil {
				return mapRepoError(op, err)
			}
		}

		out, err = toDomainLink(row)
		if err != nil {
			return errx.E(op, errx.Internal, err)
		}
		return nil
	})
	return out, err
}

// checkActivation enforces the create-time rules on an update that makes a
// link active again or points an active link elsewhere: the owner stays
// within quota and keeps one active link per URL.
func checkActivation(ctx context.Context, q *db.Queries, op string, before db.Link, patch LinkPatch) error {
	activating := !before.IsActive && patch.IsActive != nil && *patch.IsActive
	active := before.IsActive
	if patch.IsActive != nil {
		active = *patch.IsActive
	}
	url := before.OriginalUrl
	if patch.OriginalURL != nil {
		url = *patch.OriginalURL
	}
	if !activating && !(active && url != before.OriginalUrl) {
		return nil
	}

	// Same lock Create takes, so concurrent creates see this decision.
	if err := q.LockOwner(ctx, before.OwnerID.UUID); err != nil {
		return mapRepoError(op, err)
	}

	taken, err := q.ActiveURLTaken(ctx, db.ActiveURLTakenParams{
		OriginalUrl: url,
		OwnerID:     before.OwnerID,
		ID:          before.ID,
	})
	if err != nil {
		return mapRepoError(op, err)
	}
	if taken {
		return errx.E(op, errx.Conflict, ErrDuplicateURL)
	}

	if activating && patch.Quota > 0 {
		count, err := q.CountActiveLinksByOwner(ctx, before.OwnerID)
		if err != nil {
			return mapRepoError(op, err)
		}
		if count >= int64(patch.Quota) {
			return errx.E(op, errx.QuotaExceeded, &QuotaError{Limit: patch.Quota})
		}
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) (Link, error) {
	const op = "links.repo.Delete"

	var out Link
	err := r.inTx(ctx, op, func(q *db.Queries) error {
		owner := uuid.NullUUID{UUID: ownerID, Valid: true}
		before, err := q.GetOwnedLinkForUpdate(ctx, db.GetOwnedLinkForUpdateParams{ID: id, OwnerID: owner})
		if err != nil {
			return mapRepoError(op, err)
		}

		if hard {
			n, err := q.DeleteLink(ctx, db.DeleteLinkParams{ID: id, OwnerID: owner})
			if err != nil {
				return mapRepoError(op, err)
			}
			if n == 0 {
				return errx.E(op, errx.NotFound, pgx.ErrNoRows)
			}
		} else if before.IsActive {
			if _, err := q.UpdateLink(ctx, db.UpdateLinkParams{
				IsActive: pgtype.Bool{Bool: false, Valid: true},
				ID:       id,
				OwnerID:  owner,
			}); err != nil {
				return mapRepoError(op, err)
			}
		}

		if before.IsActive {
			if err := q.AdjustOwnerURLCount(ctx, db.AdjustOwnerURLCountParams{Delta: -1, ID: ownerID}); err != nil {
				return mapRepoError(op, err)
			}
		}

		out, err = toDomainLink(before)
		if err != nil {
			return errx.E(op, errx.Internal, err)
		}
		return nil
	})
	return out, err
}

func (r *pgRepository) List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error) {
	const op = "links.repo.List"

	lq := buildListQuery(ownerID, opts)

	var total int64
	if err := r.pool.QueryRow(ctx, lq.countSQL, lq.countArgs...).Scan(&total); err != nil {
		return Page[Link]{}, mapRepoError(op, err)
	}

	rows, err := r.pool.Query(ctx, lq.selectSQL, lq.args...)
	if err != nil {
		return Page[Link]{}, mapRepoError(op, err)
	}
	defer rows.Close()

	var items []Link
	for rows.Next() {
		row, err := scanLink(rows)
		if err != nil {
			return Page[Link]{}, mapRepoError(op, err)
		}
		link, err := toDomainLink(row)
		if err != nil {
			return Page[Link]{}, errx.E(op, errx.Internal, err)
		}
		items = append(items, link)
	}
	if err := rows.Err(); err != nil {
		return Page[Link]{}, mapRepoError(op, err)
	}

	return newPage(items, opts.Page, opts.Limit, total), nil
}

func (r *pgRepository) Popular(ctx context.Context, opts PopularOptions) ([]Link, error) {
	const op = "links.repo.Popular"

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	rows, err := r.q.ListPopularLinks(ctx, db.ListPopularLinksParams{
		AsOf:      pgtype.Timestamptz{Time: asOf, Valid: true},
		OwnerID:   nullUUID(opts.OwnerID),
		Since:     pgtype.Timestamptz{Time: asOf.AddDate(0, 0, -opts.Days), Valid: true},
		MinClicks: opts.MinClicks,
		RowLimit:  int32(opts.Limit),
	})
	if err != nil {
		return nil, mapRepoError(op, err)
	}
	return toDomainLinks(op, rows)
}

func (r *pgRepository) ReconcileOwner(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error) {
	const op = "links.repo.ReconcileOwner"

	row, err := r.q.ReconcileOwner(ctx, uuid.NullUUID{UUID: ownerID, Valid: true})
	if err != nil {
		return OwnerCounters{}, mapRepoError(op, err)
	}
	return OwnerCounters{
		OwnerID:     row.ID,
		URLCount:    row.UrlCount,
		TotalClicks: row.TotalClicks,
		UpdatedAt:   row.UpdatedAt.Time,
	}, nil
}

func scanLink(row pgx.Row) (db.Link, error) {
	var i db.Link
	err := row.Scan(
		&i.ID,
		&i.OriginalUrl,
		&i.ShortCode,
		&i.CustomAlias,
		&i.OwnerID,
		&i.Title,
		&i.Description,
		&i.IsActive,
		&i.ExpiresAt,
		&i.ClickCount,
		&i.UniqueClicks,
		&i.LastClickedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func activeDelta(before, after bool) int64 {
	switch {
	case before && !after:
		return -1
	case !before && after:
		return 1
	default:
		return 0
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func optTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func optText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func optTextPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func optBool(b *bool) pgtype.Bool {
	if b == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *b, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func toDomainLink(x db.Link) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}
	updatedAt, err := mustTime(x.UpdatedAt, "updated_at")
	if err != nil {
		return Link{}, err
	}

	var owner *uuid.UUID
	if x.OwnerID.Valid {
		id := x.OwnerID.UUID
		owner = &id
	}

	return Link{
		ID:            x.ID,
		OriginalURL:   x.OriginalUrl,
		ShortCode:     x.ShortCode,
		CustomAlias:   x.CustomAlias.String,
		OwnerID:       owner,
		Title:         x.Title,
		Description:   x.Description,
		IsActive:      x.IsActive,
		ExpiresAt:     timePtr(x.ExpiresAt),
		ClickCount:    x.ClickCount,
		UniqueClicks:  x.UniqueClicks,
		LastClickedAt: timePtr(x.LastClickedAt),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func toDomainLinks(op string, rows []db.Link) ([]Link, error) {
	out := make([]Link, 0, len(rows))
	for _, row := range rows {
		link, err := toDomainLink(row)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		out = append(out, link)
	}
	return out, nil
}
