package clicks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/linkmetrics/internal/db/sqlc"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

// Store persists clicks together with the counters they move.
type Store interface {
	// Insert stores c and, when the row is new, increments the link and
	// owner counters in the same transaction. It reports whether c was new.
	Insert(ctx context.Context, c Click) (bool, error)
}

type pgStore struct {
	pool links.Pool
	q    *db.Queries
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool links.Pool) Store {
	return &pgStore{pool: pool, q: db.New(pool)}
}

func (s *pgStore) Insert(ctx context.Context, c Click) (bool, error) {
	const op = "clicks.store.Insert"

	var inserted bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.q.WithTx(tx)

		n, err := q.InsertClick(ctx, insertParams(c))
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		inserted = true

		if _, err := q.RecordLinkClick(ctx, db.RecordLinkClickParams{
			IsUnique:  c.IsUnique,
			ClickedAt: pgtype.Timestamptz{Time: c.ClickedAt, Valid: true},
			ID:        c.LinkID,
		}); err != nil {
			return err
		}

		if c.OwnerID != nil {
			if err := q.IncrementOwnerClicks(ctx, *c.OwnerID); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
		return inserted, nil
	case errors.Is(err, pgx.ErrNoRows):
		// link row vanished between validation and insert
		return false, errx.E(op, errx.NotFound, fmt.Errorf("%w: %s", links.ErrLinkUnavailable, c.LinkID))
	default:
		return false, errx.E(op, errx.Unavailable, err)
	}
}

func insertParams(c Click) db.InsertClickParams {
	return db.InsertClickParams{
		ID:          c.ID,
		LinkID:      c.LinkID,
		OwnerID:     nullUUID(c.OwnerID),
		IpAddress:   c.IPAddress,
		UserAgent:   c.UserAgent,
		Referrer:    c.Referrer,
		Country:     optText(c.Country),
		City:        optText(c.City),
		Browser:     c.Browser,
		Os:          c.OS,
		DeviceType:  c.DeviceType,
		IsBot:       c.IsBot,
		IsUnique:    c.IsUnique,
		UtmSource:   c.Campaign.Source,
		UtmMedium:   c.Campaign.Medium,
		UtmCampaign: c.Campaign.Name,
		UtmTerm:     c.Campaign.Term,
		UtmContent:  c.Campaign.Content,
		ClickedAt:   pgtype.Timestamptz{Time: c.ClickedAt, Valid: true},
	}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func optText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
