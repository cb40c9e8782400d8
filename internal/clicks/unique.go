package clicks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"

	db "github.com/sundayezeilo/linkmetrics/internal/db/sqlc"
)

// DefaultUniqueWindow is the rolling window in which repeat clicks from one
// IP on one link count once.
const DefaultUniqueWindow = 24 * time.Hour

// UniqueTracker decides whether a click is the first from its IP on its link
// within the tracker's window.
type UniqueTracker interface {
	IsUnique(ctx context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error)
}

// PostgresUniqueTracker looks for an earlier click in the clicks table. Two
// simultaneous first clicks from one IP may both count as unique.
type PostgresUniqueTracker struct {
	q      *db.Queries
	window time.Duration
}

// NewPostgresUniqueTracker returns a tracker over the clicks table.
func NewPostgresUniqueTracker(dbtx db.DBTX, window time.Duration) *PostgresUniqueTracker {
	if window <= 0 {
		window = DefaultUniqueWindow
	}
	return &PostgresUniqueTracker{q: db.New(dbtx), window: window}
}

func (t *PostgresUniqueTracker) IsUnique(ctx context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error) {
	seen, err := t.q.HasClickSince(ctx, db.HasClickSinceParams{
		LinkID:    linkID,
		IpAddress: ip,
		ClickedAt: pgtype.Timestamptz{Time: at.Add(-t.window), Valid: true},
	})
	if err != nil {
		return false, fmt.Errorf("unique lookup: %w", err)
	}
	return !seen, nil
}

// SetNXClient is the part of redis.Cmdable the Redis tracker uses.
type SetNXClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisUniqueTracker claims a key per link and IP with SET NX EX, so
// concurrent first clicks resolve to exactly one unique.
type RedisUniqueTracker struct {
	client SetNXClient
	window time.Duration
}

// NewRedisUniqueTracker returns a tracker backed by Redis keys that expire
// after window.
func NewRedisUniqueTracker(client SetNXClient, window time.Duration) *RedisUniqueTracker {
	if window <= 0 {
		window = DefaultUniqueWindow
	}
	return &RedisUniqueTracker{client: client, window: window}
}

func uniqueKey(linkID uuid.UUID, ip string) string {
	return "click:uniq:" + linkID.String() + ":" + ip
}

func (t *RedisUniqueTracker) IsUnique(ctx context.Context, linkID uuid.UUID, ip string, at time.Time) (bool, error) {
	claimed, err := t.client.SetNX(ctx, uniqueKey(linkID, ip), at.Unix(), t.window).Result()
	if err != nil {
		return false, fmt.Errorf("unique claim: %w", err)
	}
	return claimed, nil
}
