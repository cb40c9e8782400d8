package links

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists links and the per-owner counters that shadow them.
// Methods that touch both run in one transaction.
type Repository interface {
	CodeChecker

	// Create inserts a link with its codes and bumps the owner's url_count.
	// With NewLink.Dedup set it may return an existing link and false.
	Create(ctx context.Context, link NewLink) (Link, bool, error)
	GetByCode(ctx context.Context, code string) (Link, error)
	GetByID(ctx context.Context, id uuid.UUID) (Link, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error)
	// Delete returns the link as it was before removal or deactivation.
	Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) (Link, error)
	List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error)
	Popular(ctx context.Context, opts PopularOptions) ([]Link, error)
	ReconcileOwner(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error)
}
