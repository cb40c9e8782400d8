package links

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Link maps a short code, and optionally a custom alias, to an original URL.
type Link struct {
	ID            uuid.UUID  `json:"id"`
	OriginalURL   string     `json:"original_url"`
	ShortCode     string     `json:"short_code"`
	CustomAlias   string     `json:"custom_alias,omitempty"`
	OwnerID       *uuid.UUID `json:"owner_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	IsActive      bool       `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ClickCount    int64      `json:"click_count"`
	UniqueClicks  int64      `json:"unique_clicks"`
	LastClickedAt *time.Time `json:"last_clicked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Code returns the code a link is advertised under: the alias when set,
// otherwise the generated short code.
func (l Link) Code() string {
	if l.CustomAlias != "" {
		return l.CustomAlias
	}
	return l.ShortCode
}

// Codes returns every code that resolves to l.
func (l Link) Codes() []string {
	if l.CustomAlias == "" {
		return []string{l.ShortCode}
	}
	return []string{l.ShortCode, l.CustomAlias}
}

// OwnedBy reports whether ownerID owns l. Anonymous links have no owner.
func (l Link) OwnedBy(ownerID uuid.UUID) bool {
	return l.OwnerID != nil && *l.OwnerID == ownerID
}

// IsExpired reports whether the expiry has passed at now.
func (l Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// IsResolvable reports whether a redirect may use l at now.
func (l Link) IsResolvable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// ClickThroughRate is unique clicks as a percentage of all clicks, in [0, 100].
func (l Link) ClickThroughRate() float64 {
	return Rate(l.UniqueClicks, l.ClickCount)
}

// AgeInDays counts whole days since creation.
func (l Link) AgeInDays(now time.Time) int {
	if now.Before(l.CreatedAt) {
		return 0
	}
	return int(now.Sub(l.CreatedAt) / (24 * time.Hour))
}

// ShortURL joins baseURL and the advertised code.
func (l Link) ShortURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + l.Code()
}

// Rate returns part/total as a percentage rounded to two decimals. It is 0
// when total is not positive and never leaves [0, 100].
func Rate(part, total int64) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	r := float64(part) / float64(total) * 100
	if r > 100 {
		r = 100
	}
	return math.Round(r*100) / 100
}

// OwnerCounters are the cached per-owner totals.
type OwnerCounters struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	URLCount    int64     `json:"url_count"`
	TotalClicks int64     `json:"total_clicks"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateLinkRequest carries the inputs for Service.Create.
type CreateLinkRequest struct {
	OriginalURL   string
	OwnerID       *uuid.UUID
	CustomAlias   string // optional
	ExpiresInDays *int   // optional
	Title         string
	Description   string
}

// CreateResult reports whether Create stored a new link or returned an
// existing active link for the same URL and owner.
type CreateResult struct {
	Link  Link
	IsNew bool
}

// NewLink is a fully prepared row handed to Repository.Create.
type NewLink struct {
	ID          uuid.UUID
	OriginalURL string
	ShortCode   string
	CustomAlias string
	OwnerID     *uuid.UUID
	Title       string
	Description string
	ExpiresAt   *time.Time

	// Dedup returns an existing active link for (OriginalURL, OwnerID)
	// instead of inserting.
	Dedup bool
	// Quota caps active links for OwnerID; zero disables the check.
	Quota int
}

// LinkPatch holds the mutable fields. Nil fields are left unchanged.
type LinkPatch struct {
	Title       *string
	Description *string
	OriginalURL *string
	IsActive    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool

	// Quota caps the owner's active links when the patch reactivates the
	// link; zero disables the check. The service sets it.
	Quota int
}

// IsEmpty reports whether the patch changes nothing.
func (p LinkPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.OriginalURL == nil &&
		p.IsActive == nil && p.ExpiresAt == nil && !p.ClearExpiry
}

// ListOptions controls owner listings.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	IsActive  *bool
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPage[T any](items []T, page, limit int, total int64) Page[T] {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

// PopularOptions filters Service.Popular.
type PopularOptions struct {
	OwnerID   *uuid.UUID
	Days      int
	MinClicks int64
	Limit     int
	// AsOf anchors the lookback window and the expiry check. The service
	// sets it from its clock.
	AsOf time.Time
}
