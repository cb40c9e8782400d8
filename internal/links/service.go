package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

const (
	MaxURLLength         = 2048
	DefaultOwnerQuota    = 20
	DefaultMaxExpiryDays = 3650
	DefaultPopularDays   = 7
	DefaultPopularLimit  = 10
	MaxPopularLimit      = 100
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Service is the link registry.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (CreateResult, error)
	Resolve(ctx context.Context, code string) (Link, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (Link, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) error
	List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error)
	Popular(ctx context.Context, opts PopularOptions) ([]Link, error)
	ReconcileOwner(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error)
}

type service struct {
	repo          Repository
	alloc         *Allocator
	maxAttempts   int
	ownerQuota    int
	maxURLLength  int
	maxExpiryDays int
	listMaxLimit  int
	popularDays   int
	logger        *slog.Logger
	now           func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Allocator     *Allocator
	MaxAttempts   int // insert-time re-allocations after a generated code collides
	OwnerQuota    int
	MaxURLLength  int
	MaxExpiryDays int
	ListMaxLimit  int
	PopularDays   int
	Logger        *slog.Logger
	Now           func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, cfg *ServiceConfig) Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alloc := cfg.Allocator
	if alloc == nil {
		alloc = NewAllocator(repo, AllocatorConfig{Logger: logger})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:          repo,
		alloc:         alloc,
		maxAttempts:   positiveOr(cfg.MaxAttempts, DefaultAllocAttempts),
		ownerQuota:    positiveOr(cfg.OwnerQuota, DefaultOwnerQuota),
		maxURLLength:  positiveOr(cfg.MaxURLLength, MaxURLLength),
		maxExpiryDays: positiveOr(cfg.MaxExpiryDays, DefaultMaxExpiryDays),
		listMaxLimit:  positiveOr(cfg.ListMaxLimit, MaxListLimit),
		popularDays:   positiveOr(cfg.PopularDays, DefaultPopularDays),
		logger:        logger,
		now:           now,
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Create stores a new link. Without a custom alias an active link for the
// same URL and owner is returned instead, with IsNew false.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (CreateResult, error) {
	const op = "links.service.Create"

	originalURL := strings.TrimSpace(req.OriginalURL)
	if err := validateURL(originalURL, s.maxURLLength); err != nil {
		return CreateResult{}, errx.E(op, errx.Invalid, err)
	}
	title, description, err := cleanMetadata(req.Title, req.Description)
	if err != nil {
		return CreateResult{}, errx.E(op, errx.Invalid, err)
	}

	var expiresAt *time.Time
	if req.ExpiresInDays != nil {
		days := *req.ExpiresInDays
		if days < 1 || days > s.maxExpiryDays {
			return CreateResult{}, errx.E(op, errx.Invalid,
				fmt.Errorf("expires_in_days must be between 1 and %d", s.maxExpiryDays))
		}
		t := s.now().UTC().AddDate(0, 0, days)
		expiresAt = &t
	}

	alias := strings.TrimSpace(req.CustomAlias)
	if alias != "" {
		if _, err := s.alloc.Allocate(ctx, alias); err != nil {
			return CreateResult{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	nl := NewLink{
		OriginalURL: originalURL,
		CustomAlias: alias,
		OwnerID:     req.OwnerID,
		Title:       title,
		Description: description,
		ExpiresAt:   expiresAt,
		Dedup:       alias == "",
		Quota:       s.ownerQuota,
	}

	for range s.maxAttempts {
		code, err := s.alloc.Allocate(ctx, "")
		if err != nil {
			return CreateResult{}, errx.E(op, errx.KindOf(err), err)
		}
		nl.ShortCode = code

		link, created, err := s.repo.Create(ctx, nl)
		switch {
		case err == nil:
			if created {
				s.logger.InfoContext(ctx, "link created",
					"link_id", link.ID.String(),
					"short_code", link.ShortCode,
					"custom_alias", link.CustomAlias != "",
				)
			}
			return CreateResult{Link: link, IsNew: created}, nil
		case errors.Is(err, ErrCodeTaken):
			s.logger.DebugContext(ctx, "generated code lost insert race", "short_code", code)
			continue
		default:
			return CreateResult{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	s.logger.ErrorContext(ctx, "short code space exhausted at insert",
		"alert", true,
		"attempts", s.maxAttempts,
	)
	return CreateResult{}, errx.E(op, errx.Exhausted, ErrAllocationExhausted)
}

// Resolve looks a code up in either namespace. Missing, inactive and
// expired links all come back as NotFound wrapping ErrLinkUnavailable.
func (s *service) Resolve(ctx context.Context, code string) (Link, error) {
	const op = "links.service.Resolve"

	if code == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("code cannot be empty"))
	}
	if !IsWellFormedCode(code) {
		return Link{}, unavailable(op, code)
	}

	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			return Link{}, unavailable(op, code)
		}
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if !link.IsResolvable(s.now()) {
		return Link{}, unavailable(op, code)
	}
	return link, nil
}

func unavailable(op, code string) error {
	return errx.E(op, errx.NotFound, fmt.Errorf("%w: %s", ErrLinkUnavailable, code))
}

// Get returns a link its owner asked for. Other owners get NotFound.
func (s *service) Get(ctx context.Context, id, ownerID uuid.UUID) (Link, error) {
	const op = "links.service.Get"

	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if !link.OwnedBy(ownerID) {
		return Link{}, errx.E(op, errx.NotFound, errors.New("link not found"))
	}
	return link, nil
}

func (s *service) Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error) {
	const op = "links.service.Update"

	if patch.IsEmpty() {
		return Link{}, errx.E(op, errx.Invalid, errors.New("nothing to update"))
	}
	if patch.OriginalURL != nil {
		u := strings.TrimSpace(*patch.OriginalURL)
		if err := validateURL(u, s.maxURLLength); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
		patch.OriginalURL = &u
	}
	if patch.Title != nil || patch.Description != nil {
		var title, description string
		if patch.Title != nil {
			title = *patch.Title
		}
		if patch.Description != nil {
			description = *patch.Description
		}
		title, description, err := cleanMetadata(title, description)
		if err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
		if patch.Title != nil {
			patch.Title = &title
		}
		if patch.Description != nil {
			patch.Description = &description
		}
	}
	if patch.ExpiresAt != nil {
		if patch.ClearExpiry {
			return Link{}, errx.E(op, errx.Invalid, errors.New("expires_at and clear_expiry are mutually exclusive"))
		}
		if !patch.ExpiresAt.After(s.now()) {
			return Link{}, errx.E(op, errx.Invalid, errors.New("expires_at must be in the future"))
		}
	}

	patch.Quota = s.ownerQuota
	link, err := s.repo.Update(ctx, id, ownerID, patch)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

// Delete deactivates a link, or removes it when hard is set.
func (s *service) Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) error {
	const op = "links.service.Delete"

	link, err := s.repo.Delete(ctx, id, ownerID, hard)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	s.logger.InfoContext(ctx, "link deleted",
		"link_id", link.ID.String(),
		"hard", hard,
	)
	return nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, opts ListOptions) (Page[Link], error) {
	const op = "links.service.List"

	opts, err := normalizeListOptions(opts, s.listMaxLimit)
	if err != nil {
		return Page[Link]{}, errx.E(op, errx.Invalid, err)
	}
	page, err := s.repo.List(ctx, ownerID, opts)
	if err != nil {
		return Page[Link]{}, errx.E(op, errx.KindOf(err), err)
	}
	return page, nil
}

// Popular returns active links clicked within the last Days days with at
// least MinClicks clicks, most clicked first.
func (s *service) Popular(ctx context.Context, opts PopularOptions) ([]Link, error) {
	const op = "links.service.Popular"

	if opts.Days <= 0 {
		opts.Days = s.popularDays
	}
	if opts.MinClicks < 0 {
		return nil, errx.E(op, errx.Invalid, errors.New("min_clicks cannot be negative"))
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = DefaultPopularLimit
	case opts.Limit > MaxPopularLimit:
		opts.Limit = MaxPopularLimit
	}
	opts.AsOf = s.now()

	out, err := s.repo.Popular(ctx, opts)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return out, nil
}

// ReconcileOwner recomputes the owner's cached counters from live rows.
func (s *service) ReconcileOwner(ctx context.Context, ownerID uuid.UUID) (OwnerCounters, error) {
	const op = "links.service.ReconcileOwner"

	counters, err := s.repo.ReconcileOwner(ctx, ownerID)
	if err != nil {
		return OwnerCounters{}, errx.E(op, errx.KindOf(err), err)
	}
	s.logger.InfoContext(ctx, "owner counters reconciled",
		"owner_id", ownerID.String(),
		"url_count", counters.URLCount,
		"total_clicks", counters.TotalClicks,
	)
	return counters, nil
}

func validateURL(rawURL string, maxLen int) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > maxLen {
		return fmt.Errorf("url too long (max %d characters)", maxLen)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func cleanMetadata(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if len(title) > MaxTitleLength {
		return "", "", fmt.Errorf("title too long (max %d characters)", MaxTitleLength)
	}
	if len(description) > MaxDescriptionLength {
		return "", "", fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	}
	return title, description, nil
}
