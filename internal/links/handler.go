package links

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/httpx"
)

// maxBodyBytes bounds create and update bodies; a URL is capped well below it.
const maxBodyBytes = 64 << 10

// HTTPCreateLinkRequest is the JSON body of POST /api/links.
type HTTPCreateLinkRequest struct {
	URL           string `json:"url"`
	CustomAlias   string `json:"custom_alias,omitempty"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
}

// HTTPUpdateLinkRequest is the JSON body of PATCH /api/links/{id}.
type HTTPUpdateLinkRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	URL         *string    `json:"url"`
	IsActive    *bool      `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
}

// LinkResponse is a link plus the values derived from it.
type LinkResponse struct {
	Link
	ShortURL         string  `json:"short_url"`
	ClickThroughRate float64 `json:"click_through_rate"`
	IsExpired        bool    `json:"is_expired"`
	AgeInDays        int     `json:"age_in_days"`
}

// CreateLinkResponse adds IsNew so callers can tell a dedup hit apart.
type CreateLinkResponse struct {
	LinkResponse
	IsNew bool `json:"is_new"`
}

// Handler serves the link management API.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
	now     func() time.Time
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // e.g. "https://lnk.example"
	Now     func() time.Time
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		now:     now,
	}
}

func (h *Handler) present(l Link) LinkResponse {
	now := h.now()
	return LinkResponse{
		Link:             l,
		ShortURL:         l.ShortURL(h.baseURL),
		ClickThroughRate: l.ClickThroughRate(),
		IsExpired:        l.IsExpired(now),
		AgeInDays:        l.AgeInDays(now),
	}
}

func (h *Handler) presentAll(links []Link) []LinkResponse {
	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.present(l))
	}
	return out
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// CreateLink handles POST /api/links. Anonymous callers may create links;
// they are not subject to a quota and never share dedup hits with owners.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r, httpx.WithLimit(maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "url is required", nil)
		return
	}

	in := CreateLinkRequest{
		OriginalURL:   req.URL,
		CustomAlias:   req.CustomAlias,
		ExpiresInDays: req.ExpiresInDays,
		Title:         req.Title,
		Description:   req.Description,
	}
	if owner, ok := httpx.OwnerID(ctx); ok {
		in.OwnerID = &owner
	}

	res, err := h.service.Create(ctx, in)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to create short link at this time. Please try again.")
		return
	}

	status := http.StatusCreated
	if !res.IsNew {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, CreateLinkResponse{
		LinkResponse: h.present(res.Link),
		IsNew:        res.IsNew,
	})
}

// ListLinks handles GET /api/links.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := httpx.QueryInt(q, "page", 1)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	limit, err := httpx.QueryInt(q, "limit", DefaultListLimit)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	active, err := httpx.QueryBool(q, "is_active")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	res, err := h.service.List(ctx, owner, ListOptions{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Search:    q.Get("search"),
		IsActive:  active,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to list links at this time.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, Page[LinkResponse]{
		Items:      h.presentAll(res.Items),
		Page:       res.Page,
		Limit:      res.Limit,
		Total:      res.Total,
		TotalPages: res.TotalPages,
		HasNext:    res.HasNext,
	})
}

// PopularLinks handles GET /api/links/popular. Owners see their own links;
// anonymous callers see the platform-wide list.
func (h *Handler) PopularLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	q := r.URL.Query()
	days, err := httpx.QueryInt(q, "days", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	minClicks, err := httpx.QueryInt(q, "min_clicks", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	limit, err := httpx.QueryInt(q, "limit", DefaultPopularLimit)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	opts := PopularOptions{Days: days, MinClicks: int64(minClicks), Limit: limit}
	if owner, ok := httpx.OwnerID(ctx); ok {
		opts.OwnerID = &owner
	}

	out, err := h.service.Popular(ctx, opts)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load popular links at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": h.presentAll(out)})
}

// GetLink handles GET /api/links/{id}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r.PathValue("id"), "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	link, err := h.service.Get(ctx, id, owner)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load link at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.present(link))
}

// UpdateLink handles PATCH /api/links/{id}.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r.PathValue("id"), "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	req, err := httpx.DecodeJSON[HTTPUpdateLinkRequest](r, httpx.WithLimit(maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}

	link, err := h.service.Update(ctx, id, owner, LinkPatch{
		Title:       req.Title,
		Description: req.Description,
		OriginalURL: req.URL,
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
		ClearExpiry: req.ClearExpiry,
	})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to update link at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.present(link))
}

// DeleteLink handles DELETE /api/links/{id}; ?hard=true removes the row.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r.PathValue("id"), "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	hard, err := httpx.QueryBool(r.URL.Query(), "hard")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	if err := h.service.Delete(ctx, id, owner, hard != nil && *hard); err != nil {
		h.handleError(ctx, logger, w, err, "Unable to delete link at this time.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileOwner handles POST /api/admin/owners/{id}/reconcile.
func (h *Handler) ReconcileOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	if !httpx.RequireAdmin(w, r) {
		return
	}
	owner, err := httpx.PathUUID(r.PathValue("id"), "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	counters, err := h.service.ReconcileOwner(ctx, owner)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to reconcile owner counters at this time.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, counters)
}

func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, fallback string) {
	kind := errx.KindOf(err)
	attrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"operation", errx.OpOf(err),
	}

	var details any
	switch kind {
	case errx.Conflict:
		logger.WarnContext(ctx, "code conflict", attrs...)
		details = map[string]string{
			"hint": "Try a different custom alias or let us generate one for you",
		}
	case errx.QuotaExceeded:
		logger.WarnContext(ctx, "owner quota reached", attrs...)
		var qe *QuotaError
		if errors.As(err, &qe) {
			details = map[string]int{"limit": qe.Limit}
		}
	case errx.NotFound, errx.Invalid, errx.Forbidden, errx.Unauthorized:
		logger.WarnContext(ctx, "request rejected", attrs...)
	default:
		logger.ErrorContext(ctx, "request failed", attrs...)
	}

	httpx.WriteKindError(w, err, fallback, details)
}
