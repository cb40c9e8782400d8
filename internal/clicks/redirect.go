package clicks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/httpx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

// Resolver resolves a short code to a redirectable link. links.Service
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, code string) (links.Link, error)
}

// RedirectHandler serves GET /{code}.
type RedirectHandler struct {
	resolver   Resolver
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRedirectHandler creates a RedirectHandler.
func NewRedirectHandler(resolver Resolver, dispatcher Dispatcher, logger *slog.Logger) *RedirectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedirectHandler{
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Redirect answers 302 before the click is recorded. Dispatch failures are
// logged and never reach the visitor.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.PathValue("code")

	link, err := h.resolver.Resolve(ctx, code)
	if err != nil {
		kind := errx.KindOf(err)
		switch {
		case errors.Is(err, links.ErrLinkUnavailable), kind == errx.NotFound, kind == errx.Invalid:
			httpx.WriteError(w, http.StatusNotFound, "not_found", "short link not found", nil)
		default:
			h.logger.ErrorContext(ctx, "failed to resolve short code",
				"request_id", httpx.GetRequestID(ctx),
				"short_code", code,
				"error", err.Error(),
			)
			httpx.WriteKindError(w, err, "failed to resolve short link", nil)
		}
		return
	}

	in := ClickInput{
		LinkID:    link.ID,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		Campaign:  CampaignFromQuery(r.URL.Query()),
		ClickedAt: h.now().UTC(),
	}
	if err := h.dispatcher.Dispatch(ctx, in); err != nil {
		h.logger.WarnContext(ctx, "click not dispatched",
			"request_id", httpx.GetRequestID(ctx),
			"link_id", link.ID.String(),
			"error", err.Error(),
		)
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}
