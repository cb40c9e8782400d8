package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/httpx"
)

const maxBodyBytes = 32 << 10

// HTTPReportRequest is the body of POST /api/analytics/report.
type HTTPReportRequest struct {
	Type        string `json:"type"`
	TargetID    string `json:"target_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	ExcludeBots bool   `json:"exclude_bots"`
	Format      string `json:"format"`
}

// HTTPSummaryRequest is the body of POST /api/analytics/summary.
type HTTPSummaryRequest struct {
	LinkIDs     []string `json:"link_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	ExcludeBots bool     `json:"exclude_bots"`
}

// HTTPCleanupRequest is the body of POST /api/admin/cleanup.
type HTTPCleanupRequest struct {
	RetentionDays int  `json:"retention_days"`
	DryRun        bool `json:"dry_run"`
}

// Handler serves the analytics endpoints.
type Handler struct {
	service Aggregator
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(service Aggregator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// scopeOwner returns nil for admins, the caller's owner id otherwise, and
// writes 401 for anonymous callers.
func scopeOwner(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	if httpx.GetIdentity(r.Context()).Admin {
		return nil, true
	}
	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return nil, false
	}
	return &owner, true
}

func filterFromQuery(q url.Values) (Filter, error) {
	var f Filter
	var err error
	if f.Start, err = httpx.QueryTime(q, "start_date"); err != nil {
		return Filter{}, err
	}
	if f.End, err = httpx.QueryTime(q, "end_date"); err != nil {
		return Filter{}, err
	}
	if v, err := httpx.QueryBool(q, "exclude_bots"); err != nil {
		return Filter{}, err
	} else if v != nil {
		f.ExcludeBots = *v
	}
	if v, err := httpx.QueryBool(q, "include_city"); err != nil {
		return Filter{}, err
	} else if v != nil {
		f.IncludeCity = *v
	}
	if f.Limit, err = httpx.QueryInt(q, "limit", 0); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseDates(start, end string) (*time.Time, *time.Time, error) {
	var s, e *time.Time
	if start != "" {
		t, err := httpx.ParseTime(start)
		if err != nil {
			return nil, nil, fmt.Errorf("start_date: %w", err)
		}
		s = &t
	}
	if end != "" {
		t, err := httpx.ParseTime(end)
		if err != nil {
			return nil, nil, fmt.Errorf("end_date: %w", err)
		}
		e = &t
	}
	return s, e, nil
}

// LinkAnalytics handles GET /api/analytics/links/{id}.
func (h *Handler) LinkAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := scopeOwner(w, r)
	if !ok {
		return
	}
	id, err := httpx.PathUUID(r.PathValue("id"), "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	out, err := h.service.URLAnalytics(ctx, id, owner, f)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load link analytics.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Dashboard handles GET /api/analytics/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := httpx.RequireOwner(w, r)
	if !ok {
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	out, err := h.service.UserDashboard(ctx, owner, f)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load dashboard.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Platform handles GET /api/analytics/platform.
func (h *Handler) Platform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	if !httpx.RequireAdmin(w, r) {
		return
	}
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	out, err := h.service.PlatformAnalytics(ctx, f)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load platform analytics.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// RealTime handles GET /api/analytics/realtime. Admins see all traffic.
func (h *Handler) RealTime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := scopeOwner(w, r)
	if !ok {
		return
	}
	minutes, err := httpx.QueryInt(r.URL.Query(), "minutes", DefaultRealTimeMinutes)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	out, err := h.service.RealTime(ctx, RealTimeOptions{Minutes: minutes, OwnerID: owner})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to load real-time analytics.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Report handles POST /api/analytics/report and renders JSON or YAML.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := scopeOwner(w, r)
	if !ok {
		return
	}
	req, err := httpx.DecodeJSON[HTTPReportRequest](r, httpx.WithLimit(maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}
	start, end, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	criteria := ReportCriteria{
		Type:        strings.ToLower(strings.TrimSpace(req.Type)),
		Requester:   owner,
		Start:       start,
		End:         end,
		ExcludeBots: req.ExcludeBots,
		Format:      req.Format,
	}
	if req.TargetID != "" {
		target, err := uuid.Parse(req.TargetID)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_input", "target_id must be a UUID", nil)
			return
		}
		criteria.TargetID = &target
	}

	rep, err := h.service.Report(ctx, criteria)
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to generate report.")
		return
	}
	if rep.Format == FormatYAML {
		httpx.WriteYAML(w, http.StatusOK, rep)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}

// Summary handles POST /api/analytics/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := scopeOwner(w, r)
	if !ok {
		return
	}
	req, err := httpx.DecodeJSON[HTTPSummaryRequest](r, httpx.WithLimit(maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}
	start, end, err := parseDates(req.StartDate, req.EndDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	out, err := h.service.Summary(ctx, owner, req.LinkIDs, Filter{Start: start, End: end, ExcludeBots: req.ExcludeBots})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to summarise links.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Cleanup handles POST /api/admin/cleanup.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	if !httpx.RequireAdmin(w, r) {
		return
	}
	req, err := httpx.DecodeJSON[HTTPCleanupRequest](r, httpx.WithLimit(maxBodyBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}

	out, err := h.service.Cleanup(ctx, CleanupOptions{RetentionDays: req.RetentionDays, DryRun: req.DryRun})
	if err != nil {
		h.handleError(ctx, logger, w, err, "Unable to clean up clicks.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error, fallback string) {
	kind := errx.KindOf(err)
	attrs := []any{
		"error", err.Error(),
		"error_kind", kind.String(),
		"operation", errx.OpOf(err),
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "analytics query timed out", attrs...)
	case kind == errx.NotFound, kind == errx.Invalid, kind == errx.Forbidden:
		logger.WarnContext(ctx, "request rejected", attrs...)
	default:
		logger.ErrorContext(ctx, "request failed", attrs...)
	}

	httpx.WriteKindError(w, err, fallback, nil)
}
