package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/linkmetrics/internal/analytics"
	"github.com/sundayezeilo/linkmetrics/internal/clicks"
	"github.com/sundayezeilo/linkmetrics/internal/config"
	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/httpx"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type resolverFunc func(ctx context.Context, code string) (links.Link, error)

func (f resolverFunc) Resolve(ctx context.Context, code string) (links.Link, error) {
	return f(ctx, code)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, clicks.ClickInput) error { return nil }
func (nopDispatcher) Close(context.Context) error                       { return nil }

// dashboardOnly answers UserDashboard and rejects everything else.
type dashboardOnly struct {
	analytics.Aggregator
}

func (dashboardOnly) UserDashboard(_ context.Context, ownerID uuid.UUID, _ analytics.Filter) (analytics.UserDashboard, error) {
	return analytics.UserDashboard{OwnerID: ownerID}, nil
}

func testServer(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Observability: config.ObservabilityConfig{ServiceName: "linkmetrics-test", ServiceVersion: "test"},
	}
	resolver := resolverFunc(func(_ context.Context, code string) (links.Link, error) {
		if code == "abc1234" {
			return links.Link{ID: uuid.New(), ShortCode: code, OriginalURL: "https://example.com/landing", IsActive: true}, nil
		}
		return links.Link{}, errx.E("test", errx.NotFound, links.ErrLinkUnavailable)
	})
	return New(cfg, logger, Handlers{
		Redirect:  clicks.NewRedirectHandler(resolver, nopDispatcher{}, logger),
		Analytics: analytics.NewHandler(dashboardOnly{}, logger),
		Database:  db,
	}).Handler()
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := testServer(t, pingFunc(func(context.Context) error { return nil }))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/x/health", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.Equal(t, "linkmetrics-test", body["service"])
		assert.NotEmpty(t, rr.Header().Get(httpx.RequestIDHeader))
	})

	t.Run("database down", func(t *testing.T) {
		h := testServer(t, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/x/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unreachable", body["database"])
	})
}

func TestRoutes(t *testing.T) {
	h := testServer(t, nil)
	owner := uuid.New()

	tests := []struct {
		name       string
		method     string
		target     string
		owner      bool
		wantStatus int
	}{
		{"redirect", "GET", "/abc1234", false, http.StatusFound},
		{"unknown code", "GET", "/zzzzzzz", false, http.StatusNotFound},
		{"api path is not a code", "GET", "/api/analytics/dashboard", true, http.StatusOK},
		{"identity is applied", "GET", "/api/analytics/dashboard", false, http.StatusUnauthorized},
		{"wrong method", "POST", "/abc1234", false, http.StatusMethodNotAllowed},
		{"preflight", "OPTIONS", "/api/links", false, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.owner {
				req.Header.Set(httpx.OwnerIDHeader, owner.String())
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

type ipDispatcher struct{ ips []string }

func (d *ipDispatcher) Dispatch(_ context.Context, in clicks.ClickInput) error {
	d.ips = append(d.ips, in.IPAddress)
	return nil
}
func (d *ipDispatcher) Close(context.Context) error { return nil }

func TestClientAttribution(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		want    string
	}{
		{"forwarded header ignored by default", nil, "192.0.2.10"},
		{"forwarded header honored behind trusted proxy", []string{"192.0.2.0/24"}, "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			disp := &ipDispatcher{}
			cfg := &config.Config{Server: config.ServerConfig{TrustedProxies: tt.trusted}}
			resolver := resolverFunc(func(_ context.Context, code string) (links.Link, error) {
				return links.Link{ID: uuid.New(), ShortCode: code, OriginalURL: "https://example.com/landing", IsActive: true}, nil
			})
			h := New(cfg, logger, Handlers{Redirect: clicks.NewRedirectHandler(resolver, disp, logger)}).Handler()

			req := httptest.NewRequest("GET", "/abc1234", nil)
			req.RemoteAddr = "192.0.2.10:40000"
			req.Header.Set("X-Forwarded-For", "198.51.100.4")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, http.StatusFound, rr.Code)
			require.Len(t, disp.ips, 1)
			assert.Equal(t, tt.want, disp.ips[0])
		})
	}
}
