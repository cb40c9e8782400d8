package httpx

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestChain_Order(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name+">")
				next.ServeHTTP(w, r)
				calls = append(calls, "<"+name)
			})
		}
	}

	h := Chain(tag("recovery"), tag("request_id"), tag("logger"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls = append(calls, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := "recovery> request_id> logger> handler <logger <request_id <recovery"
	if got := strings.Join(calls, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestChain_Empty(t *testing.T) {
	called := false
	Chain()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("handler should run with no middleware")
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generates a UUID", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/abc1234", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("request id %q is not a UUID", seen)
		}
		if rr.Header().Get(RequestIDHeader) != seen {
			t.Errorf("response header = %q, want %q", rr.Header().Get(RequestIDHeader), seen)
		}
	})

	t.Run("keeps caller id", func(t *testing.T) {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "gateway-42")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "gateway-42" {
			t.Errorf("request id = %q, want gateway-42", seen)
		}
	})

	t.Run("missing or wrong type in context", func(t *testing.T) {
		if got := GetRequestID(context.Background()); got != "" {
			t.Errorf("GetRequestID() = %q, want empty", got)
		}
		ctx := context.WithValue(context.Background(), requestIDContextKey, 7)
		if got := GetRequestID(ctx); got != "" {
			t.Errorf("GetRequestID() = %q, want empty", got)
		}
	})
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusFound, `"level":"INFO"`},
		{http.StatusNotFound, `"level":"WARN"`},
		{http.StatusServiceUnavailable, `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/abc1234", nil))

			line := buf.String()
			if !strings.Contains(line, tt.level) {
				t.Errorf("log line %s missing %s", line, tt.level)
			}
			if !strings.Contains(line, `"bytes":4`) {
				t.Errorf("log line %s missing byte count", line)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("allow all", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://example.com")
		CORS(nil)(ok).ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
		if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, OwnerIDHeader) {
			t.Errorf("Allow-Headers = %q, want it to include %s", got, OwnerIDHeader)
		}
	})

	t.Run("allow list", func(t *testing.T) {
		h := CORS([]string{"https://app.example.com"})(ok)
		for origin, want := range map[string]string{
			"https://app.example.com": "https://app.example.com",
			"https://evil.example":    "",
			"":                        "",
		} {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			if origin != "" {
				req.Header.Set("Origin", origin)
			}
			h.ServeHTTP(rr, req)
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != want {
				t.Errorf("origin %q: Allow-Origin = %q, want %q", origin, got, want)
			}
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called := false
		h := CORS(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/links", nil))

		if called {
			t.Error("handler ran for preflight")
		}
		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rr.Code)
		}
	})
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("x"))
	rw.WriteHeader(http.StatusTeapot)

	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200 after implicit header", rw.statusCode)
	}
	if rw.bytes != 1 {
		t.Errorf("bytes = %d, want 1", rw.bytes)
	}
}
