package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "socket peer", remoteAddr: "203.0.113.7:52100", want: "203.0.113.7"},
		{name: "ipv6 peer", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "peer without port", remoteAddr: "203.0.113.7", want: "203.0.113.7"},
		{
			name:       "forwarded header ignored without trusted proxies",
			remoteAddr: "203.0.113.7:52100",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4"},
			want:       "203.0.113.7",
		},
		{
			name:       "real ip header ignored without trusted proxies",
			remoteAddr: "203.0.113.7:52100",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header ignored from untrusted peer",
			trusted:    proxies,
			remoteAddr: "203.0.113.7:52100",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.4"},
			want:       "203.0.113.7",
		},
		{
			name:       "nearest untrusted hop from trusted peer",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "192.0.2.50, 198.51.100.4, 10.0.0.2"},
			want:       "198.51.100.4",
		},
		{
			name:       "every hop trusted",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.2"},
			want:       "10.1.1.1",
		},
		{
			name:       "real ip header from trusted peer",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "garbage forwarded header falls back to peer",
			trusted:    proxies,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "unknown"},
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/abc1234", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			var got string
			RealIP(tt.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_WithoutMiddlewareUsesPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/abc1234", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	req.Header.Set("X-Forwarded-For", "198.51.100.4")

	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("ClientIP() = %q, want 203.0.113.7", got)
	}
}
