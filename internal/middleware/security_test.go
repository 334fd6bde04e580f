package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)

	SecurityHeaders(okHandler()).ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Content-Security-Policy":   "default-src 'self'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestHostCheck(t *testing.T) {
	handler := HostCheck("api.example.com")(okHandler())

	cases := []struct {
		host string
		want int
	}{
		{"api.example.com", http.StatusOK},
		{"api.example.com:443", http.StatusOK},
		{"API.Example.Com", http.StatusOK},
		{"evil.example.com", http.StatusForbidden},
		{"localhost:8080", http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tc.host
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("host %q: status %d, want %d", tc.host, rec.Code, tc.want)
		}
	}
}

func TestHostCheckEmptyAllowsAll(t *testing.T) {
	handler := HostCheck("")(okHandler())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "anything.example.com"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	handler := GlobalRateLimit(okHandler())

	send := func(ip string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)
		req.RemoteAddr = ip + ":12345"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// The burst allows 15 requests, then 429.
	for i := 0; i < globalRateLimitBurst; i++ {
		if code := send("10.1.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i+1, code)
		}
	}
	if code := send("10.1.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("over burst: status %d, want 429", code)
	}

	// A different IP has its own bucket.
	if code := send("10.1.0.2"); code != http.StatusOK {
		t.Errorf("other IP: status %d, want 200", code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	handler := LoginRateLimit(okHandler())

	send := func(ip, path string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":12345"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 on login paths, then 429.
	for i := 0; i < loginRateLimitBurst; i++ {
		if code := send("10.2.0.1", "/api/auth/signin"); code != http.StatusOK {
			t.Fatalf("attempt %d: status %d, want 200", i+1, code)
		}
	}
	if code := send("10.2.0.1", "/api/auth/signin"); code != http.StatusTooManyRequests {
		t.Errorf("over burst: status %d, want 429", code)
	}

	// The limiter is shared across all login paths for the IP.
	if code := send("10.2.0.1", "/api/admin/signin"); code != http.StatusTooManyRequests {
		t.Errorf("admin signin after exhausting: status %d, want 429", code)
	}

	// Non-login routes are untouched even for a limited IP.
	for i := 0; i < 10; i++ {
		if code := send("10.2.0.1", "/api/journals"); code != http.StatusOK {
			t.Fatalf("non-login request %d: status %d, want 200", i+1, code)
		}
	}
}

func TestProductionSecurityChain(t *testing.T) {
	mws := ProductionSecurity("api.example.com")
	if len(mws) != 4 {
		t.Fatalf("len = %d, want 4", len(mws))
	}

	handler := okHandler()
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/journals", nil)
	req.Host = "api.example.com"
	req.RemoteAddr = fmt.Sprintf("10.3.0.1:%d", 40000)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing from chained response")
	}
}
