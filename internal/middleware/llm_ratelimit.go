package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumen-journal/lumen-backend/pkg/clientip"
)

// LLM routes (coach replies, insight generation) fan out to a paid
// upstream, so they carry their own per-IP limit on top of the global
// one: ~6 requests/min, burst 3.

const (
	llmRouteRPS        = 0.1
	llmRouteBurst      = 3
	llmCleanupInterval = 5 * time.Minute
	llmLimiterTTL      = 30 * time.Minute
)

var (
	llmEntries    = make(map[string]*limiterEntry)
	llmEntriesMu  sync.Mutex
	llmCleanupRun bool
)

func isLLMRoute(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/coach/sessions/") && strings.HasSuffix(r.URL.Path, "/messages") {
		return true
	}
	return r.URL.Path == "/api/insights/generate"
}

func getLLMLimiter(ip string) *rate.Limiter {
	llmEntriesMu.Lock()
	defer llmEntriesMu.Unlock()
	startLLMCleanupOnce()

	e, ok := llmEntries[ip]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(llmRouteRPS), llmRouteBurst),
			lastUse: time.Now(),
		}
		llmEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startLLMCleanupOnce() {
	if llmCleanupRun {
		return
	}
	llmCleanupRun = true
	go func() {
		ticker := time.NewTicker(llmCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			llmEntriesMu.Lock()
			now := time.Now()
			for k, e := range llmEntries {
				if now.Sub(e.lastUse) > llmLimiterTTL {
					delete(llmEntries, k)
				}
			}
			llmEntriesMu.Unlock()
		}
	}()
}

// LLMRateLimit throttles the routes that trigger model calls.
// Returns 429 with limit headers when exceeded.
func LLMRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLLMRoute(r) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientip.RealClientIP(r)
		if !getLLMLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(llmRouteBurst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many coaching requests. Please wait a moment before sending more."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
