package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sagaline/sagaline/config"
	"github.com/sagaline/sagaline/pkg/api/response"
)

const limiterIdleTTL = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-client token bucket to incoming requests. Clients
// are keyed by remote IP. A nil or disabled config is a no-op.
func RateLimit(cfg *config.RateLimitConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.Enabled || cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(cfg.RequestsPerSecond)

	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if cl, ok := clients[key]; ok {
			cl.lastSeen = now
			return cl.limiter
		}

		// Evict idle entries on insert so the map cannot grow unbounded.
		for k, cl := range clients {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(clients, k)
			}
		}

		cl := &clientLimiter{limiter: rate.NewLimiter(limit, burst), lastSeen: now}
		clients[key] = cl
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !get(clientKey(r)).Allow() {
				requestID := GetRequestID(r.Context())
				response.Error(w, http.StatusTooManyRequests, "RATE_LIMITED",
					"rate limit exceeded", requestID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
