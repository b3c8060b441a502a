package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleLimiterTTL drops a client's bucket after this long without requests
const idleLimiterTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return newRateLimiter(rps, burst, idleLimiterTTL)
}

func newRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(idleTTL, idleTTL),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, found := rl.limiters.Get(ip)
	if !found {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
	}
	// every request pushes expiry out again
	rl.limiters.SetDefault(ip, limiter)
	return limiter.(*rate.Limiter)
}

// Middleware answers 429 once a client exceeds its bucket
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.getLimiter(ip).Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
