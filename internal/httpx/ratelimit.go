package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ariefcatur/go-restaurant-orders/internal/auth"
)

// RateLimiter keeps one token bucket per actor, or per client IP for
// anonymous callers.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	log      *logrus.Entry
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(rps, burst int, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.limiters[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.seen = time.Now()
	return v.lim
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.limiter(key).Allow() {
			rl.log.WithFields(logrus.Fields{"key": key, "path": r.URL.Path}).Warn("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"ok":    false,
				"error": map[string]string{"code": "RATE_LIMITED", "message": "too many requests"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey buckets by actor, else by client host. The port is dropped so
// reconnecting does not earn a fresh bucket.
func clientKey(r *http.Request) string {
	if a, ok := auth.FromContext(r.Context()); ok {
		return "user:" + a.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	for k, v := range rl.limiters {
		if v.seen.Before(cutoff) {
			delete(rl.limiters, k)
		}
	}
}
