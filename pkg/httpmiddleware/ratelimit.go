package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a key may make per window.
	Max    int
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request. Defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// window holds the counts of the current and previous fixed windows of one
// key. The effective count interpolates between them.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type rateLimiter struct {
	cfg RateLimitConfig

	mu   sync.Mutex
	keys map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &rateLimiter{cfg: cfg, keys: make(map[string]*window)}
}

// allow counts a request for key at now and reports whether it fits.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	size := rl.cfg.Window
	w, found := rl.keys[key]
	if !found {
		w = &window{currStart: now.Truncate(size)}
		rl.keys[key] = w
	}
	if elapsed := now.Sub(w.currStart); elapsed >= size {
		w.prev = w.curr
		if elapsed >= 2*size {
			w.prev = 0
		}
		w.curr = 0
		w.currStart = now.Truncate(size)
	}

	weight := 1 - float64(now.Sub(w.currStart))/float64(size)
	effective := w.prev*math.Max(weight, 0) + w.curr
	resetAt = w.currStart.Add(size)
	if effective >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}

	w.curr++
	return max(int(float64(rl.cfg.Max)-effective-1), 0), resetAt, true
}

// evict drops keys idle for two windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.keys {
		if now.Sub(w.currStart) >= 2*rl.cfg.Window {
			delete(rl.keys, key)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.keys)
}

func (rl *rateLimiter) runEviction(ctx context.Context) {
	ticker := rl.cfg.Clock.NewTicker(2 * rl.cfg.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.Chan():
				rl.evict(now)
			}
		}
	}()
}

// RateLimit limits requests per key with a sliding window. Rejected
// requests get a 429 envelope and Retry-After. Every response carries the
// X-RateLimit-* headers. Keys are never evicted, see RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit with background eviction of idle keys
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.runEviction(ctx)
	return rl.middleware()
}

func (rl *rateLimiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := rl.cfg.Clock.Now()
			remaining, resetAt, ok := rl.allow(rl.cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			wait := max(resetAt.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too many requests, please slow down")
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
