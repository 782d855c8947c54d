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

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client request limiting.
//
// Each client gets a token bucket holding Max tokens that refills at
// Max per Window, so a client may burst up to Max requests and then
// continues at the average rate.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip excludes matching requests, e.g. health checks.
	Skip func(*http.Request) bool
}

// quota is the outcome of a single admission decision.
type quota struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
	// full is how long until the bucket is back at Max.
	full time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type buckets struct {
	max    int
	window time.Duration
	every  rate.Limit

	mu      sync.Mutex
	clients map[string]*bucket
}

func newBuckets(size int, window time.Duration) *buckets {
	return &buckets{
		max:     size,
		window:  window,
		every:   rate.Limit(float64(size) / window.Seconds()),
		clients: make(map[string]*bucket),
	}
}

func (b *buckets) take(key string, now time.Time) quota {
	b.mu.Lock()
	c, ok := b.clients[key]
	if !ok {
		c = &bucket{lim: rate.NewLimiter(b.every, b.max)}
		b.clients[key] = c
	}
	c.seen = now
	b.mu.Unlock()

	q := quota{allowed: c.lim.AllowN(now, 1)}
	if !q.allowed {
		r := c.lim.ReserveN(now, 1)
		if r.OK() {
			q.retryAfter = r.DelayFrom(now)
			r.CancelAt(now)
		} else {
			q.retryAfter = b.window
		}
	}

	tokens := c.lim.TokensAt(now)
	q.remaining = max(int(tokens), 0)
	if missing := float64(b.max) - tokens; missing > 0 && b.every > 0 {
		q.full = time.Duration(missing / float64(b.every) * float64(time.Second))
	}
	return q
}

// evict drops buckets idle for a whole window. Such a bucket has refilled
// completely, so dropping it is indistinguishable from keeping it.
func (b *buckets) evict(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for key, c := range b.clients {
		if now.Sub(c.seen) >= b.window {
			delete(b.clients, key)
			n++
		}
	}
	return n
}

func (b *buckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// RateLimit limits requests per client. Rejected requests get 429 with the
// JSON error body and a Retry-After header. Every limited response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
//
// Buckets are never evicted; long running servers use RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limitWith(cfg, newBuckets(cfg.Max, cfg.Window))
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle
// client buckets once per window until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	b := newBuckets(cfg.Max, cfg.Window)
	go sweepBuckets(ctx, b)
	return limitWith(cfg, b)
}

func sweepBuckets(ctx context.Context, b *buckets) {
	t := time.NewTicker(b.window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := b.evict(now); n > 0 {
				zctx.From(ctx).Debug("Evicted idle rate limit buckets",
					zap.Int("evicted", n),
					zap.Int("remaining", b.size()),
				)
			}
		}
	}
}

func limitWith(cfg RateLimitConfig, b *buckets) Middleware {
	key := cfg.KeyFunc
	if key == nil {
		key = ClientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			now := time.Now()
			q := b.take(key(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(q.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(q.full).Unix(), 10))
			if !q.allowed {
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(q.retryAfter.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
