package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/cache"
)

// RateLimiter admits at most limit requests per client in each fixed window.
// Counters live in a sharded TTL store keyed by client address and expire with their window.
type RateLimiter struct {
	limit   int
	window  time.Duration
	windows *cache.Sharded[int]
}

// NewRateLimiter creates a limiter. Call Close to stop its cleanup worker.
func NewRateLimiter(limit int, window time.Duration, opts ...cache.Option) *RateLimiter {
	if limit < 1 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	opts = append([]cache.Option{cache.WithCleanupInterval(window)}, opts...)
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		windows: cache.New[int](window, opts...),
	}
	rl.windows.StartCleanupWorker()
	return rl
}

// Allow counts one request for client and reports whether it fits in the current window,
// together with the time left until the window resets.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	n := rl.windows.Update(client, func(cur int, _ bool) int { return cur + 1 })
	return n <= rl.limit, rl.windows.TTLRemaining(client)
}

func (rl *RateLimiter) Close() {
	rl.windows.StopCleanupWorker()
}

// ClientKey identifies the caller by remote host.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects requests over the per-client limit with 429 and Retry-After.
func RateLimitMiddleware(limiter *RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientKey(r)
			ok, reset := limiter.Allow(client)
			if !ok {
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client", client),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)

				secs := int(reset.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
