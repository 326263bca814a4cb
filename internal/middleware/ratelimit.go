package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/deepdey/notebook-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"

	rateLimitMessage = "Too many requests, please try again later."
)

// RateLimiter is a fixed-window request counter kept in Redis, so every
// server instance shares the same budget per caller.
type RateLimiter struct {
	client redis.Cmdable
	max    int
	window time.Duration
	key    func(*http.Request) string
	log    *slog.Logger
}

// NewRateLimiter allows max requests per window for each key. key defaults
// to the client IP.
func NewRateLimiter(client redis.Cmdable, max int, window time.Duration, key func(*http.Request) string, log *slog.Logger) *RateLimiter {
	if key == nil {
		key = clientip.RealClientIP
	}
	return &RateLimiter{client: client, max: max, window: window, key: key, log: log}
}

// Handler counts the request and rejects it with 429 past the limit. When
// Redis is unreachable the request is let through.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := l.key(r)
		key := RateLimitKeyPrefix + identity

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		// A counter without expiry gets one here, whether it is new or an
		// earlier EXPIRE failed.
		retryAfter := l.window
		if err == nil && ttl.Val() < 0 {
			err = l.client.Expire(ctx, key, l.window).Err()
		} else if err == nil {
			retryAfter = ttl.Val()
		}
		if err != nil {
			l.log.WarnContext(ctx, "rate limiter unavailable, allowing request", "key", identity, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		count := incr.Val()

		remaining := l.max - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(l.max) {
			w.Header().Set("Retry-After", strconv.Itoa(int((retryAfter+time.Second-1)/time.Second)))
			l.log.InfoContext(ctx, "rate limit exceeded", "key", identity, "count", count)
			writeJSONMessage(w, http.StatusTooManyRequests, rateLimitMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CallerIdentity keys requests by the user a valid bearer token names, and
// by client IP otherwise. Only the signature is checked; no database lookup.
func CallerIdentity(tokens TokenVerifier) func(*http.Request) string {
	return func(r *http.Request) string {
		if token := BearerToken(r); token != "" {
			if userID, err := tokens.Verify(token); err == nil {
				return "user:" + userID
			}
		}
		return "ip:" + clientip.RealClientIP(r)
	}
}
