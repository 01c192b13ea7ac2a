package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
)

// ErrRateLimited is reported to clients that exceed a limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter counts requests in fixed windows stored in Redis, so the
// limits hold across every API instance sharing the same Redis.
type RateLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimiter returns a limiter using client for its counters.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, prefix: "ratelimit", now: time.Now}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Allow records one hit for key and reports whether it is within limit
// for the current window. When it is not, retryAfter is the time left
// until the window resets.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	now := rl.now()
	slot := now.UnixMilli() / window.Milliseconds()
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, slot)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}
	resetAt := time.UnixMilli((slot + 1) * window.Milliseconds())
	return false, resetAt.Sub(now), nil
}

// LimitMutations caps write requests (POST, PUT, PATCH, DELETE) per
// authenticated actor. Reads pass through untouched. It must run after
// JWTAuth.
func (rl *RateLimiter) LimitMutations(limit int, window time.Duration) func(http.Handler) http.Handler {
	return rl.middleware("mutations", limit, window, func(r *http.Request) (string, bool) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return "", false
		}
		actor, ok := core.ActorFromContext(r.Context())
		if !ok {
			return "", false
		}
		return "actor:" + actor.ID, true
	})
}

// LimitByIP caps all requests per client IP.
func (rl *RateLimiter) LimitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return rl.middleware("requests", limit, window, func(r *http.Request) (string, bool) {
		ip := ClientIP(r)
		if !ip.IsValid() {
			return "", false
		}
		return "ip:" + ip.String(), true
	})
}

func (rl *RateLimiter) middleware(scope string, limit int, window time.Duration, keyFn func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := keyFn(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := rl.Allow(r.Context(), scope+":"+key, limit, window)
			if err != nil {
				// Redis being down must not take the API with it.
				logging.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					"scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				logging.FromContext(r.Context()).Info("rate limited",
					"scope", scope, "key", key, "retry_after_s", secs)
				writeError(w, http.StatusTooManyRequests, ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
