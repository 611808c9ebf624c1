package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/redis"
)

// Области лимита. Запросы к платным API Google и отправка заявок считаются раздельно.
const (
	RateScopeEstimate = "estimate"
	RateScopeLead     = "lead"
)

// RateDecision результат проверки лимита для клиента
type RateDecision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimiter ограничивает публичные эндпоинты фиксированным окном на пару (область, IP).
type RateLimiter struct {
	counters rateCounters
	log      *logger.Logger
	enabled  bool
	limit    int64
	window   time.Duration
	prefix   string
}

type rateCounters interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// NewRateLimiter создает limiter. Без Redis или при выключенной настройке пропускает все запросы.
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimiter {
	if redisClient == nil || cfg == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return &RateLimiter{enabled: false}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RateLimiter{
		counters: redisClient,
		log:      log,
		enabled:  true,
		limit:    int64(cfg.Requests),
		window:   time.Duration(cfg.WindowSeconds) * time.Second,
		prefix:   prefix,
	}
}

// Allow учитывает запрос клиента в области scope.
func (r *RateLimiter) Allow(ctx context.Context, scope, clientKey string) (RateDecision, error) {
	now := time.Now()
	if !r.enabled {
		return RateDecision{Allowed: true, Limit: r.limit, Remaining: r.limit, ResetAt: now}, nil
	}

	key := r.counterKey(scope, clientKey)

	count, err := r.counters.Incr(ctx, key)
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate limiter incr failed: %w", err)
	}

	if count == 1 {
		if err := r.counters.Expire(ctx, key, r.window); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to set rate limit ttl")
		}
	}

	ttl, err := r.counters.TTL(ctx, key)
	switch {
	case err != nil:
		r.log.WithError(err).WithField("key", key).Warn("Failed to get rate limit ttl")
		ttl = r.window
	case ttl < 0:
		// Счетчик без TTL никогда не сбросится: окно открывается заново.
		if err := r.counters.Expire(ctx, key, r.window); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to restore rate limit ttl")
		}
		ttl = r.window
	case ttl == 0:
		ttl = r.window
	}

	return RateDecision{
		Allowed:   count <= r.limit,
		Limit:     r.limit,
		Remaining: remainingOf(r.limit, count),
		ResetAt:   now.Add(ttl),
	}, nil
}

// Usage возвращает текущее состояние окна без учета нового запроса.
// Окно, которое еще не открыто, считается пустым и ResetAt равен nil.
func (r *RateLimiter) Usage(ctx context.Context, scope, clientKey string) (used, remaining int64, resetAt *time.Time, err error) {
	if !r.enabled {
		return 0, r.limit, nil, nil
	}

	key := r.counterKey(scope, clientKey)
	count, err := r.counters.GetInt(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return 0, r.limit, nil, nil
		}
		return 0, 0, nil, fmt.Errorf("rate limiter usage failed: %w", err)
	}

	if ttl, ttlErr := r.counters.TTL(ctx, key); ttlErr != nil {
		r.log.WithError(ttlErr).WithField("key", key).Warn("Failed to get rate limit ttl")
	} else if ttl > 0 {
		at := time.Now().Add(ttl)
		resetAt = &at
	}

	return count, remainingOf(r.limit, count), resetAt, nil
}

func (r *RateLimiter) counterKey(scope, clientKey string) string {
	return redis.GenerateKey(r.prefix+":"+scope, strings.ReplaceAll(clientKey, ":", "_"))
}

func remainingOf(limit, count int64) int64 {
	if count >= limit {
		return 0
	}
	return limit - count
}

// Limit лимит запросов на окно
func (r *RateLimiter) Limit() int64 {
	return r.limit
}

// Enabled сообщает, включен ли лимит
func (r *RateLimiter) Enabled() bool {
	return r.enabled
}

// ExtractClientIP определяет IP клиента с учетом прокси.
func ExtractClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
