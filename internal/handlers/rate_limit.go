package handlers

import (
	"net/http"
	"strconv"
	"time"

	"roofing-estimator/internal/config"
	"roofing-estimator/internal/logger"
	"roofing-estimator/internal/services"
)

// RateLimitHandler отдает клиенту состояние его лимитов.
type RateLimitHandler struct {
	limiter RateLimitStatusProvider
	log     *logger.Logger
	cfg     *config.RateLimitConfig
}

// NewRateLimitHandler создает новый RateLimitHandler.
func NewRateLimitHandler(limiter RateLimitStatusProvider, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimitHandler {
	return &RateLimitHandler{
		limiter: limiter,
		log:     log,
		cfg:     cfg,
	}
}

// Status возвращает использование лимита по областям estimate и lead.
func (h *RateLimitHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.limiter == nil || !h.limiter.Enabled() || h.cfg == nil {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"enabled": false,
		})
		return
	}

	key := services.ExtractClientIP(r)
	scopes := make(map[string]interface{})
	for _, scope := range []string{services.RateScopeEstimate, services.RateScopeLead} {
		used, remaining, resetAt, err := h.limiter.Usage(r.Context(), scope, key)
		if err != nil {
			h.log.WithError(err).WithField("scope", scope).Error("Failed to fetch rate limit usage")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to fetch rate limit usage")
			return
		}

		usage := map[string]interface{}{
			"used":      used,
			"remaining": remaining,
		}
		if resetAt != nil {
			usage["resetAt"] = resetAt.Format(time.RFC3339)
		}
		scopes[scope] = usage
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"enabled":       true,
		"limit":         h.limiter.Limit(),
		"windowSeconds": h.cfg.WindowSeconds,
		"client":        key,
		"scopes":        scopes,
	})
}

// RateLimitMiddleware ограничивает хендлер в области scope.
// Ошибка Redis не блокирует клиента: запрос пропускается и ошибка логируется.
func RateLimitMiddleware(limiter MiddlewareLimiter, scope string, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil || !limiter.Enabled() || r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		key := services.ExtractClientIP(r)
		decision, err := limiter.Allow(r.Context(), scope, key)
		if err != nil {
			log.WithError(err).WithField("scope", scope).Error("Rate limiter failed")
			next(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if !decision.ResetAt.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		}

		if !decision.Allowed {
			if retry := int(time.Until(decision.ResetAt).Seconds()); retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			log.WithFields(map[string]interface{}{
				"scope":     scope,
				"client_ip": key,
			}).Warn("Rate limit exceeded")
			writeErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next(w, r)
	}
}
