package api

import (
	"strconv"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/apperrors"
	"github.com/code-sleuth/ike-tube/internal/manager/metrics"
	"github.com/code-sleuth/ike-tube/internal/manager/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestID adds a unique request ID to each request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

// RequestLogger logs one line per request and counts it by route and status.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		if route == "/health" {
			return
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// RateLimit allows limit requests per client IP in each window of
// windowSeconds. Store failures let the request through.
func RateLimit(
	limiter *ratelimit.Limiter,
	route string,
	limit int,
	windowSeconds int,
	logger zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Check(c.Request.Context(), route+":"+c.ClientIP(), limit, windowSeconds)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("request_id", c.GetString(requestIDKey)).
				Str("route", route).
				Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := result.RetryAfter(time.Now())
			seconds := max(int((retryAfter+time.Second-1)/time.Second), 1)
			c.Header("Retry-After", strconv.Itoa(seconds))
			metrics.RateLimited.WithLabelValues(route).Inc()
			respondError(c, apperrors.Wrap(apperrors.ErrRateLimited, apperrors.KindRateLimited))
			return
		}

		c.Next()
	}
}
