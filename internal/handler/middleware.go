package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"event-ticketing/internal/model"
	"event-ticketing/internal/ratelimit"
	apperrors "event-ticketing/pkg/app_errors"
	"event-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// TokenVerifier turns a bearer token into the asserted caller identity.
type TokenVerifier interface {
	Verify(raw string) (model.Principal, error)
}

// RequestID reuses the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs method, route, status and latency. Bodies are never logged.
func AccessLog() gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("request_id", RequestIDFrom(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("user_id", PrincipalFrom(c).UserID),
		)
	}
}

// Authenticate 驗證 Bearer token；沒有 header 視為匿名，由 policy 決定能否存取
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			setPrincipal(c, model.Principal{})
			c.Next()
			return
		}

		const prefix = "Bearer "
		token := ""
		if strings.HasPrefix(header, prefix) {
			token = strings.TrimSpace(header[len(prefix):])
		}
		if token == "" {
			handleError(c, fmt.Errorf("authorization header: %w", apperrors.ErrUnauthorized), "Authenticate")
			c.Abort()
			return
		}

		p, err := verifier.Verify(token)
		if err != nil {
			handleError(c, err, "Authenticate")
			c.Abort()
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// RateLimit 以使用者（匿名則 IP）為 key 限流；Redis 失敗時放行
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	log := logger.WithComponent("ratelimit")
	return func(c *gin.Context) {
		key := rateKey(c)
		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			c.Header("Retry-After", decision.RetryAfterSeconds())
			handleError(c, apperrors.ErrRateLimited, "RateLimit")
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	if p := PrincipalFrom(c); p.UserID > 0 {
		return "user:" + strconv.Itoa(p.UserID)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
