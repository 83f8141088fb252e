package handler

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ZapLogger логирует запросы, кроме /health и /metrics, и выставляет X-Request-ID.
func ZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// RateLimitConfig лимит запросов на создание задач.
type RateLimitConfig struct {
	Limit  uint
	Window time.Duration
	// Redis общий счетчик для нескольких экземпляров сервера. nil - счетчик в памяти.
	Redis *redis.Client
}

// CreateRateLimiter ограничивает частоту создания задач для одной сессии.
// Должен стоять после SessionManager.Middleware.
func CreateRateLimiter(cfg RateLimitConfig, log *zap.Logger) gin.HandlerFunc {
	var store ratelimit.Store
	if cfg.Redis != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: cfg.Redis,
			Rate:        cfg.Window,
			Limit:       cfg.Limit,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  cfg.Window,
			Limit: cfg.Limit,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			log.Warn("Rate limit exceeded",
				zap.String("session_id", SessionID(c)),
				zap.String("client_ip", c.ClientIP()),
				zap.Time("reset_time", info.ResetTime))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    ErrCodeRateLimited,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			if id := SessionID(c); id != "" {
				return "create:" + id
			}
			return "create:" + c.ClientIP()
		},
	})
}
