package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig зависимости HTTP сервера.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	Stories        *StoryHandler
	Sessions       *SessionManager
	RateLimit      RateLimitConfig
	// Metrics включает gin_* метрики и /metrics.
	Metrics bool
	Logger  *zap.Logger
}

// NewRouter собирает gin engine: логирование, CORS, health, метрики и API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(ZapLogger(cfg.Logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	api := router.Group(cfg.APIPrefix)
	cfg.Stories.RegisterRoutes(api,
		cfg.Sessions.Middleware(),
		CreateRateLimiter(cfg.RateLimit, cfg.Logger.Named("RateLimiter")),
	)

	if cfg.Metrics {
		// Prometheus подключается после регистрации маршрутов.
		p := ginprometheus.NewPrometheus("gin")
		p.Use(router)
	}
	return router
}
