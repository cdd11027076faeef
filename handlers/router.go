package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"llm-chat-platform/cache"
	"llm-chat-platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig зависимости и параметры HTTP роутера
type RouterConfig struct {
	AppEnv             string
	StrictStartup      bool
	Checker            DependencyChecker
	Status             *cache.StatusCache
	DepsCheckTimeout   time.Duration
	DepsRateLimit      int
	CORSAllowedOrigins []string
	Metrics            http.Handler
	Log                *slog.Logger
}

// NewRouter создает gin роутер со всеми маршрутами сервиса
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(logger.GinMiddleware(cfg.Log))
	router.Use(RecoveryMiddleware(cfg.Log))

	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig := cors.Config{
			AllowOrigins:  cfg.CORSAllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}
		if err := corsConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid CORS configuration: %w", err)
		}
		router.Use(cors.New(corsConfig))
	}

	healthHandler := NewHealthHandler(cfg.AppEnv, cfg.Checker, cfg.Status, cfg.DepsCheckTimeout, cfg.Log)

	router.GET("/health", healthHandler.Health)
	router.GET("/health/deps", RateLimitMiddleware(cfg.DepsRateLimit, time.Minute), healthHandler.Deps)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/info", InfoHandler(cfg.AppEnv, cfg.StrictStartup))
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	router.NoRoute(NotFoundHandler)

	return router, nil
}
