package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"llm-chat-platform/cache"
	"llm-chat-platform/health"
	"llm-chat-platform/models"

	"github.com/gin-gonic/gin"
)

// DependencyChecker проверяет все внешние зависимости
type DependencyChecker interface {
	CheckAll(ctx context.Context) error
}

// HealthHandler обработчики проверок жизнеспособности и готовности
type HealthHandler struct {
	appEnv      string
	checker     DependencyChecker
	status      *cache.StatusCache
	depsTimeout time.Duration
	log         *slog.Logger
}

// NewHealthHandler создает HealthHandler. depsTimeout <= 0 отключает таймаут /health/deps.
func NewHealthHandler(appEnv string, checker DependencyChecker, status *cache.StatusCache, depsTimeout time.Duration, log *slog.Logger) *HealthHandler {
	return &HealthHandler{
		appEnv:      appEnv,
		checker:     checker,
		status:      status,
		depsTimeout: depsTimeout,
		log:         log,
	}
}

// Health проверка жизнеспособности процесса. Зависимости не проверяются.
func (h *HealthHandler) Health(c *gin.Context) {
	h.log.Debug("health check")
	c.JSON(http.StatusOK, models.HealthResponse{
		Status: models.StatusOK,
		AppEnv: h.appEnv,
	})
}

// Deps проверяет PostgreSQL и Redis в момент запроса
func (h *HealthHandler) Deps(c *gin.Context) {
	ctx := c.Request.Context()
	if h.depsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.depsTimeout)
		defer cancel()
	}

	if err := h.checker.CheckAll(ctx); err != nil {
		_ = c.Error(err)
		status, body := dependencyFailure(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, models.DepsResponse{
		Postgres: models.StatusOK,
		Redis:    models.StatusOK,
	})
}

// Ready отдает последнее известное состояние зависимостей без новых проверок
func (h *HealthHandler) Ready(c *gin.Context) {
	snapshot := h.status.Snapshot()
	if snapshot.Status != models.StatusOK {
		c.JSON(http.StatusServiceUnavailable, snapshot)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// dependencyFailure переводит ошибку проверки в HTTP статус и тело ответа
func dependencyFailure(err error) (int, models.ErrorResponse) {
	if health.IsTimeout(err) {
		return http.StatusGatewayTimeout, models.ErrorResponse{
			Error:  models.ErrorTimeout,
			Detail: err.Error(),
		}
	}

	switch health.FailedDependency(err) {
	case models.DependencyPostgres:
		return http.StatusServiceUnavailable, models.ErrorResponse{
			Error:  models.ErrorPostgresUnavailable,
			Detail: err.Error(),
		}
	case models.DependencyRedis:
		return http.StatusServiceUnavailable, models.ErrorResponse{
			Error:  models.ErrorRedisUnavailable,
			Detail: err.Error(),
		}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{
			Error:  models.ErrorInternal,
			Detail: err.Error(),
		}
	}
}
