package handlers

import (
	"net/http"

	"llm-chat-platform/models"

	"github.com/gin-gonic/gin"
)

const (
	// APITitle название сервиса
	APITitle = "LLM Chat Platform API"
	// APIVersion версия API
	APIVersion = "0.1.0"
)

// APIInfo структура для документации API
type APIInfo struct {
	Title         string     `json:"title"`
	Version       string     `json:"version"`
	Description   string     `json:"description"`
	AppEnv        string     `json:"app_env"`
	StrictStartup bool       `json:"strict_startup"`
	Endpoints     []Endpoint `json:"endpoints"`
}

// Endpoint описание эндпоинта
type Endpoint struct {
	Method      string      `json:"method"`
	Path        string      `json:"path"`
	Description string      `json:"description"`
	Response    interface{} `json:"response,omitempty"`
	Errors      []ErrorInfo `json:"possible_errors,omitempty"`
}

// ErrorInfo информация об ошибке
type ErrorInfo struct {
	Code        int    `json:"code"`
	Kind        string `json:"error"`
	Description string `json:"description"`
}

// InfoHandler обработчик для получения информации об API
func InfoHandler(appEnv string, strictStartup bool) gin.HandlerFunc {
	info := APIInfo{
		Title:         APITitle,
		Version:       APIVersion,
		Description:   "Сервисный каркас: проверки жизнеспособности процесса и доступности PostgreSQL и Redis",
		AppEnv:        appEnv,
		StrictStartup: strictStartup,
		Endpoints: []Endpoint{
			{
				Method:      http.MethodGet,
				Path:        "/health",
				Description: "Проверка жизнеспособности процесса, зависимости не проверяются",
				Response:    models.HealthResponse{Status: models.StatusOK, AppEnv: appEnv},
			},
			{
				Method:      http.MethodGet,
				Path:        "/health/deps",
				Description: "Проверка PostgreSQL (с повторами) и Redis (PING) в момент запроса",
				Response:    models.DepsResponse{Postgres: models.StatusOK, Redis: models.StatusOK},
				Errors: []ErrorInfo{
					{Code: http.StatusServiceUnavailable, Kind: models.ErrorPostgresUnavailable, Description: "PostgreSQL недоступен"},
					{Code: http.StatusServiceUnavailable, Kind: models.ErrorRedisUnavailable, Description: "Redis недоступен или ответил не PONG"},
					{Code: http.StatusGatewayTimeout, Kind: models.ErrorTimeout, Description: "Проверка не уложилась в DEPS_CHECK_TIMEOUT"},
					{Code: http.StatusTooManyRequests, Kind: models.ErrorRateLimited, Description: "Превышен лимит запросов"},
				},
			},
			{
				Method:      http.MethodGet,
				Path:        "/ready",
				Description: "Последнее известное состояние зависимостей (без новых проверок)",
				Errors: []ErrorInfo{
					{Code: http.StatusServiceUnavailable, Kind: string(models.StatusUnknown), Description: "Зависимости еще не проверялись или недоступны"},
				},
			},
			{
				Method:      http.MethodGet,
				Path:        "/info",
				Description: "Описание API",
			},
			{
				Method:      http.MethodGet,
				Path:        "/metrics",
				Description: "Метрики Prometheus",
			},
		},
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
