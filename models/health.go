package models

import "time"

// Status состояние процесса или зависимости
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusUnknown Status = "unknown"
)

// Имена зависимостей, как они выглядят в ответах API и метриках
const (
	DependencyPostgres = "postgres"
	DependencyRedis    = "redis"
)

// Виды ошибок в ErrorResponse
const (
	ErrorPostgresUnavailable = "postgres_unavailable"
	ErrorRedisUnavailable    = "redis_unavailable"
	ErrorTimeout             = "timeout"
	ErrorRateLimited         = "rate_limited"
	ErrorInternal            = "internal_error"
	ErrorNotFound            = "not_found"
)

// HealthResponse ответ /health
type HealthResponse struct {
	Status Status `json:"status"`
	AppEnv string `json:"app_env"`
}

// DepsResponse ответ /health/deps при доступных зависимостях
type DepsResponse struct {
	Postgres Status `json:"postgres"`
	Redis    Status `json:"redis"`
}

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// DependencyStatus последнее известное состояние зависимости
type DependencyStatus struct {
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// ReadinessResponse ответ /ready
type ReadinessResponse struct {
	Status       Status                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}
