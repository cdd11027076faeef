package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings конфигурация приложения. Создается один раз при старте процесса
// и после этого не изменяется.
type Settings struct {
	AppEnv   string
	LogLevel string
	Port     string

	Postgres PostgresSettings
	Redis    RedisSettings

	// StrictStartup включает fail-fast проверку зависимостей при старте
	StrictStartup bool

	DBConnectRetries    int
	DBConnectRetryDelay time.Duration
	StartupTimeout      time.Duration
	DepsCheckTimeout    time.Duration

	DepsMonitorSchedule string
	DepsRateLimit       int
	CORSAllowedOrigins  []string
	ShutdownTimeout     time.Duration
}

// PostgresSettings параметры подключения к PostgreSQL
type PostgresSettings struct {
	Host     string
	Port     int
	DB       string
	User     string
	Password string
	SSLMode  string
}

// RedisSettings параметры подключения к Redis
type RedisSettings struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения
func Load() (*Settings, error) {
	loadDotEnv(".env")
	return FromEnv(os.LookupEnv)
}

// loadDotEnv подгружает .env файл, не перезаписывая уже заданные переменные
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if errLoad := godotenv.Load(path); errLoad != nil {
			slog.Warn("error loading .env file", "path", path, "error", errLoad)
		} else {
			slog.Info(".env file loaded successfully", "path", path)
		}
	} else if os.IsNotExist(err) {
		slog.Debug("no .env file found, using environment variables only")
	} else {
		slog.Warn("error checking .env file", "path", path, "error", err)
	}
}

// FromEnv собирает Settings через переданную функцию поиска переменных.
// Пустые значения и значения из одних пробелов заменяются значениями по умолчанию.
func FromEnv(lookup func(string) (string, bool)) (*Settings, error) {
	e := envReader{lookup: lookup}

	s := &Settings{
		AppEnv:   e.str("APP_ENV", "development"),
		LogLevel: e.str("LOG_LEVEL", "INFO"),
		Port:     e.str("PORT", "8000"),
		Postgres: PostgresSettings{
			Host:     e.str("POSTGRES_HOST", "postgres"),
			Port:     e.int("POSTGRES_PORT", 5432),
			DB:       e.str("POSTGRES_DB", "llmchat"),
			User:     e.str("POSTGRES_USER", "llmchat"),
			Password: e.str("POSTGRES_PASSWORD", "llmchatpass"),
			SSLMode:  e.str("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisSettings{
			Host:     e.str("REDIS_HOST", "redis"),
			Port:     e.int("REDIS_PORT", 6379),
			DB:       e.int("REDIS_DB", 0),
			Password: e.str("REDIS_PASSWORD", ""),
		},
		StrictStartup:       e.bool("STRICT_STARTUP", false),
		DBConnectRetries:    e.int("DB_CONNECT_RETRIES", 10),
		DBConnectRetryDelay: e.duration("DB_CONNECT_RETRY_DELAY", 2*time.Second),
		StartupTimeout:      e.duration("STARTUP_TIMEOUT", 60*time.Second),
		DepsCheckTimeout:    e.duration("DEPS_CHECK_TIMEOUT", 30*time.Second),
		DepsMonitorSchedule: e.schedule("DEPS_MONITOR_SCHEDULE", "@every 30s"),
		DepsRateLimit:       e.int("DEPS_RATE_LIMIT", 30),
		CORSAllowedOrigins:  e.list("CORS_ALLOWED_ORIGINS"),
		ShutdownTimeout:     e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if e.err != nil {
		return nil, e.err
	}

	if s.DBConnectRetries < 1 {
		return nil, fmt.Errorf("DB_CONNECT_RETRIES must be at least 1, got %d", s.DBConnectRetries)
	}
	if s.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", s.ShutdownTimeout)
	}
	if s.DepsRateLimit < 0 {
		return nil, fmt.Errorf("DEPS_RATE_LIMIT must not be negative, got %d", s.DepsRateLimit)
	}

	return s, nil
}

// DatabaseURL возвращает строку подключения к PostgreSQL
func (s *Settings) DatabaseURL() string {
	return s.Postgres.url(url.UserPassword(s.Postgres.User, s.Postgres.Password))
}

// RedactedDatabaseURL строка подключения без пароля, для логов
func (s *Settings) RedactedDatabaseURL() string {
	return s.Postgres.url(url.UserPassword(s.Postgres.User, "***"))
}

func (p PostgresSettings) url(user *url.Userinfo) string {
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.DB,
	}
	if p.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(p.SSLMode)
	}
	return u.String()
}

// RedisURL возвращает строку подключения к Redis. Без пароля
// сегмент учетных данных не добавляется.
func (s *Settings) RedisURL() string {
	return s.Redis.url(s.Redis.Password)
}

// RedactedRedisURL строка подключения к Redis без пароля
func (s *Settings) RedactedRedisURL() string {
	if s.Redis.Password == "" {
		return s.Redis.url("")
	}
	return s.Redis.url("***")
}

func (r RedisSettings) url(password string) string {
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
		Path:   "/" + strconv.Itoa(r.DB),
	}
	if password != "" {
		u.User = url.UserPassword("", password)
	}
	return u.String()
}

// IsDevelopment сообщает, запущено ли приложение в окружении разработки
func (s *Settings) IsDevelopment() bool {
	return strings.EqualFold(s.AppEnv, "development")
}

var (
	errDurationRange    = errors.New("duration out of range")
	errNegativeDuration = errors.New("duration must not be negative")
)

// envReader читает переменные окружения и запоминает первую ошибку разбора
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) str(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return defaultValue
}

func (e *envReader) int(key string, defaultValue int) int {
	raw := e.str(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (e *envReader) bool(key string, defaultValue bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, err)
		return defaultValue
	}
	return v
}

// duration принимает как Go-формат ("2s", "500ms"), так и число секунд ("2.0").
// Отрицательные значения и значения вне диапазона time.Duration отклоняются.
func (e *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return defaultValue
	}

	var v time.Duration
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		ns := seconds * float64(time.Second)
		if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
			e.fail(key, raw, errDurationRange)
			return defaultValue
		}
		v = time.Duration(ns)
	} else {
		v, err = time.ParseDuration(raw)
		if err != nil {
			e.fail(key, raw, err)
			return defaultValue
		}
	}

	if v < 0 {
		e.fail(key, raw, errNegativeDuration)
		return defaultValue
	}
	return v
}

// schedule возвращает cron выражение; "off", "disabled" и "none" отключают задачу
func (e *envReader) schedule(key, defaultValue string) string {
	raw := e.str(key, defaultValue)
	switch strings.ToLower(raw) {
	case "off", "disabled", "none":
		return ""
	}
	return raw
}

func (e *envReader) list(key string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) fail(key, raw string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid value %q for %s: %w", raw, key, err)
	}
}
