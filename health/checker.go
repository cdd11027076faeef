package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"llm-chat-platform/cache"
	"llm-chat-platform/metrics"
	"llm-chat-platform/models"
)

// DatabaseProbe проверка PostgreSQL с повторами
type DatabaseProbe interface {
	CheckConnection(ctx context.Context, retries int, delay time.Duration) error
}

// CacheProbe проверка Redis одним PING
type CacheProbe interface {
	CheckConnection(ctx context.Context) error
}

// DependencyError ошибка проверки конкретной зависимости
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Checker последовательно проверяет PostgreSQL и Redis, записывая
// результаты в кэш состояния и метрики
type Checker struct {
	db      DatabaseProbe
	redis   CacheProbe
	status  *cache.StatusCache
	metrics *metrics.Collector
	log     *slog.Logger

	retries int
	delay   time.Duration
}

// Config параметры повторов для проверки БД
type Config struct {
	Retries int
	Delay   time.Duration
}

// NewChecker создает Checker. status и collector могут быть nil.
func NewChecker(db DatabaseProbe, redis CacheProbe, cfg Config, status *cache.StatusCache, collector *metrics.Collector, log *slog.Logger) *Checker {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	return &Checker{
		db:      db,
		redis:   redis,
		status:  status,
		metrics: collector,
		log:     log.With("component", "health"),
		retries: cfg.Retries,
		delay:   cfg.Delay,
	}
}

// CheckAll проверяет БД (с настроенными повторами), затем Redis.
// Redis не проверяется, если БД недоступна.
func (c *Checker) CheckAll(ctx context.Context) error {
	return c.checkAll(ctx, c.retries)
}

// ProbeAll то же, что CheckAll, но с одной попыткой для БД
func (c *Checker) ProbeAll(ctx context.Context) error {
	return c.checkAll(ctx, 1)
}

func (c *Checker) checkAll(ctx context.Context, retries int) error {
	if err := c.CheckDatabase(ctx, retries); err != nil {
		return err
	}
	return c.CheckRedis(ctx)
}

// CheckDatabase проверяет PostgreSQL
func (c *Checker) CheckDatabase(ctx context.Context, retries int) error {
	return c.run(models.DependencyPostgres, func() error {
		return c.db.CheckConnection(ctx, retries, c.delay)
	})
}

// CheckRedis проверяет Redis
func (c *Checker) CheckRedis(ctx context.Context) error {
	return c.run(models.DependencyRedis, func() error {
		return c.redis.CheckConnection(ctx)
	})
}

func (c *Checker) run(dependency string, check func() error) error {
	start := time.Now()
	err := check()
	took := time.Since(start)

	// Отмена вызывающей стороной ничего не говорит о состоянии зависимости
	if errors.Is(err, context.Canceled) {
		return &DependencyError{Dependency: dependency, Err: err}
	}

	if c.metrics != nil {
		c.metrics.ObserveCheck(dependency, took, err)
	}
	if c.status != nil {
		previous := c.status.Record(dependency, err)
		c.logTransition(dependency, previous, err)
	}

	if err != nil {
		return &DependencyError{Dependency: dependency, Err: err}
	}
	return nil
}

func (c *Checker) logTransition(dependency string, previous models.Status, err error) {
	switch {
	case err != nil && previous != models.StatusError:
		c.log.Warn("dependency became unavailable", "dependency", dependency, "error", err)
	case err == nil && previous != models.StatusOK:
		c.log.Info("dependency available", "dependency", dependency)
	}
}

// IsTimeout сообщает, что проверка прервана по таймауту
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// FailedDependency возвращает имя зависимости из ошибки CheckAll
func FailedDependency(err error) string {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return depErr.Dependency
	}
	return ""
}
