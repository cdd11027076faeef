package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"llm-chat-platform/config"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DefaultRetries количество попыток подключения по умолчанию
	DefaultRetries = 10
	// DefaultRetryDelay задержка между попытками по умолчанию
	DefaultRetryDelay = 2 * time.Second
)

// Database владеет пулом соединений с PostgreSQL
type Database struct {
	db  *gorm.DB
	log *slog.Logger

	ping      func(ctx context.Context) error
	sleep     func(ctx context.Context, d time.Duration) error
	onAttempt func(err error)
}

// Option настраивает Database
type Option func(*Database)

// WithAttemptHook вызывает fn после каждой попытки проверки подключения
func WithAttemptHook(fn func(err error)) Option {
	return func(d *Database) {
		d.onAttempt = fn
	}
}

// Open создает пул соединений. Сетевых операций при этом не выполняется,
// подключение проверяется в CheckConnection.
func Open(settings *config.Settings, log *slog.Logger, opts ...Option) (*Database, error) {
	log = log.With("component", "database")
	gormConfig := &gorm.Config{
		Logger:               newGormLogger(log),
		DisableAutomaticPing: true,
	}

	db, err := gorm.Open(postgres.Open(settings.DatabaseURL()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	d := newDatabase(db, log, opts...)
	d.log.Debug("PostgreSQL pool created", "url", settings.RedactedDatabaseURL())
	return d, nil
}

// gormLogger пишет сообщения gorm через slog. Ошибки запросов не
// логируются: их возвращает вызывающему коду и логирует CheckConnection.
type gormLogger struct {
	logger.Interface
}

func newGormLogger(log *slog.Logger) logger.Interface {
	return gormLogger{logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)}
}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return gormLogger{l.Interface.LogMode(level)}
}

func (l gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil {
		return
	}
	l.Interface.Trace(ctx, begin, fc, err)
}

func newDatabase(db *gorm.DB, log *slog.Logger, opts ...Option) *Database {
	d := &Database{
		db:    db,
		log:   log,
		sleep: sleepContext,
	}
	d.ping = d.selectOne
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DB возвращает экземпляр gorm для обработчиков
func (d *Database) DB() *gorm.DB {
	return d.db
}

// CheckConnection выполняет SELECT 1, повторяя до retries раз с фиксированной
// задержкой delay. После исчерпания попыток возвращает последнюю ошибку.
func (d *Database) CheckConnection(ctx context.Context, retries int, delay time.Duration) error {
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; ; attempt++ {
		err := d.ping(ctx)
		if d.onAttempt != nil {
			d.onAttempt(err)
		}
		if err == nil {
			d.log.Info("database connection successful", "attempt", attempt)
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("database check aborted on attempt %d: %w", attempt, errors.Join(ctxErr, err))
		}

		attrs := append([]any{"attempt", attempt, "retries", retries}, errorAttrs(err)...)
		if attempt == retries {
			d.log.Warn("database not ready", attrs...)
			d.log.Error("database connection failed after retries", "retries", retries, "error", err)
			return fmt.Errorf("database connection failed after %d attempts: %w", retries, err)
		}

		d.log.Warn("database not ready, retrying", append(attrs, "delay", delay)...)
		if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("database check aborted on attempt %d: %w", attempt, errors.Join(sleepErr, err))
		}
	}
}

// Close закрывает пул соединений
func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	d.log.Info("PostgreSQL pool closed")
	return nil
}

func (d *Database) selectOne(ctx context.Context) error {
	return d.db.WithContext(ctx).Exec("SELECT 1").Error
}

// errorAttrs добавляет SQLSTATE, если сервер вернул ошибку PostgreSQL
func errorAttrs(err error) []any {
	attrs := []any{"error", err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		attrs = append(attrs, "sqlstate", pgErr.Code)
	}
	return attrs
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
