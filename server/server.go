package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"llm-chat-platform/cache"
	"llm-chat-platform/config"
	"llm-chat-platform/database"
	"llm-chat-platform/handlers"
	"llm-chat-platform/health"
	"llm-chat-platform/metrics"
	"llm-chat-platform/models"
	"llm-chat-platform/redis"
	"llm-chat-platform/scheduler"
)

// Database пул соединений PostgreSQL, которым владеет сервер
type Database interface {
	health.DatabaseProbe
	Close() error
}

// Cache клиент Redis, которым владеет сервер
type Cache interface {
	health.CacheProbe
	Close() error
}

// Server собирает зависимости, проверяет их при старте и обслуживает HTTP
type Server struct {
	settings *config.Settings
	log      *slog.Logger

	db    Database
	cache Cache

	checker    *health.Checker
	status     *cache.StatusCache
	metrics    *metrics.Collector
	monitor    *scheduler.DependencyMonitor
	httpServer *http.Server
}

// New открывает пул PostgreSQL и клиент Redis (без сетевых операций) и собирает сервер
func New(settings *config.Settings, log *slog.Logger) (*Server, error) {
	collector := metrics.NewCollector(nil)

	db, err := database.Open(settings, log, database.WithAttemptHook(collector.ObserveDatabaseAttempt))
	if err != nil {
		return nil, err
	}

	redisCache, err := redis.New(settings, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s, err := assemble(settings, log, db, redisCache, collector)
	if err != nil {
		_ = redisCache.Close()
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func assemble(settings *config.Settings, log *slog.Logger, db Database, redisCache Cache, collector *metrics.Collector) (*Server, error) {
	if err := scheduler.ValidateSchedule(settings.DepsMonitorSchedule); err != nil {
		return nil, err
	}

	status := cache.NewStatusCache(models.DependencyPostgres, models.DependencyRedis)
	checker := health.NewChecker(db, redisCache, health.Config{
		Retries: settings.DBConnectRetries,
		Delay:   settings.DBConnectRetryDelay,
	}, status, collector, log)

	router, err := handlers.NewRouter(handlers.RouterConfig{
		AppEnv:             settings.AppEnv,
		StrictStartup:      settings.StrictStartup,
		Checker:            checker,
		Status:             status,
		DepsCheckTimeout:   settings.DepsCheckTimeout,
		DepsRateLimit:      settings.DepsRateLimit,
		CORSAllowedOrigins: settings.CORSAllowedOrigins,
		Metrics:            collector.Handler(),
		Log:                log,
	})
	if err != nil {
		return nil, err
	}

	monitorTimeout := settings.DepsCheckTimeout
	if monitorTimeout <= 0 {
		monitorTimeout = 10 * time.Second
	}

	return &Server{
		settings: settings,
		log:      log,
		db:       db,
		cache:    redisCache,
		checker:  checker,
		status:   status,
		metrics:  collector,
		monitor:  scheduler.NewDependencyMonitor(checker, settings.DepsMonitorSchedule, monitorTimeout, log),
		httpServer: &http.Server{
			Addr:              ":" + settings.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler возвращает HTTP обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start выполняет стартовую последовательность. При StrictStartup
// недоступность PostgreSQL или Redis прерывает запуск.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting application",
		"app_env", s.settings.AppEnv,
		"strict_startup", s.settings.StrictStartup,
	)

	if s.settings.StrictStartup {
		if err := s.checkDependencies(ctx); err != nil {
			s.log.Error("dependency check failed, aborting startup", "error", err)
			return fmt.Errorf("startup dependency check failed: %w", err)
		}
		s.log.Info("dependencies ready")
	} else {
		s.log.Info("dependency checks deferred, /health is process-level only")
	}

	return s.monitor.Start(ctx)
}

func (s *Server) checkDependencies(ctx context.Context) error {
	if s.settings.StartupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.StartupTimeout)
		defer cancel()
	}
	return s.checker.CheckAll(ctx)
}

// Run слушает s.settings.Port, пока ctx не будет отменен
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx, затем корректно
// останавливает сервер и освобождает зависимости
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.ShutdownTimeout)
	defer cancel()

	return errors.Join(serveErr, s.Shutdown(shutdownCtx))
}

// Shutdown останавливает HTTP сервер, монитор и закрывает соединения
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	s.monitor.Stop()

	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.log.Info("server stopped")
	return nil
}
