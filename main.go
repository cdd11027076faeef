package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"llm-chat-platform/config"
	"llm-chat-platform/logger"
	"llm-chat-platform/server"

	"github.com/gin-gonic/gin"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(settings.AppEnv, settings.LogLevel)
	if !settings.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(settings, log)
	if err != nil {
		log.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	// При STRICT_STARTUP недоступность зависимостей останавливает запуск
	if err := srv.Start(ctx); err != nil {
		log.Error("startup aborted", "error", err)
		_ = srv.Shutdown(context.Background())
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
