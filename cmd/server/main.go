package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/campusfix/internal/bootstrap"
	"anoa.com/campusfix/internal/config"
	"anoa.com/campusfix/internal/server"
	"anoa.com/campusfix/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DSN(), !cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedDepartments(db); err != nil {
		log.Fatalf("failed to seed departments: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedPrincipal(db); err != nil {
			log.Fatalf("failed to seed principal user: %v", err)
		}
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := database.ConnectRedis(pingCtx, cfg.RedisURL)
	cancelPing()
	if err != nil {
		// Counts fall back to the database and live notifications are off.
		logger.Warn("redis unavailable", "error", err)
		redisClient = nil
	}

	srv := server.NewServer(cfg, db, redisClient)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "environment", cfg.AppEnv)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exited with error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server exited")
}
