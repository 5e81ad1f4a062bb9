package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"notesync/config"
	"notesync/config/database"
	"notesync/pkg/logger"
	"notesync/router"
	"notesync/socket"
)

func main() {
	envLoaded := config.LoadEnv()

	cfg, err := config.LoadServer()
	if err != nil {
		logger.Init("info")
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if !envLoaded {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	db, err := database.Connect(cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		logger.Sugar.Fatalf("Database unavailable: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Driver); err != nil {
		logger.Sugar.Fatalf("Migration failed: %v", err)
	}

	hub := socket.NewHub()
	go hub.Run()
	defer hub.Stop()

	handler, err := router.Setup(db, hub, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to set up routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Sugar.Infof("notesync listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Shutdown failed: %v", err)
	}
}
