package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/feedline/internal/config"
	"github.com/msomdec/feedline/internal/handler"
	"github.com/msomdec/feedline/internal/repository"
	"github.com/msomdec/feedline/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logOpts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.StoreBackend, cfg.DataDir, cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open record store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("record store ready", "backend", cfg.StoreBackend)

	creds, err := service.NewCredentialScheme(cfg.CredentialScheme, cfg.BcryptCost)
	if err != nil {
		slog.Error("invalid credential scheme", "error", err)
		os.Exit(1)
	}
	if cfg.CredentialScheme == config.SchemePlain {
		slog.Warn("credentials are stored in clear text; set CREDENTIAL_SCHEME=bcrypt for new deployments")
	}

	registry := service.NewSessionRegistry(cfg.SessionTTL)
	throttle := service.NewLoginThrottle(cfg.LoginRate, cfg.LoginBurst)
	go registry.Run(ctx, time.Minute)
	go throttle.Run(ctx, time.Minute, 10*time.Minute)

	authService := service.NewAuthService(store.Records, creds, cfg.JWTSecret, cfg.SessionTTL)
	sessionService := service.NewSessionService(store.Records, creds, registry)
	feedService := service.NewFeedService(store.Records)
	directoryService := service.NewDirectoryService(store.Records)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, sessionService, feedService, directoryService, throttle, store.Records, cfg.SessionTTL, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped", "open_sessions", registry.Len())
}
