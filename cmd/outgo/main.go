package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"outgo/internal/amqp"
	"outgo/internal/auth"
	"outgo/internal/cache"
	"outgo/internal/config"
	"outgo/internal/core"
	apphttp "outgo/internal/http"
	"outgo/internal/log"
	"outgo/internal/services"
	"outgo/internal/storage"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the API stays up without the event bus
			logger.Warn("Failed to connect to AMQP, expense events disabled", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	} else {
		logger.Info("AMQP_URL not set, expense events disabled")
	}

	snapshots := cache.NewLRU[core.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	janitor := cache.NewJanitor(snapshots)
	janitor.Start(10 * time.Minute)
	defer janitor.Stop()

	dashboards := services.NewDashboardService(repo, snapshots)
	expenses := services.NewExpenseService(repo, events, dashboards)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	accounts := auth.NewService(repo, tokens)

	srv := apphttp.NewServer(":"+cfg.Port, expenses, dashboards, accounts, tokens, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting outgo server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
