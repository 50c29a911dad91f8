package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/api"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/database"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/handler"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/middleware"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/progress"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/ranking"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/services"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store/memory"
	"github.com/MassBabyGeek/PumpPro-challenges/internal/store/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Could not load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	s, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Store initialization failed: %v", err)
		os.Exit(1)
	}
	defer s.Close()

	// Push (facultatif)
	var pusher services.Pusher
	if cfg.PushEnabled() {
		sns, err := services.NewSNSPusher(ctx, cfg)
		if err != nil {
			logger.Error("SNS initialization failed: %v", err)
			os.Exit(1)
		}
		pusher = sns
		logger.Info("Push notifications enabled on %s", cfg.SNSTopicARN)
	} else {
		logger.Warning("SNS_TOPIC_ARN not set, push notifications disabled")
	}

	policy := store.RetryPolicy{MaxAttempts: cfg.TxMaxAttempts, BaseDelay: cfg.TxRetryBaseDelay}

	notifications := services.NewNotificationService(s, pusher, policy)
	agg := progress.NewAggregator(s, notifications, progress.Options{
		BatchSize:          cfg.RecomputeBatchSize,
		Workers:            cfg.RecomputeWorkers,
		DefaultAggregation: cfg.DefaultAggregation,
		Retry:              policy,
	})

	h := &handler.Handler{
		Activities:    services.NewActivityService(s, agg, policy),
		Challenges:    services.NewChallengeService(s, agg, policy, cfg.DefaultAggregation),
		Notifications: notifications,
		Ranking:       ranking.NewView(s),
	}

	if cfg.AuthDisabled {
		logger.Warning("AUTH_DISABLED=true, identity is read from %s / %s headers", middleware.HeaderDevUserID, middleware.HeaderDevRole)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(h, middleware.NewAuth(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed: %v", err)
		}
	}()

	// Start server
	logger.Success("Server starting on port %s (store=%s)", cfg.Port, cfg.Store)
	fmt.Printf("\n")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warning("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	}

	// Connect to PostgreSQL
	pool, err := database.ConnectPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return postgres.New(pool), nil
}
