package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/reddit-pulse/internal/collector"
	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/errorreporting"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/pipeline"
	"github.com/onnwee/reddit-pulse/internal/ratelimit"
	"github.com/onnwee/reddit-pulse/internal/scheduler"
	"github.com/onnwee/reddit-pulse/internal/source"
	"github.com/onnwee/reddit-pulse/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	logger.Info("starting collector", "subreddits", cfg.Subreddits, "interval_minutes", cfg.IntervalMinutes)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("error reporting init failed", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("reddit-pulse-collector")
	if err != nil {
		logger.Warn("tracing init failed", "error", err)
	} else if cfg.OTELEnabled {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.Init(ctx)
	if err != nil {
		logger.Error("database init failed", "error", err)
		log.Fatalf("database init failed: %v", err)
	}
	defer store.Close()

	limiter := ratelimit.New(cfg.RequestsPerMinute, cfg.TokensPerMinute)
	src := source.New(limiter)

	pl, err := pipeline.New(pipeline.NewDBStore(store))
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		log.Fatalf("pipeline init failed: %v", err)
	}

	svc := scheduler.NewService(collector.New(src, pl))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	svc.Start(ctx)
	logger.Info("collector stopped")
}
