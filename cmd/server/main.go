package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/reddit-pulse/internal/alert"
	"github.com/onnwee/reddit-pulse/internal/api"
	"github.com/onnwee/reddit-pulse/internal/api/handlers"
	"github.com/onnwee/reddit-pulse/internal/collector"
	"github.com/onnwee/reddit-pulse/internal/config"
	"github.com/onnwee/reddit-pulse/internal/db"
	"github.com/onnwee/reddit-pulse/internal/errorreporting"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/monitor"
	"github.com/onnwee/reddit-pulse/internal/notify"
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
	logger.Info("starting server", "addr", cfg.ServerAddr, "strategy", cfg.SourceStrategy)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("error reporting init failed", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("reddit-pulse-server")
	if err != nil {
		logger.Warn("tracing init failed", "error", err)
	} else if cfg.OTELEnabled {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	sched := scheduler.NewService(collector.New(src, pl))

	mgr := monitor.NewManager(src)
	mgr.Start(ctx, cfg.Subreddits)
	defer mgr.StopAll()

	engine := alert.NewEngine()
	for _, n := range notify.FromConfig() {
		engine.AddNotifier(n)
	}

	srv := api.NewServer(handlers.Deps{
		Store:     store,
		Source:    src,
		Scheduler: sched,
		Monitor:   mgr,
		Alerts:    engine,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})

	g.Go(func() error {
		engine.Run(gctx, mgr.Subscribe())
		return nil
	})

	g.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		log.Fatalf("server exited with error: %v", err)
	}
	logger.Info("server stopped")
}
