package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/app"
	"github.com/mamadbah2/ppe-coverage/internal/config"
	"github.com/mamadbah2/ppe-coverage/internal/scheduler"
	"github.com/mamadbah2/ppe-coverage/internal/server/handlers"
	"github.com/mamadbah2/ppe-coverage/internal/server/router"
	"github.com/mamadbah2/ppe-coverage/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	application, err := app.New(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close(context.Background())

	// Warm the cache so a broken dataset is reported at startup rather than on the first request.
	if _, err := application.Reports.Reload(context.Background()); err != nil {
		baseLogger.Error("initial dataset load failed", zap.Error(err))
	}

	sched, err := scheduler.NewScheduler(cfg.Reporting, application.SchedulerDeps(), baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	coverageHandler := handlers.NewCoverageHandler(application.Reports, baseLogger.Named("handlers.coverage"))
	engine := router.New(coverageHandler, application.Metrics.Handler(), baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
