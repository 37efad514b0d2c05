// Package main runs the background worker: the assignment queue consumer
// and the scheduled challenge jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tribu-research/challenge-backend/config"
	"github.com/tribu-research/challenge-backend/internal/app"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Fatal("worker needs shared storage; STORAGE_DRIVER=memory is server-only")
	}

	ctx := context.Background()
	clk := clock.Real{}
	stores, infra, cleanup, err := app.Connect(ctx, cfg, clk, logger)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer cleanup()

	a, err := app.New(cfg, stores, infra, clk, logger)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	if a.Processor == nil {
		logger.Warn("redis not configured; only scheduled jobs will run")
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(workerCtx, true)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	a.Stop(stopCtx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
