// Package main runs the challenge HTTP server with the in-process scheduler,
// the assignment worker and graceful shutdown.
package main

import (
	"context"
	"net/http"
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

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	a.Start(bgCtx, true)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage.Driver), zap.String("timezone", a.Location.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	bgCancel()
	a.Stop(shutdownCtx)
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
