package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/config"
	"github.com/tribu-research/challenge-backend/internal/memstore"
	"github.com/tribu-research/challenge-backend/pkg/clock"
	"github.com/tribu-research/challenge-backend/pkg/database"
	"github.com/tribu-research/challenge-backend/pkg/redis"
	"github.com/tribu-research/challenge-backend/pkg/storage"
)

// Connect opens the storage and infrastructure cfg asks for. The returned
// cleanup closes whatever was opened.
func Connect(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (Stores, Infra, func(), error) {
	var (
		stores  Stores
		infra   Infra
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		stores = MemoryStores(memstore.New(), clk.Now().In(location(cfg)))
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
			MaxConns:        int32(cfg.Database.MaxConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		}, logger)
		if err != nil {
			return stores, infra, cleanup, fmt.Errorf("database: %w", err)
		}
		closers = append(closers, pool.Close)
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool, logger); err != nil {
				cleanup()
				return stores, infra, func() {}, fmt.Errorf("migrate: %w", err)
			}
		}
		stores = PostgresStores(pool)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			cleanup()
			return stores, infra, func() {}, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		infra.Redis = rdb
	} else {
		logger.Info("redis not configured; single-instance mode")
	}

	if cfg.AWS.ReportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Endpoint:             cfg.AWS.Endpoint,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			infra.Objects = s3Client
		}
	}
	return stores, infra, cleanup, nil
}

func location(cfg *config.Config) *time.Location {
	loc, err := cfg.Challenge.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}
