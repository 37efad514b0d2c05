package resilience

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// Cache stores serialized values with a TTL. Redis and the in-process LRU
// both satisfy it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// WeekSource is the primary current-week query.
type WeekSource interface {
	LoadCurrentWeek(ctx context.Context, now time.Time) (*models.WeekPresentations, error)
	EmptyWeek(now time.Time) *models.WeekPresentations
	CurrentWeekRange(now time.Time) (time.Time, time.Time)
}

const keyPrefix = "challenge:current-week:"

// CurrentWeek serves the current-week calendar from cache, falling back to
// the store with retry and finally to an empty week.
type CurrentWeek struct {
	source WeekSource
	cache  Cache
	clock  clock.Clock
	ttl    time.Duration
	retry  RetryPolicy
	logger *zap.Logger
}

// NewCurrentWeek creates the reader. cache may be nil.
func NewCurrentWeek(source WeekSource, cache Cache, clk clock.Clock, ttl time.Duration, retry RetryPolicy, logger *zap.Logger) *CurrentWeek {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CurrentWeek{source: source, cache: cache, clock: clk, ttl: ttl, retry: retry, logger: logger}
}

// CurrentWeek never fails: on retry exhaustion it logs and returns an empty week.
func (r *CurrentWeek) CurrentWeek(ctx context.Context) *models.WeekPresentations {
	now := r.clock.Now()
	key := r.key(now)

	if r.cache != nil {
		raw, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("current week cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			var week models.WeekPresentations
			if err := json.Unmarshal(raw, &week); err == nil {
				return &week
			}
			r.logger.Warn("discarding undecodable current week cache entry", zap.String("key", key))
		}
	}

	week, err := r.load(ctx, now)
	if err != nil {
		r.logger.Error("current week unavailable, serving empty result",
			zap.Int("attempts", r.retry.Attempts),
			zap.Error(err))
		return r.source.EmptyWeek(now)
	}
	r.store(ctx, key, week)
	return week
}

// Refresh reloads the current week and rewrites the cache entry.
func (r *CurrentWeek) Refresh(ctx context.Context) error {
	now := r.clock.Now()
	week, err := r.load(ctx, now)
	if err != nil {
		return err
	}
	r.store(ctx, r.key(now), week)
	r.logger.Debug("current week cache refreshed", zap.Int("presentations", len(week.Presentations)))
	return nil
}

func (r *CurrentWeek) load(ctx context.Context, now time.Time) (*models.WeekPresentations, error) {
	return Do(ctx, r.retry, r.logger, "load current week", func() (*models.WeekPresentations, error) {
		return r.source.LoadCurrentWeek(ctx, now)
	})
}

func (r *CurrentWeek) store(ctx context.Context, key string, week *models.WeekPresentations) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(week)
	if err != nil {
		r.logger.Warn("encode current week", zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn("current week cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CurrentWeek) key(now time.Time) string {
	start, _ := r.source.CurrentWeekRange(now)
	return keyPrefix + start.Format(calendar.DayLayout)
}
