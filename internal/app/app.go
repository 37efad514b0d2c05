// Package app wires the challenge services, their storage and the shared
// infrastructure. Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/config"
	"github.com/tribu-research/challenge-backend/internal/assignments"
	"github.com/tribu-research/challenge-backend/internal/auth"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/internal/realtime"
	"github.com/tribu-research/challenge-backend/internal/reports"
	"github.com/tribu-research/challenge-backend/internal/resilience"
	"github.com/tribu-research/challenge-backend/internal/scheduler"
	"github.com/tribu-research/challenge-backend/internal/slots"
	"github.com/tribu-research/challenge-backend/internal/videos"
	"github.com/tribu-research/challenge-backend/internal/votes"
	"github.com/tribu-research/challenge-backend/internal/winners"
	"github.com/tribu-research/challenge-backend/internal/worker"
	"github.com/tribu-research/challenge-backend/pkg/cache"
	"github.com/tribu-research/challenge-backend/pkg/clock"
	"github.com/tribu-research/challenge-backend/pkg/queue"
	"github.com/tribu-research/challenge-backend/pkg/redis"
)

// Infra is the optional shared infrastructure. Nil fields fall back to
// single-instance behaviour: in-process cache, local broadcast, inline
// presentation scheduling and no report archive.
type Infra struct {
	Redis   *redis.Client
	Objects reports.ObjectStore
}

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Clock    clock.Clock
	Location *time.Location

	JWT           *auth.JWTService
	Assignments   *assignments.Service
	Presentations *presentations.Service
	Videos        *videos.Service
	Ledger        *votes.Ledger
	Winners       *winners.Engine
	CurrentWeek   *resilience.CurrentWeek
	Archiver      *reports.Archiver
	Hub           *realtime.Hub
	Scheduler     *scheduler.Scheduler
	Queue         *queue.Queue
	Processor     *worker.AssignmentProcessor

	stores Stores
}

// New wires the services over stores.
func New(cfg *config.Config, stores Stores, infra Infra, clk clock.Clock, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Challenge.Location()
	if err != nil {
		return nil, fmt.Errorf("challenge timezone: %w", err)
	}
	window, err := slots.ParseWindow(cfg.Challenge.CapacityWindow)
	if err != nil {
		return nil, err
	}
	policy, err := votes.ParsePolicy(cfg.Challenge.VotePolicy)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Clock: clk, Location: loc, stores: stores}
	a.JWT = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)

	var (
		pub      realtime.WeekPublisher
		sub      realtime.WeekSubscriber
		weekKV   resilience.Cache = cache.NewLRUCache(cfg.Resilience.LocalCacheSize, cfg.Resilience.CurrentWeekTTL)
		locker   scheduler.Locker
		enqueuer assignments.Enqueuer
	)
	if infra.Redis != nil {
		ps := realtime.NewRedisWeekBus(infra.Redis.Client, logger)
		pub, sub = ps, ps
		weekKV = infra.Redis.Cache("challenge:")
		locker = infra.Redis.Locker("challenge:")
		a.Queue = queue.NewQueue(infra.Redis.Client, logger)
		enqueuer = a.Queue
	}
	a.Hub = realtime.NewHub(logger, pub, sub)

	alloc := slots.New(cfg.Challenge.MaxPerPeriod, window, cfg.Challenge.SlotHour, cfg.Challenge.SlotMinute)
	a.Presentations = presentations.NewService(stores.Presentations, alloc, clk, loc, logger.Named("presentations"))
	a.Assignments = assignments.NewService(stores.Assignments, enqueuer, a.Presentations, clk, logger.Named("assignments"))
	a.Videos = videos.NewService(stores.Videos, stores.Presentations, stores.Assignments, stores.Challenge, clk, loc, logger.Named("videos"))
	a.Ledger = votes.NewLedger(stores.Presentations, stores.Videos, stores.Votes, clk, votes.Options{
		Policy:      policy,
		CapPerVoter: cfg.Challenge.VoteCapPerVoter,
		Location:    loc,
		Publisher:   a.Hub,
	}, logger.Named("votes"))
	a.Winners = winners.NewEngine(stores.Presentations, stores.Winners, clk, loc, a.Hub, logger.Named("winners"))
	a.CurrentWeek = resilience.NewCurrentWeek(a.Presentations, weekKV, clk, cfg.Resilience.CurrentWeekTTL,
		resilience.RetryPolicy{Attempts: cfg.Resilience.RetryAttempts, Delay: cfg.Resilience.RetryDelay},
		logger.Named("current-week"))

	deps := scheduler.Deps{
		Winners:       a.Winners,
		Presentations: a.Presentations,
		Videos:        a.Videos,
		CurrentWeek:   a.CurrentWeek,
	}
	if infra.Objects != nil {
		a.Archiver = reports.NewArchiver(a.Winners, infra.Objects, loc, logger.Named("reports"))
		deps.Archiver = a.Archiver
	}
	a.Scheduler = scheduler.New(loc, clk, locker, logger.Named("scheduler"))
	specs := scheduler.Specs{
		WeeklyWinner:  cfg.Scheduler.WeeklyWinnerSpec,
		MonthlyWinner: cfg.Scheduler.MonthlyWinnerSpec,
		VotingOpen:    cfg.Scheduler.VotingOpenSpec,
		VotingClose:   cfg.Scheduler.VotingCloseSpec,
		CacheRefresh:  cfg.Scheduler.CacheRefreshSpec(),
	}
	if err := a.Scheduler.RegisterAll(scheduler.ChallengeJobs(deps, specs)); err != nil {
		return nil, err
	}

	if a.Queue != nil {
		a.Processor = worker.NewAssignmentProcessor(stores.Assignments, a.Presentations, a.Queue, logger.Named("worker"))
	}
	return a, nil
}

// Start launches the scheduler, when enabled, and the queue consumer, when
// runWorker is set and a queue is configured. Both stop with ctx.
func (a *App) Start(ctx context.Context, runWorker bool) {
	if a.Config.Scheduler.Enabled {
		a.Scheduler.Start(ctx)
	}
	if runWorker && a.Processor != nil {
		go a.Processor.Run(ctx)
		a.Logger.Info("assignment worker started")
	}
}

// Stop waits for running jobs up to ctx.
func (a *App) Stop(ctx context.Context) {
	if a.Config.Scheduler.Enabled {
		a.Scheduler.Stop(ctx)
	}
}
