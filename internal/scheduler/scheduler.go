// Package scheduler owns the timed challenge jobs: winner selection, voting
// window moves and the current-week cache refresh. Jobs fire from cron specs
// evaluated in the challenge timezone and can be triggered by hand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job is one scheduled unit of work. Run receives the firing time from the
// injected clock.
type Job struct {
	Name      string
	Spec      string
	Singleton bool
	Timeout   time.Duration
	Run       func(ctx context.Context, now time.Time) error
}

// Locker grants a cross-replica lock. release is always safe to call.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Scheduler runs registered jobs on their cron specs.
type Scheduler struct {
	cron    *cron.Cron
	clock   clock.Clock
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger

	mu   sync.RWMutex
	jobs map[string]Job
	ctx  context.Context
}

// New creates a scheduler evaluating specs in loc. locker may be nil, in
// which case singleton jobs only guard against overlap within this process.
func New(loc *time.Location, clk clock.Clock, locker Locker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger.Named("cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		clock:   clk,
		locker:  locker,
		lockTTL: 10 * time.Minute,
		logger:  logger,
		jobs:    make(map[string]Job),
		ctx:     context.Background(),
	}
}

// Register adds job. A job with an empty Spec is only runnable through RunNow.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run func")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if job.Spec != "" {
		if _, err := s.cron.AddFunc(job.Spec, func() { s.fire(job) }); err != nil {
			return fmt.Errorf("job %q spec %q: %w", job.Name, job.Spec, err)
		}
	}
	s.jobs[job.Name] = job
	return nil
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start begins firing jobs. ctx bounds every scheduled run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Strings("jobs", s.Jobs()))
}

// Stop stops firing and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("scheduler stopped")
}

// RunNow runs the named job synchronously, honouring its singleton lock.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job, name+":manual", true)
}

func (s *Scheduler) fire(job Job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	// One lock per firing minute; it is left to expire so late replicas skip.
	key := job.Name + ":" + s.clock.Now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	if err := s.run(ctx, job, key, false); err != nil {
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
	}
}

func (s *Scheduler) run(ctx context.Context, job Job, lockKey string, release bool) error {
	if job.Singleton && s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "job:"+lockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire job lock: %w", err)
		}
		if !ok {
			s.logger.Info("job skipped, held by another replica", zap.String("job", job.Name))
			return nil
		}
		if release {
			defer unlock()
		}
	}
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	now := s.clock.Now()
	start := time.Now()
	err := job.Run(ctx, now)
	log := s.logger.With(zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	if err != nil {
		return err
	}
	log.Info("job finished")
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
