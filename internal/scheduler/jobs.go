package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
)

// Job names.
const (
	JobWeeklyWinner  = "weekly-winner"
	JobMonthlyWinner = "monthly-winner"
	JobVotingOpen    = "voting-open"
	JobVotingClose   = "voting-close"
	JobCacheRefresh  = "cache-refresh"
)

// Specs holds the cron spec of each job.
type Specs struct {
	WeeklyWinner  string
	MonthlyWinner string
	VotingOpen    string
	VotingClose   string
	CacheRefresh  string
}

// DefaultSpecs fire the winner jobs at the start of the week and month that
// follow the voting window, open voting on Tuesday at the slot time and close
// it on Monday.
var DefaultSpecs = Specs{
	WeeklyWinner:  "0 0 * * MON",
	MonthlyWinner: "0 0 1 * *",
	VotingOpen:    "0 18 * * TUE",
	VotingClose:   "0 0 * * MON",
	CacheRefresh:  "@every 5m",
}

// WinnerRunner runs the winner jobs. RunMonthly fails with
// apperr.ErrMonthStillVoting while a week of the month is open; ClosesMonth
// tells the weekly job when it just closed such a week.
type WinnerRunner interface {
	RunWeekly(ctx context.Context, now time.Time) (*models.PresentationDetail, error)
	RunMonthly(ctx context.Context, now time.Time) (*models.PresentationDetail, error)
	ClosesMonth(now time.Time) bool
}

// VotingWindow opens and closes voting in batch.
type VotingWindow interface {
	OpenVoting(ctx context.Context, now time.Time) (int, error)
	CloseVoting(ctx context.Context, now time.Time) (int, error)
}

// Refresher re-warms a cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// MonthArchiver stores the report of the month before now.
type MonthArchiver interface {
	ArchivePrevious(ctx context.Context, now time.Time) error
}

// Deps are the collaborators the challenge jobs drive. Nil entries drop the
// jobs that need them.
type Deps struct {
	Winners       WinnerRunner
	Presentations VotingWindow
	Videos        VotingWindow
	CurrentWeek   Refresher
	Archiver      MonthArchiver
}

// ChallengeJobs builds the challenge job set.
func ChallengeJobs(d Deps, specs Specs) []Job {
	var jobs []Job
	if d.Winners != nil {
		settleMonth := func(ctx context.Context, now time.Time) error {
			_, err := d.Winners.RunMonthly(ctx, now)
			if errors.Is(err, apperr.ErrMonthStillVoting) {
				return nil
			}
			if err != nil || d.Archiver == nil {
				return err
			}
			return d.Archiver.ArchivePrevious(ctx, now)
		}
		jobs = append(jobs,
			Job{
				Name: JobWeeklyWinner, Spec: specs.WeeklyWinner, Singleton: true, Timeout: 5 * time.Minute,
				Run: func(ctx context.Context, now time.Time) error {
					if _, err := d.Winners.RunWeekly(ctx, now); err != nil {
						return err
					}
					if !d.Winners.ClosesMonth(now) {
						return nil
					}
					return settleMonth(ctx, now)
				},
			},
			Job{
				Name: JobMonthlyWinner, Spec: specs.MonthlyWinner, Singleton: true, Timeout: 5 * time.Minute,
				Run: settleMonth,
			},
		)
	}
	windows := nonNil(d.Presentations, d.Videos)
	if len(windows) > 0 {
		jobs = append(jobs,
			Job{
				Name: JobVotingOpen, Spec: specs.VotingOpen, Singleton: true, Timeout: time.Minute,
				Run: func(ctx context.Context, now time.Time) error {
					var errs []error
					for _, w := range windows {
						if _, err := w.OpenVoting(ctx, now); err != nil {
							errs = append(errs, err)
						}
					}
					return errors.Join(errs...)
				},
			},
			Job{
				Name: JobVotingClose, Spec: specs.VotingClose, Singleton: true, Timeout: time.Minute,
				Run: func(ctx context.Context, now time.Time) error {
					var errs []error
					for _, w := range windows {
						if _, err := w.CloseVoting(ctx, now); err != nil {
							errs = append(errs, err)
						}
					}
					return errors.Join(errs...)
				},
			},
		)
	}
	if d.CurrentWeek != nil {
		jobs = append(jobs, Job{
			Name: JobCacheRefresh, Spec: specs.CacheRefresh, Timeout: time.Minute,
			Run: func(ctx context.Context, _ time.Time) error {
				return d.CurrentWeek.Refresh(ctx)
			},
		})
	}
	return jobs
}

// RegisterAll registers jobs, stopping at the first error.
func (s *Scheduler) RegisterAll(jobs []Job) error {
	for _, j := range jobs {
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(ws ...VotingWindow) []VotingWindow {
	var out []VotingWindow
	for _, w := range ws {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}
