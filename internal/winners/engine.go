// Package winners runs the weekly and monthly winner jobs and serves the
// winners report. It is the only writer of winner flags.
package winners

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// EventWinnerSelected is published when a job flags a new winner.
const EventWinnerSelected = "winner_selected"

// PresentationLister lists presentations by date.
type PresentationLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error)
}

// Engine selects winners.
type Engine struct {
	presentations PresentationLister
	winners       ports.WinnerRepository
	clock         clock.Clock
	loc           *time.Location
	publisher     ports.EventPublisher
	logger        *zap.Logger
}

// NewEngine creates a winner engine. publisher may be nil.
func NewEngine(presentations PresentationLister, winners ports.WinnerRepository, clk clock.Clock,
	loc *time.Location, publisher ports.EventPublisher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{presentations: presentations, winners: winners, clock: clk, loc: loc, publisher: publisher, logger: logger}
}

// RunWeekly selects the winner of the most recent week whose voting window
// has closed as of now.
func (e *Engine) RunWeekly(ctx context.Context, now time.Time) (*models.PresentationDetail, error) {
	return e.SelectWeekly(ctx, calendar.ClosedWeekStart(now.In(e.loc)))
}

// SelectWeekly flags the top presentation of [weekStart, weekStart+7d). If
// the week already has a winner it is returned unchanged, so re-runs never
// move the flag. It returns nil when the week has no presentations.
func (e *Engine) SelectWeekly(ctx context.Context, weekStart time.Time) (*models.PresentationDetail, error) {
	from, to := weekStart, weekStart.AddDate(0, 0, 7)
	candidates, err := e.presentations.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list week candidates: %w", err)
	}
	log := e.logger.With(zap.String("job", "weekly"), zap.Time("week_start", from))
	if len(candidates) == 0 {
		log.Info("skipped, no candidates")
		return nil, nil
	}
	for i := range candidates {
		if candidates[i].WeeklyWinner {
			log.Info("winner already selected", zap.String("presentation_id", candidates[i].ID.String()))
			return &candidates[i], nil
		}
	}

	winner := Select(candidates, Weekly)
	marked, err := e.winners.MarkWeeklyWinner(ctx, winner.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("mark weekly winner: %w", err)
	}
	if !marked {
		return e.existing(ctx, e.winners.ListWeeklyWinners, from, to)
	}
	winner.WeeklyWinner = true

	log.Info("weekly winner selected",
		zap.String("presentation_id", winner.ID.String()),
		zap.String("researcher", winner.ResearcherName),
		zap.Int("votes", winner.WeeklyVotes),
	)
	e.publish(from, "weekly", winner, winner.WeeklyVotes)
	return winner, nil
}

// RunMonthly selects the winner of the month before now.
func (e *Engine) RunMonthly(ctx context.Context, now time.Time) (*models.PresentationDetail, error) {
	now = now.In(e.loc)
	year, month := calendar.PreviousMonth(now)
	return e.selectMonthly(ctx, year, month, now)
}

// SelectMonthly flags the weekly winner of the month with the most monthly
// votes. Like SelectWeekly it keeps an existing winner.
func (e *Engine) SelectMonthly(ctx context.Context, year int, month time.Month) (*models.PresentationDetail, error) {
	return e.selectMonthly(ctx, year, month, e.clock.Now().In(e.loc))
}

// ClosesMonth reports whether the week RunWeekly closes at now is the last
// week of the previous month, its voting having run past the month's end.
// The monthly job skips such a month until that week is settled.
func (e *Engine) ClosesMonth(now time.Time) bool {
	now = now.In(e.loc)
	week := calendar.ClosedWeekStart(now)
	return week.Month() != now.Month() && week.AddDate(0, 0, 7).Month() != week.Month()
}

// selectMonthly refuses a month with a week still voting, then settles every
// week of the month before ranking the weekly winners.
func (e *Engine) selectMonthly(ctx context.Context, year int, month time.Month, now time.Time) (*models.PresentationDetail, error) {
	log := e.logger.With(zap.String("job", "monthly"), zap.Int("year", year), zap.Int("month", int(month)))
	weeks := calendar.WeekStartsIn(year, month, e.loc)
	if n := len(weeks); n > 0 {
		if closes := calendar.VotingEnd(weeks[n-1]); !now.After(closes) {
			log.Info("skipped, voting still open", zap.Time("closes_at", closes))
			return nil, apperr.Reason(apperr.ErrMonthStillVoting, "week of %s closes %s",
				weeks[n-1].Format(calendar.DayLayout), closes.Format(time.RFC3339))
		}
	}
	for _, w := range weeks {
		if _, err := e.SelectWeekly(ctx, w); err != nil {
			return nil, err
		}
	}

	from, to := calendar.MonthRange(year, month, e.loc)
	candidates, err := e.winners.ListWeeklyWinners(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list month candidates: %w", err)
	}
	if len(candidates) == 0 {
		log.Info("skipped, no candidates")
		return nil, nil
	}
	for i := range candidates {
		if candidates[i].MonthlyWinner {
			log.Info("winner already selected", zap.String("presentation_id", candidates[i].ID.String()))
			return &candidates[i], nil
		}
	}

	winner := Select(candidates, Monthly)
	marked, err := e.winners.MarkMonthlyWinner(ctx, winner.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("mark monthly winner: %w", err)
	}
	if !marked {
		return e.existing(ctx, e.winners.ListMonthlyWinners, from, to)
	}
	winner.MonthlyWinner = true

	log.Info("monthly winner selected",
		zap.String("presentation_id", winner.ID.String()),
		zap.String("researcher", winner.ResearcherName),
		zap.Int("votes", winner.MonthlyVotes),
	)
	e.publish(winner.PresentationDate, "monthly", winner, winner.MonthlyVotes)
	return winner, nil
}

// existing returns the winner a concurrent run flagged first.
func (e *Engine) existing(ctx context.Context, list func(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error), from, to time.Time) (*models.PresentationDetail, error) {
	flagged, err := list(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(flagged) == 0 {
		return nil, nil
	}
	return &flagged[0], nil
}

// GetWinners returns the weekly winners and the monthly winner of a month.
// Zero month or year default to the current ones.
func (e *Engine) GetWinners(ctx context.Context, month, year int) (*models.WinnersReport, error) {
	now := e.clock.Now().In(e.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	from, to := calendar.MonthRange(year, time.Month(month), e.loc)

	weekly, err := e.winners.ListWeeklyWinners(ctx, from, to)
	if err != nil {
		return nil, err
	}
	monthly, err := e.winners.ListMonthlyWinners(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &models.WinnersReport{Month: month, Year: year, WeeklyWinners: make([]models.Winner, 0, len(weekly))}
	for i := range weekly {
		report.WeeklyWinners = append(report.WeeklyWinners, e.toWinner(&weekly[i], weekly[i].WeeklyVotes))
	}
	if len(monthly) > 0 {
		w := e.toWinner(&monthly[0], monthly[0].MonthlyVotes)
		report.MonthlyWinner = &w
	}
	return report, nil
}

func (e *Engine) toWinner(d *models.PresentationDetail, votes int) models.Winner {
	return models.Winner{
		ID:               d.ID,
		ResearcherName:   d.ResearcherName,
		AgentName:        d.AgentName,
		Role:             string(d.Role),
		PresentationDate: d.PresentationDate.In(e.loc),
		Votes:            votes,
	}
}

func (e *Engine) publish(date time.Time, kind string, d *models.PresentationDetail, votes int) {
	if e.publisher == nil {
		return
	}
	room := calendar.WeekStart(date.In(e.loc)).Format(calendar.DayLayout)
	e.publisher.Publish(room, EventWinnerSelected, map[string]interface{}{
		"kind":   kind,
		"winner": e.toWinner(d, votes),
	})
}
