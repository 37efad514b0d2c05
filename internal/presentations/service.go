// Package presentations schedules presentations for primary assignments,
// drives their lifecycle and serves the calendar queries.
package presentations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/internal/slots"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// Service owns presentation creation and status batch moves.
type Service struct {
	repo   ports.PresentationRepository
	alloc  *slots.Allocator
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

// NewService creates a presentations service. loc is the challenge timezone.
func NewService(repo ports.PresentationRepository, alloc *slots.Allocator, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, alloc: alloc, clock: clk, loc: loc, logger: logger}
}

// Location returns the challenge timezone.
func (s *Service) Location() *time.Location { return s.loc }

// CreatePresentation allocates the next slot with spare capacity and stores
// a SCHEDULED presentation for a. Allocation and insert share the slot lock.
func (s *Service) CreatePresentation(ctx context.Context, a *models.Assignment) (*models.Presentation, error) {
	if !a.IsPrimary() {
		return nil, apperr.ErrNotPrimary
	}
	now := s.clock.Now().In(s.loc)

	var p *models.Presentation
	err := s.repo.WithSlotLock(ctx, func(ctx context.Context, tx ports.SlotTx) error {
		date, err := s.alloc.Next(ctx, now, tx)
		if err != nil {
			return err
		}
		period := calendar.PeriodOf(date)
		p = &models.Presentation{
			AssignmentID:     a.ID,
			PresentationDate: date,
			Status:           models.PresentationScheduled,
			Week:             period.Week,
			Month:            period.Month,
			Year:             period.Year,
		}
		return tx.InsertPresentation(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("create presentation for assignment %s: %w", a.ID, err)
	}

	s.logger.Info("presentation scheduled",
		zap.String("presentation_id", p.ID.String()),
		zap.String("assignment_id", a.ID.String()),
		zap.Time("date", p.PresentationDate),
	)
	return p, nil
}

// GetByID returns one presentation with its assignment.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationDetail, error) {
	return s.repo.GetByID(ctx, id)
}

// CurrentWeekRange returns the target Tuesday's day and the following week.
// On a Tuesday the current day is kept; afterwards the next Tuesday is used.
func (s *Service) CurrentWeekRange(now time.Time) (time.Time, time.Time) {
	target := calendar.TargetTuesday(now.In(s.loc), s.alloc.Hour, s.alloc.Minute)
	start := calendar.StartOfDay(target)
	return start, start.AddDate(0, 0, 7)
}

// LoadCurrentWeek reads the current-week calendar straight from storage.
func (s *Service) LoadCurrentWeek(ctx context.Context, now time.Time) (*models.WeekPresentations, error) {
	from, to := s.CurrentWeekRange(now)
	rows, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	week := s.EmptyWeek(now)
	for _, d := range rows {
		week.Presentations = append(week.Presentations, s.View(d))
	}
	return week, nil
}

// EmptyWeek returns the current-week calendar without presentations.
func (s *Service) EmptyWeek(now time.Time) *models.WeekPresentations {
	from, _ := s.CurrentWeekRange(now)
	return &models.WeekPresentations{
		WeekStart:     from.Format(calendar.DateLayout),
		WeekEnd:       from.AddDate(0, 0, 6).Format(calendar.DateLayout),
		Presentations: []models.PresentationView{},
	}
}

// View formats d for the calendar in the challenge timezone.
func (s *Service) View(d models.PresentationDetail) models.PresentationView {
	at := d.PresentationDate.In(s.loc)
	return models.PresentationView{
		ID:           d.ID,
		Name:         d.ResearcherName,
		Role:         d.Role,
		Presentation: d.AgentName,
		Date:         at.Format(calendar.DateLayout),
		Time:         at.Format(calendar.TimeLayout),
		Status:       d.Status,
	}
}

// Upcoming lists presentations dated at or after now with their standing.
func (s *Service) Upcoming(ctx context.Context, limit int) ([]models.UpcomingPresentation, error) {
	rows, err := s.repo.ListUpcoming(ctx, s.clock.Now(), limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.UpcomingPresentation, 0, len(rows))
	for _, d := range rows {
		out = append(out, models.UpcomingPresentation{
			ID:               d.ID,
			ResearcherName:   d.ResearcherName,
			AgentName:        d.AgentName,
			Role:             string(d.Role),
			PresentationDate: d.PresentationDate.In(s.loc),
			WeeklyVotes:      d.WeeklyVotes,
			IsWeeklyWinner:   d.WeeklyWinner,
			MonthlyVotes:     d.MonthlyVotes,
			IsMonthlyWinner:  d.MonthlyWinner,
		})
	}
	return out, nil
}

// OpenVoting moves this week's VIDEO_UPLOADED presentations to VOTING_OPEN.
// Already open presentations are left alone, so repeated runs are no-ops.
func (s *Service) OpenVoting(ctx context.Context, now time.Time) (int, error) {
	from, to := calendar.WeekRange(now.In(s.loc))
	n, err := s.repo.BulkUpdateStatus(ctx, from, to, models.PresentationVideoUploaded, models.PresentationVotingOpen)
	if err != nil {
		return 0, fmt.Errorf("open voting: %w", err)
	}
	s.logger.Info("voting opened", zap.Time("week_start", from), zap.Int("presentations", n))
	return n, nil
}

// CloseVoting completes VOTING_OPEN presentations of every week whose voting
// window has ended as of now.
func (s *Service) CloseVoting(ctx context.Context, now time.Time) (int, error) {
	until := calendar.ClosedWeekStart(now.In(s.loc)).AddDate(0, 0, 7)
	n, err := s.repo.BulkUpdateStatus(ctx, time.Time{}, until, models.PresentationVotingOpen, models.PresentationCompleted)
	if err != nil {
		return 0, fmt.Errorf("close voting: %w", err)
	}
	s.logger.Info("voting closed", zap.Time("until", until), zap.Int("presentations", n))
	return n, nil
}
