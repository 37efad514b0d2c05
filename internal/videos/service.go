// Package videos manages the uploaded presentation videos voters vote on in
// the video-scoped variant of the challenge.
package videos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/calendar"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// UploadWindowDays is how many days after assignment a video may be uploaded.
const UploadWindowDays = 7

// UploadRequest is an external video link registered for an assignment.
type UploadRequest struct {
	AssignmentID uuid.UUID `json:"assignment_id" binding:"required"`
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"video_url" binding:"required,url"`
}

// PresentationFinder finds the presentation of an assignment.
type PresentationFinder interface {
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Presentation, error)
}

// AssignmentGetter loads assignments.
type AssignmentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
}

// Service handles uploads and the video voting window.
type Service struct {
	videos        ports.VideoRepository
	presentations PresentationFinder
	assignments   AssignmentGetter
	challenge     ports.ChallengeRepository
	clock         clock.Clock
	loc           *time.Location
	logger        *zap.Logger
}

// NewService creates a videos service.
func NewService(videos ports.VideoRepository, presentations PresentationFinder, assignments AssignmentGetter,
	challenge ports.ChallengeRepository, clk clock.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{videos: videos, presentations: presentations, assignments: assignments,
		challenge: challenge, clock: clk, loc: loc, logger: logger}
}

// Upload registers the single video of an assignment and moves its
// presentation to VIDEO_UPLOADED. A second upload fails with
// ErrDuplicateVideo whatever the assignment's eligibility.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.PresentationVideo, error) {
	a, err := s.assignments.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	switch existing, err := s.videos.GetByAssignment(ctx, a.ID); {
	case err == nil:
		return nil, apperr.Reason(apperr.ErrDuplicateVideo, "video %s", existing.ID)
	case !errors.Is(err, apperr.ErrVideoNotFound):
		return nil, err
	}
	p, err := s.presentations.GetByAssignment(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().In(s.loc)
	if err := s.checkEligible(ctx, a, now); err != nil {
		return nil, err
	}

	v := &models.PresentationVideo{
		AssignmentID:   a.ID,
		PresentationID: p.ID,
		Title:          req.Title,
		Description:    req.Description,
		VideoURL:       req.VideoURL,
		UploadedAt:     now,
		Status:         models.VideoUploaded,
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("video uploaded",
		zap.String("video_id", v.ID.String()),
		zap.String("assignment_id", a.ID.String()),
	)
	return v, nil
}

// checkEligible requires an active assignment made in the current challenge
// month, uploading no later than UploadWindowDays after the assignment date.
func (s *Service) checkEligible(ctx context.Context, a *models.Assignment, now time.Time) error {
	st, err := s.challenge.GetStatus(ctx)
	if err != nil {
		return err
	}
	assigned := a.AssignedAt.In(s.loc)
	if int(assigned.Month()) != st.CurrentMonth || (st.CurrentYear != 0 && assigned.Year() != st.CurrentYear) {
		return apperr.Reason(apperr.ErrUploadNotAllowed,
			"only assignments from the current challenge month (%d) may upload", st.CurrentMonth)
	}
	if !a.IsActive() {
		return apperr.Reason(apperr.ErrUploadNotAllowed, "assignment is %s", a.Status)
	}
	deadline := calendar.StartOfDay(assigned).AddDate(0, 0, UploadWindowDays)
	if calendar.StartOfDay(now).After(deadline) {
		return apperr.Reason(apperr.ErrUploadNotAllowed, "upload period ended on %s", deadline.Format(calendar.DayLayout))
	}
	return nil
}

// monthRange returns the challenge month bounds, falling back to now's year.
func (s *Service) monthRange(st *models.ChallengeStatus, now time.Time) (time.Time, time.Time) {
	year := st.CurrentYear
	if year == 0 {
		year = now.Year()
	}
	return calendar.MonthRange(year, time.Month(st.CurrentMonth), s.loc)
}

// InVotingPeriod lists videos of the challenge month open for voting now.
func (s *Service) InVotingPeriod(ctx context.Context) ([]models.PresentationVideo, error) {
	all, err := s.CurrentMonth(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]models.PresentationVideo, 0, len(all))
	for _, v := range all {
		if v.IsVotingOpen(now) {
			out = append(out, v)
		}
	}
	return out, nil
}

// CurrentMonth lists every video of the challenge month.
func (s *Service) CurrentMonth(ctx context.Context) ([]models.PresentationVideo, error) {
	st, err := s.challenge.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	from, to := s.monthRange(st, s.clock.Now().In(s.loc))
	return s.videos.ListByAssignedBetween(ctx, from, to)
}

// GetByID returns one video.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationVideo, error) {
	return s.videos.GetByID(ctx, id)
}

// OpenVoting opens the challenge month's uploaded videos with the window
// [now, next Sunday 23:59:59].
func (s *Service) OpenVoting(ctx context.Context, now time.Time) (int, error) {
	st, err := s.challenge.GetStatus(ctx)
	if err != nil {
		return 0, fmt.Errorf("open video voting: %w", err)
	}
	now = now.In(s.loc)
	from, to := s.monthRange(st, now)
	end := calendar.VotingEnd(now)
	n, err := s.videos.OpenVoting(ctx, from, to, now, end)
	if err != nil {
		return 0, fmt.Errorf("open video voting: %w", err)
	}
	s.logger.Info("video voting opened", zap.Int("videos", n), zap.Time("ends", end))
	return n, nil
}

// CloseVoting closes videos whose window ended before now.
func (s *Service) CloseVoting(ctx context.Context, now time.Time) (int, error) {
	n, err := s.videos.CloseVoting(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("close video voting: %w", err)
	}
	s.logger.Info("video voting closed", zap.Int("videos", n))
	return n, nil
}
