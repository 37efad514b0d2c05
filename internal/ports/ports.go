// Package ports declares the storage and collaborator interfaces the
// scheduling, voting and winner services depend on. The pgx repositories in
// each feature package and internal/memstore implement them.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/models"
)

// AssignmentRepository persists assignments.
type AssignmentRepository interface {
	// Create inserts a; a second active PRIMARY for the same agent or a second
	// active assignment for the same researcher and agent yields
	// apperr.ErrDuplicateAssignment.
	Create(ctx context.Context, a *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	// UpdateStatus moves the assignment from one status to another only if it
	// is currently in from, else apperr.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.AssignmentStatus) error
}

// SlotTx is the store as seen from inside the slot allocation critical section.
type SlotTx interface {
	// CountScheduled counts presentations dated in [from, to).
	CountScheduled(ctx context.Context, from, to time.Time) (int, error)
	// InsertPresentation persists p; a second presentation for the same
	// assignment yields apperr.ErrDuplicatePresentation.
	InsertPresentation(ctx context.Context, p *models.Presentation) error
}

// PresentationRepository persists presentations. Vote counters and winner
// flags are not written here.
type PresentationRepository interface {
	// WithSlotLock runs fn serialized against every other slot allocation.
	WithSlotLock(ctx context.Context, fn func(ctx context.Context, tx SlotTx) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationDetail, error)
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Presentation, error)
	// ListBetween returns presentations dated in [from, to) ordered by date then id.
	ListBetween(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error)
	// ListUpcoming returns presentations dated at or after from, ordered by date.
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.PresentationDetail, error)
	// UpdateStatus is a conditional update; apperr.ErrInvalidTransition when
	// the current status is not from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PresentationStatus) error
	// BulkUpdateStatus moves every presentation dated in [from, to) with
	// status fromStatus to toStatus and returns how many rows changed.
	BulkUpdateStatus(ctx context.Context, from, to time.Time, fromStatus, toStatus models.PresentationStatus) (int, error)
}

// VideoRepository persists presentation videos.
type VideoRepository interface {
	// Create inserts v and moves its presentation from SCHEDULED to
	// VIDEO_UPLOADED in one unit. apperr.ErrDuplicateVideo when the
	// assignment already has a video.
	Create(ctx context.Context, v *models.PresentationVideo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationVideo, error)
	// GetByAssignment returns the video of an assignment, or apperr.ErrVideoNotFound.
	GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.PresentationVideo, error)
	// ListByAssignedBetween returns videos whose assignment was made in [from, to).
	ListByAssignedBetween(ctx context.Context, from, to time.Time) ([]models.PresentationVideo, error)
	// OpenVoting opens UPLOADED videos whose assignment was made in [from, to)
	// with the window [start, end].
	OpenVoting(ctx context.Context, from, to, start, end time.Time) (int, error)
	// CloseVoting closes VOTING_OPEN videos whose window ended before now.
	CloseVoting(ctx context.Context, now time.Time) (int, error)
}

// VoteRepository is the only writer of vote rows and vote counters.
type VoteRepository interface {
	// CastPresentationVote persists v and increments the presentation's weekly
	// and monthly counters as one unit. It fails with apperr.ErrDuplicateVote
	// when v.DedupKey exists and, when limit > 0, with
	// apperr.ErrVoteLimitExceeded once the voter has limit votes in
	// v.Year/v.Month. It returns the updated presentation.
	CastPresentationVote(ctx context.Context, v *models.Vote, limit int) (*models.Presentation, error)
	// CastVideoVote is CastPresentationVote for a video's counter.
	CastVideoVote(ctx context.Context, v *models.Vote, limit int) (*models.PresentationVideo, error)
	// CountVotes returns the number of vote rows referencing target.
	CountVotes(ctx context.Context, target uuid.UUID) (int, error)
}

// WinnerRepository is the only writer of winner flags.
type WinnerRepository interface {
	// MarkWeeklyWinner flags id unless another presentation dated in
	// [from, to) is already flagged. It reports whether the flag was set.
	MarkWeeklyWinner(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error)
	// MarkMonthlyWinner is MarkWeeklyWinner for the monthly flag.
	MarkMonthlyWinner(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error)
	ListWeeklyWinners(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error)
	ListMonthlyWinners(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error)
}

// ChallengeRepository reads the operator-controlled challenge state.
type ChallengeRepository interface {
	GetStatus(ctx context.Context) (*models.ChallengeStatus, error)
}

// EventPublisher fans domain events out to live clients.
type EventPublisher interface {
	Publish(room, event string, payload interface{})
}
