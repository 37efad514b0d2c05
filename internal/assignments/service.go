// Package assignments registers researcher-agent assignments and emits the
// event that schedules a presentation for every primary one.
package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/clock"
)

// Enqueuer publishes the assignment created event.
type Enqueuer interface {
	EnqueueAssignmentCreated(ctx context.Context, assignmentID uuid.UUID) error
}

// PresentationCreator schedules a presentation inline when no queue is set.
type PresentationCreator interface {
	CreatePresentation(ctx context.Context, a *models.Assignment) (*models.Presentation, error)
}

// RegisterRequest is the body for POST /assignments.
type RegisterRequest struct {
	ResearcherID   uuid.UUID             `json:"researcher_id"`
	ResearcherName string                `json:"researcher_name" binding:"required"`
	AgentID        uuid.UUID             `json:"agent_id" binding:"required"`
	AgentName      string                `json:"agent_name" binding:"required"`
	Role           models.AssignmentRole `json:"role" binding:"required"`
}

// Service handles assignment registration and status moves.
type Service struct {
	repo          ports.AssignmentRepository
	queue         Enqueuer
	presentations PresentationCreator
	clock         clock.Clock
	logger        *zap.Logger
}

// NewService creates an assignments service. queue may be nil, in which case
// presentations are created synchronously.
func NewService(repo ports.AssignmentRepository, queue Enqueuer, presentations PresentationCreator, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, queue: queue, presentations: presentations, clock: clk, logger: logger}
}

// Register stores a new active assignment. For a primary assignment the
// presentation is scheduled through the queue, or inline if there is none.
// An inline scheduling failure is returned; the assignment stays registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Assignment, error) {
	if req.Role != models.RolePrimary && req.Role != models.RoleContributor {
		return nil, fmt.Errorf("unknown role %q", req.Role)
	}
	a := &models.Assignment{
		ResearcherID:   req.ResearcherID,
		ResearcherName: req.ResearcherName,
		AgentID:        req.AgentID,
		AgentName:      req.AgentName,
		Role:           req.Role,
		Status:         models.AssignmentActive,
		AssignedAt:     s.clock.Now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("assignment_id", a.ID.String()), zap.String("role", string(a.Role)))
	log.Info("assignment registered")

	if !a.IsPrimary() {
		return a, nil
	}
	if s.queue != nil {
		err := s.queue.EnqueueAssignmentCreated(ctx, a.ID)
		if err == nil {
			return a, nil
		}
		log.Warn("enqueue assignment created failed, scheduling inline", zap.Error(err))
	}
	if s.presentations != nil {
		_, err := s.presentations.CreatePresentation(ctx, a)
		if err != nil && !errors.Is(err, apperr.ErrDuplicatePresentation) {
			log.Error("schedule presentation failed", zap.Error(err))
			return a, fmt.Errorf("schedule presentation for assignment %s: %w", a.ID, err)
		}
	}
	return a, nil
}

// GetByID returns an assignment.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus closes an active assignment as completed or done.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to models.AssignmentStatus) (*models.Assignment, error) {
	if to != models.AssignmentCompleted && to != models.AssignmentDone {
		return nil, apperr.Reason(apperr.ErrInvalidTransition, "cannot move assignment to %q", to)
	}
	if err := s.repo.UpdateStatus(ctx, id, models.AssignmentActive, to); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
