// Package worker consumes assignment created events and schedules the
// presentation of each primary assignment.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/pkg/queue"
)

// JobSource hands out jobs and takes failed ones back.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AssignmentGetter loads assignments.
type AssignmentGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
}

// PresentationCreator schedules a presentation.
type PresentationCreator interface {
	CreatePresentation(ctx context.Context, a *models.Assignment) (*models.Presentation, error)
}

// AssignmentProcessor processes assignment created jobs.
type AssignmentProcessor struct {
	assignments   AssignmentGetter
	presentations PresentationCreator
	queue         JobSource
	pollTimeout   time.Duration
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewAssignmentProcessor creates an assignment created processor.
func NewAssignmentProcessor(assignments AssignmentGetter, presentations PresentationCreator, q JobSource, logger *zap.Logger) *AssignmentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentProcessor{
		assignments:   assignments,
		presentations: presentations,
		queue:         q,
		pollTimeout:   5 * time.Second,
		retryBackoff:  queue.RetryBackoff,
		logger:        logger,
	}
}

// Process executes one job. Jobs for non-primary assignments or for
// assignments that already have a presentation complete without work.
func (p *AssignmentProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAssignmentCreated {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AssignmentCreatedPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	a, err := p.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		return fmt.Errorf("load assignment %s: %w", payload.AssignmentID, err)
	}
	log := p.logger.With(zap.String("assignment_id", a.ID.String()))
	if !a.IsPrimary() {
		log.Debug("assignment is not primary, nothing to schedule")
		return nil
	}

	pres, err := p.presentations.CreatePresentation(ctx, a)
	if errors.Is(err, apperr.ErrDuplicatePresentation) {
		log.Info("presentation already scheduled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create presentation: %w", err)
	}
	log.Info("presentation scheduled",
		zap.String("presentation_id", pres.ID.String()),
		zap.Time("date", pres.PresentationDate))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AssignmentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("assignment worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *AssignmentProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
