package assignments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// Repository handles assignment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an assignments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.AssignmentRepository = (*Repository)(nil)

// Create inserts an assignment. The partial unique indexes turn a second
// active primary per agent, or a repeated researcher and agent pair, into
// ErrDuplicateAssignment.
func (r *Repository) Create(ctx context.Context, a *models.Assignment) error {
	const query = `INSERT INTO assignments (researcher_id, researcher_name, agent_id, agent_name, role, status, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.pool.QueryRow(ctx, query, a.ResearcherID, a.ResearcherName, a.AgentID, a.AgentName,
		string(a.Role), string(a.Status), a.AssignedAt).Scan(&a.ID)
	if database.IsUniqueViolation(err) {
		return apperr.ErrDuplicateAssignment
	}
	if err != nil {
		return database.Wrap("insert assignment", err)
	}
	return nil
}

// GetByID returns an assignment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	const query = `SELECT id, researcher_id, researcher_name, agent_id, agent_name, role, status, assigned_at
		FROM assignments WHERE id = $1`
	var (
		a            models.Assignment
		role, status string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.ResearcherID, &a.ResearcherName,
		&a.AgentID, &a.AgentName, &role, &status, &a.AssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, database.Wrap("get assignment", err)
	}
	a.Role = models.AssignmentRole(role)
	a.Status = models.AssignmentStatus(status)
	return &a, nil
}

// UpdateStatus moves the assignment only if it is still in from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.AssignmentStatus) error {
	const query = `UPDATE assignments SET status = $3 WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return database.Wrap("update assignment status", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Reason(apperr.ErrInvalidTransition, "assignment is %s", current.Status)
}
