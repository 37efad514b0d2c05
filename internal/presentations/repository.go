package presentations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// slotLockKey names the advisory lock serializing slot allocation.
const slotLockKey = "presentation-slots"

// Repository handles presentation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presentations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.PresentationRepository = (*Repository)(nil)

type slotTx struct {
	tx pgx.Tx
}

func (s slotTx) CountScheduled(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM presentations WHERE presentation_date >= $1 AND presentation_date < $2`
	var n int
	if err := s.tx.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s slotTx) InsertPresentation(ctx context.Context, p *models.Presentation) error {
	const query = `INSERT INTO presentations (id, assignment_id, presentation_date, status,
			week_of_year, month_of_year, year)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := s.tx.QueryRow(ctx, query, p.AssignmentID, p.PresentationDate, string(p.Status), p.Week, p.Month, p.Year).
		Scan(&p.ID, &p.CreatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.ErrDuplicatePresentation
	}
	return err
}

// WithSlotLock runs fn in a transaction holding the slot advisory lock.
func (r *Repository) WithSlotLock(ctx context.Context, fn func(ctx context.Context, tx ports.SlotTx) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, slotLockKey); err != nil {
			return err
		}
		return fn(ctx, slotTx{tx: tx})
	})
}

// GetByID returns a presentation with its assignment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationDetail, error) {
	query := `SELECT ` + DetailColumns + ` FROM ` + DetailFrom + ` WHERE p.id = $1`
	d, err := ScanDetail(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrPresentationNotFound
	}
	if err != nil {
		return nil, database.Wrap("get presentation", err)
	}
	return &d, nil
}

// GetByAssignment returns the presentation of an assignment.
func (r *Repository) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.Presentation, error) {
	query := `SELECT ` + PresentationColumns + ` FROM presentations WHERE assignment_id = $1`
	p, err := ScanPresentation(r.pool.QueryRow(ctx, query, assignmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrPresentationNotFound
	}
	if err != nil {
		return nil, database.Wrap("get presentation by assignment", err)
	}
	return &p, nil
}

// ListBetween returns presentations dated in [from, to).
func (r *Repository) ListBetween(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	query := `SELECT ` + DetailColumns + ` FROM ` + DetailFrom + `
		WHERE p.presentation_date >= $1 AND p.presentation_date < $2
		ORDER BY p.presentation_date, p.id`
	return QueryDetails(ctx, r.pool, query, from, to)
}

// ListUpcoming returns presentations dated at or after from.
func (r *Repository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.PresentationDetail, error) {
	query := `SELECT ` + DetailColumns + ` FROM ` + DetailFrom + `
		WHERE p.presentation_date >= $1
		ORDER BY p.presentation_date, p.id
		LIMIT NULLIF($2, 0)`
	return QueryDetails(ctx, r.pool, query, from, limit)
}

// UpdateStatus is a conditional status update.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PresentationStatus) error {
	const query = `UPDATE presentations SET status = $3 WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return database.Wrap("update presentation status", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.Reason(apperr.ErrInvalidTransition, "presentation is not %s", from)
	}
	return nil
}

// BulkUpdateStatus moves matching presentations dated in [from, to).
func (r *Repository) BulkUpdateStatus(ctx context.Context, from, to time.Time, fromStatus, toStatus models.PresentationStatus) (int, error) {
	const query = `UPDATE presentations SET status = $4
		WHERE status = $3 AND presentation_date >= $1 AND presentation_date < $2`
	tag, err := r.pool.Exec(ctx, query, from, to, string(fromStatus), string(toStatus))
	if err != nil {
		return 0, database.Wrap("bulk update presentation status", err)
	}
	return int(tag.RowsAffected()), nil
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryDetails runs a DetailColumns query and maps every row.
func QueryDetails(ctx context.Context, q Querier, query string, args ...any) ([]models.PresentationDetail, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, database.Wrap("query presentations", err)
	}
	defer rows.Close()

	out := make([]models.PresentationDetail, 0)
	for rows.Next() {
		d, err := ScanDetail(rows)
		if err != nil {
			return nil, database.Wrap("scan presentation", err)
		}
		out = append(out, d)
	}
	return out, database.Wrap("read presentations", rows.Err())
}
