package winners

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// Repository writes and reads winner flags.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a winners repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.WinnerRepository = (*Repository)(nil)

// mark sets column on id unless a presentation in [from, to) already has it.
// An advisory lock per column and range makes the check and the write atomic.
func (r *Repository) mark(ctx context.Context, column string, id uuid.UUID, from, to time.Time) (bool, error) {
	var marked bool
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		key := fmt.Sprintf("winner:%s:%d", column, from.Unix())
		if err := database.AdvisoryXactLock(ctx, tx, key); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM presentations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.ErrPresentationNotFound
		}
		query := `UPDATE presentations SET ` + column + ` = TRUE
			WHERE id = $1 AND NOT EXISTS (
				SELECT 1 FROM presentations
				WHERE ` + column + ` AND presentation_date >= $2 AND presentation_date < $3)`
		tag, err := tx.Exec(ctx, query, id, from, to)
		if err != nil {
			return err
		}
		marked = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, database.Wrap("mark "+column, err)
	}
	return marked, nil
}

// MarkWeeklyWinner flags id as the weekly winner of [from, to).
func (r *Repository) MarkWeeklyWinner(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	return r.mark(ctx, "weekly_winner", id, from, to)
}

// MarkMonthlyWinner flags id as the monthly winner of [from, to).
func (r *Repository) MarkMonthlyWinner(ctx context.Context, id uuid.UUID, from, to time.Time) (bool, error) {
	return r.mark(ctx, "monthly_winner", id, from, to)
}

// ListWeeklyWinners returns weekly winners dated in [from, to).
func (r *Repository) ListWeeklyWinners(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	return r.list(ctx, "p.weekly_winner", from, to)
}

// ListMonthlyWinners returns monthly winners dated in [from, to).
func (r *Repository) ListMonthlyWinners(ctx context.Context, from, to time.Time) ([]models.PresentationDetail, error) {
	return r.list(ctx, "p.monthly_winner", from, to)
}

func (r *Repository) list(ctx context.Context, flag string, from, to time.Time) ([]models.PresentationDetail, error) {
	query := `SELECT ` + presentations.DetailColumns + ` FROM ` + presentations.DetailFrom + `
		WHERE ` + flag + ` AND p.presentation_date >= $1 AND p.presentation_date < $2
		ORDER BY p.presentation_date, p.id`
	return presentations.QueryDetails(ctx, r.pool, query, from, to)
}
