package videos

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

// Repository handles presentation video persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a videos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.VideoRepository = (*Repository)(nil)

// Create inserts v and moves its presentation from SCHEDULED to
// VIDEO_UPLOADED in the same transaction.
func (r *Repository) Create(ctx context.Context, v *models.PresentationVideo) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `INSERT INTO presentation_videos (id, assignment_id, presentation_id, title, description,
				video_url, uploaded_at, votes_count, status)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, 0, $7)
			RETURNING id`
		err := tx.QueryRow(ctx, insert, v.AssignmentID, v.PresentationID, v.Title, v.Description,
			v.VideoURL, v.UploadedAt, string(v.Status)).Scan(&v.ID)
		if database.IsUniqueViolation(err, "presentation_videos_assignment_unique") {
			return apperr.ErrDuplicateVideo
		}
		if err != nil {
			return database.Wrap("insert video", err)
		}

		const advance = `UPDATE presentations SET status = $3 WHERE id = $1 AND status = $2`
		tag, err := tx.Exec(ctx, advance, v.PresentationID,
			string(models.PresentationScheduled), string(models.PresentationVideoUploaded))
		if err != nil {
			return database.Wrap("advance presentation", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.Reason(apperr.ErrInvalidTransition, "presentation is not %s", models.PresentationScheduled)
		}
		return nil
	})
}

// GetByID returns a video.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PresentationVideo, error) {
	v, err := Scan(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM presentation_videos WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrVideoNotFound
	}
	if err != nil {
		return nil, database.Wrap("get video", err)
	}
	return &v, nil
}

// GetByAssignment returns the video uploaded for an assignment.
func (r *Repository) GetByAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.PresentationVideo, error) {
	v, err := Scan(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM presentation_videos WHERE assignment_id = $1`, assignmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrVideoNotFound
	}
	if err != nil {
		return nil, database.Wrap("get video by assignment", err)
	}
	return &v, nil
}

// ListByAssignedBetween returns videos of assignments made in [from, to), newest upload first.
func (r *Repository) ListByAssignedBetween(ctx context.Context, from, to time.Time) ([]models.PresentationVideo, error) {
	query := `SELECT ` + qualified + ` FROM presentation_videos v
		JOIN assignments a ON a.id = v.assignment_id
		WHERE a.assigned_at >= $1 AND a.assigned_at < $2
		ORDER BY v.uploaded_at DESC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, database.Wrap("list videos", err)
	}
	defer rows.Close()

	out := make([]models.PresentationVideo, 0)
	for rows.Next() {
		v, err := Scan(rows)
		if err != nil {
			return nil, database.Wrap("scan video", err)
		}
		out = append(out, v)
	}
	return out, database.Wrap("read videos", rows.Err())
}

// OpenVoting opens uploaded videos of assignments made in [from, to).
func (r *Repository) OpenVoting(ctx context.Context, from, to, start, end time.Time) (int, error) {
	const query = `UPDATE presentation_videos v
		SET status = $5, voting_start_date = $3, voting_end_date = $4
		FROM assignments a
		WHERE a.id = v.assignment_id AND v.status = $6
			AND a.assigned_at >= $1 AND a.assigned_at < $2`
	tag, err := r.pool.Exec(ctx, query, from, to, start, end,
		string(models.VideoVotingOpen), string(models.VideoUploaded))
	if err != nil {
		return 0, database.Wrap("open video voting", err)
	}
	return int(tag.RowsAffected()), nil
}

// CloseVoting closes videos whose window ended before now.
func (r *Repository) CloseVoting(ctx context.Context, now time.Time) (int, error) {
	const query = `UPDATE presentation_videos SET status = $2
		WHERE status = $3 AND voting_end_date < $1`
	tag, err := r.pool.Exec(ctx, query, now, string(models.VideoClosed), string(models.VideoVotingOpen))
	if err != nil {
		return 0, database.Wrap("close video voting", err)
	}
	return int(tag.RowsAffected()), nil
}

// qualified is Columns prefixed with the v alias.
const qualified = `v.id, v.assignment_id, v.presentation_id, v.title, v.description, v.video_url,
	v.uploaded_at, v.voting_start_date, v.voting_end_date, v.votes_count, v.status`
