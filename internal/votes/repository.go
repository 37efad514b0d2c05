package votes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/internal/presentations"
	"github.com/tribu-research/challenge-backend/internal/videos"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// Repository persists ballots and their counters in one transaction per vote.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a votes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.VoteRepository = (*Repository)(nil)

// admit serializes the voter's ballots, runs the duplicate and cap checks and
// inserts v. The unique dedup_key is the backstop for the duplicate check.
func admit(ctx context.Context, tx pgx.Tx, v *models.Vote, limit int) error {
	if err := database.AdvisoryXactLock(ctx, tx, "voter:"+v.VoterID.String()); err != nil {
		return err
	}

	var dup bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM votes WHERE dedup_key = $1)`, v.DedupKey).Scan(&dup); err != nil {
		return database.Wrap("check duplicate vote", err)
	}
	if dup {
		return apperr.ErrDuplicateVote
	}

	if limit > 0 {
		const countQuery = `SELECT COUNT(*) FROM votes
			WHERE voter_id = $1 AND presentation_year = $2 AND presentation_month = $3`
		var n int
		if err := tx.QueryRow(ctx, countQuery, v.VoterID, v.Year, v.Month).Scan(&n); err != nil {
			return database.Wrap("count voter votes", err)
		}
		if n >= limit {
			return apperr.Reason(apperr.ErrVoteLimitExceeded, "%d votes allowed per month", limit)
		}
	}

	const insert = `INSERT INTO votes (id, voter_id, presentation_id, video_id,
			presentation_week, presentation_month, presentation_year, dedup_key, cast_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := tx.QueryRow(ctx, insert, v.VoterID, v.PresentationID, v.VideoID,
		v.Week, v.Month, v.Year, v.DedupKey, v.CastAt).Scan(&v.ID)
	if database.IsUniqueViolation(err, "votes_dedup_key_unique") {
		return apperr.ErrDuplicateVote
	}
	if err != nil {
		return database.Wrap("insert vote", err)
	}
	return nil
}

// CastPresentationVote persists v and bumps both presentation counters.
func (r *Repository) CastPresentationVote(ctx context.Context, v *models.Vote, limit int) (*models.Presentation, error) {
	if v.PresentationID == nil {
		return nil, apperr.ErrPresentationNotFound
	}
	var p models.Presentation
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := admit(ctx, tx, v, limit); err != nil {
			return err
		}
		query := `UPDATE presentations
			SET weekly_votes = weekly_votes + 1, monthly_votes = monthly_votes + 1
			WHERE id = $1
			RETURNING ` + presentations.PresentationColumns
		var err error
		p, err = presentations.ScanPresentation(tx.QueryRow(ctx, query, *v.PresentationID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrPresentationNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CastVideoVote persists v and bumps the video counter.
func (r *Repository) CastVideoVote(ctx context.Context, v *models.Vote, limit int) (*models.PresentationVideo, error) {
	if v.VideoID == nil {
		return nil, apperr.ErrVideoNotFound
	}
	var video models.PresentationVideo
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := admit(ctx, tx, v, limit); err != nil {
			return err
		}
		query := `UPDATE presentation_videos SET votes_count = votes_count + 1
			WHERE id = $1
			RETURNING ` + videos.Columns
		var err error
		video, err = videos.Scan(tx.QueryRow(ctx, query, *v.VideoID))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrVideoNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// CountVotes counts ballots referencing a presentation or video.
func (r *Repository) CountVotes(ctx context.Context, target uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM votes WHERE presentation_id = $1 OR video_id = $1`
	var n int
	if err := r.pool.QueryRow(ctx, query, target).Scan(&n); err != nil {
		return 0, database.Wrap("count votes", err)
	}
	return n, nil
}
