package videos

import (
	"time"

	"github.com/tribu-research/challenge-backend/internal/models"
)

// Columns selects a presentation_videos row.
const Columns = `id, assignment_id, presentation_id, title, description, video_url,
	uploaded_at, voting_start_date, voting_end_date, votes_count, status`

// Scanner is satisfied by pgx.Row and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Scan maps one Columns row.
func Scan(row Scanner) (models.PresentationVideo, error) {
	var (
		v          models.PresentationVideo
		start, end *time.Time
		status     string
	)
	err := row.Scan(&v.ID, &v.AssignmentID, &v.PresentationID, &v.Title, &v.Description, &v.VideoURL,
		&v.UploadedAt, &start, &end, &v.Votes, &status)
	if err != nil {
		return models.PresentationVideo{}, err
	}
	v.VotingStart = start
	v.VotingEnd = end
	v.Status = models.VideoStatus(status)
	return v, nil
}
