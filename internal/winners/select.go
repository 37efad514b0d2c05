package winners

import "github.com/tribu-research/challenge-backend/internal/models"

// Score reads the counter a job ranks by.
type Score func(p *models.PresentationDetail) int

// Weekly ranks by weekly votes.
func Weekly(p *models.PresentationDetail) int { return p.WeeklyVotes }

// Monthly ranks by monthly votes.
func Monthly(p *models.PresentationDetail) int { return p.MonthlyVotes }

// Select returns the candidate with the highest score. Ties go to the
// earliest presentation date, then to the lowest id. It returns nil for an
// empty slice. A set where every score is zero still yields a winner.
func Select(candidates []models.PresentationDetail, score Score) *models.PresentationDetail {
	var best *models.PresentationDetail
	for i := range candidates {
		c := &candidates[i]
		if best == nil || beats(c, best, score) {
			best = c
		}
	}
	return best
}

func beats(c, best *models.PresentationDetail, score Score) bool {
	if sc, sb := score(c), score(best); sc != sb {
		return sc > sb
	}
	if !c.PresentationDate.Equal(best.PresentationDate) {
		return c.PresentationDate.Before(best.PresentationDate)
	}
	return c.ID.String() < best.ID.String()
}
