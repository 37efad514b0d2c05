package presentations

import (
	"time"

	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/models"
)

// DetailColumns selects a presentation joined with its assignment, aliased p and a.
const DetailColumns = `p.id, p.assignment_id, p.presentation_date, p.status,
	p.weekly_votes, p.monthly_votes, p.weekly_winner, p.monthly_winner,
	p.week_of_year, p.month_of_year, p.year, p.created_at,
	a.researcher_id, a.researcher_name, a.agent_id, a.agent_name, a.role`

// DetailFrom is the FROM clause matching DetailColumns.
const DetailFrom = `presentations p JOIN assignments a ON a.id = p.assignment_id`

// Scanner is satisfied by pgx.Row and pgx.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanDetail maps one DetailColumns row.
func ScanDetail(row Scanner) (models.PresentationDetail, error) {
	var (
		d            models.PresentationDetail
		status, role string
		researcherID uuid.UUID
		agentID      uuid.UUID
		date, made   time.Time
	)
	err := row.Scan(&d.ID, &d.AssignmentID, &date, &status,
		&d.WeeklyVotes, &d.MonthlyVotes, &d.WeeklyWinner, &d.MonthlyWinner,
		&d.Week, &d.Month, &d.Year, &made,
		&researcherID, &d.ResearcherName, &agentID, &d.AgentName, &role)
	if err != nil {
		return models.PresentationDetail{}, err
	}
	d.PresentationDate = date
	d.CreatedAt = made
	d.Status = models.PresentationStatus(status)
	d.ResearcherID = researcherID
	d.AgentID = agentID
	d.Role = models.AssignmentRole(role)
	return d, nil
}

// PresentationColumns selects a bare presentation row.
const PresentationColumns = `id, assignment_id, presentation_date, status,
	weekly_votes, monthly_votes, weekly_winner, monthly_winner,
	week_of_year, month_of_year, year, created_at`

// ScanPresentation maps one PresentationColumns row.
func ScanPresentation(row Scanner) (models.Presentation, error) {
	var (
		p      models.Presentation
		status string
	)
	err := row.Scan(&p.ID, &p.AssignmentID, &p.PresentationDate, &status,
		&p.WeeklyVotes, &p.MonthlyVotes, &p.WeeklyWinner, &p.MonthlyWinner,
		&p.Week, &p.Month, &p.Year, &p.CreatedAt)
	if err != nil {
		return models.Presentation{}, err
	}
	p.Status = models.PresentationStatus(status)
	return p, nil
}
