package models

import (
	"time"

	"github.com/google/uuid"
)

// PresentationStatus is a state of the presentation lifecycle.
type PresentationStatus string

const (
	PresentationPending       PresentationStatus = "PENDING"
	PresentationScheduled     PresentationStatus = "SCHEDULED"
	PresentationVideoUploaded PresentationStatus = "VIDEO_UPLOADED"
	PresentationVotingOpen    PresentationStatus = "VOTING_OPEN"
	PresentationCompleted     PresentationStatus = "COMPLETED"
)

// Presentation is one scheduled slot for a PRIMARY assignment.
// Week, Month and Year are derived from PresentationDate once, at creation.
type Presentation struct {
	ID               uuid.UUID          `json:"id"`
	AssignmentID     uuid.UUID          `json:"assignment_id"`
	PresentationDate time.Time          `json:"presentation_date"`
	Status           PresentationStatus `json:"status"`
	WeeklyVotes      int                `json:"weekly_votes"`
	MonthlyVotes     int                `json:"monthly_votes"`
	WeeklyWinner     bool               `json:"weekly_winner"`
	MonthlyWinner    bool               `json:"monthly_winner"`
	Week             int                `json:"week"`
	Month            int                `json:"month"`
	Year             int                `json:"year"`
	CreatedAt        time.Time          `json:"created_at"`
}

// PresentationDetail is a presentation joined with its assignment for display.
type PresentationDetail struct {
	Presentation
	ResearcherID   uuid.UUID      `json:"researcher_id"`
	ResearcherName string         `json:"researcher_name"`
	AgentID        uuid.UUID      `json:"agent_id"`
	AgentName      string         `json:"agent_name"`
	Role           AssignmentRole `json:"role"`
}

// PresentationView is the calendar row shown for the current week.
type PresentationView struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Role         AssignmentRole     `json:"role"`
	Presentation string             `json:"presentation"`
	Date         string             `json:"date"`
	Time         string             `json:"time"`
	Status       PresentationStatus `json:"status"`
}

// WeekPresentations is the current-week calendar.
type WeekPresentations struct {
	WeekStart     string             `json:"week_start"`
	WeekEnd       string             `json:"week_end"`
	Presentations []PresentationView `json:"presentations"`
}

// UpcomingPresentation is a presentation on or after now, with its standing.
type UpcomingPresentation struct {
	ID               uuid.UUID `json:"id"`
	ResearcherName   string    `json:"researcher_name"`
	AgentName        string    `json:"agent_name"`
	Role             string    `json:"role"`
	PresentationDate time.Time `json:"presentation_date"`
	WeeklyVotes      int       `json:"weekly_votes"`
	IsWeeklyWinner   bool      `json:"is_weekly_winner"`
	MonthlyVotes     int       `json:"monthly_votes"`
	IsMonthlyWinner  bool      `json:"is_monthly_winner"`
}
