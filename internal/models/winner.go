package models

import (
	"time"

	"github.com/google/uuid"
)

// Winner is a presentation flagged by the weekly or monthly job.
type Winner struct {
	ID               uuid.UUID `json:"id"`
	ResearcherName   string    `json:"researcher_name"`
	AgentName        string    `json:"agent_name"`
	Role             string    `json:"role"`
	PresentationDate time.Time `json:"presentation_date"`
	Votes            int       `json:"votes"`
}

// WinnersReport lists the weekly winners of a month and its monthly winner.
type WinnersReport struct {
	Month         int      `json:"month"`
	Year          int      `json:"year"`
	WeeklyWinners []Winner `json:"weekly_winners"`
	MonthlyWinner *Winner  `json:"monthly_winner"`
}
