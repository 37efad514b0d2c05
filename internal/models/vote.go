package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a single immutable ballot. Exactly one of PresentationID and VideoID
// is set. DedupKey is derived by the active uniqueness policy and is unique
// across the ledger.
type Vote struct {
	ID             uuid.UUID  `json:"id"`
	VoterID        uuid.UUID  `json:"voter_id"`
	PresentationID *uuid.UUID `json:"presentation_id,omitempty"`
	VideoID        *uuid.UUID `json:"video_id,omitempty"`
	Week           int        `json:"week"`
	Month          int        `json:"month"`
	Year           int        `json:"year"`
	DedupKey       string     `json:"-"`
	CastAt         time.Time  `json:"cast_at"`
}

// VoteResult is returned to the voter after a successful ballot.
type VoteResult struct {
	TargetID     uuid.UUID `json:"target_id"`
	Votes        int       `json:"votes"`
	MonthlyVotes int       `json:"monthly_votes,omitempty"`
}
