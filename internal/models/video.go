package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus is the voting state of an uploaded video.
type VideoStatus string

const (
	VideoUploaded   VideoStatus = "UPLOADED"
	VideoVotingOpen VideoStatus = "VOTING_OPEN"
	VideoClosed     VideoStatus = "CLOSED"
)

// PresentationVideo is the uploaded artifact voters vote on in the
// video-scoped variant. One per assignment.
type PresentationVideo struct {
	ID             uuid.UUID   `json:"id"`
	AssignmentID   uuid.UUID   `json:"assignment_id"`
	PresentationID uuid.UUID   `json:"presentation_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	VideoURL       string      `json:"video_url"`
	UploadedAt     time.Time   `json:"uploaded_at"`
	VotingStart    *time.Time  `json:"voting_start,omitempty"`
	VotingEnd      *time.Time  `json:"voting_end,omitempty"`
	Votes          int         `json:"votes"`
	Status         VideoStatus `json:"status"`
}

// IsVotingOpen reports whether at is inside the video's explicit voting window.
func (v *PresentationVideo) IsVotingOpen(at time.Time) bool {
	if v.Status != VideoVotingOpen || v.VotingStart == nil || v.VotingEnd == nil {
		return false
	}
	return !at.Before(*v.VotingStart) && !at.After(*v.VotingEnd)
}

// ChallengeStatus is the operator-controlled state of the monthly challenge.
type ChallengeStatus struct {
	CurrentMonth   int  `json:"current_month"`
	CurrentYear    int  `json:"current_year"`
	IsWeekOfUpload bool `json:"is_week_of_upload"`
	IsWeekOfVoting bool `json:"is_week_of_voting"`
}
