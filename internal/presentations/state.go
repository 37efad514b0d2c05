package presentations

import (
	"context"

	"github.com/google/uuid"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
)

// transitions lists the allowed forward moves of the lifecycle.
var transitions = map[models.PresentationStatus]models.PresentationStatus{
	models.PresentationPending:       models.PresentationScheduled,
	models.PresentationScheduled:     models.PresentationVideoUploaded,
	models.PresentationVideoUploaded: models.PresentationVotingOpen,
	models.PresentationVotingOpen:    models.PresentationCompleted,
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to models.PresentationStatus) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.PresentationStatus) bool {
	_, ok := transitions[s]
	return !ok
}

// Transition validates the move and applies it as a conditional update, so a
// concurrent writer that already moved the row makes this call fail instead
// of overwriting.
func Transition(ctx context.Context, repo ports.PresentationRepository, id uuid.UUID, from, to models.PresentationStatus) error {
	if !CanTransition(from, to) {
		return apperr.Reason(apperr.ErrInvalidTransition, "%s to %s", from, to)
	}
	return repo.UpdateStatus(ctx, id, from, to)
}
